package handlers

import (
	"net/http"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/models"
	"github.com/ukydev/propdocs-maintenance/internal/service"
)

// CreateProperty handles POST /api/properties.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req createPropertyRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	property := req.model()
	if err := h.svc.CreateProperty(r.Context(), c, property); err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "CREATE_PROPERTY", "properties", map[string]interface{}{"property_id": property.ID.Hex()})
	respond(w, http.StatusCreated, "Property created", property)
}

// ListProperties handles GET /api/properties.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	properties, err := h.svc.ListProperties(r.Context(), c)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", properties)
}

// GetProperty handles GET /api/properties/{id}.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	property, err := h.svc.GetProperty(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", property)
}

// UpdateProperty handles PUT /api/properties/{id}. Omitted fields keep
// their value.
func (h *Handler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req updatePropertyRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	property, err := h.svc.UpdateProperty(r.Context(), c, r.PathValue("id"), req.patch())
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "UPDATE_PROPERTY", "properties", map[string]interface{}{"property_id": property.ID.Hex()})
	respond(w, http.StatusOK, "Property updated", property)
}

// DeleteProperty handles DELETE /api/properties/{id}. Its assets, schedules
// and tasks go with it.
func (h *Handler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := h.svc.DeleteProperty(r.Context(), c, id); err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "DELETE_PROPERTY", "properties", map[string]interface{}{"property_id": id})
	respond(w, http.StatusOK, "Property deleted", nil)
}

// CreateAsset handles POST /api/properties/{id}/assets.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req createAssetRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	asset := req.model()
	if err := h.svc.CreateAsset(r.Context(), c, r.PathValue("id"), asset); err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "CREATE_ASSET", "assets", map[string]interface{}{"asset_id": asset.ID.Hex()})
	respond(w, http.StatusCreated, "Asset created", asset)
}

// ListAssets handles GET /api/properties/{id}/assets. The q, category,
// condition, brand, location, room and warranty_expiring_soon parameters
// narrow the list.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := service.AssetFilter{
		Query:     q.Get("q"),
		Category:  models.AssetCategory(q.Get("category")),
		Condition: models.AssetCondition(q.Get("condition")),
		Brand:     q.Get("brand"),
		Location:  q.Get("location"),
		Room:      q.Get("room"),
	}
	expiring, err := queryBool(r, "warranty_expiring_soon")
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter.WarrantyExpiringSoon = expiring
	assets, err := h.svc.ListAssets(r.Context(), c, r.PathValue("id"), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", assets)
}

// GetAsset handles GET /api/assets/{id}.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	asset, err := h.svc.GetAsset(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", asset)
}

// UpdateAsset handles PUT /api/assets/{id}. Omitted fields keep their value.
func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req updateAssetRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	asset, err := h.svc.UpdateAsset(r.Context(), c, r.PathValue("id"), req.patch())
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "UPDATE_ASSET", "assets", map[string]interface{}{"asset_id": asset.ID.Hex()})
	respond(w, http.StatusOK, "Asset updated", asset)
}

// UpdateAssetCondition handles PATCH /api/assets/{id}/condition.
func (h *Handler) UpdateAssetCondition(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req assetConditionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	var inspected time.Time
	if req.LastInspected != nil {
		inspected = *req.LastInspected
	}
	asset, err := h.svc.UpdateAssetCondition(r.Context(), c, r.PathValue("id"), req.Condition, req.ConditionNotes, inspected)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "UPDATE_ASSET_CONDITION", "assets", map[string]interface{}{
		"asset_id":  asset.ID.Hex(),
		"condition": string(asset.Condition),
	})
	respond(w, http.StatusOK, "Asset condition updated", asset)
}

// DeleteAsset handles DELETE /api/assets/{id}.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := h.svc.DeleteAsset(r.Context(), c, id); err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "DELETE_ASSET", "assets", map[string]interface{}{"asset_id": id})
	respond(w, http.StatusOK, "Asset deleted", nil)
}
