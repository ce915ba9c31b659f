package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/middleware"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"github.com/ukydev/propdocs-maintenance/internal/service"
)

// Handler serves the property maintenance API.
type Handler struct {
	svc *service.Service
}

// New creates a handler backed by svc.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the API routes on mux. Authentication is applied by the
// caller around the whole mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/properties", h.CreateProperty)
	mux.HandleFunc("GET /api/properties", h.ListProperties)
	mux.HandleFunc("GET /api/properties/{id}", h.GetProperty)
	mux.HandleFunc("PUT /api/properties/{id}", h.UpdateProperty)
	mux.HandleFunc("DELETE /api/properties/{id}", h.DeleteProperty)

	mux.HandleFunc("POST /api/properties/{id}/assets", h.CreateAsset)
	mux.HandleFunc("GET /api/properties/{id}/assets", h.ListAssets)
	mux.HandleFunc("GET /api/assets/{id}", h.GetAsset)
	mux.HandleFunc("PUT /api/assets/{id}", h.UpdateAsset)
	mux.HandleFunc("PATCH /api/assets/{id}/condition", h.UpdateAssetCondition)
	mux.HandleFunc("DELETE /api/assets/{id}", h.DeleteAsset)

	mux.HandleFunc("POST /api/assets/{id}/schedules", h.CreateSchedule)
	mux.HandleFunc("GET /api/assets/{id}/schedules", h.ListSchedules)
	mux.HandleFunc("POST /api/assets/{id}/schedules/from-template", h.CreateScheduleFromTemplate)
	mux.HandleFunc("GET /api/schedules/{id}", h.GetSchedule)
	mux.HandleFunc("PUT /api/schedules/{id}", h.UpdateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", h.DeleteSchedule)
	mux.HandleFunc("POST /api/schedules/{id}/activate", h.ActivateSchedule)
	mux.HandleFunc("POST /api/schedules/{id}/deactivate", h.DeactivateSchedule)

	mux.HandleFunc("GET /api/schedules/{id}/tasks", h.ListTasks)
	mux.HandleFunc("GET /api/tasks", h.SearchTasks)
	mux.HandleFunc("GET /api/tasks/{id}", h.GetTask)
	mux.HandleFunc("POST /api/tasks/{id}/complete", h.CompleteTask)

	mux.HandleFunc("POST /api/assets/{id}/service-records", h.CreateServiceRecord)
	mux.HandleFunc("GET /api/assets/{id}/service-records", h.ListServiceRecords)
	mux.HandleFunc("GET /api/service-records/{id}", h.GetServiceRecord)

	mux.HandleFunc("GET /api/notifications", h.ListNotifications)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.MarkNotificationRead)

	mux.HandleFunc("GET /api/maintenance/templates", h.ListTemplates)
	mux.HandleFunc("GET /api/activity", h.ListActivity)
}

// claims returns the authenticated caller, answering 401 when there is none.
func claims(w http.ResponseWriter, r *http.Request) (*models.Claims, bool) {
	c, ok := middleware.GetUserFromContext(r.Context())
	if !ok || c == nil || c.UserID == "" {
		writeJSON(w, http.StatusUnauthorized, Response{
			Success: false,
			Error:   &ErrorBody{Code: CodeUnauthorized, Message: "Authentication required"},
		})
		return nil, false
	}
	return c, true
}

func (h *Handler) record(r *http.Request, c *models.Claims, action, resource string, metadata map[string]interface{}) {
	h.svc.RecordActivity(r.Context(), c, action, resource, metadata, middleware.ClientIP(r))
}

// queryBool reads a boolean query parameter. Absent means false.
func queryBool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false", errBadRequest, name)
	}
	return b, nil
}

// queryTime reads an RFC 3339 query parameter. Absent means nil.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an RFC 3339 time", errBadRequest, name)
	}
	t = t.UTC()
	return &t, nil
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 0
	}
	if limit > 200 {
		return 200
	}
	return limit
}
