package handlers

import "net/http"

// ListNotifications handles GET /api/notifications. ?unread=true limits the
// list to unread notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	unread := r.URL.Query().Get("unread") == "true"
	notifications, err := h.svc.ListNotifications(r.Context(), c, unread, queryLimit(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", notifications)
}

// MarkNotificationRead handles POST /api/notifications/{id}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkNotificationRead(r.Context(), c, r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Notification marked as read", nil)
}

// ListActivity handles GET /api/activity.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	entries, err := h.svc.ListActivity(r.Context(), c, queryLimit(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", entries)
}
