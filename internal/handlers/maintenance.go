package handlers

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"github.com/ukydev/propdocs-maintenance/internal/service"
)

type scheduleResponse struct {
	Schedule  *models.MaintenanceSchedule `json:"schedule"`
	FirstTask *models.MaintenanceTask     `json:"first_task,omitempty"`
}

// CreateSchedule handles POST /api/assets/{id}/schedules.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req createScheduleRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	schedule := req.model(h.svc.Engine().Now())
	task, err := h.svc.CreateSchedule(r.Context(), c, r.PathValue("id"), schedule)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "CREATE_SCHEDULE", "maintenance_schedules", map[string]interface{}{
		"schedule_id": schedule.ID.Hex(),
		"frequency":   schedule.Frequency,
	})
	respond(w, http.StatusCreated, "Maintenance schedule created", scheduleResponse{Schedule: schedule, FirstTask: task})
}

// CreateScheduleFromTemplate handles POST /api/assets/{id}/schedules/from-template.
func (h *Handler) CreateScheduleFromTemplate(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req fromTemplateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	start := h.svc.Engine().Now()
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	schedule, task, err := h.svc.CreateScheduleFromTemplate(r.Context(), c, r.PathValue("id"), req.TemplateID, start)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "CREATE_SCHEDULE", "maintenance_schedules", map[string]interface{}{
		"schedule_id": schedule.ID.Hex(),
		"template_id": req.TemplateID,
	})
	respond(w, http.StatusCreated, "Maintenance schedule created from template", scheduleResponse{Schedule: schedule, FirstTask: task})
}

// ListSchedules handles GET /api/assets/{id}/schedules.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	schedules, err := h.svc.ListSchedules(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", schedules)
}

// GetSchedule handles GET /api/schedules/{id}.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	schedule, err := h.svc.GetSchedule(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", schedule)
}

// UpdateSchedule handles PUT /api/schedules/{id}. Omitted fields keep
// their value.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req updateScheduleRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	schedule, err := h.svc.UpdateSchedule(r.Context(), c, r.PathValue("id"), req.patch())
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "UPDATE_SCHEDULE", "maintenance_schedules", map[string]interface{}{"schedule_id": schedule.ID.Hex()})
	respond(w, http.StatusOK, "Maintenance schedule updated", schedule)
}

// DeleteSchedule handles DELETE /api/schedules/{id}.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := h.svc.DeleteSchedule(r.Context(), c, id); err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "DELETE_SCHEDULE", "maintenance_schedules", map[string]interface{}{"schedule_id": id})
	respond(w, http.StatusOK, "Maintenance schedule deleted", nil)
}

// ActivateSchedule handles POST /api/schedules/{id}/activate.
func (h *Handler) ActivateSchedule(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	schedule, err := h.svc.ActivateSchedule(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "ACTIVATE_SCHEDULE", "maintenance_schedules", map[string]interface{}{"schedule_id": schedule.ID.Hex()})
	respond(w, http.StatusOK, "Maintenance schedule activated", schedule)
}

// DeactivateSchedule handles POST /api/schedules/{id}/deactivate.
func (h *Handler) DeactivateSchedule(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	schedule, err := h.svc.DeactivateSchedule(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "DEACTIVATE_SCHEDULE", "maintenance_schedules", map[string]interface{}{"schedule_id": schedule.ID.Hex()})
	respond(w, http.StatusOK, "Maintenance schedule deactivated", schedule)
}

// ListTasks handles GET /api/schedules/{id}/tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	tasks, err := h.svc.ListTasks(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", tasks)
}

// SearchTasks handles GET /api/tasks. The status, priority, due_from,
// due_to, overdue, upcoming and limit parameters narrow the search.
func (h *Handler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	search, err := taskSearch(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	tasks, err := h.svc.SearchTasks(r.Context(), c, search)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", tasks)
}

func taskSearch(r *http.Request) (service.TaskSearch, error) {
	q := r.URL.Query()
	search := service.TaskSearch{
		Status:   models.TaskStatus(q.Get("status")),
		Priority: models.Priority(q.Get("priority")),
		Limit:    queryLimit(r),
	}
	switch search.Status {
	case "", models.TaskStatusPending, models.TaskStatusOverdue, models.TaskStatusCompleted:
	default:
		return search, fmt.Errorf("%w: unknown status %q", errBadRequest, search.Status)
	}
	if search.Priority != "" && !slices.Contains(models.Priorities, search.Priority) {
		return search, fmt.Errorf("%w: unknown priority %q", errBadRequest, search.Priority)
	}
	var err error
	if search.DueFrom, err = queryTime(r, "due_from"); err != nil {
		return search, err
	}
	if search.DueTo, err = queryTime(r, "due_to"); err != nil {
		return search, err
	}
	if search.Overdue, err = queryBool(r, "overdue"); err != nil {
		return search, err
	}
	if search.Upcoming, err = queryBool(r, "upcoming"); err != nil {
		return search, err
	}
	return search, nil
}

// GetTask handles GET /api/tasks/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	task, err := h.svc.GetTask(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", task)
}

// CompleteTask handles POST /api/tasks/{id}/complete. An empty body
// completes the task with no cost or notes.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req completeTaskRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
	}
	result, err := h.svc.CompleteTask(r.Context(), c, r.PathValue("id"), req.input())
	if err != nil {
		respondError(w, r, err)
		return
	}
	metadata := map[string]interface{}{"task_id": result.Task.ID.Hex()}
	if result.NextTask != nil {
		metadata["next_task_id"] = result.NextTask.ID.Hex()
	}
	h.record(r, c, "COMPLETE_TASK", "maintenance_tasks", metadata)
	respond(w, http.StatusOK, "Maintenance task completed", result)
}

// CreateServiceRecord handles POST /api/assets/{id}/service-records.
func (h *Handler) CreateServiceRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	var req createServiceRecordRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	record, err := req.model()
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.svc.CreateServiceRecord(r.Context(), c, r.PathValue("id"), record); err != nil {
		respondError(w, r, err)
		return
	}
	h.record(r, c, "CREATE_SERVICE_RECORD", "service_records", map[string]interface{}{"service_record_id": record.ID.Hex()})
	respond(w, http.StatusCreated, "Service record created", record)
}

// ListServiceRecords handles GET /api/assets/{id}/service-records.
func (h *Handler) ListServiceRecords(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	records, err := h.svc.ListServiceRecords(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", records)
}

// GetServiceRecord handles GET /api/service-records/{id}.
func (h *Handler) GetServiceRecord(w http.ResponseWriter, r *http.Request) {
	c, ok := claims(w, r)
	if !ok {
		return
	}
	record, err := h.svc.GetServiceRecord(r.Context(), c, r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "", record)
}

// ListTemplates handles GET /api/maintenance/templates, optionally
// filtered by ?asset_type=.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	if _, ok := claims(w, r); !ok {
		return
	}
	respond(w, http.StatusOK, "", maintenance.Templates(r.URL.Query().Get("asset_type")))
}
