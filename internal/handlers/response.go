package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/propdocs-maintenance/internal/db"
	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/service"
)

// Error codes returned in the error envelope.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeQuota        = "QUOTA_EXCEEDED"
	CodeInternal     = "INTERNAL_ERROR"
)

var errBadRequest = errors.New("bad request")

// Response is the envelope of every API response.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	resp.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

func respond(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
	}
	writeJSON(w, status, Response{Success: false, Error: body})
}

// classify maps an error to its HTTP status and error body.
func classify(err error) (int, *ErrorBody) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		return http.StatusBadRequest, &ErrorBody{Code: CodeValidation, Message: "Validation failed", Fields: fields}
	}

	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, db.ErrInvalidID),
		errors.Is(err, maintenance.ErrInvalidFrequency),
		errors.Is(err, maintenance.ErrInvalidCadence),
		errors.Is(err, maintenance.ErrInvalidPriority),
		errors.Is(err, service.ErrTaskMismatch):
		return http.StatusBadRequest, &ErrorBody{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, db.ErrNotFound), errors.Is(err, service.ErrTemplateNotFound):
		return http.StatusNotFound, &ErrorBody{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusForbidden, &ErrorBody{Code: CodeQuota, Message: err.Error()}
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, &ErrorBody{Code: CodeForbidden, Message: "You do not have access to this resource"}
	case errors.Is(err, service.ErrTaskCompleted),
		errors.Is(err, db.ErrDuplicateTask),
		errors.Is(err, db.ErrDuplicateNotification):
		return http.StatusConflict, &ErrorBody{Code: CodeConflict, Message: err.Error()}
	}
	return http.StatusInternalServerError, &ErrorBody{Code: CodeInternal, Message: "Internal server error"}
}
