// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/secplus-trainer/backend/internal/domain/note"
	"github.com/secplus-trainer/backend/internal/domain/session"
	"github.com/secplus-trainer/backend/internal/service"
	"github.com/secplus-trainer/backend/internal/store"
)

// maxBodyBytes bounds request bodies; imports carry the whole document.
const maxBodyBytes = 16 << 20

// Handler holds all dependencies needed by HTTP handlers.
// Instead of relying on package-level globals, every handler method
// receives its dependencies through this struct.
type Handler struct {
	study  *service.StudyService
	logger *zap.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(study *service.StudyService, logger *zap.Logger) *Handler {
	return &Handler{
		study:  study,
		logger: logger,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, ErrorResponse{Error: msg})
}

// validator is implemented by request bodies that check themselves.
type validator interface {
	Validate() error
}

// decodeJSON reads the request body into v. On failure it writes a 400
// and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, v validator) bool {
	if !decodeJSON(w, r, v) {
		return false
	}
	if err := v.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// pathID parses a positive integer path value. On failure it writes a 400
// and returns false.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt returns the named query parameter, or def when it is absent.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

// handleServiceError checks for common service errors and writes the
// appropriate HTTP response. Returns true if an error was handled (caller
// should return).
func (h *Handler) handleServiceError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrUnknownQuestion):
		respondError(w, http.StatusNotFound, entity+" not found")
	case errors.Is(err, session.ErrAlreadyCompleted), errors.Is(err, session.ErrAlreadyAnswered):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNoQuestions):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidConfig),
		errors.Is(err, session.ErrQuestionNotInSession),
		errors.Is(err, note.ErrEmptyContent),
		errors.Is(err, store.ErrCorrupt):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", zap.String("entity", entity), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
	return true
}
