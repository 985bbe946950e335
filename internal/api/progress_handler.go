package api

import (
	"errors"
	"net/http"

	"github.com/secplus-trainer/backend/internal/domain/testmode"
)

// ── Request / Response types ────────────────────────────────────────────────

type RecordAttemptRequest struct {
	QuestionID     int           `json:"questionId"`
	SelectedAnswer string        `json:"selectedAnswer"`
	TimeSpent      float64       `json:"timeSpent"`
	TestMode       testmode.Mode `json:"testMode,omitempty"`
}

func (r *RecordAttemptRequest) Validate() error {
	if r.QuestionID <= 0 {
		return errors.New("questionId is required")
	}
	if r.SelectedAnswer == "" {
		return errors.New("selectedAnswer is required")
	}
	if r.TimeSpent < 0 {
		return errors.New("timeSpent must not be negative")
	}
	if r.TestMode != "" && !r.TestMode.Valid() {
		return errors.New("invalid testMode")
	}
	return nil
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /progress
func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.study.Progress())
}

// GET /progress/domains
func (h *Handler) getDomainProgress(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.study.DomainReports())
}

// POST /progress/recompute
func (h *Handler) recomputeProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.study.RecomputeProgress(r.Context())
	if h.handleServiceError(w, err, "progress") {
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// POST /attempts
func (h *Handler) recordAttempt(w http.ResponseWriter, r *http.Request) {
	var req RecordAttemptRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	a, err := h.study.RecordAttempt(r.Context(), req.QuestionID, req.SelectedAnswer, req.TimeSpent, req.TestMode)
	if h.handleServiceError(w, err, "question") {
		return
	}
	respondJSON(w, http.StatusCreated, a)
}
