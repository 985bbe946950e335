package api

import (
	"errors"
	"net/http"

	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/domain/session"
)

// ── Request / Response types ────────────────────────────────────────────────

// CreateSessionRequest carries the test configuration; unset fields take
// the service defaults.
type CreateSessionRequest struct {
	session.Config
}

func (r *CreateSessionRequest) Validate() error {
	if r.Mode != "" && !r.Mode.Valid() {
		return errors.New("invalid mode")
	}
	if r.Priority != "" && !r.Priority.Valid() {
		return errors.New("invalid questionPriority: must be wrong, new, mix or random")
	}
	if r.QuestionCount < 0 {
		return errors.New("questionCount must not be negative")
	}
	if r.TimeLimit < 0 {
		return errors.New("timeLimit must not be negative")
	}
	return nil
}

type PreviewResponse struct {
	Questions []question.Question `json:"questions"`
	Total     int                 `json:"total"`
}

type SubmitAnswerRequest struct {
	QuestionID int     `json:"questionId"`
	Answer     string  `json:"answer"`
	TimeSpent  float64 `json:"timeSpent"`
}

func (r *SubmitAnswerRequest) Validate() error {
	if r.QuestionID <= 0 {
		return errors.New("questionId is required")
	}
	if r.TimeSpent < 0 {
		return errors.New("timeSpent must not be negative")
	}
	return nil
}

type DeleteSessionResponse struct {
	SessionID       string `json:"sessionId"`
	AttemptsRemoved int    `json:"attemptsRemoved"`
}

type TimerResponse struct {
	SessionID        string `json:"sessionId"`
	Running          bool   `json:"running"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// POST /sessions
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	sess, err := h.study.StartSession(r.Context(), req.Config)
	if h.handleServiceError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// POST /sessions/preview
func (h *Handler) previewSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	qs, err := h.study.SelectQuestions(req.Config)
	if h.handleServiceError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, PreviewResponse{Questions: qs, Total: len(qs)})
}

// GET /sessions
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.study.Sessions())
}

// GET /sessions/{sessionID}
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.study.Session(r.PathValue("sessionID"))
	if h.handleServiceError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// DELETE /sessions/{sessionID}
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	removed, err := h.study.DeleteSession(r.Context(), sessionID)
	if h.handleServiceError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, DeleteSessionResponse{SessionID: sessionID, AttemptsRemoved: removed})
}

// POST /sessions/{sessionID}/answers
func (h *Handler) answerQuestion(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.study.AnswerQuestion(r.Context(), r.PathValue("sessionID"), req.QuestionID, req.Answer, req.TimeSpent)
	if h.handleServiceError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// POST /sessions/{sessionID}/submit
func (h *Handler) submitSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.study.SubmitSession(r.Context(), r.PathValue("sessionID"))
	if h.handleServiceError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GET /sessions/{sessionID}/timer
func (h *Handler) getTimer(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionID")
	if _, err := h.study.Session(sessionID); h.handleServiceError(w, err, "session") {
		return
	}
	remaining, running := h.study.TimeRemaining(sessionID)
	respondJSON(w, http.StatusOK, TimerResponse{
		SessionID:        sessionID,
		Running:          running,
		RemainingSeconds: int(remaining.Seconds()),
	})
}

// GET /history
func (h *Handler) testHistory(w http.ResponseWriter, r *http.Request) {
	history := h.study.TestHistory()
	if history == nil {
		history = []session.DisplaySession{}
	}
	respondJSON(w, http.StatusOK, history)
}
