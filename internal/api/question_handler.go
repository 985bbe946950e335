package api

import (
	"errors"
	"net/http"

	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type QuestionListResponse struct {
	Questions []question.Question `json:"questions"`
	Total     int                 `json:"total"`
}

func questionList(qs []question.Question) QuestionListResponse {
	if qs == nil {
		qs = []question.Question{}
	}
	return QuestionListResponse{Questions: qs, Total: len(qs)}
}

type MarkSeenRequest struct {
	QuestionIDs []int `json:"questionIds"`
}

func (r *MarkSeenRequest) Validate() error {
	if len(r.QuestionIDs) == 0 {
		return errors.New("questionIds is required")
	}
	return nil
}

type SeenResponse struct {
	QuestionIDs []int `json:"questionIds"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /domains
func (h *Handler) listDomains(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.study.Domains())
}

// GET /questions?domain=N
func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	domain, ok := queryInt(w, r, "domain", 0)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, questionList(h.study.Questions(domain)))
}

// GET /questions/{questionID}
func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	q, err := h.study.Question(id)
	if h.handleServiceError(w, err, "question") {
		return
	}
	respondJSON(w, http.StatusOK, q)
}

// GET /questions/{questionID}/stats
func (h *Handler) getQuestionStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	stats, err := h.study.QuestionStats(id)
	if h.handleServiceError(w, err, "question") {
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GET /questions/incorrect
func (h *Handler) listIncorrect(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, questionList(h.study.IncorrectQuestions()))
}

// GET /questions/correct
func (h *Handler) listCorrect(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, questionList(h.study.CorrectQuestions()))
}

// GET /questions/answered
func (h *Handler) listAnswered(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, questionList(h.study.AnsweredQuestions()))
}

// GET /questions/unseen?domain=N
func (h *Handler) listUnseen(w http.ResponseWriter, r *http.Request) {
	domain, ok := queryInt(w, r, "domain", 0)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, questionList(h.study.UnseenQuestions(domain)))
}

// GET /questions/seen
func (h *Handler) listSeen(w http.ResponseWriter, r *http.Request) {
	ids := h.study.SeenQuestions()
	if ids == nil {
		ids = []int{}
	}
	respondJSON(w, http.StatusOK, SeenResponse{QuestionIDs: ids})
}

// POST /questions/seen
func (h *Handler) markSeen(w http.ResponseWriter, r *http.Request) {
	var req MarkSeenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if h.handleServiceError(w, h.study.MarkSeen(r.Context(), req.QuestionIDs...), "question") {
		return
	}
	respondJSON(w, http.StatusOK, SeenResponse{QuestionIDs: h.study.SeenQuestions()})
}

// GET /questions/custom?count=N&status=all|seen|unseen
func (h *Handler) customQuestions(w http.ResponseWriter, r *http.Request) {
	count, ok := queryInt(w, r, "count", service.DefaultQuestionCount)
	if !ok {
		return
	}
	status := service.SeenFilter(r.URL.Query().Get("status"))
	qs, err := h.study.CustomQuestions(count, status)
	if h.handleServiceError(w, err, "question") {
		return
	}
	respondJSON(w, http.StatusOK, questionList(qs))
}
