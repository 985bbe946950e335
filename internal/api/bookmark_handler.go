package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/secplus-trainer/backend/internal/domain/note"
)

// ── Request / Response types ────────────────────────────────────────────────

type BookmarkRequest struct {
	Note string `json:"note,omitempty"`
}

type NoteRequest struct {
	Content string `json:"content"`
}

func (r *NoteRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return errors.New("content is required")
	}
	return nil
}

// ── Bookmark handlers ───────────────────────────────────────────────────────

// GET /bookmarks
func (h *Handler) listBookmarks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.study.Bookmarks())
}

// PUT /bookmarks/{questionID}
func (h *Handler) addBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	var req BookmarkRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.study.AddBookmark(r.Context(), id, req.Note)
	if h.handleServiceError(w, err, "question") {
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// DELETE /bookmarks/{questionID}
func (h *Handler) removeBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	if h.handleServiceError(w, h.study.RemoveBookmark(r.Context(), id), "bookmark") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Note handlers ───────────────────────────────────────────────────────────

// GET /notes
func (h *Handler) listNotes(w http.ResponseWriter, r *http.Request) {
	notes := h.study.Notes()
	if notes == nil {
		notes = []note.Note{}
	}
	respondJSON(w, http.StatusOK, notes)
}

// GET /notes/{questionID}
func (h *Handler) getNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	n, err := h.study.Note(id)
	if h.handleServiceError(w, err, "note") {
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// PUT /notes/{questionID}
func (h *Handler) setNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	var req NoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	n, err := h.study.SetNote(r.Context(), id, req.Content)
	if h.handleServiceError(w, err, "question") {
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// DELETE /notes/{questionID}
func (h *Handler) removeNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "questionID")
	if !ok {
		return
	}
	if h.handleServiceError(w, h.study.RemoveNote(r.Context(), id), "note") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
