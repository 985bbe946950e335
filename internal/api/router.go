// internal/api/router.go
package api

import "net/http"

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Catalog
	mux.HandleFunc("GET /domains", h.listDomains)
	mux.HandleFunc("GET /questions", h.listQuestions)
	mux.HandleFunc("GET /questions/{questionID}", h.getQuestion)
	mux.HandleFunc("GET /questions/{questionID}/stats", h.getQuestionStats)

	// Derived question lists
	mux.HandleFunc("GET /questions/incorrect", h.listIncorrect)
	mux.HandleFunc("GET /questions/correct", h.listCorrect)
	mux.HandleFunc("GET /questions/answered", h.listAnswered)
	mux.HandleFunc("GET /questions/unseen", h.listUnseen)
	mux.HandleFunc("GET /questions/seen", h.listSeen)
	mux.HandleFunc("POST /questions/seen", h.markSeen)
	mux.HandleFunc("GET /questions/custom", h.customQuestions)

	// Progress
	mux.HandleFunc("GET /progress", h.getProgress)
	mux.HandleFunc("GET /progress/domains", h.getDomainProgress)
	mux.HandleFunc("POST /progress/recompute", h.recomputeProgress)
	mux.HandleFunc("POST /attempts", h.recordAttempt)

	// Bookmarks
	mux.HandleFunc("GET /bookmarks", h.listBookmarks)
	mux.HandleFunc("PUT /bookmarks/{questionID}", h.addBookmark)
	mux.HandleFunc("DELETE /bookmarks/{questionID}", h.removeBookmark)

	// Notes
	mux.HandleFunc("GET /notes", h.listNotes)
	mux.HandleFunc("GET /notes/{questionID}", h.getNote)
	mux.HandleFunc("PUT /notes/{questionID}", h.setNote)
	mux.HandleFunc("DELETE /notes/{questionID}", h.removeNote)

	// Sessions
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("POST /sessions/preview", h.previewSession)
	mux.HandleFunc("GET /sessions", h.listSessions)
	mux.HandleFunc("GET /sessions/{sessionID}", h.getSession)
	mux.HandleFunc("DELETE /sessions/{sessionID}", h.deleteSession)
	mux.HandleFunc("POST /sessions/{sessionID}/answers", h.answerQuestion)
	mux.HandleFunc("POST /sessions/{sessionID}/submit", h.submitSession)
	mux.HandleFunc("GET /sessions/{sessionID}/timer", h.getTimer)
	mux.HandleFunc("GET /history", h.testHistory)

	// Settings and data
	mux.HandleFunc("GET /settings", h.getSettings)
	mux.HandleFunc("PATCH /settings", h.updateSettings)
	mux.HandleFunc("GET /export", h.exportAll)
	mux.HandleFunc("POST /import", h.importAll)
	mux.HandleFunc("DELETE /data", h.clearAll)
}
