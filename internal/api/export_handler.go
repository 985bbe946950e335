package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/store"
)

// ── Request / Response types ────────────────────────────────────────────────

type ImportResult struct {
	Status   string                `json:"status"`
	Progress progress.UserProgress `json:"progress"`
}

// ── Settings handlers ───────────────────────────────────────────────────────

// GET /settings
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.study.Settings())
}

// PATCH /settings
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch store.SettingsPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	settings, err := h.study.UpdateSettings(r.Context(), patch)
	if h.handleServiceError(w, err, "settings") {
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// ── Data handlers ───────────────────────────────────────────────────────────

// GET /export
func (h *Handler) exportAll(w http.ResponseWriter, r *http.Request) {
	data, err := h.study.Export()
	if h.handleServiceError(w, err, "export") {
		return
	}

	filename := fmt.Sprintf("security-plus-progress-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Write(data)
}

// POST /import
func (h *Handler) importAll(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if h.handleServiceError(w, h.study.Import(r.Context(), raw), "import") {
		return
	}
	respondJSON(w, http.StatusOK, ImportResult{Status: "imported", Progress: h.study.Progress()})
}

// DELETE /data
func (h *Handler) clearAll(w http.ResponseWriter, r *http.Request) {
	if h.handleServiceError(w, h.study.Clear(r.Context()), "data") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
