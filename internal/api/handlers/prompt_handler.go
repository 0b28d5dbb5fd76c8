package handlers

import (
	"encoding/json"
	"net/http"

	"promptstack/internal/core/settings"
)

// PromptHandler manages the saved-prompt records in the config document.
type PromptHandler struct {
	settings *settings.Store
}

func NewPromptHandler(st *settings.Store) *PromptHandler {
	return &PromptHandler{settings: st}
}

func (h *PromptHandler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Prompts())
}

type savePromptRequest struct {
	Text string `json:"text"`
	Note string `json:"note"`
}

// SavePrompt creates the record or, for an existing text, updates its note
// and updated timestamp.
func (h *PromptHandler) SavePrompt(w http.ResponseWriter, r *http.Request) {
	var req savePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	h.settings.AddOrUpdatePrompt(req.Text, req.Note)
	writeJSON(w, http.StatusOK, h.settings.Prompts())
}

type deletePromptRequest struct {
	Text string `json:"text"`
}

func (h *PromptHandler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	var req deletePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	h.settings.DeletePrompt(req.Text)
	w.WriteHeader(http.StatusNoContent)
}
