package handlers

import (
	"encoding/json"
	"net/http"

	"promptstack/internal/core/settings"
)

// SettingsHandler reads and updates the remote API connection settings.
type SettingsHandler struct {
	settings *settings.Store
}

func NewSettingsHandler(st *settings.Store) *SettingsHandler {
	return &SettingsHandler{settings: st}
}

type apiSettings struct {
	APIBaseURL string `json:"api_base_url"`
	APIToken   string `json:"api_token"`
	Timeout    int    `json:"timeout"`
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	doc := h.settings.Document()
	writeJSON(w, http.StatusOK, apiSettings{
		APIBaseURL: doc.APIBaseURL,
		APIToken:   doc.APIToken,
		Timeout:    doc.Timeout,
	})
}

func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req apiSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	h.settings.UpdateAPISettings(req.APIBaseURL, req.APIToken, req.Timeout)
	h.GetSettings(w, r)
}
