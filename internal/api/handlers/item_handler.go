package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"promptstack/internal/services"
)

// ItemHandler exposes the collection commands: submit sources, reorder,
// delete, duplicate, merge, clear, cancel and progress.
type ItemHandler struct {
	svc *services.CollectionService
	log *zap.Logger
}

func NewItemHandler(svc *services.CollectionService, log *zap.Logger) *ItemHandler {
	return &ItemHandler{svc: svc, log: log}
}

func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Items())
}

type manualRequest struct {
	Text string `json:"text"`
	Note string `json:"note"`
}

func (h *ItemHandler) AddManual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	item, err := h.svc.AddManual(req.Text, req.Note)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type filesRequest struct {
	Paths []string `json:"paths"`
}

func (h *ItemHandler) SubmitFiles(w http.ResponseWriter, r *http.Request) {
	var req filesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.svc.SubmitFiles(req.Paths); err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"submitted": len(req.Paths)})
}

type directoryRequest struct {
	Root string `json:"root"`
}

func (h *ItemHandler) SubmitDirectory(w http.ResponseWriter, r *http.Request) {
	var req directoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Root == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.svc.SubmitDirectory(req.Root); err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"root": req.Root})
}

type remoteRequest struct {
	Text string `json:"text"`
}

func (h *ItemHandler) SubmitRemote(w http.ResponseWriter, r *http.Request) {
	var req remoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	n, err := h.svc.SubmitRemoteIDs(req.Text)
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"submitted": n})
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (h *ItemHandler) DeleteItems(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": h.svc.Remove(req.IDs)})
}

type reorderRequest struct {
	ID       string `json:"id"`
	Position string `json:"position"` // "index" | "top" | "bottom"
	Index    int    `json:"index"`
}

func (h *ItemHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	var ok bool
	switch req.Position {
	case "top":
		ok = h.svc.MoveToTop(req.ID)
	case "bottom":
		ok = h.svc.MoveToBottom(req.ID)
	case "index", "":
		ok = h.svc.MoveToIndex(req.ID, req.Index)
	default:
		http.Error(w, "unknown position", http.StatusBadRequest)
		return
	}
	if !ok {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Items())
}

func (h *ItemHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": h.svc.DuplicateContent(req.IDs)})
}

func (h *ItemHandler) Merge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"content": h.svc.Merge()})
}

func (h *ItemHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.svc.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": h.svc.Cancel()})
}

func (h *ItemHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Progress())
}

func writeSubmitError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrBusy) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
