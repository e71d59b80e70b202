package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/history"
	"git.home.luguber.info/inful/sitepublisher/internal/server/responses"
)

// HistoryHandlers serves recorded publishes.
type HistoryHandlers struct {
	store        history.Store
	errorAdapter *errors.HTTPErrorAdapter
}

// NewHistoryHandlers creates history handlers. A nil store answers 404.
func NewHistoryHandlers(s history.Store) *HistoryHandlers {
	return &HistoryHandlers{store: s, errorAdapter: errors.NewHTTPErrorAdapter(slog.Default())}
}

func (h *HistoryHandlers) disabled(w http.ResponseWriter, r *http.Request) bool {
	if h.store != nil {
		return false
	}
	h.errorAdapter.WriteErrorResponse(w, r, errors.NotFoundError("publish history is not enabled").
		WithContext("env", "HISTORY_DB").
		Build())
	return true
}

// HandleList returns the most recent publishes (?limit=, default 50).
func (h *HistoryHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if h.disabled(w, r) {
		return
	}
	limit, err := intParam(r, "limit", history.DefaultListLimit)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	entries, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, r, http.StatusOK, responses.HistoryResponse{Publishes: entries})
}

// HandleGet returns one publish by id.
func (h *HistoryHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if h.disabled(w, r) {
		return
	}
	entry, err := h.store.Get(r.Context(), chi.URLParam(r, "publishID"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}
