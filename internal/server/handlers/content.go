package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
	"git.home.luguber.info/inful/sitepublisher/internal/server/responses"
)

// Fetcher reads the published document of a target.
type Fetcher interface {
	Fetch(ctx context.Context, targetID string) (*publish.Snapshot, error)
}

// ContentHandlers serves the currently published document.
type ContentHandlers struct {
	fetcher      Fetcher
	errorAdapter *errors.HTTPErrorAdapter
}

// NewContentHandlers creates content handlers.
func NewContentHandlers(f Fetcher) *ContentHandlers {
	return &ContentHandlers{fetcher: f, errorAdapter: errors.NewHTTPErrorAdapter(slog.Default())}
}

// HandleGetContent returns the document and version of ?target= (default: first target).
func (h *ContentHandlers) HandleGetContent(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		methodNotAllowed(w, r, h.errorAdapter, http.MethodGet, http.MethodOptions)
		return
	}
	if h.fetcher == nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ConfigError("Content store not configured").Build())
		return
	}

	snap, err := h.fetcher.Fetch(r.Context(), r.URL.Query().Get("target"))
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, responses.ContentResponse{
		Target:   snap.Target,
		Version:  snap.Version,
		Document: snap.Document,
	})
}
