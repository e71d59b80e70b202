package handlers

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/sitepublisher/internal/content"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
	"git.home.luguber.info/inful/sitepublisher/internal/server/responses"
)

// DefaultMaxBodyBytes caps the publish request body.
const DefaultMaxBodyBytes int64 = 5 << 20

// Publisher is the part of the orchestrator the publish handler needs.
type Publisher interface {
	Preflight(targetIDs ...string) error
	Publish(ctx context.Context, doc any, targetIDs ...string) (*publish.Outcome, error)
}

// PublishHandlers serves the publish function.
type PublishHandlers struct {
	publisher    Publisher
	maxBodyBytes int64
	errorAdapter *errors.HTTPErrorAdapter
}

// NewPublishHandlers creates publish handlers. A nil publisher means no content store is
// configured; every POST then answers 500.
func NewPublishHandlers(p Publisher, maxBodyBytes int64) *PublishHandlers {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &PublishHandlers{
		publisher:    p,
		maxBodyBytes: maxBodyBytes,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandlePublish accepts the site document as the JSON body. The optional "targets" query
// parameter restricts the publish to a comma-separated list of target ids.
func (h *PublishHandlers) HandlePublish(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		methodNotAllowed(w, r, h.errorAdapter, http.MethodPost, http.MethodOptions)
		return
	}

	targets := splitList(r.URL.Query().Get("targets"))
	if h.publisher == nil {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ConfigError("Content store not configured").Build())
		return
	}
	if err := h.publisher.Preflight(targets...); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			err = errors.ValidationError("Invalid site data provided").
				WithCause(err).
				WithContext("limit_bytes", tooLarge.Limit).
				Build()
		} else {
			err = errors.ValidationError("Invalid site data provided").WithCause(err).Build()
		}
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	doc, err := content.Parse(body)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	outcome, err := h.publisher.Publish(r.Context(), doc, targets...)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, responses.NewPublishResponse(outcome))
}
