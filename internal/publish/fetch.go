package publish

import (
	"context"

	"git.home.luguber.info/inful/sitepublisher/internal/content"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/observability"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

// Snapshot is the currently published document of one target.
type Snapshot struct {
	Target   string           `json:"target"`
	Version  store.Version    `json:"version"`
	Document content.Document `json:"document"`
}

// Fetch reads the published document of targetID, or of the first configured target when
// targetID is empty. Editors start their session from it.
func (o *Orchestrator) Fetch(ctx context.Context, targetID string) (*Snapshot, error) {
	t := o.targets[0]
	if targetID != "" {
		var ok bool
		if t, ok = o.byID[targetID]; !ok {
			return nil, errors.ValidationError("unknown publish target").
				WithContext("target", targetID).
				Build()
		}
	}
	if err := preflight([]Target{t}); err != nil {
		return nil, err
	}

	ctx = observability.WithTarget(ctx, t.ID)
	snap, _, err := callStore(ctx, o, t, StageRead, func(ctx context.Context) (*store.Snapshot, error) {
		return t.Store.Read(ctx, t.Path)
	})
	if err != nil {
		return nil, err
	}
	doc, err := content.Parse(snap.Data)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStore, "stored document is not a JSON object").
			NotRetryable().
			WithContext("target", t.ID).
			WithContext("path", t.Path).
			Build()
	}
	return &Snapshot{Target: t.ID, Version: snap.Version, Document: doc}, nil
}
