package publish

import (
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

// Target is a named location in a content store that receives every publish.
type Target struct {
	ID    string
	Store store.Store
	Path  string
}

func validateTargets(targets []Target) error {
	if len(targets) == 0 {
		return errors.ConfigError("no publish targets configured").Build()
	}
	seen := make(map[string]struct{}, len(targets))
	for i, t := range targets {
		switch {
		case t.ID == "":
			return errors.ConfigError("publish target has no id").WithContext("index", i).Build()
		case t.Store == nil:
			return errors.ConfigError("publish target has no store").WithContext("target", t.ID).Build()
		case t.Path == "":
			return errors.ConfigError("publish target has no path").WithContext("target", t.ID).Build()
		}
		if _, dup := seen[t.ID]; dup {
			return errors.ConfigError("duplicate publish target id").WithContext("target", t.ID).Build()
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// selectTargets resolves ids against the configured targets, keeping configuration order.
// No ids selects every target.
func (o *Orchestrator) selectTargets(ids []string) ([]Target, error) {
	if len(ids) == 0 {
		return o.targets, nil
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := o.byID[id]; !ok {
			return nil, errors.ValidationError("unknown publish target").
				WithContext("target", id).
				Build()
		}
		want[id] = struct{}{}
	}
	out := make([]Target, 0, len(want))
	for _, t := range o.targets {
		if _, ok := want[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}
