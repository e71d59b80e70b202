package publish

import (
	"strings"
	"time"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

// Kind tags a TargetResult.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// Stage is the step of a target pipeline that produced a failure.
type Stage string

const (
	StageRead  Stage = "read"
	StageWrite Stage = "write"
)

// TargetResult is the outcome of one target pipeline. Success results carry Version and
// Reference; failure results carry Stage and Reason.
type TargetResult struct {
	Kind      Kind          `json:"kind"`
	Target    string        `json:"target"`
	Store     string        `json:"store"`
	Path      string        `json:"path"`
	Version   store.Version `json:"version,omitempty"`
	Reference string        `json:"reference,omitempty"`
	Stage     Stage         `json:"stage,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Conflict  bool          `json:"conflict,omitempty"`
	Attempts  int           `json:"attempts"`
	Err       error         `json:"-"`
}

// IsSuccess reports whether the target was written.
func (r TargetResult) IsSuccess() bool { return r.Kind == KindSuccess }

func succeeded(t Target, rev *store.Revision, attempts int) TargetResult {
	return TargetResult{
		Kind:      KindSuccess,
		Target:    t.ID,
		Store:     t.Store.Name(),
		Path:      t.Path,
		Version:   rev.Version,
		Reference: rev.Reference,
		Attempts:  attempts,
	}
}

func failed(t Target, stage Stage, err error, attempts int) TargetResult {
	return TargetResult{
		Kind:     KindFailure,
		Target:   t.ID,
		Store:    t.Store.Name(),
		Path:     t.Path,
		Stage:    stage,
		Reason:   reasonOf(err),
		Conflict: store.IsConflict(err),
		Attempts: attempts,
		Err:      err,
	}
}

// reasonOf renders err for callers without the classification prefix.
func reasonOf(err error) string {
	var reason string
	if c, ok := errors.AsClassified(err); ok {
		reason = c.Message()
		if cause := c.Cause(); cause != nil {
			reason += ": " + cause.Error()
		}
	} else {
		reason = err.Error()
	}
	if store.IsConflict(err) && !strings.Contains(strings.ToLower(reason), "conflict") {
		reason = "version conflict: " + reason
	}
	return reason
}

// Outcome is the aggregate result of a publish.
type Outcome struct {
	PublishID           string         `json:"publishId"`
	OverallSuccess      bool           `json:"overallSuccess"`
	Succeeded           []TargetResult `json:"succeeded"`
	Failed              []TargetResult `json:"failed"`
	DeploymentTriggered bool           `json:"deploymentTriggered"`
	Reference           string         `json:"reference,omitempty"`
	StartedAt           time.Time      `json:"startedAt"`
	Duration            time.Duration  `json:"-"`
}

// SucceededTargets returns the ids of written targets in configuration order.
func (o *Outcome) SucceededTargets() []string { return ids(o.Succeeded) }

// FailedTargets returns the ids of failed targets in configuration order.
func (o *Outcome) FailedTargets() []string { return ids(o.Failed) }

// Partial reports whether some, but not all, targets failed.
func (o *Outcome) Partial() bool { return o.OverallSuccess && len(o.Failed) > 0 }

func ids(results []TargetResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Target
	}
	return out
}
