package publish

import (
	stderrors "errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// AllTargetsFailedError reports a publish in which no target was written.
type AllTargetsFailedError struct {
	PublishID string
	Failed    []TargetResult
}

func (e *AllTargetsFailedError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		parts[i] = fmt.Sprintf("%s (%s): %s", f.Target, f.Stage, f.Reason)
	}
	return fmt.Sprintf("all %d targets failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

// Detail is the per-target failure entry exposed to API callers.
type Detail struct {
	Target string `json:"target"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// Details lists the failures in configuration order.
func (e *AllTargetsFailedError) Details() []Detail {
	out := make([]Detail, len(e.Failed))
	for i, f := range e.Failed {
		out[i] = Detail{Target: f.Target, Stage: f.Stage, Reason: f.Reason}
	}
	return out
}

// NewAllTargetsFailed returns the classified error reported when no target was written.
// Its cause is an *AllTargetsFailedError and its "details" context lists the failures.
func NewAllTargetsFailed(publishID string, failures []TargetResult) error {
	inner := &AllTargetsFailedError{PublishID: publishID, Failed: failures}
	return errors.PublishError("Failed to publish to any target").
		WithCause(inner).
		WithContext(errors.DetailsKey, inner.Details()).
		WithContext("publish_id", publishID).
		Build()
}

// AsAllTargetsFailed extracts the aggregate failure from err.
func AsAllTargetsFailed(err error) (*AllTargetsFailedError, bool) {
	var e *AllTargetsFailedError
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}
