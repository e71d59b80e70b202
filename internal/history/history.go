// Package history keeps an append-only record of publish operations and the results of
// their deployment triggers.
package history

import (
	"context"
	"time"
)

// TriggerStatus tracks the detached deployment trigger of a publish.
type TriggerStatus string

const (
	TriggerPending   TriggerStatus = "pending"
	TriggerSkipped   TriggerStatus = "skipped"
	TriggerSucceeded TriggerStatus = "succeeded"
	TriggerFailed    TriggerStatus = "failed"
)

// FailedTarget is one failed target of a publish.
type FailedTarget struct {
	Target string `json:"target"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Entry is one recorded publish.
type Entry struct {
	ID            int64          `json:"id"`
	PublishID     string         `json:"publishId"`
	StartedAt     time.Time      `json:"startedAt"`
	DurationMS    int64          `json:"durationMs"`
	Outcome       string         `json:"outcome"`
	Reference     string         `json:"reference,omitempty"`
	Succeeded     []string       `json:"succeeded"`
	Failed        []FailedTarget `json:"failed"`
	TriggerStatus TriggerStatus  `json:"triggerStatus"`
	TriggerError  string         `json:"triggerError,omitempty"`
}

// Store persists publish history.
type Store interface {
	// Record appends a publish.
	Record(ctx context.Context, e Entry) error
	// RecordTrigger updates the trigger status of a recorded publish.
	RecordTrigger(ctx context.Context, publishID string, status TriggerStatus, triggerErr string) error
	// Get returns one publish by id.
	Get(ctx context.Context, publishID string) (*Entry, error)
	// List returns the most recent publishes, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)
	// Prune deletes publishes started before cutoff and returns how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
	// Close releases resources.
	Close() error
}
