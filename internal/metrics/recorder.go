package metrics

import "time"

// ResultLabel enumerates per-target result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultConflict ResultLabel = "conflict"
	ResultFailed   ResultLabel = "failed"
)

// OutcomeLabel enumerates aggregate publish outcomes.
type OutcomeLabel string

const (
	OutcomeSuccess  OutcomeLabel = "success"
	OutcomePartial  OutcomeLabel = "partial"
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeRejected OutcomeLabel = "rejected" // validation or configuration error before any I/O
)

// TriggerLabel enumerates deployment trigger results.
type TriggerLabel string

const (
	TriggerSucceeded TriggerLabel = "succeeded"
	TriggerFailed    TriggerLabel = "failed"
	TriggerSkipped   TriggerLabel = "skipped"
)

// Recorder defines observability hooks for publish operations. Implementations must be
// safe for concurrent use; per-target pipelines report in parallel.
type Recorder interface {
	ObservePublishDuration(d time.Duration)
	IncPublishOutcome(outcome OutcomeLabel)
	ObserveStoreCall(target, stage string, d time.Duration, success bool)
	IncTargetResult(target string, result ResultLabel)
	IncStoreRetry(target, stage string)
	IncTrigger(result TriggerLabel)
	ObserveTriggerDuration(d time.Duration)
	ObserveHTTPRequest(route string, status int, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePublishDuration(time.Duration) {}
func (NoopRecorder) IncPublishOutcome(OutcomeLabel) {}
func (NoopRecorder) ObserveStoreCall(string, string, time.Duration, bool) {}
func (NoopRecorder) IncTargetResult(string, ResultLabel) {}
func (NoopRecorder) IncStoreRetry(string, string) {}
func (NoopRecorder) IncTrigger(TriggerLabel) {}
func (NoopRecorder) ObserveTriggerDuration(time.Duration) {}
func (NoopRecorder) ObserveHTTPRequest(string, int, time.Duration) {}
