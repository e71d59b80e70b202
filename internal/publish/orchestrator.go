package publish

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitepublisher/internal/content"
	"git.home.luguber.info/inful/sitepublisher/internal/deploy"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/history"
	"git.home.luguber.info/inful/sitepublisher/internal/logfields"
	"git.home.luguber.info/inful/sitepublisher/internal/metrics"
	"git.home.luguber.info/inful/sitepublisher/internal/observability"
	"git.home.luguber.info/inful/sitepublisher/internal/retry"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

// DefaultStoreTimeout bounds one store read or write.
const DefaultStoreTimeout = 10 * time.Second

// Options tune the orchestrator. Zero values select defaults.
type Options struct {
	StoreTimeout   time.Duration
	CommitMessage  string
	WaitForTrigger bool
	// Concurrency caps in-flight target pipelines; zero runs every target at once.
	Concurrency int
	Retry       retry.Policy
}

// Option configures optional collaborators.
type Option func(*Orchestrator)

// WithTrigger installs the deployment trigger fired after a successful publish.
func WithTrigger(t deploy.Trigger, timeout time.Duration) Option {
	return func(o *Orchestrator) {
		o.trigger = t
		o.triggerTimeout = timeout
	}
}

// WithHistory records every publish and its trigger outcome.
func WithHistory(h history.Store) Option {
	return func(o *Orchestrator) { o.history = h }
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithIDGenerator overrides publish id generation.
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// Orchestrator writes a document to every configured target and fires the deployment
// trigger once at least one write succeeded. It holds no per-publish state and is safe
// for concurrent use.
type Orchestrator struct {
	targets []Target
	byID    map[string]Target
	opts    Options
	message commitMessage

	trigger        deploy.Trigger
	triggerTimeout time.Duration
	dispatcher     *deploy.Dispatcher
	history        history.Store
	recorder       metrics.Recorder
	newID          func() string
	now            func() time.Time
}

// New validates targets and returns an orchestrator.
func New(targets []Target, opts Options, options ...Option) (*Orchestrator, error) {
	if err := validateTargets(targets); err != nil {
		return nil, err
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.DefaultPolicy()
	}
	msg, err := parseCommitMessage(opts.CommitMessage)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		targets:  append([]Target(nil), targets...),
		byID:     make(map[string]Target, len(targets)),
		opts:     opts,
		message:  msg,
		recorder: metrics.NoopRecorder{},
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, t := range o.targets {
		o.byID[t.ID] = t
	}
	for _, opt := range options {
		opt(o)
	}
	o.dispatcher = deploy.NewDispatcher(o.trigger, o.triggerTimeout, o.observeTrigger)
	return o, nil
}

// Targets returns the configured targets in order.
func (o *Orchestrator) Targets() []Target {
	return append([]Target(nil), o.targets...)
}

// TargetIDs returns the configured target ids in order.
func (o *Orchestrator) TargetIDs() []string {
	out := make([]string, len(o.targets))
	for i, t := range o.targets {
		out[i] = t.ID
	}
	return out
}

// TriggerEnabled reports whether a deployment trigger is configured.
func (o *Orchestrator) TriggerEnabled() bool { return o.dispatcher.Enabled() }

// Close waits for detached deployment triggers to finish.
func (o *Orchestrator) Close() error {
	o.dispatcher.Wait()
	return nil
}

// Preflight reports the first target whose store lacks credentials or identifiers.
func (o *Orchestrator) Preflight(targetIDs ...string) error {
	targets, err := o.selectTargets(targetIDs)
	if err != nil {
		return err
	}
	return preflight(targets)
}

func preflight(targets []Target) error {
	for _, t := range targets {
		if err := store.Preflight(t.Store); err != nil {
			if c, ok := errors.AsClassified(err); ok {
				return c.WithContext("target", t.ID)
			}
			return errors.ConfigError("content store is not configured").
				WithCause(err).
				WithContext("target", t.ID).
				Build()
		}
	}
	return nil
}

// Publish persists doc to the selected targets (all when none are named) and dispatches
// the deployment trigger if any target was written.
//
// Validation and configuration problems are returned before any store is contacted. When
// every target fails the returned error wraps *AllTargetsFailedError; a partial failure is
// reported through Outcome.Failed with a nil error. doc is never mutated.
func (o *Orchestrator) Publish(ctx context.Context, doc any, targetIDs ...string) (*Outcome, error) {
	started := o.now()
	publishID := o.newID()
	ctx = observability.WithPublishID(ctx, publishID)

	outcome, err := o.publish(ctx, publishID, started, doc, targetIDs)
	o.recorder.ObservePublishDuration(time.Since(started))
	return outcome, err
}

func (o *Orchestrator) publish(ctx context.Context, publishID string, started time.Time, doc any, targetIDs []string) (*Outcome, error) {
	valid, err := content.FromValue(doc)
	if err != nil {
		o.recorder.IncPublishOutcome(metrics.OutcomeRejected)
		return nil, err
	}
	targets, err := o.selectTargets(targetIDs)
	if err != nil {
		o.recorder.IncPublishOutcome(metrics.OutcomeRejected)
		return nil, err
	}
	if err := preflight(targets); err != nil {
		o.recorder.IncPublishOutcome(metrics.OutcomeRejected)
		observability.ErrorContext(ctx, "Publish rejected: content store not configured", logfields.Error(err))
		return nil, err
	}
	data, err := content.Marshal(valid)
	if err != nil {
		o.recorder.IncPublishOutcome(metrics.OutcomeRejected)
		return nil, err
	}

	observability.InfoContext(ctx, "Publishing site content",
		slog.Int("targets", len(targets)),
		slog.Int("bytes", len(data)))

	results := runOrdered(targets, o.opts.Concurrency, func(t Target) TargetResult {
		return o.publishTarget(ctx, publishID, t, data)
	})

	outcome := &Outcome{
		PublishID: publishID,
		StartedAt: started,
		Succeeded: []TargetResult{},
		Failed:    []TargetResult{},
	}
	for _, r := range results {
		if r.IsSuccess() {
			outcome.Succeeded = append(outcome.Succeeded, r)
			if outcome.Reference == "" {
				outcome.Reference = r.Reference
			}
			continue
		}
		outcome.Failed = append(outcome.Failed, r)
	}
	outcome.OverallSuccess = len(outcome.Succeeded) > 0
	outcome.Duration = time.Since(started)

	if !outcome.OverallSuccess {
		o.recorder.IncPublishOutcome(metrics.OutcomeFailed)
		o.recorder.IncTrigger(metrics.TriggerSkipped)
		o.record(ctx, outcome, history.TriggerSkipped)
		observability.ErrorContext(ctx, "Publish failed on every target",
			logfields.Outcome(string(metrics.OutcomeFailed)),
			slog.Int("failed", len(outcome.Failed)),
			logfields.DurationMS(float64(outcome.Duration.Milliseconds())))
		return nil, NewAllTargetsFailed(publishID, outcome.Failed)
	}

	label := metrics.OutcomeSuccess
	if outcome.Partial() {
		label = metrics.OutcomePartial
	}
	o.recorder.IncPublishOutcome(label)
	outcome.DeploymentTriggered = o.fireTrigger(ctx, outcome)

	observability.InfoContext(ctx, "Publish completed",
		logfields.Outcome(string(label)),
		logfields.Reference(outcome.Reference),
		slog.Int("succeeded", len(outcome.Succeeded)),
		slog.Int("failed", len(outcome.Failed)),
		slog.Bool("deployment_triggered", outcome.DeploymentTriggered),
		logfields.DurationMS(float64(outcome.Duration.Milliseconds())))
	return outcome, nil
}

// publishTarget runs read then write for one target. Failures are captured in the result.
func (o *Orchestrator) publishTarget(ctx context.Context, publishID string, t Target, data []byte) TargetResult {
	ctx = observability.WithTarget(ctx, t.ID)

	snap, attempts, err := callStore(ctx, o, t, StageRead, func(ctx context.Context) (*store.Snapshot, error) {
		return t.Store.Read(ctx, t.Path)
	})
	if err != nil {
		return o.targetFailed(ctx, t, StageRead, err, attempts)
	}

	message := o.message.render(publishID, t)
	rev, n, err := callStore(ctx, o, t, StageWrite, func(ctx context.Context) (*store.Revision, error) {
		return t.Store.Write(ctx, t.Path, data, snap.Version, message)
	})
	attempts += n
	if err != nil {
		return o.targetFailed(ctx, t, StageWrite, err, attempts)
	}

	o.recorder.IncTargetResult(t.ID, metrics.ResultSuccess)
	observability.InfoContext(ctx, "Target written",
		logfields.Store(t.Store.Name()),
		logfields.Path(t.Path),
		logfields.Version(string(rev.Version)),
		logfields.Reference(rev.Reference))
	return succeeded(t, rev, attempts)
}

func (o *Orchestrator) targetFailed(ctx context.Context, t Target, stage Stage, err error, attempts int) TargetResult {
	r := failed(t, stage, err, attempts)
	label := metrics.ResultFailed
	if r.Conflict {
		label = metrics.ResultConflict
	}
	o.recorder.IncTargetResult(t.ID, label)
	observability.WarnContext(ctx, "Target publish failed",
		logfields.Store(t.Store.Name()),
		logfields.Path(t.Path),
		logfields.Stage(string(stage)),
		logfields.Attempt(attempts),
		logfields.Error(err))
	return r
}

// callStore runs one store operation under the store timeout with retry for transient errors.
func callStore[T any](ctx context.Context, o *Orchestrator, t Target, stage Stage, fn func(context.Context) (T, error)) (T, int, error) {
	ctx = observability.WithStage(ctx, string(stage))
	return retry.Do(ctx, o.opts.Retry, func(ctx context.Context) (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.StoreTimeout)
		defer cancel()

		start := time.Now()
		v, err := fn(callCtx)
		o.recorder.ObserveStoreCall(t.ID, string(stage), time.Since(start), err == nil)
		if err != nil && !errors.IsClassified(err) {
			err = classifyUnknown(ctx, callCtx, err, o.opts.StoreTimeout)
		}
		return v, err
	}, func(attempt int, err error) {
		o.recorder.IncStoreRetry(t.ID, string(stage))
		observability.WarnContext(ctx, "Retrying store call",
			logfields.Attempt(attempt),
			logfields.Error(err))
	})
}

// classifyUnknown turns unclassified store errors into classified ones so retry and the
// HTTP layer can reason about them.
func classifyUnknown(parent, call context.Context, err error, timeout time.Duration) error {
	switch {
	case parent.Err() != nil:
		return errors.RuntimeError("publish cancelled").WithCause(err).NotRetryable().Build()
	case stderrors.Is(err, context.DeadlineExceeded) || call.Err() != nil:
		return errors.NetworkError("content store call timed out").
			WithCause(err).
			WithContext("timeout", timeout.String()).
			Build()
	default:
		return errors.StoreError("content store call failed").WithCause(err).NotRetryable().Build()
	}
}

// fireTrigger dispatches the deployment trigger and reports whether it was started, or
// with WaitForTrigger whether it succeeded.
func (o *Orchestrator) fireTrigger(ctx context.Context, outcome *Outcome) bool {
	if !o.dispatcher.Enabled() {
		o.recorder.IncTrigger(metrics.TriggerSkipped)
		o.record(ctx, outcome, history.TriggerSkipped)
		observability.InfoContext(ctx, "Deployment trigger not configured, skipping")
		return false
	}
	o.record(ctx, outcome, history.TriggerPending)

	ev := deploy.Event{
		PublishID: outcome.PublishID,
		Targets:   outcome.SucceededTargets(),
		Reference: outcome.Reference,
		Time:      o.now().UTC(),
	}
	done := o.dispatcher.Dispatch(ctx, ev)
	if !o.opts.WaitForTrigger {
		return true
	}
	select {
	case res := <-done:
		return res.Err == nil
	case <-ctx.Done():
		return false
	}
}

// observeTrigger runs on the dispatcher goroutine once the trigger has finished.
func (o *Orchestrator) observeTrigger(res deploy.Result) {
	ctx := observability.WithPublishID(context.Background(), res.Event.PublishID)
	o.recorder.ObserveTriggerDuration(res.Duration)

	status, errText := history.TriggerSucceeded, ""
	if res.Err != nil {
		status, errText = history.TriggerFailed, res.Err.Error()
		o.recorder.IncTrigger(metrics.TriggerFailed)
		observability.WarnContext(ctx, "Deployment trigger failed",
			logfields.Trigger(res.Trigger),
			logfields.DurationMS(float64(res.Duration.Milliseconds())),
			logfields.Error(res.Err))
	} else {
		o.recorder.IncTrigger(metrics.TriggerSucceeded)
		observability.InfoContext(ctx, "Deployment triggered",
			logfields.Trigger(res.Trigger),
			logfields.DurationMS(float64(res.Duration.Milliseconds())))
	}

	if o.history == nil {
		return
	}
	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := o.history.RecordTrigger(hctx, res.Event.PublishID, status, errText); err != nil {
		observability.WarnContext(ctx, "Failed to record trigger outcome", logfields.Error(err))
	}
}

func (o *Orchestrator) record(ctx context.Context, outcome *Outcome, trigger history.TriggerStatus) {
	if o.history == nil {
		return
	}
	label := metrics.OutcomeSuccess
	switch {
	case !outcome.OverallSuccess:
		label = metrics.OutcomeFailed
	case outcome.Partial():
		label = metrics.OutcomePartial
	}
	entry := history.Entry{
		PublishID:     outcome.PublishID,
		StartedAt:     outcome.StartedAt,
		DurationMS:    outcome.Duration.Milliseconds(),
		Outcome:       string(label),
		Reference:     outcome.Reference,
		Succeeded:     outcome.SucceededTargets(),
		TriggerStatus: trigger,
	}
	for _, f := range outcome.Failed {
		entry.Failed = append(entry.Failed, history.FailedTarget{Target: f.Target, Stage: string(f.Stage), Reason: f.Reason})
	}
	if err := o.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		observability.WarnContext(ctx, "Failed to record publish history", logfields.Error(err))
	}
}
