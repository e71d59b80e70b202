package deploy

import (
	"context"
	"sync"
	"time"
)

// DefaultTimeout bounds a single trigger invocation.
const DefaultTimeout = 5 * time.Second

// Result is the observed outcome of one detached trigger run.
type Result struct {
	Event    Event
	Trigger  string
	Err      error
	Duration time.Duration
}

// Observer consumes trigger results (logging, metrics, history). It runs on the
// dispatcher's goroutine.
type Observer func(Result)

// Dispatcher runs a trigger as a detached task bounded by its own timeout.
type Dispatcher struct {
	trigger  Trigger
	timeout  time.Duration
	observer Observer
	wg       sync.WaitGroup
}

// NewDispatcher returns a dispatcher for t. A nil trigger disables dispatching.
func NewDispatcher(t Trigger, timeout time.Duration, observer Observer) *Dispatcher {
	if t == nil {
		t = Noop{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{trigger: t, timeout: timeout, observer: observer}
}

// Enabled reports whether a real trigger is configured.
func (d *Dispatcher) Enabled() bool { return !IsNoop(d.trigger) }

// Timeout returns the per-invocation timeout.
func (d *Dispatcher) Timeout() time.Duration { return d.timeout }

// Dispatch starts the trigger and returns immediately. The returned channel receives the
// result once and is then closed; callers are free to ignore it. ctx supplies values only:
// cancelling it does not cancel the trigger.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) <-chan Result {
	done := make(chan Result, 1)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(done)

		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		start := time.Now()
		err := d.trigger.Fire(runCtx, ev)
		if err == nil && runCtx.Err() != nil {
			err = runCtx.Err()
		}
		res := Result{Event: ev, Trigger: d.trigger.Name(), Err: err, Duration: time.Since(start)}
		if d.observer != nil {
			d.observer(res)
		}
		done <- res
	}()
	return done
}

// Wait blocks until every dispatched trigger has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }
