// Package deploy notifies downstream systems after content has been published.
//
// The primary trigger is a build-hook webhook (Netlify). Message-bus notifiers can be
// combined with it through Multi. Triggers are invoked by a Dispatcher as detached tasks:
// their result is observed by logs, metrics and history only and never changes the
// outcome of the publish that caused them.
package deploy

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"
)

// Event describes a publish that should be deployed.
type Event struct {
	PublishID string    `json:"publish_id"`
	Targets   []string  `json:"targets"`
	Reference string    `json:"reference,omitempty"`
	Time      time.Time `json:"time"`
}

// Trigger fires a deployment for an event.
type Trigger interface {
	Name() string
	Fire(ctx context.Context, ev Event) error
}

// Noop is the trigger used when no deployment system is configured.
type Noop struct{}

func (Noop) Name() string { return "noop" }
func (Noop) Fire(context.Context, Event) error { return nil }

// IsNoop reports whether t is absent or the Noop trigger.
func IsNoop(t Trigger) bool {
	if t == nil {
		return true
	}
	_, ok := t.(Noop)
	return ok
}

// Func adapts a function to the Trigger interface.
type Func struct {
	Label string
	Fn    func(ctx context.Context, ev Event) error
}

func (f Func) Name() string { return f.Label }
func (f Func) Fire(ctx context.Context, ev Event) error { return f.Fn(ctx, ev) }

// Multi fires every trigger concurrently and joins their errors.
type Multi []Trigger

// Combine drops Noop entries and returns Noop, the single remaining trigger or a Multi.
func Combine(triggers ...Trigger) Trigger {
	var active Multi
	for _, t := range triggers {
		if !IsNoop(t) {
			active = append(active, t)
		}
	}
	switch len(active) {
	case 0:
		return Noop{}
	case 1:
		return active[0]
	default:
		return active
	}
}

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, t := range m {
		names[i] = t.Name()
	}
	return strings.Join(names, "+")
}

func (m Multi) Fire(ctx context.Context, ev Event) error {
	errs := make([]error, len(m))
	var wg sync.WaitGroup
	for i, t := range m {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = t.Fire(ctx, ev)
		}()
	}
	wg.Wait()
	return stderrors.Join(errs...)
}
