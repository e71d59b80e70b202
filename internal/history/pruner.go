package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/logfields"
)

// Pruner periodically deletes history older than the retention window.
type Pruner struct {
	scheduler gocron.Scheduler
	store     Store
	retention time.Duration
	now       func() time.Time
}

// NewPruner creates a pruner; call Start to schedule it.
func NewPruner(store Store, retention time.Duration) (*Pruner, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.HistoryError("failed to create gocron scheduler").WithCause(err).Build()
	}
	return &Pruner{scheduler: s, store: store, retention: retention, now: time.Now}, nil
}

// Start schedules pruning every interval, running once immediately.
func (p *Pruner) Start(interval time.Duration) error {
	_, err := p.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(p.PruneOnce, context.Background()),
		gocron.WithName("history-prune"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.HistoryError("failed to schedule history pruning").WithCause(err).Build()
	}
	slog.Info("Starting history pruner", slog.Duration("interval", interval), slog.Duration("retention", p.retention))
	p.scheduler.Start()
	return nil
}

// PruneOnce deletes entries older than the retention window.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		slog.Error("History pruning failed", logfields.Error(err))
		return 0, err
	}
	if n > 0 {
		slog.Info("Pruned publish history", slog.Int64("removed", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}

// Stop shuts the scheduler down.
func (p *Pruner) Stop() error {
	slog.Info("Stopping history pruner")
	return p.scheduler.Shutdown()
}
