package daemon

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitepublisher/internal/history"
	"git.home.luguber.info/inful/sitepublisher/internal/logfields"
	"git.home.luguber.info/inful/sitepublisher/internal/server/httpserver"
)

// Service runs the HTTP server and the history pruner until its context is cancelled.
type Service struct {
	pipeline *Pipeline
	server   *httpserver.Server
	pruner   *history.Pruner
}

// NewService prepares the HTTP server for p.
func NewService(p *Pipeline) (*Service, error) {
	cfg := p.Config
	s := &Service{pipeline: p}
	s.server = httpserver.New(p.Orchestrator, httpserver.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Verifier:        p.Verifier,
		History:         p.History,
		Registry:        p.Registry,
		Recorder:        p.Recorder,
	})
	if p.History != nil {
		pruner, err := history.NewPruner(p.History, cfg.History.Retention)
		if err != nil {
			return nil, err
		}
		s.pruner = pruner
	}
	return s, nil
}

// Server returns the HTTP server.
func (s *Service) Server() *httpserver.Server { return s.server }

// Run blocks until ctx is done, then shuts down gracefully. A failure to start any part
// stops the others.
func (s *Service) Run(ctx context.Context) error {
	if err := s.server.Start(ctx); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		timeout := s.pipeline.Config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return s.server.Stop(stopCtx)
	})

	if s.pruner != nil {
		g.Go(func() error {
			if err := s.pruner.Start(s.pipeline.Config.History.PruneInterval); err != nil {
				return err
			}
			<-gctx.Done()
			return s.pruner.Stop()
		})
	}

	slog.Info("Site publisher running",
		slog.String("addr", s.server.Addr()),
		slog.Any("targets", s.pipeline.Orchestrator.TargetIDs()),
		slog.Bool("deploy_trigger", s.pipeline.Orchestrator.TriggerEnabled()),
		slog.Bool("history", s.pipeline.History != nil),
		slog.Bool("auth", s.pipeline.Verifier != nil))

	err := g.Wait()
	if err != nil {
		slog.Error("Site publisher stopped with error", logfields.Error(err))
	}
	return err
}
