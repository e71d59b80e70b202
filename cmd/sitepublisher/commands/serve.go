package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitepublisher/internal/daemon"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr string `help:"Listen address, overrides server.addr"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := daemon.Build(ctx, cfg, daemon.WithMetrics())
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("Failed to release pipeline", slog.String("error", err.Error()))
		}
	}()

	svc, err := daemon.NewService(p)
	if err != nil {
		return err
	}
	if err := svc.Run(ctx); err != nil {
		return err
	}
	slog.Info("Site publisher stopped")
	return nil
}
