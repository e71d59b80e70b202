package httpserver

import (
	"context"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitepublisher/internal/auth"
	"git.home.luguber.info/inful/sitepublisher/internal/history"
	"git.home.luguber.info/inful/sitepublisher/internal/metrics"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
)

// Pipeline is the publish pipeline served over HTTP; *publish.Orchestrator implements it.
type Pipeline interface {
	Preflight(targetIDs ...string) error
	Publish(ctx context.Context, doc any, targetIDs ...string) (*publish.Outcome, error)
	Fetch(ctx context.Context, targetID string) (*publish.Snapshot, error)
	TargetIDs() []string
	TriggerEnabled() bool
}

// Options configures the HTTP server. Zero values disable the optional parts.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Verifier enables bearer-token auth on write and history routes.
	Verifier *auth.Verifier
	History  history.Store
	Registry *prom.Registry
	Recorder metrics.Recorder
}
