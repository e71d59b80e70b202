// Package daemon assembles the publish pipeline from configuration and runs it as a
// long-lived service.
package daemon

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitepublisher/internal/auth"
	"git.home.luguber.info/inful/sitepublisher/internal/config"
	"git.home.luguber.info/inful/sitepublisher/internal/deploy"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/history"
	"git.home.luguber.info/inful/sitepublisher/internal/logfields"
	"git.home.luguber.info/inful/sitepublisher/internal/metrics"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
	"git.home.luguber.info/inful/sitepublisher/internal/store/github"
	"git.home.luguber.info/inful/sitepublisher/internal/store/gitrepo"
	"git.home.luguber.info/inful/sitepublisher/internal/store/memory"
	s3store "git.home.luguber.info/inful/sitepublisher/internal/store/s3"
)

// Option customizes assembly, mainly for tests.
type Option func(*builder)

type builder struct {
	stores     map[config.StoreKind]store.Store
	httpClient *http.Client
	trigger    deploy.Trigger
	metrics    bool
}

// WithStore uses s for every target of the given kind instead of building one from config.
func WithStore(kind config.StoreKind, s store.Store) Option {
	return func(b *builder) { b.stores[kind] = s }
}

// WithHTTPClient sets the client used by the GitHub store and the build hook.
func WithHTTPClient(c *http.Client) Option {
	return func(b *builder) { b.httpClient = c }
}

// WithTrigger replaces the configured deployment triggers.
func WithTrigger(t deploy.Trigger) Option {
	return func(b *builder) { b.trigger = t }
}

// WithMetrics installs a Prometheus registry and recorder.
func WithMetrics() Option {
	return func(b *builder) { b.metrics = true }
}

// Pipeline is the assembled publish pipeline and its resources.
type Pipeline struct {
	Config       *config.Config
	Orchestrator *publish.Orchestrator
	History      history.Store
	Registry     *prom.Registry
	Recorder     metrics.Recorder
	Verifier     *auth.Verifier

	closers []io.Closer
}

// Build assembles the pipeline described by cfg. Missing credentials do not fail Build:
// they surface as configuration errors when a publish is attempted.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.ConfigError("configuration is required").Build()
	}
	b := &builder{stores: map[config.StoreKind]store.Store{}}
	for _, opt := range opts {
		opt(b)
	}
	if b.httpClient == nil {
		b.httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	p := &Pipeline{Config: cfg, Recorder: metrics.NoopRecorder{}}
	ok := false
	defer func() {
		if !ok {
			_ = p.Close()
		}
	}()

	if b.metrics {
		p.Registry = metrics.NewRegistry()
		p.Recorder = metrics.NewPrometheusRecorder(p.Registry)
	}

	targets, err := b.targets(ctx, cfg)
	if err != nil {
		return nil, err
	}

	trigger := b.trigger
	if trigger == nil {
		var closers []io.Closer
		trigger, closers, err = buildTrigger(ctx, cfg.Deploy, b.httpClient)
		p.closers = append(p.closers, closers...)
		if err != nil {
			return nil, err
		}
	}

	if cfg.History.Path != "" {
		h, err := history.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		p.History = h
		p.closers = append(p.closers, h)
	}

	if cfg.Auth.JWTSecret != "" {
		v, err := auth.NewVerifier(AuthConfig(cfg))
		if err != nil {
			return nil, err
		}
		p.Verifier = v
	}

	options := []publish.Option{
		publish.WithTrigger(trigger, cfg.Deploy.Timeout),
		publish.WithRecorder(p.Recorder),
	}
	if p.History != nil {
		options = append(options, publish.WithHistory(p.History))
	}
	o, err := publish.New(targets, publish.Options{
		StoreTimeout:   cfg.Publish.StoreTimeout,
		CommitMessage:  cfg.Publish.CommitMessage,
		WaitForTrigger: cfg.Publish.WaitForTrigger,
		Concurrency:    cfg.Publish.Concurrency,
		Retry:          cfg.RetryPolicy(),
	}, options...)
	if err != nil {
		return nil, err
	}
	p.Orchestrator = o

	ok = true
	return p, nil
}

// AuthConfig maps the auth section onto auth.Config.
func AuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
	}
}

func (b *builder) targets(ctx context.Context, cfg *config.Config) ([]publish.Target, error) {
	out := make([]publish.Target, 0, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		s, err := b.store(ctx, cfg, tc.Store)
		if err != nil {
			return nil, err
		}
		out = append(out, publish.Target{ID: tc.ID, Store: s, Path: tc.Path})
	}
	return out, nil
}

// store returns the shared store for kind, building it on first use.
func (b *builder) store(ctx context.Context, cfg *config.Config, kind config.StoreKind) (store.Store, error) {
	if s, ok := b.stores[kind]; ok {
		return s, nil
	}
	var s store.Store
	switch kind {
	case config.StoreGitHub:
		s = github.New(github.Config{
			Token:  cfg.GitHub.Token,
			Repo:   cfg.GitHub.Repo,
			Branch: cfg.GitHub.Branch,
			APIURL: cfg.GitHub.APIURL,
		}, b.httpClient)
	case config.StoreS3:
		s3s, err := s3store.New(ctx, s3store.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		s = s3s
	case config.StoreGit:
		s = gitrepo.New(gitrepo.Config{
			RepoPath:    cfg.Git.RepoPath,
			AuthorName:  cfg.Git.AuthorName,
			AuthorEmail: cfg.Git.AuthorEmail,
		})
	case config.StoreMemory:
		s = memory.New()
	default:
		return nil, errors.ConfigError("unknown content store").WithContext("store", string(kind)).Build()
	}
	b.stores[kind] = s
	return s, nil
}

// buildTrigger combines the build hook and the optional bus notifiers. No configured
// trigger yields deploy.Noop.
func buildTrigger(ctx context.Context, cfg config.DeployConfig, client *http.Client) (deploy.Trigger, []io.Closer, error) {
	var (
		triggers []deploy.Trigger
		closers  []io.Closer
	)
	if cfg.BuildHookURL != "" {
		triggers = append(triggers, deploy.NewWebhook(cfg.BuildHookURL, client))
	}
	if cfg.NATS.URL != "" {
		n, err := deploy.NewNATSNotifier(ctx, deploy.NATSConfig{URL: cfg.NATS.URL, Stream: cfg.NATS.Stream, Subject: cfg.NATS.Subject})
		if err != nil {
			return nil, closers, err
		}
		triggers = append(triggers, n)
		closers = append(closers, n)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		k, err := deploy.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, closers, err
		}
		triggers = append(triggers, k)
		closers = append(closers, k)
	}
	return deploy.Combine(triggers...), closers, nil
}

// Close waits for in-flight deployment triggers and releases resources.
func (p *Pipeline) Close() error {
	var errs []error
	if p.Orchestrator != nil {
		errs = append(errs, p.Orchestrator.Close())
	}
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].Close(); err != nil {
			slog.Warn("Failed to close resource", logfields.Error(err))
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return stderrors.Join(errs...)
}
