package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepublisher/internal/config"
	"git.home.luguber.info/inful/sitepublisher/internal/deploy"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/history"
	"git.home.luguber.info/inful/sitepublisher/internal/store/memory"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Sample()
	for i := range cfg.Targets {
		cfg.Targets[i].Store = config.StoreMemory
	}
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.History.Path = filepath.Join(t.TempDir(), "history.db")
	return &cfg
}

func TestBuild_PublishesAndRecordsHistory(t *testing.T) {
	cfg := memoryConfig(t)
	mem := memory.New()
	mem.Put("src/data/siteContent.json", []byte(`{}`))
	mem.Put("public/siteContent.json", []byte(`{}`))

	var fired atomic.Int32
	trig := deploy.Func{Label: "test", Fn: func(context.Context, deploy.Event) error {
		fired.Add(1)
		return nil
	}}

	p, err := Build(t.Context(), cfg, WithStore(config.StoreMemory, mem), WithTrigger(trig), WithMetrics())
	require.NoError(t, err)
	defer func() { require.NoError(t, p.Close()) }()

	out, err := p.Orchestrator.Publish(t.Context(), map[string]any{"hero": "hi"})
	require.NoError(t, err)
	assert.True(t, out.OverallSuccess)
	assert.True(t, out.DeploymentTriggered)
	require.NoError(t, p.Orchestrator.Close())
	assert.Equal(t, int32(1), fired.Load())

	require.NotNil(t, p.History)
	e, err := p.History.Get(t.Context(), out.PublishID)
	require.NoError(t, err)
	assert.Equal(t, history.TriggerSucceeded, e.TriggerStatus)
	assert.NotNil(t, p.Registry)
}

func TestBuild_MissingGitHubTokenFailsAtPublish(t *testing.T) {
	cfg := config.Sample()
	cfg.GitHub.Token = ""

	p, err := Build(t.Context(), &cfg)
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Orchestrator.Publish(t.Context(), map[string]any{"a": 1})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.False(t, p.Orchestrator.TriggerEnabled())
}

func TestBuild_BuildHookFromConfig(t *testing.T) {
	var hits atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	cfg := memoryConfig(t)
	cfg.History.Path = ""
	cfg.Deploy.BuildHookURL = hook.URL
	mem := memory.New()
	mem.Put("src/data/siteContent.json", []byte(`{}`))

	p, err := Build(t.Context(), cfg, WithStore(config.StoreMemory, mem), WithHTTPClient(hook.Client()))
	require.NoError(t, err)
	defer p.Close()
	assert.True(t, p.Orchestrator.TriggerEnabled())

	out, err := p.Orchestrator.Publish(t.Context(), map[string]any{"a": 1})
	require.NoError(t, err)
	assert.True(t, out.Partial(), "public target has no document in the memory store")
	require.NoError(t, p.Orchestrator.Close())
	assert.Equal(t, int32(1), hits.Load())
}

func TestBuild_AuthEnablesVerifier(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.History.Path = ""
	cfg.Auth.JWTSecret = "s3cret"
	p, err := Build(t.Context(), cfg)
	require.NoError(t, err)
	defer p.Close()
	assert.NotNil(t, p.Verifier)
}

func TestService_RunAndShutdown(t *testing.T) {
	cfg := memoryConfig(t)
	p, err := Build(t.Context(), cfg, WithMetrics())
	require.NoError(t, err)
	defer p.Close()

	svc, err := NewService(p)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.Server().Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	resp, err := http.Get("http://" + svc.Server().Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post("http://"+svc.Server().Addr()+"/api/publish", "application/json", strings.NewReader(`null`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}
}
