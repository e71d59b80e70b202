package commands

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepublisher/internal/auth"
	"git.home.luguber.info/inful/sitepublisher/internal/config"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/history"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
	"git.home.luguber.info/inful/sitepublisher/internal/server/httpserver"
	"git.home.luguber.info/inful/sitepublisher/internal/store/memory"
)

const (
	primaryPath = "src/data/siteContent.json"
	publicPath  = "public/siteContent.json"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("sitepublisher"),
		kong.Vars{"version": "test"},
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d", code) }),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = kctx.Run(NewGlobal(&out), &cli)
	return out.String(), err
}

// newRemote serves the publish API over a memory store holding both targets.
func newRemote(t *testing.T, seed bool) (*httptest.Server, *memory.Store) {
	t.Helper()
	s := memory.New()
	if seed {
		s.Put(primaryPath, []byte(`{"hero":{"title":"Welcome","visible":false}}`))
		s.Put(publicPath, []byte(`{"hero":{"title":"Welcome","visible":false}}`))
	}
	o, err := publish.New([]publish.Target{
		{ID: "primary", Store: s, Path: primaryPath},
		{ID: "public", Store: s, Path: publicPath},
	}, publish.Options{StoreTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })

	srv := httptest.NewServer(httpserver.New(o, httpserver.Options{}).Handler())
	t.Cleanup(srv.Close)
	return srv, s
}

func writeConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	cfg := config.Sample()
	for i := range cfg.Targets {
		cfg.Targets[i].Store = config.StoreMemory
	}
	if mutate != nil {
		mutate(&cfg)
	}
	data, err := config.MarshalSample(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sitepublisher.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestPublishCmd_Remote(t *testing.T) {
	srv, s := newRemote(t, true)
	doc := writeDoc(t, `{"hero":{"title":"Hello"}}`)

	out, err := run(t, "publish", doc, "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Changes published successfully.")

	snap, err := s.Read(t.Context(), publicPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hero":{"title":"Hello"}}`, string(snap.Data))
}

func TestPublishCmd_RemoteSubsetAsJSON(t *testing.T) {
	srv, _ := newRemote(t, true)
	doc := writeDoc(t, `{"a":1}`)

	out, err := run(t, "publish", doc, "--server", srv.URL, "--targets", "public", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"filesUpdated": [`)
	assert.Contains(t, out, publicPath)
	assert.NotContains(t, out, primaryPath)
}

func TestPublishCmd_AllTargetsFailed(t *testing.T) {
	srv, _ := newRemote(t, false)
	doc := writeDoc(t, `{"a":1}`)

	out, err := run(t, "publish", doc, "--server", srv.URL)
	require.Error(t, err)
	_, ok := publish.AsAllTargetsFailed(err)
	assert.True(t, ok)
	assert.Contains(t, out, "Publishing failed. No changes were saved")
	assert.Equal(t, 3, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestPublishCmd_InvalidDocument(t *testing.T) {
	doc := writeDoc(t, `null`)
	_, err := run(t, "publish", doc, "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestPublishCmd_LocalReportsMissingDocuments(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	doc := writeDoc(t, `{"a":1}`)

	out, err := run(t, "--config", cfgPath, "publish", doc)
	require.Error(t, err, "a fresh memory store holds no published document to update")
	assert.Contains(t, out, "primary")
}

func TestGetCmd_Remote(t *testing.T) {
	srv, _ := newRemote(t, true)

	out, err := run(t, "get", "hero.title", "--server", srv.URL, "--target", "public")
	require.NoError(t, err)
	assert.Equal(t, "\"Welcome\"\n", out)

	out, err = run(t, "get", "--server", srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hero":{"title":"Welcome","visible":false}}`, out)

	_, err = run(t, "get", "hero.missing", "--server", srv.URL)
	require.Error(t, err)
}

func TestSetCmd_Remote(t *testing.T) {
	srv, s := newRemote(t, true)

	out, err := run(t, "set", "hero.visible", "true", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Changes published successfully.")

	snap, err := s.Read(t.Context(), primaryPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hero":{"title":"Welcome","visible":true}}`, string(snap.Data))
}

func TestSetCmd_DryRun(t *testing.T) {
	srv, s := newRemote(t, true)
	before := s.Commits()

	out, err := run(t, "set", "hero.title", "42", "--string", "--dry-run", "--server", srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hero":{"title":"42","visible":false}}`, out)
	assert.Equal(t, before, s.Commits())
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw     string
		literal bool
		want    any
	}{
		{"true", false, true},
		{"3", false, float64(3)},
		{`{"a":"b"}`, false, map[string]any{"a": "b"}},
		{"plain words", false, "plain words"},
		{"true", true, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.raw, tt.literal))
		})
	}
}

func TestHistoryCmd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := history.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Record(t.Context(), history.Entry{
		PublishID: "pub-abc", StartedAt: time.Now(), Outcome: "partial",
		Succeeded:     []string{"primary"},
		Failed:        []history.FailedTarget{{Target: "public", Stage: "write", Reason: "conflict"}},
		TriggerStatus: history.TriggerSucceeded,
	}))
	require.NoError(t, store.Close())

	cfgPath := writeConfig(t, func(c *config.Config) { c.History.Path = dbPath })

	out, err := run(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "pub-abc")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "public")

	out, err = run(t, "--config", cfgPath, "history", "pub-abc")
	require.NoError(t, err)
	assert.Contains(t, out, `"triggerStatus": "succeeded"`)
}

func TestHistoryCmd_Disabled(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	_, err := run(t, "--config", cfgPath, "history")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestTokenCmd(t *testing.T) {
	cfgPath := writeConfig(t, func(c *config.Config) { c.Auth.JWTSecret = "s3cret" })

	out, err := run(t, "--config", cfgPath, "token", "editor@example.org", "--ttl", "1h")
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	v, err := auth.NewVerifier(auth.Config{Secret: "s3cret", Issuer: "sitepublisher", Audience: "cms-editor", TTL: time.Hour})
	require.NoError(t, err)
	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "editor@example.org", claims.Subject)
}

func TestTokenCmd_RequiresSecret(t *testing.T) {
	cfgPath := writeConfig(t, nil)
	_, err := run(t, "--config", cfgPath, "token", "editor@example.org")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "init", "--output", dir)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, DefaultConfigFile))

	cfg, err := config.Load(filepath.Join(dir, DefaultConfigFile))
	require.NoError(t, err)
	assert.Len(t, cfg.Targets, 2)

	_, err = run(t, "init", "--output", dir)
	require.Error(t, err)

	_, err = run(t, "init", "--output", dir, "--force")
	require.NoError(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "sitepublisher "))
}
