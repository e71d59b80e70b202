// Package commands implements the sitepublisher command line.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitepublisher/internal/config"
	"git.home.luguber.info/inful/sitepublisher/internal/daemon"
	"git.home.luguber.info/inful/sitepublisher/internal/editor"
	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
)

// Global is shared state handed to every command.
type Global struct {
	Out io.Writer
}

// NewGlobal returns the shared state with command output going to out.
func NewGlobal(out io.Writer) *Global {
	return &Global{Out: out}
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (environment only when empty)" env:"SITEPUBLISHER_CONFIG" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve   ServeCmd   `cmd:"" help:"Run the publish API server"`
	Publish PublishCmd `cmd:"" help:"Publish a site document from a JSON file"`
	Get     GetCmd     `cmd:"" help:"Print the published document or one value in it"`
	Set     SetCmd     `cmd:"" help:"Change one value in the published document and publish it"`
	Watch   WatchCmd   `cmd:"" help:"Publish a JSON file every time it changes"`
	History HistoryCmd `cmd:"" help:"Show recent publishes"`
	Token   TokenCmd   `cmd:"" help:"Issue an editor token for the publish API"`
	Init    InitCmd    `cmd:"" help:"Write a sample configuration file"`
	Show    VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; it installs a default logger until a
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig reads the configuration and reconfigures logging from it.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Logging, c.Verbose)
	return cfg, nil
}

func setupLogging(lc config.LoggingConfig, verbose bool) {
	level := lc.Level.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if lc.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// RemoteFlags select a running server instead of talking to the content stores directly.
type RemoteFlags struct {
	Server  string        `help:"Base URL of a running sitepublisher server" env:"SITEPUBLISHER_SERVER"`
	Token   string        `help:"Bearer token for the server" env:"CMS_TOKEN"`
	Timeout time.Duration `help:"Request timeout for server calls" default:"2m"`
}

// openPublisher returns the remote client when --server is set, otherwise a pipeline
// assembled from configuration. The returned func releases it.
func openPublisher(ctx context.Context, root *CLI, remote RemoteFlags) (editor.Publisher, func(), error) {
	if remote.Server != "" {
		client := editor.NewRemoteClient(remote.Server, remote.Token, &http.Client{Timeout: remote.Timeout})
		return client, func() {}, nil
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	p, err := daemon.Build(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := p.Close(); err != nil {
			slog.Warn("Failed to release pipeline", slog.String("error", err.Error()))
		}
	}
	return p.Orchestrator, closeFn, nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.RuntimeError("failed to read standard input").WithCause(err).Build()
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("cannot read %s", path)).WithCause(err).Build()
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.InternalError("failed to render output").WithCause(err).Build()
	}
	return nil
}
