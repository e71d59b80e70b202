package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitepublisher/internal/content"
	"git.home.luguber.info/inful/sitepublisher/internal/editor"
	"git.home.luguber.info/inful/sitepublisher/internal/logfields"
	"git.home.luguber.info/inful/sitepublisher/internal/publish"
	"git.home.luguber.info/inful/sitepublisher/internal/server/responses"
)

// PublishCmd implements the 'publish' command.
type PublishCmd struct {
	File    string   `arg:"" help:"JSON document to publish, '-' for stdin"`
	Targets []string `help:"Publish only to these target ids" sep:","`
	JSON    bool     `help:"Print the publish result as JSON"`

	Remote RemoteFlags `embed:""`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	data, err := readInput(p.File)
	if err != nil {
		return err
	}
	doc, err := content.Parse(data)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pub, release, err := openPublisher(ctx, root, p.Remote)
	if err != nil {
		return err
	}
	defer release()

	outcome, err := pub.Publish(ctx, doc, p.Targets...)
	return report(g, outcome, err, p.JSON)
}

// report prints the publish result and passes err through for the exit code.
func report(g *Global, outcome *publish.Outcome, err error, asJSON bool) error {
	if asJSON && err == nil {
		return printJSON(g.Out, responses.NewPublishResponse(outcome))
	}
	msg := editor.Describe(outcome, err)
	_, _ = fmt.Fprintln(g.Out, msg.Text)
	if err == nil && outcome != nil {
		for _, f := range outcome.Failed {
			_, _ = fmt.Fprintf(g.Out, "  %s (%s) failed during %s: %s\n", f.Target, f.Path, f.Stage, f.Reason)
		}
	}
	return err
}

// GetCmd implements the 'get' command.
type GetCmd struct {
	Path   string `arg:"" optional:"" help:"Dot-separated path of the value to print"`
	Target string `help:"Target to read from (default: first configured target)"`

	Remote RemoteFlags `embed:""`
}

func (c *GetCmd) Run(g *Global, root *CLI) error {
	ctx := context.Background()
	pub, release, err := openPublisher(ctx, root, c.Remote)
	if err != nil {
		return err
	}
	defer release()

	snap, err := pub.Fetch(ctx, c.Target)
	if err != nil {
		return err
	}
	if c.Path == "" {
		return printJSON(g.Out, snap.Document)
	}
	v, err := content.GetAtPath(snap.Document, c.Path)
	if err != nil {
		return err
	}
	return printJSON(g.Out, v)
}

// SetCmd implements the 'set' command.
type SetCmd struct {
	Path   string `arg:"" help:"Dot-separated path of the value to change"`
	Value  string `arg:"" help:"New value; parsed as JSON unless --string is given"`
	String bool   `help:"Store the value as a literal string"`
	DryRun bool   `help:"Print the changed document instead of publishing it"`
	Target string `help:"Target to load the current document from (default: first configured target)"`

	Remote RemoteFlags `embed:""`
}

func (c *SetCmd) Run(g *Global, root *CLI) error {
	ctx := context.Background()
	pub, release, err := openPublisher(ctx, root, c.Remote)
	if err != nil {
		return err
	}
	defer release()

	ed := editor.New(pub, c.Target)
	if err := ed.Load(ctx); err != nil {
		return err
	}
	if err := ed.Set(c.Path, parseValue(c.Value, c.String)); err != nil {
		return err
	}
	if c.DryRun {
		return printJSON(g.Out, ed.Document())
	}
	outcome, err := ed.Publish(ctx)
	return report(g, outcome, err, false)
}

// parseValue reads raw as JSON so numbers, booleans and objects keep their type. Anything
// that is not valid JSON is taken as a string.
func parseValue(raw string, literal bool) any {
	if literal {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	File     string        `arg:"" help:"JSON document to watch" type:"existingfile"`
	Debounce time.Duration `help:"Quiet period before publishing a change" default:"500ms"`
	Targets  []string      `help:"Publish only to these target ids" sep:","`

	Remote RemoteFlags `embed:""`
}

func (c *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pub, release, err := openPublisher(ctx, root, c.Remote)
	if err != nil {
		return err
	}
	defer release()

	w, err := editor.NewWatcher(c.File, c.Debounce, publishOnChange(g, pub, c.Targets))
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func publishOnChange(g *Global, pub editor.Publisher, targets []string) editor.ChangeFunc {
	return func(ctx context.Context, data []byte) error {
		doc, err := content.Parse(data)
		if err != nil {
			slog.Warn("Skipping invalid document", logfields.Error(err))
			return nil
		}
		outcome, err := pub.Publish(ctx, doc, targets...)
		msg := editor.Describe(outcome, err)
		_, _ = fmt.Fprintf(g.Out, "%s %s\n", time.Now().Format(time.TimeOnly), msg.Text)
		return err
	}
}
