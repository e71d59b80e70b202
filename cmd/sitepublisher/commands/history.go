package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	ID    string `arg:"" optional:"" help:"Publish id to show in full"`
	Limit int    `short:"n" help:"Number of publishes to list" default:"20"`
	JSON  bool   `help:"Print JSON"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.ConfigError("publish history is not enabled (set history.path or HISTORY_DB)").Build()
	}
	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if h.ID != "" {
		e, err := store.Get(ctx, h.ID)
		if err != nil {
			return err
		}
		return printJSON(g.Out, e)
	}

	entries, err := store.List(ctx, h.Limit)
	if err != nil {
		return err
	}
	if h.JSON {
		return printJSON(g.Out, entries)
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(g.Out, "No publishes recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PUBLISH ID\tSTARTED\tOUTCOME\tFAILED\tTRIGGER")
	for _, e := range entries {
		failed := make([]string, len(e.Failed))
		for i, f := range e.Failed {
			failed[i] = f.Target
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.PublishID,
			e.StartedAt.Local().Format(time.DateTime),
			e.Outcome,
			dashIfEmpty(strings.Join(failed, ",")),
			e.TriggerStatus)
	}
	return tw.Flush()
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
