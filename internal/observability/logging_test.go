package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextAccumulates(t *testing.T) {
	ctx := WithPublishID(context.Background(), "pub-1")
	ctx = WithTarget(ctx, "primary")
	ctx = WithStage(ctx, "write")

	lc := GetContext(ctx)
	if lc.PublishID != "pub-1" || lc.Target != "primary" || lc.Stage != "write" {
		t.Fatalf("unexpected log context %+v", lc)
	}
	if got := len(Attrs(ctx)); got != 3 {
		t.Fatalf("expected 3 attrs, got %d", got)
	}
	if len(Attrs(context.Background())) != 0 {
		t.Fatal("empty context should produce no attrs")
	}
}

func TestInfoContextWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := WithSubject(WithPublishID(context.Background(), "pub-2"), "editor@example.com")
	InfoContext(ctx, "Publish started", slog.Int("targets", 2))

	out := buf.String()
	for _, want := range []string{"publish_id=pub-2", "subject=editor@example.com", "targets=2", "Publish started"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
