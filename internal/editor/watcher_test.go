package editor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"v":0}`), 0o600))

	changes := make(chan string, 10)
	w, err := NewWatcher(path, 50*time.Millisecond, func(_ context.Context, data []byte) error {
		changes <- string(data)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to start before writing.
	time.Sleep(50 * time.Millisecond)
	for i := 1; i <= 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"v":`+string(rune('0'+i))+`}`), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o600))

	select {
	case got := <-changes:
		assert.Equal(t, `{"v":3}`, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change observed")
	}

	select {
	case extra := <-changes:
		t.Fatalf("unexpected extra change %q", extra)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}
