package watcher_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sqlrun/sqlrun/pkg/watcher"
)

func TestWatchTriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	triggered := make(chan struct{}, 1)

	w := watcher.New(watcher.Config{
		Dir:      dir,
		Debounce: 20 * time.Millisecond,
		Pattern:  regexp.MustCompile(`\.sql$`),
		OnTrigger: func(context.Context) {
			triggered <- struct{}{}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01_change.sql"), []byte("SELECT 1;"), 0o644))

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a trigger after a relevant change")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatchIgnoresIrrelevantFiles(t *testing.T) {
	dir := t.TempDir()
	triggered := make(chan struct{}, 1)

	w := watcher.New(watcher.Config{
		Dir:      dir,
		Debounce: 20 * time.Millisecond,
		Pattern:  regexp.MustCompile(`\.sql$`),
		OnTrigger: func(context.Context) {
			triggered <- struct{}{}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-triggered:
		t.Fatal("a non-matching file must not trigger a run")
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatchMissingDirectory(t *testing.T) {
	w := watcher.New(watcher.Config{
		Dir:       filepath.Join(t.TempDir(), "nope"),
		Debounce:  time.Millisecond,
		OnTrigger: func(context.Context) {},
	})

	err := w.Watch(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to watch dir")
}
