package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_HandlesMatchingFilesOnce(t *testing.T) {
	dir := t.TempDir()
	got := make(chan string, 8)
	w, err := New(dir, []string{".pdf"}, func(_ context.Context, path string) error {
		got <- filepath.Base(path)
		return errors.New("handler errors are only logged")
	}, Options{Settle: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	// give the event loop a moment to start
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("x"), 0644))
	path := filepath.Join(dir, "Paper.PDF")
	require.NoError(t, os.WriteFile(path, []byte("part"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("part two"), 0644))

	select {
	case name := <-got:
		assert.Equal(t, "Paper.PDF", name)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not called")
	}

	select {
	case name := <-got:
		t.Fatalf("unexpected second call for %s", name)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), nil, nil, Options{})
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	w := &Watcher{exts: []string{".pdf"}}
	assert.True(t, w.matches("/x/a.pdf"))
	assert.True(t, w.matches("/x/a.Pdf"))
	assert.False(t, w.matches("/x/a.txt"))
	assert.False(t, w.matches("/x/.a.pdf"))

	all := &Watcher{}
	assert.True(t, all.matches("/x/a.txt"))
}
