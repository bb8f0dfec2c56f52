package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func collectBatches(t *testing.T, root string, excludes []string) chan []string {
	t.Helper()
	batches := make(chan []string, 8)
	w, err := New(50*time.Millisecond, excludes, func(paths []string) {
		batches <- paths
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	require.NoError(t, w.Watch(root))
	return batches
}

func TestNilCallbackRejected(t *testing.T) {
	_, err := New(time.Millisecond, nil, nil)
	require.Error(t, err)
}

func TestDebounceBatchesBurst(t *testing.T) {
	root := t.TempDir()
	batches := collectBatches(t, root, nil)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.go"), []byte("package b\n"), 0o644))

	select {
	case batch := <-batches:
		require.NotEmpty(t, batch)
	case <-time.After(3 * time.Second):
		t.Fatal("no change batch arrived")
	}

	// The burst lands in one debounced batch, not one callback per event.
	select {
	case batch := <-batches:
		t.Fatalf("unexpected second batch: %v", batch)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestExcludedFilesIgnored(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	batches := collectBatches(t, root, []string{"node_modules", "**/node_modules/**"})

	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep.js"), []byte("x"), 0o644))

	select {
	case batch := <-batches:
		t.Fatalf("excluded path triggered a batch: %v", batch)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))
	select {
	case <-batches:
	case <-time.After(3 * time.Second):
		t.Fatal("non-excluded change did not trigger a batch")
	}
}

func TestNewDirectoriesArePickedUp(t *testing.T) {
	root := t.TempDir()
	batches := collectBatches(t, root, nil)

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "x.go"), []byte("package pkg\n"), 0o644))

	select {
	case <-batches:
	case <-time.After(3 * time.Second):
		t.Fatal("change in new directory not observed")
	}
}
