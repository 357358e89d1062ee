package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keydex/keydex/internal/watcher"
	"github.com/keydex/keydex/pkg/keyword"
)

// Watcher Integration Tests - These test the file watcher behavior
// to verify it correctly detects text file changes.

// testWatcher creates a watcher tuned for fast test turnaround.
func testWatcher(t *testing.T) *watcher.Watcher {
	t.Helper()
	w, err := watcher.New(watcher.Options{
		Debounce:     100 * time.Millisecond,
		PollInterval: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Stop() })
	return w
}

// TestWatcher_FileCreated_EmitsEvent tests that creating a file emits a create event.
func TestWatcher_FileCreated_EmitsEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a watcher watching a directory
	dir := t.TempDir()
	w := testWatcher(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Start watcher in background
	go func() {
		_ = w.Start(ctx, dir)
	}()

	// Wait for watcher to initialize
	time.Sleep(200 * time.Millisecond)

	// When: creating a new file
	testFile := filepath.Join(dir, "notes.txt")
	err := os.WriteFile(testFile, []byte("fresh notes"), 0644)
	require.NoError(t, err)

	// Then: a create event should be emitted
	select {
	case events := <-w.Events():
		assert.NotEmpty(t, events, "Should receive events")
		foundCreate := false
		for _, e := range events {
			if e.Op == watcher.OpCreate && e.Path == "notes.txt" {
				foundCreate = true
				break
			}
		}
		assert.True(t, foundCreate, "Should receive create event for notes.txt")
	case <-ctx.Done():
		t.Fatal("Timed out waiting for create event")
	}
}

// TestWatcher_FileModified_EmitsEvent tests that modifying a file emits a modify event.
func TestWatcher_FileModified_EmitsEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a directory with an existing file
	dir := t.TempDir()
	testFile := filepath.Join(dir, "existing.txt")
	err := os.WriteFile(testFile, []byte("first draft"), 0644)
	require.NoError(t, err)

	w := testWatcher(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		_ = w.Start(ctx, dir)
	}()

	time.Sleep(200 * time.Millisecond)

	// When: modifying the file
	err = os.WriteFile(testFile, []byte("first draft\n\nsecond thoughts"), 0644)
	require.NoError(t, err)

	// Then: a modify event should be emitted
	select {
	case events := <-w.Events():
		assert.NotEmpty(t, events, "Should receive events")
		foundModify := false
		for _, e := range events {
			if e.Op == watcher.OpModify && e.Path == "existing.txt" {
				foundModify = true
				break
			}
		}
		assert.True(t, foundModify, "Should receive modify event for existing.txt")
	case <-ctx.Done():
		t.Fatal("Timed out waiting for modify event")
	}
}

// TestWatcher_FileDeleted_EmitsEvent tests that deleting a file emits a delete event.
func TestWatcher_FileDeleted_EmitsEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a directory with an existing file
	dir := t.TempDir()
	testFile := filepath.Join(dir, "todelete.txt")
	err := os.WriteFile(testFile, []byte("short lived"), 0644)
	require.NoError(t, err)

	w := testWatcher(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		_ = w.Start(ctx, dir)
	}()

	time.Sleep(200 * time.Millisecond)

	// When: deleting the file
	err = os.Remove(testFile)
	require.NoError(t, err)

	// Then: a delete event should be emitted
	select {
	case events := <-w.Events():
		assert.NotEmpty(t, events, "Should receive events")
		foundDelete := false
		for _, e := range events {
			if e.Op == watcher.OpDelete && e.Path == "todelete.txt" {
				foundDelete = true
				break
			}
		}
		assert.True(t, foundDelete, "Should receive delete event for todelete.txt")
	case <-ctx.Done():
		t.Fatal("Timed out waiting for delete event")
	}
}

// TestWatcher_Backend_ReportsMechanism tests the backend report.
func TestWatcher_Backend_ReportsMechanism(t *testing.T) {
	// Given: a new watcher
	w := testWatcher(t)

	// Then: it runs on fsnotify or degrades to polling
	assert.Contains(t, []string{"fsnotify", "poll"}, w.Backend(),
		"Backend should be fsnotify or poll")
}

// TestWatcher_UnlistedExtension_DoesNotEmitEvents tests that files outside
// the configured extensions don't produce events.
func TestWatcher_UnlistedExtension_DoesNotEmitEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a watcher with the default .txt/.md extensions
	dir := t.TempDir()
	w := testWatcher(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_ = w.Start(ctx, dir)
	}()

	time.Sleep(200 * time.Millisecond)

	// When: creating a .log file (should be ignored)
	logFile := filepath.Join(dir, "debug.log")
	err := os.WriteFile(logFile, []byte("log content"), 0644)
	require.NoError(t, err)

	// And: creating a .txt file (should be watched)
	txtFile := filepath.Join(dir, "notes.txt")
	err = os.WriteFile(txtFile, []byte("note content"), 0644)
	require.NoError(t, err)

	// Then: should only receive an event for the .txt file, not the .log
	select {
	case events := <-w.Events():
		foundTxt := false
		for _, e := range events {
			assert.NotEqual(t, "debug.log", e.Path,
				"Should not receive events for unlisted .log files")
			if e.Path == "notes.txt" {
				foundTxt = true
			}
		}
		assert.True(t, foundTxt, "Should receive event for notes.txt")
	case <-ctx.Done():
		t.Fatal("Timed out waiting for the .txt event")
	}
}

// TestWatcher_HiddenDirectory_StaysInvisible tests that files under hidden
// directories never produce events. The index keeps its own state under
// such a directory, so watching it would loop.
func TestWatcher_HiddenDirectory_StaysInvisible(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a watched root containing a hidden directory
	dir := t.TempDir()
	hidden := filepath.Join(dir, ".keydex")
	require.NoError(t, os.MkdirAll(hidden, 0755))

	w := testWatcher(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_ = w.Start(ctx, dir)
	}()

	time.Sleep(200 * time.Millisecond)

	// When: writing inside the hidden directory and at the top level
	err := os.WriteFile(filepath.Join(hidden, "segment.txt"), []byte("internal"), 0644)
	require.NoError(t, err)

	err = os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("public"), 0644)
	require.NoError(t, err)

	// Then: only the top-level file surfaces
	select {
	case events := <-w.Events():
		require.NotEmpty(t, events)
		for _, e := range events {
			assert.Equal(t, "visible.txt", e.Path,
				"Hidden directory contents should not produce events")
		}
	case <-ctx.Done():
		t.Fatal("Timed out waiting for the visible file event")
	}
}

// TestWatcher_ChangedFiles_FlowIntoIndex tests the watch-to-search pipeline:
// files written under the root surface as events, their contents get
// indexed, and a search finds the new keywords.
func TestWatcher_ChangedFiles_FlowIntoIndex(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	// Given: a watcher and an in-memory index
	dir := t.TempDir()
	w := testWatcher(t)

	ix, err := keyword.New()
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		_ = w.Start(ctx, dir)
	}()

	time.Sleep(200 * time.Millisecond)

	// When: two files appear under the root
	err = os.WriteFile(filepath.Join(dir, "alpha.txt"), []byte("zebra crossing patrol"), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "beta.txt"), []byte("quantum tunneling effect"), 0644)
	require.NoError(t, err)

	// And: every surfaced change is indexed
	seen := make(map[string]bool)
	for len(seen) < 2 {
		select {
		case events := <-w.Events():
			for _, e := range events {
				if e.Op != watcher.OpCreate && e.Op != watcher.OpModify {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, e.Path))
				require.NoError(t, err)
				require.NoError(t, ix.Index(ctx, string(data)))
				seen[e.Path] = true
			}
		case <-ctx.Done():
			t.Fatalf("Timed out waiting for file events, saw %d of 2", len(seen))
		}
	}

	// Then: the file contents are searchable
	results, err := ix.Search(ctx, "tunneling", 10)
	require.NoError(t, err)
	require.Len(t, results.Hits, 1)
	assert.Equal(t, "tunneling", results.Hits[0].Term)

	all, err := ix.Search(ctx, "", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), all.Total, "both files' keywords should be indexed")
}
