// Package watcher detects changes to text files under a directory root
// and delivers them as debounced batches.
//
// fsnotify provides change detection where the platform supports it;
// otherwise the watcher falls back to modification-time polling. Rapid
// event sequences for the same path are coalesced inside a configurable
// window, so a burst of writes to one file surfaces as a single event.
//
// Only files matching the configured extensions are reported. Hidden
// directories, including the index data directory, are never descended
// into.
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() {
//	    for batch := range w.Events() {
//	        // Re-index the changed files.
//	    }
//	}()
//
//	if err := w.Start(ctx, root); err != nil {
//	    return err
//	}
package watcher
