package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op identifies the kind of change detected for a path.
type Op int

const (
	// OpCreate indicates a new file appeared.
	OpCreate Op = iota
	// OpModify indicates an existing file changed.
	OpModify
	// OpDelete indicates a file was removed.
	OpDelete
	// OpRename indicates a file was moved away from its old path.
	OpRename
)

// String returns the lowercase name of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event is a single detected file change. Path is relative to the
// watched root.
type Event struct {
	Path string
	Op   Op
	At   time.Time
}

// Options configures change detection.
type Options struct {
	// Debounce is how long to wait after the last event for a path
	// before emitting the coalesced result. Default 500ms.
	Debounce time.Duration

	// PollInterval is the scan interval used when fsnotify is
	// unavailable. Default 2s.
	PollInterval time.Duration

	// BufferSize is the capacity of the batch channel. Default 256.
	BufferSize int

	// Extensions lists the file extensions to report, such as ".txt".
	// Matching is case-insensitive. Default .txt and .md.
	Extensions []string

	// Logger receives watcher diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the values used when an Options field is zero.
func DefaultOptions() Options {
	return Options{
		Debounce:     500 * time.Millisecond,
		PollInterval: 2 * time.Second,
		BufferSize:   256,
		Extensions:   []string{".txt", ".md"},
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = def.Debounce
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.BufferSize <= 0 {
		o.BufferSize = def.BufferSize
	}
	if len(o.Extensions) == 0 {
		o.Extensions = def.Extensions
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// wants reports whether a file at the given relative path should be
// surfaced to consumers. Files inside hidden directories and files with
// unlisted extensions are dropped.
func (o Options) wants(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(rel))
	for _, want := range o.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// skipDir reports whether a directory should be pruned from watching.
// Hidden directories hold VCS metadata and the index itself.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Watcher reports batched, debounced changes to text files under a root.
// fsnotify is the primary mechanism; platforms that reject it degrade to
// modification-time polling.
type Watcher struct {
	opts    Options
	log     *slog.Logger
	fsw     *fsnotify.Watcher
	poller  *poller
	deb     *debouncer
	events  chan []Event
	errs    chan error
	stopCh  chan struct{}
	root    string
	mu      sync.RWMutex
	stopped bool
	dropped atomic.Uint64
}

// New creates a watcher with the given options.
func New(opts Options) (*Watcher, error) {
	opts = opts.withDefaults()

	w := &Watcher{
		opts:   opts,
		log:    opts.Logger,
		deb:    newDebouncer(opts.Debounce),
		events: make(chan []Event, opts.BufferSize),
		errs:   make(chan error, 10),
		stopCh: make(chan struct{}),
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("watch.fallback_to_poll", slog.String("reason", err.Error()))
		w.poller = newPoller(opts)
		return w, nil
	}
	w.fsw = fsw
	return w, nil
}

// Backend reports which detection mechanism is active, "fsnotify" or
// "poll".
func (w *Watcher) Backend() string {
	if w.fsw != nil {
		return "fsnotify"
	}
	return "poll"
}

// Start watches root until ctx is cancelled or Stop is called. It blocks
// for the lifetime of the watch.
func (w *Watcher) Start(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve watch root: %w", err)
	}
	w.root = abs

	go w.forward(ctx)

	if w.fsw != nil {
		return w.runFsnotify(ctx)
	}
	return w.runPoll(ctx)
}

func (w *Watcher) runFsnotify(ctx context.Context) error {
	if err := w.watchTree(w.root); err != nil {
		return fmt.Errorf("register watch tree: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitErr(err)
		}
	}
}

func (w *Watcher) runPoll(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case ev, ok := <-w.poller.events():
				if !ok {
					return
				}
				w.deb.add(ev)
			case err, ok := <-w.poller.errs():
				if !ok {
					return
				}
				w.emitErr(err)
			}
		}
	}()

	return w.poller.run(ctx, w.root)
}

// watchTree registers root and every non-hidden subdirectory for
// fsnotify events.
func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// handle converts a raw fsnotify event into a debounced Event.
func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}

	info, statErr := os.Stat(ev.Name)
	isDir := statErr == nil && info.IsDir()

	// New directories extend the watch. Directory events themselves are
	// not reported.
	if isDir {
		if ev.Op&fsnotify.Create != 0 && !skipDir(filepath.Base(ev.Name)) {
			_ = w.watchTree(ev.Name)
		}
		return
	}

	if !w.opts.wants(rel) {
		return
	}

	var op Op
	switch {
	case ev.Op&fsnotify.Create != 0:
		op = OpCreate
	case ev.Op&fsnotify.Write != 0:
		op = OpModify
	case ev.Op&fsnotify.Remove != 0:
		op = OpDelete
	case ev.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return // chmod and friends
	}

	w.deb.add(Event{Path: rel, Op: op, At: time.Now()})
}

// forward moves debounced batches to the public channel.
func (w *Watcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.deb.out:
			if !ok {
				return
			}
			if len(batch) == 0 {
				continue
			}
			w.emit(batch)
		}
	}
}

func (w *Watcher) emit(batch []Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.events <- batch:
	default:
		n := w.dropped.Add(1)
		w.log.Warn("watch.events.dropped",
			slog.Int("batch_size", len(batch)),
			slog.Uint64("total_dropped", n))
	}
}

func (w *Watcher) emitErr(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.errs <- err:
	default:
	}
}

// Stop halts watching and closes the event channels. Safe to call more
// than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)

	w.deb.stop()
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	if w.poller != nil {
		w.poller.stop()
	}

	close(w.events)
	close(w.errs)
	return nil
}

// Events returns debounced change batches. The channel closes on Stop.
func (w *Watcher) Events() <-chan []Event {
	return w.events
}

// Errors returns non-fatal watcher errors. The channel closes on Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Dropped returns how many batches were discarded because the consumer
// fell behind.
func (w *Watcher) Dropped() uint64 {
	return w.dropped.Load()
}
