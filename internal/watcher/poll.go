package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// poller detects changes by rescanning the tree and comparing mtime and
// size against the previous pass. It is the fallback when inotify-style
// watching is unavailable.
type poller struct {
	opts    Options
	seen    map[string]stamp
	evCh    chan Event
	errCh   chan error
	stopCh  chan struct{}
	mu      sync.Mutex
	stopped bool
	root    string
}

type stamp struct {
	mtime time.Time
	size  int64
}

func newPoller(opts Options) *poller {
	return &poller{
		opts:   opts,
		seen:   make(map[string]stamp),
		evCh:   make(chan Event, 128),
		errCh:  make(chan error, 10),
		stopCh: make(chan struct{}),
	}
}

// run blocks, scanning root once per PollInterval until the context is
// cancelled or stop is called.
func (p *poller) run(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve poll root: %w", err)
	}
	p.root = abs

	// Baseline pass so the first tick reports only real changes.
	baseline, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	p.seen = baseline

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			p.tick()
		}
	}
}

// snapshot walks the tree and stamps every reportable file.
func (p *poller) snapshot() (map[string]stamp, error) {
	out := make(map[string]stamp)
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !p.opts.wants(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out[rel] = stamp{mtime: info.ModTime(), size: info.Size()}
		return nil
	})
	return out, err
}

// tick diffs the current tree against the previous pass and emits an
// event per changed file.
func (p *poller) tick() {
	current, err := p.snapshot()
	if err != nil {
		p.sendErr(fmt.Errorf("scan watch root: %w", err))
		return
	}

	now := time.Now()
	for rel, st := range current {
		prev, ok := p.seen[rel]
		switch {
		case !ok:
			p.send(Event{Path: rel, Op: OpCreate, At: now})
		case !prev.mtime.Equal(st.mtime) || prev.size != st.size:
			p.send(Event{Path: rel, Op: OpModify, At: now})
		}
	}
	for rel := range p.seen {
		if _, ok := current[rel]; !ok {
			p.send(Event{Path: rel, Op: OpDelete, At: now})
		}
	}
	p.seen = current
}

func (p *poller) send(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	select {
	case p.evCh <- ev:
	default:
		p.opts.Logger.Warn("watch.poll.dropped",
			slog.String("path", ev.Path),
			slog.String("op", ev.Op.String()))
	}
}

func (p *poller) sendErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	select {
	case p.errCh <- err:
	default:
	}
}

func (p *poller) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stopCh)
	close(p.evCh)
	close(p.errCh)
}

func (p *poller) events() <-chan Event { return p.evCh }

func (p *poller) errs() <-chan error { return p.errCh }
