package watcher

import (
	"sync"
	"time"
)

// debouncer coalesces rapid events for the same path so one logical
// change surfaces once. Merge rules:
//
//	create then modify  -> create
//	create then delete  -> dropped entirely
//	modify then delete  -> delete
//	delete then create  -> modify (the file was replaced)
type debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]*tracked
	out     chan []Event
	timer   *time.Timer
	stopped bool
}

type tracked struct {
	ev    Event
	first Op
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]*tracked),
		out:     make(chan []Event, 8),
	}
}

// add records an event and schedules a flush one window later. Each add
// pushes the flush out again, so a write burst settles before anything
// is emitted.
func (d *debouncer) add(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if tr, ok := d.pending[ev.Path]; ok {
		merged, keep := merge(tr, ev)
		if !keep {
			delete(d.pending, ev.Path)
		} else {
			tr.ev = merged
		}
	} else {
		d.pending[ev.Path] = &tracked{ev: ev, first: ev.Op}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// merge applies the coalescing rules given the first op seen for the
// path inside the current window.
func merge(tr *tracked, next Event) (Event, bool) {
	switch tr.first {
	case OpCreate:
		switch next.Op {
		case OpModify:
			return tr.ev, true // still a brand-new file
		case OpDelete:
			return Event{}, false // never really existed
		}
	case OpDelete:
		if next.Op == OpCreate {
			next.Op = OpModify // replaced in place
			return next, true
		}
	}
	return next, true
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]Event, 0, len(d.pending))
	for _, tr := range d.pending {
		batch = append(batch, tr.ev)
	}
	d.pending = make(map[string]*tracked)

	select {
	case d.out <- batch:
	default:
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.out)
}
