package keyword

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/keydex/keydex/internal/extract"
	"github.com/keydex/keydex/internal/store"
)

// Sentinel errors surfaced by Index operations. They wrap the storage
// layer's values, so errors.Is works across the package boundary.
var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = store.ErrIndexClosed

	// ErrMalformedQuery marks query strings the parser cannot interpret.
	ErrMalformedQuery = store.ErrMalformedQuery

	// ErrLocked means another process holds the index directory.
	ErrLocked = store.ErrIndexLocked
)

// Index is an embeddable keyword index. Documents go in through the
// extraction pipeline, each surviving word is upserted under its own commit,
// and searches run against a refcounted snapshot of committed state.
//
// An Index is safe for concurrent use: any number of goroutines may call
// Index, IndexWords, DeleteAll, and Search simultaneously. Mutations
// serialize internally; searches never block on writers or on snapshot
// teardown.
type Index struct {
	opts     options
	pipeline *extract.Pipeline
	gens     *generations
	logger   *slog.Logger

	// The store opens on first use and any open failure sticks: a bad
	// storage location fails every call the same way instead of retrying.
	mu      sync.Mutex
	st      *store.Store
	openErr error
	closed  bool
}

// New builds an Index from the given options. The storage location is not
// touched until the first mutation or search.
func New(opts ...Option) (*Index, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.scheduler == nil {
		return nil, fmt.Errorf("keyword: scheduler must not be nil")
	}
	if o.graceDelay < 0 {
		return nil, fmt.Errorf("keyword: grace delay must not be negative")
	}
	if o.defaultLimit <= 0 {
		o.defaultLimit = DefaultLimit
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	pipeline := extract.New(extract.Config{
		Extract:   extract.Func(o.extractFn),
		Split:     o.split,
		StopWords: o.stopWords,
		Term:      o.term,
	})

	return &Index{
		opts:     o,
		pipeline: pipeline,
		gens:     newGenerations(o.graceDelay, o.scheduler, o.logger),
		logger:   o.logger,
	}, nil
}

// store returns the lazily-opened storage engine.
func (ix *Index) store() (*store.Store, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return nil, ErrClosed
	}
	if ix.st != nil || ix.openErr != nil {
		return ix.st, ix.openErr
	}

	st, err := store.Open(store.Config{
		Path:                 ix.opts.path,
		AllowLeadingWildcard: ix.opts.leadingWildcard,
		ParseCacheSize:       ix.opts.parseCacheSize,
		Logger:               ix.logger,
	})
	if err != nil {
		ix.openErr = fmt.Errorf("open keyword store: %w", err)
		return nil, ix.openErr
	}
	ix.st = st
	return st, nil
}

// Index runs document through the extraction pipeline and upserts every
// surviving word. A document that yields no words is a no-op: nothing is
// opened, nothing commits.
func (ix *Index) Index(ctx context.Context, document string) error {
	return ix.upsert(ctx, ix.pipeline.Extract(document))
}

// IndexWords runs the filter stages on an explicit word list and upserts
// the survivors. The extraction function is bypassed; splitting, stop
// words, and the term pattern still apply.
func (ix *Index) IndexWords(ctx context.Context, words []string) error {
	return ix.upsert(ctx, ix.pipeline.Filter(words))
}

func (ix *Index) upsert(ctx context.Context, words []string) error {
	if len(words) == 0 {
		return nil
	}
	st, err := ix.store()
	if err != nil {
		return err
	}
	return st.Upsert(ctx, words)
}

// DeleteAll removes every entry in a single commit.
func (ix *Index) DeleteAll(ctx context.Context) error {
	st, err := ix.store()
	if err != nil {
		return err
	}
	return st.DeleteAll(ctx)
}

// Search runs queryString against the current generation and returns up to
// limit hits ranked by descending score. A non-positive limit falls back to
// the configured default; a blank queryString matches everything. Malformed
// query strings return ErrMalformedQuery.
//
// Once any mutation has returned, a Search issued afterwards observes it:
// the freshness check runs on every call.
func (ix *Index) Search(ctx context.Context, queryString string, limit int) (*Results, error) {
	if limit <= 0 {
		limit = ix.opts.defaultLimit
	}

	st, err := ix.store()
	if err != nil {
		return nil, err
	}

	q, err := st.ParseQuery(queryString)
	if err != nil {
		return nil, err
	}

	snap, err := ix.gens.lease(st)
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	start := time.Now()
	res, err := snap.Search(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", queryString, err)
	}

	ix.logger.Debug("search_completed",
		slog.String("query", queryString),
		slog.Uint64("generation", snap.Ordinal()),
		slog.Int("hits", len(res.Hits)),
		slog.Uint64("total", res.Total),
		slog.Duration("duration", time.Since(start)))

	hits := make([]Hit, len(res.Hits))
	for i, h := range res.Hits {
		hits[i] = Hit{Term: h.Term, Score: h.Score}
	}
	return &Results{Hits: hits, Total: res.Total, MaxScore: res.MaxScore}, nil
}

// Stats reports the committed entry count and commit epoch. Like any first
// use, it opens the storage location on a fresh index.
func (ix *Index) Stats() (*Stats, error) {
	st, err := ix.store()
	if err != nil {
		return nil, err
	}

	stats, err := st.Stats()
	if err != nil {
		return nil, err
	}
	return &Stats{Keywords: stats.Keywords, Epoch: stats.Epoch, Path: stats.Path}, nil
}

// Close releases the current generation and closes the storage engine.
// Idempotent. Searches still holding leases finish against their snapshot;
// new calls return ErrClosed.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.closed {
		return nil
	}
	ix.closed = true

	ix.gens.close()
	if ix.st == nil {
		return nil
	}
	return ix.st.Close()
}
