package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/collector"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
)

// Snapshot is an immutable view of the entry set at one commit epoch.
//
// Snapshots are reference counted: the opener holds the first reference,
// every search takes one for its duration via Acquire, and the underlying
// reader closes exactly once, when the count reaches zero. A snapshot that
// has been superseded stays fully enumerable for as long as any reference
// remains.
type Snapshot struct {
	ordinal uint64
	epoch   uint64
	reader  index.IndexReader
	mapping mapping.IndexMapping
	logger  *slog.Logger
	refs    atomic.Int32
}

// OpenSnapshot opens a point-in-time reader over committed state.
//
// The commit epoch is recorded before the reader opens, so a commit racing
// this call can only make the snapshot fresher than its epoch claims; the
// next freshness check then refreshes again, never the other way around.
func (s *Store) OpenSnapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrIndexClosed
	}

	epoch := s.epoch.Load()
	reader, err := s.adv.Reader()
	if err != nil {
		return nil, fmt.Errorf("open snapshot reader: %w", err)
	}

	sn := &Snapshot{
		ordinal: s.ordinals.Add(1),
		epoch:   epoch,
		reader:  reader,
		mapping: s.mapping,
		logger:  s.logger,
	}
	sn.refs.Store(1)

	s.logger.Debug("snapshot_opened",
		slog.Uint64("generation", sn.ordinal),
		slog.Uint64("epoch", epoch))
	return sn, nil
}

// Ordinal returns the generation number, monotonically increasing per store.
func (sn *Snapshot) Ordinal() uint64 {
	return sn.ordinal
}

// Epoch returns the commit epoch the snapshot was opened at.
func (sn *Snapshot) Epoch() uint64 {
	return sn.epoch
}

// Acquire takes a reference for the duration of one search. It fails only
// when the count already reached zero and the reader is gone.
func (sn *Snapshot) Acquire() bool {
	for {
		refs := sn.refs.Load()
		if refs <= 0 {
			return false
		}
		if sn.refs.CompareAndSwap(refs, refs+1) {
			return true
		}
	}
}

// Release drops one reference, closing the reader when the last one goes.
// Safe to call from scheduler goroutines; releasing an already-dead
// snapshot logs instead of panicking.
func (sn *Snapshot) Release() {
	refs := sn.refs.Add(-1)
	switch {
	case refs > 0:
		return
	case refs < 0:
		sn.logger.Warn("snapshot_over_released",
			slog.Uint64("generation", sn.ordinal))
		return
	}

	if err := sn.reader.Close(); err != nil {
		sn.logger.Warn("snapshot_close_failed",
			slog.Uint64("generation", sn.ordinal),
			slog.String("error", err.Error()))
		return
	}
	sn.logger.Debug("snapshot_released",
		slog.Uint64("generation", sn.ordinal),
		slog.Uint64("epoch", sn.epoch))
}

// Hit is one matching keyword with its relevance score. Scores compare only
// within a single execution, not across index states.
type Hit struct {
	Term  string
	Score float64
}

// Result is the outcome of one query execution. Total counts every match,
// not just the returned page, and MaxScore spans all matches too.
type Result struct {
	Hits     []Hit
	Total    uint64
	MaxScore float64
}

// Search executes q against the snapshot and returns up to limit entries by
// descending score. The stored keyword value is read back for every hit.
// The caller must hold a reference for the whole call.
func (sn *Snapshot) Search(ctx context.Context, q query.Query, limit int) (*Result, error) {
	searcher, err := q.Searcher(ctx, sn.reader, sn.mapping, search.SearcherOptions{})
	if err != nil {
		return nil, fmt.Errorf("build searcher: %w", err)
	}
	defer func() { _ = searcher.Close() }()

	coll := collector.NewTopNCollector(limit, 0, search.SortOrder{&search.SortScore{Desc: true}})
	if err := coll.Collect(ctx, searcher, sn.reader); err != nil {
		return nil, fmt.Errorf("collect results: %w", err)
	}

	matches := coll.Results()
	hits := make([]Hit, 0, len(matches))
	for _, match := range matches {
		term, err := sn.storedKeyword(match.ID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Term: term, Score: match.Score})
	}

	return &Result{
		Hits:     hits,
		Total:    coll.Total(),
		MaxScore: coll.MaxScore(),
	}, nil
}

// storedKeyword reads the stored keyword field back from the snapshot. The
// entry ID is the term itself, so a missing stored field falls back to it.
func (sn *Snapshot) storedKeyword(id string) (string, error) {
	doc, err := sn.reader.Document(id)
	if err != nil {
		return "", fmt.Errorf("load entry %q: %w", id, err)
	}

	term := id
	if doc != nil {
		doc.VisitFields(func(field index.Field) {
			if field.Name() == KeywordField {
				term = string(field.Value())
			}
		})
	}
	return term, nil
}

// Count returns the number of entries visible to this snapshot.
func (sn *Snapshot) Count() (uint64, error) {
	return sn.reader.DocCount()
}
