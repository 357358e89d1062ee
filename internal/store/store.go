// Package store persists keyword entries in a Bleve index and serves
// point-in-time snapshots of the committed entry set.
//
// Every entry is a single-field record keyed by its own term, so repeated
// writes of one term can never accumulate duplicates. Mutations serialize on
// a writer lock and commit per word; readers run against refcounted
// snapshots and are never blocked by writers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	index "github.com/blevesearch/bleve_index_api"
	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrIndexClosed is returned by every operation after Close.
	ErrIndexClosed = errors.New("keyword store is closed")

	// ErrIndexLocked means another process holds the index directory.
	ErrIndexLocked = errors.New("index directory is locked by another process")

	// ErrMalformedQuery wraps query strings the parser cannot interpret.
	// Retrying the same string never succeeds.
	ErrMalformedQuery = errors.New("malformed query")
)

// DefaultParseCacheSize bounds the parsed-query cache when Config leaves it
// unset.
const DefaultParseCacheSize = 256

// Config controls how the store opens. Start from DefaultConfig; the zero
// value disables leading wildcards, which is not the default behavior.
type Config struct {
	// Path is the index directory. Empty means in-memory.
	Path string

	// AllowLeadingWildcard permits query terms that start with * or ?,
	// matching term suffixes. Scanning every term in the dictionary is the
	// cost.
	AllowLeadingWildcard bool

	// ParseCacheSize bounds the parsed-query cache. Zero or negative means
	// DefaultParseCacheSize.
	ParseCacheSize int

	// Logger receives store events. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns an in-memory store with leading wildcards allowed.
func DefaultConfig() Config {
	return Config{
		AllowLeadingWildcard: true,
		ParseCacheSize:       DefaultParseCacheSize,
	}
}

// Store owns the Bleve index. Mutations serialize on mu; snapshots opened
// via OpenSnapshot read committed state without holding it.
type Store struct {
	mu      sync.RWMutex
	index   bleve.Index
	adv     index.Index
	mapping mapping.IndexMapping
	path    string
	lock    *flock.Flock
	logger  *slog.Logger

	allowLeading bool
	queries      *lru.Cache[string, query.Query]

	// epoch counts commits; ordinals numbers snapshots.
	epoch    atomic.Uint64
	ordinals atomic.Uint64

	closed bool
}

// Open creates or opens the store described by cfg.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := buildMapping()

	var (
		idx  bleve.Index
		lock *flock.Flock
		err  error
	)
	if cfg.Path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, lock, err = openOnDisk(cfg.Path, m, logger)
	}
	if err != nil {
		return nil, err
	}

	adv, err := idx.Advanced()
	if err != nil {
		_ = idx.Close()
		releaseLock(lock)
		return nil, fmt.Errorf("advanced index handle: %w", err)
	}

	size := cfg.ParseCacheSize
	if size <= 0 {
		size = DefaultParseCacheSize
	}
	queries, err := lru.New[string, query.Query](size)
	if err != nil {
		_ = idx.Close()
		releaseLock(lock)
		return nil, fmt.Errorf("create query cache: %w", err)
	}

	return &Store{
		index:        idx,
		adv:          adv,
		mapping:      m,
		path:         cfg.Path,
		lock:         lock,
		logger:       logger,
		allowLeading: cfg.AllowLeadingWildcard,
		queries:      queries,
	}, nil
}

// openOnDisk locks the index directory, clears it if a previous run left it
// corrupted, and opens or creates the index.
func openOnDisk(path string, m mapping.IndexMapping, logger *slog.Logger) (bleve.Index, *flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create index directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire index lock: %w", err)
	}
	if !locked {
		return nil, nil, fmt.Errorf("%w: %s", ErrIndexLocked, path)
	}

	if validErr := validateIndex(path); validErr != nil {
		logger.Warn("index_corrupted",
			slog.String("path", path),
			slog.String("error", validErr.Error()))

		if removeErr := os.RemoveAll(path); removeErr != nil {
			releaseLock(lock)
			return nil, nil, fmt.Errorf("clear corrupted index: %w", removeErr)
		}
		logger.Info("index_discarded",
			slog.String("path", path),
			slog.String("reason", "corruption detected, reindex required"))
	}

	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		releaseLock(lock)
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	return idx, lock, nil
}

// validateIndex checks index metadata before opening so a truncated or
// half-written index gets cleared instead of failing every open thereafter.
func validateIndex(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	info, err := os.Stat(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing")
	}
	if err != nil {
		return fmt.Errorf("stat index_meta.json: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read index_meta.json: %w", err)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}

	return nil
}

func releaseLock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

// Upsert applies each word as its own delete-then-insert transaction. The
// batch removes any prior entry under the same term before writing the new
// one, and commits before the next word starts, so readers and crashes only
// ever observe whole words. Words already committed stay committed when a
// later word fails.
func (s *Store) Upsert(ctx context.Context, words []string) error {
	if len(words) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrIndexClosed
	}

	for _, word := range words {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := s.index.NewBatch()
		batch.Delete(word)
		if err := batch.Index(word, Entry{Keyword: word}); err != nil {
			return fmt.Errorf("stage %q: %w", word, err)
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit %q: %w", word, err)
		}
		s.epoch.Add(1)
	}

	s.logger.Debug("keywords_upserted",
		slog.Int("count", len(words)),
		slog.Uint64("epoch", s.epoch.Load()))
	return nil
}

// DeleteAll removes every entry in a single commit.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrIndexClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ids, err := s.liveIDs()
	if err != nil {
		return fmt.Errorf("enumerate entries: %w", err)
	}

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("commit delete-all: %w", err)
	}
	s.epoch.Add(1)

	s.logger.Info("index_cleared", slog.Int("removed", len(ids)))
	return nil
}

// liveIDs lists every committed external ID. Caller holds mu.
func (s *Store) liveIDs() ([]string, error) {
	reader, err := s.adv.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	itr, err := reader.DocIDReaderAll()
	if err != nil {
		return nil, err
	}
	defer func() { _ = itr.Close() }()

	var ids []string
	for {
		internalID, err := itr.Next()
		if err != nil {
			return nil, err
		}
		if internalID == nil {
			break
		}
		id, err := reader.ExternalID(internalID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Epoch returns the number of commits applied so far. Snapshots record the
// epoch they opened at; comparing the two is the cheap newer-commit check
// run once per search.
func (s *Store) Epoch() uint64 {
	return s.epoch.Load()
}

// Stats describes committed index state.
type Stats struct {
	Keywords uint64
	Epoch    uint64
	Path     string // empty when in-memory
}

// Stats returns a point-in-time view of the index size and commit count.
func (s *Store) Stats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrIndexClosed
	}

	count, err := s.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}

	return &Stats{
		Keywords: count,
		Epoch:    s.epoch.Load(),
		Path:     s.path,
	}, nil
}

// Close closes the index and releases the directory lock. Idempotent.
// Snapshots still holding leases keep their readers until released.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.index.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}
