// Package telemetry collects local query metrics for the stats command.
// All data stays on the machine; nothing is ever reported externally.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Query Kinds
// =============================================================================

// QueryKind classifies a search query by how it executes.
type QueryKind string

const (
	// QueryKindMatchAll is a blank query enumerating the whole index.
	QueryKindMatchAll QueryKind = "match_all"
	// QueryKindWildcard is a single pattern term with * or ? metacharacters.
	QueryKindWildcard QueryKind = "wildcard"
	// QueryKindTerm is everything else: plain terms and query-string syntax.
	QueryKindTerm QueryKind = "term"
)

// ClassifyQuery maps a raw query string to its kind.
func ClassifyQuery(query string) QueryKind {
	query = strings.TrimSpace(query)
	if query == "" {
		return QueryKindMatchAll
	}
	if strings.ContainsAny(query, "*?") {
		return QueryKindWildcard
	}
	return QueryKindTerm
}

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// =============================================================================
// Query Event
// =============================================================================

// QueryEvent represents a single search for telemetry recording.
type QueryEvent struct {
	Query     string
	Kind      QueryKind
	Hits      int    // Hits actually returned (after the limit)
	Total     uint64 // Total matching keywords
	Latency   time.Duration
	Timestamp time.Time
}

// IsZeroHit reports whether the query matched nothing at all.
func (e QueryEvent) IsZeroHit() bool {
	return e.Total == 0
}

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // Next write position
	size     int // Current number of items
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity

	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in the buffer in FIFO order (oldest first).
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		// Buffer full, oldest item sits at head
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear removes all items from the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}

// =============================================================================
// Term Extraction
// =============================================================================

// ExtractTerms pulls aggregatable terms out of a query string. Terms are
// lowercased, stripped of wildcard metacharacters and the keyword: field
// prefix, and filtered to minimum length 3.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var terms []string
	for _, w := range strings.Fields(query) {
		w = strings.TrimPrefix(w, "keyword:")
		w = strings.Trim(w, "*?")
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}

	if len(terms) == 0 {
		return nil
	}
	return terms
}

// =============================================================================
// Term Count
// =============================================================================

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// =============================================================================
// Query Metrics Snapshot
// =============================================================================

// Snapshot is an immutable view of collected query metrics.
type Snapshot struct {
	QueryKindCounts     map[QueryKind]int64     `json:"query_kind_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroHitQueries      []string                `json:"zero_hit_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroHitCount        int64                   `json:"zero_hit_count"`
	Since               time.Time               `json:"since"`

	ExactRepeatCount int64   `json:"exact_repeat_count"`
	ExactRepeatRate  float64 `json:"exact_repeat_rate"`
	UniqueQueryCount int64   `json:"unique_query_count"`
}

// ZeroHitPercentage returns the percentage of zero-hit queries.
func (s *Snapshot) ZeroHitPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroHitCount) / float64(s.TotalQueries) * 100
}

// RepetitionSummary returns a one-line summary of repetition metrics.
func (s *Snapshot) RepetitionSummary() string {
	if s.TotalQueries == 0 {
		return "No queries recorded"
	}
	return fmt.Sprintf("exact=%.1f%%, unique=%d", s.ExactRepeatRate*100, s.UniqueQueryCount)
}

// =============================================================================
// Metrics Store (Interface)
// =============================================================================

// MetricsStore defines persistence operations for query metrics.
type MetricsStore interface {
	// SaveQueryKindCounts upserts daily query kind counts.
	SaveQueryKindCounts(date string, counts map[QueryKind]int64) error

	// GetQueryKindCounts retrieves counts for a date range.
	GetQueryKindCounts(from, to string) (map[QueryKind]int64, error)

	// UpsertTermCounts updates term frequency counts.
	UpsertTermCounts(terms map[string]int64) error

	// GetTopTerms retrieves the top N terms by frequency.
	GetTopTerms(limit int) ([]TermCount, error)

	// AddZeroHitQuery records a query that matched nothing.
	AddZeroHitQuery(query string, timestamp time.Time) error

	// GetZeroHitQueries retrieves recent zero-hit queries.
	GetZeroHitQueries(limit int) ([]string, error)

	// SaveLatencyCounts upserts daily latency histogram counts.
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error

	// GetLatencyCounts retrieves latency distribution for a date range.
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)

	// Close releases resources.
	Close() error
}

// =============================================================================
// Collector Configuration
// =============================================================================

// Config configures the query metrics collector.
type Config struct {
	TopTermsCapacity      int           // Max terms to track (default: 100)
	ZeroHitsCapacity      int           // Max zero-hit queries to keep (default: 100)
	FlushInterval         time.Duration // How often to flush to store (default: 60s, 0 = no auto-flush)
	RecentQueriesCapacity int           // Max query hashes tracked for repetition (default: 512)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:      100,
		ZeroHitsCapacity:      100,
		FlushInterval:         60 * time.Second,
		RecentQueriesCapacity: 512,
	}
}

// =============================================================================
// Query Metrics Collector
// =============================================================================

// QueryMetrics collects query telemetry. Thread-safe for concurrent access.
type QueryMetrics struct {
	mu sync.RWMutex

	// In-memory aggregates
	kinds        map[QueryKind]int64
	topTerms     *lru.Cache[string, int64]
	zeroHits     *CircularBuffer[string]
	latencies    map[LatencyBucket]int64
	totalQueries int64
	zeroHitCount int64
	startTime    time.Time

	// Repetition tracking over normalized query hashes
	recentQueries    *lru.Cache[string, struct{}]
	exactRepeatCount int64

	// Deltas since the last flush. Drained on Flush so periodic flushes
	// never double-count against the store's additive upserts.
	unflushedKinds     map[QueryKind]int64
	unflushedTerms     map[string]int64
	unflushedLatencies map[LatencyBucket]int64
	unflushedZeroHits  []zeroHitEntry

	// Persistence
	store       MetricsStore
	config      Config
	flushTicker *time.Ticker
	stopCh      chan struct{}
	closed      bool
}

type zeroHitEntry struct {
	query string
	at    time.Time
}

// NewQueryMetrics creates a collector with default configuration. A nil
// store keeps metrics in memory only.
func NewQueryMetrics(store MetricsStore) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultConfig())
}

// NewQueryMetricsWithConfig creates a collector with custom configuration.
func NewQueryMetricsWithConfig(store MetricsStore, cfg Config) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroHitsCapacity <= 0 {
		cfg.ZeroHitsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 512
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recentQueries, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	m := &QueryMetrics{
		kinds:              make(map[QueryKind]int64),
		topTerms:           topTerms,
		zeroHits:           NewCircularBuffer[string](cfg.ZeroHitsCapacity),
		latencies:          make(map[LatencyBucket]int64),
		startTime:          time.Now(),
		recentQueries:      recentQueries,
		unflushedKinds:     make(map[QueryKind]int64),
		unflushedTerms:     make(map[string]int64),
		unflushedLatencies: make(map[LatencyBucket]int64),
		store:              store,
		config:             cfg,
		stopCh:             make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		m.flushTicker = time.NewTicker(cfg.FlushInterval)
		go m.flushLoop()
	}

	return m
}

// flushLoop periodically flushes metrics to storage.
func (m *QueryMetrics) flushLoop() {
	for {
		select {
		case <-m.flushTicker.C:
			_ = m.Flush()
		case <-m.stopCh:
			return
		}
	}
}

// Record captures metrics from a search. Thread-safe and non-blocking.
func (m *QueryMetrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	kind := event.Kind
	if kind == "" {
		kind = ClassifyQuery(event.Query)
	}
	m.kinds[kind]++
	m.unflushedKinds[kind]++
	m.totalQueries++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
		m.unflushedTerms[term]++
	}

	if event.IsZeroHit() {
		m.zeroHits.Add(event.Query)
		m.zeroHitCount++
		at := event.Timestamp
		if at.IsZero() {
			at = time.Now()
		}
		m.unflushedZeroHits = append(m.unflushedZeroHits, zeroHitEntry{query: event.Query, at: at})
	}

	bucket := LatencyToBucket(event.Latency)
	m.latencies[bucket]++
	m.unflushedLatencies[bucket]++

	queryHash := hashQuery(event.Query)
	if _, exists := m.recentQueries.Get(queryHash); exists {
		m.exactRepeatCount++
	}
	m.recentQueries.Add(queryHash, struct{}{})
}

// hashQuery creates a normalized hash of the query for repetition detection.
func hashQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:16])
}

// Snapshot returns current metrics for reporting.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kindCounts := make(map[QueryKind]int64)
	for k, v := range m.kinds {
		kindCounts[k] = v
	}

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	sort.Slice(topTerms, func(i, j int) bool {
		if topTerms[i].Count != topTerms[j].Count {
			return topTerms[i].Count > topTerms[j].Count
		}
		return topTerms[i].Term < topTerms[j].Term
	})

	latencies := make(map[LatencyBucket]int64)
	for k, v := range m.latencies {
		latencies[k] = v
	}

	var exactRepeatRate float64
	if m.totalQueries > 0 {
		exactRepeatRate = float64(m.exactRepeatCount) / float64(m.totalQueries)
	}

	return &Snapshot{
		QueryKindCounts:     kindCounts,
		TopTerms:            topTerms,
		ZeroHitQueries:      m.zeroHits.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroHitCount:        m.zeroHitCount,
		Since:               m.startTime,
		ExactRepeatCount:    m.exactRepeatCount,
		ExactRepeatRate:     exactRepeatRate,
		UniqueQueryCount:    int64(m.recentQueries.Len()),
	}
}

// Flush persists metrics recorded since the last flush. Safe to call
// without a configured store.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	kinds := m.unflushedKinds
	terms := m.unflushedTerms
	latencies := m.unflushedLatencies
	zeroHits := m.unflushedZeroHits
	m.unflushedKinds = make(map[QueryKind]int64)
	m.unflushedTerms = make(map[string]int64)
	m.unflushedLatencies = make(map[LatencyBucket]int64)
	m.unflushedZeroHits = nil
	m.mu.Unlock()

	if len(kinds) == 0 && len(terms) == 0 && len(latencies) == 0 && len(zeroHits) == 0 {
		return nil
	}

	today := time.Now().Format("2006-01-02")

	if err := m.store.SaveQueryKindCounts(today, kinds); err != nil {
		return err
	}

	if err := m.store.UpsertTermCounts(terms); err != nil {
		return err
	}

	for _, zh := range zeroHits {
		if err := m.store.AddZeroHitQuery(zh.query, zh.at); err != nil {
			return err
		}
	}

	return m.store.SaveLatencyCounts(today, latencies)
}

// Close flushes and releases resources.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	if m.flushTicker != nil {
		m.flushTicker.Stop()
		close(m.stopCh)
	}

	return m.Flush()
}
