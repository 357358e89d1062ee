package keyword

import (
	"log/slog"
	"regexp"
	"time"

	"github.com/keydex/keydex/internal/extract"
	"github.com/keydex/keydex/internal/sched"
	"github.com/keydex/keydex/internal/store"
)

const (
	// DefaultLimit caps search results when the caller passes no positive
	// limit.
	DefaultLimit = 10

	// DefaultGraceDelay is how long a superseded generation stays open so
	// searches already holding a lease on it can finish enumerating.
	DefaultGraceDelay = 30 * time.Second
)

// ExtractFunc produces the raw word list for a document, before the split,
// stop-word, and term-pattern stages run.
type ExtractFunc func(document string) []string

// Scheduler runs a closure once, asynchronously, after a delay. The index
// uses it solely to retire superseded generations; the default runs on the
// runtime timer heap.
type Scheduler interface {
	After(d time.Duration, fn func())
}

// options is fixed at construction and read-only afterwards.
type options struct {
	path            string
	extractFn       ExtractFunc
	split           *regexp.Regexp
	stopWords       map[string]struct{}
	term            *regexp.Regexp
	graceDelay      time.Duration
	defaultLimit    int
	leadingWildcard bool
	parseCacheSize  int
	scheduler       Scheduler
	logger          *slog.Logger
}

func defaultOptions() options {
	ecfg := extract.DefaultConfig()
	return options{
		split:           ecfg.Split,
		stopWords:       ecfg.StopWords,
		term:            ecfg.Term,
		graceDelay:      DefaultGraceDelay,
		defaultLimit:    DefaultLimit,
		leadingWildcard: true,
		parseCacheSize:  store.DefaultParseCacheSize,
		scheduler:       sched.NewTimer(),
	}
}

// Option configures an Index.
type Option func(*options)

// WithPath stores the index under the given directory instead of in memory.
// The directory is locked against concurrent processes while the index is
// open.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithExtractor replaces the default extraction function, which treats the
// whole document as a single raw word. The split and filter stages still run
// on its output.
func WithExtractor(fn ExtractFunc) Option {
	return func(o *options) {
		o.extractFn = fn
	}
}

// WithSplitPattern replaces the default whitespace split pattern. A nil
// pattern disables splitting and indexes raw words as extracted.
func WithSplitPattern(p *regexp.Regexp) Option {
	return func(o *options) {
		o.split = p
	}
}

// WithStopWords replaces the default English stop-word set. Matching is
// exact and case-sensitive.
func WithStopWords(words ...string) Option {
	return func(o *options) {
		o.stopWords = extract.StopWordSet(words...)
	}
}

// WithTermPattern replaces the default term pattern (two or more letters,
// digits, or dots). Words that do not match in full are dropped silently.
// A nil pattern keeps every word.
func WithTermPattern(p *regexp.Regexp) Option {
	return func(o *options) {
		o.term = p
	}
}

// WithGraceDelay sets how long superseded generations stay open for
// in-flight searches.
func WithGraceDelay(d time.Duration) Option {
	return func(o *options) {
		o.graceDelay = d
	}
}

// WithDefaultLimit sets the result cap used when Search receives a
// non-positive limit.
func WithDefaultLimit(n int) Option {
	return func(o *options) {
		o.defaultLimit = n
	}
}

// WithLeadingWildcard toggles queries that start with * or ?. They are
// allowed by default; disabling makes them malformed-query errors.
func WithLeadingWildcard(allow bool) Option {
	return func(o *options) {
		o.leadingWildcard = allow
	}
}

// WithParseCacheSize bounds the parsed-query cache.
func WithParseCacheSize(n int) Option {
	return func(o *options) {
		o.parseCacheSize = n
	}
}

// WithScheduler replaces the timer-based retirement scheduler. Tests use
// this to drive grace-period expiry by hand.
func WithScheduler(s Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithLogger sets the logger for index events. The default is slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
