// Package extract turns free-form document text into index-ready keywords.
//
// The pipeline runs in a fixed order: an extraction function produces raw
// words, an optional split pattern breaks them apart, stop words are dropped
// by exact match, and a term pattern keeps only well-formed keywords. Words
// that fail a stage disappear silently; nothing in the pipeline errors.
package extract

import "regexp"

var (
	// defaultSplit breaks raw words on runs of whitespace.
	defaultSplit = regexp.MustCompile(`\s+`)

	// defaultTerm keeps words of two or more letters, digits, or dots.
	defaultTerm = regexp.MustCompile(`^[a-zA-Z0-9.]{2,}$`)
)

// Func produces the raw word list for a document.
type Func func(document string) []string

// Config controls each stage of the pipeline. The zero value is not usable;
// start from DefaultConfig.
type Config struct {
	// Extract produces raw words from a document. When nil, the whole
	// document is treated as one raw word.
	Extract Func

	// Split breaks each raw word into smaller ones. Nil disables splitting.
	Split *regexp.Regexp

	// StopWords are dropped by exact, case-sensitive match.
	StopWords map[string]struct{}

	// Term keeps only words it matches in full. Nil keeps every word.
	Term *regexp.Regexp
}

// DefaultConfig returns whitespace splitting, the English stop-word set, and
// the two-plus alphanumeric-or-dot term pattern.
func DefaultConfig() Config {
	return Config{
		Split:     defaultSplit,
		StopWords: DefaultStopWords(),
		Term:      defaultTerm,
	}
}

// Pipeline applies a fixed Config. Safe for concurrent use.
type Pipeline struct {
	extract   Func
	split     *regexp.Regexp
	stopWords map[string]struct{}
	term      *regexp.Regexp
}

// New builds a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		extract:   cfg.Extract,
		split:     cfg.Split,
		stopWords: cfg.StopWords,
		term:      cfg.Term,
	}
}

// Extract runs the full pipeline on a document. An empty document yields an
// empty result.
func (p *Pipeline) Extract(document string) []string {
	var raw []string
	if p.extract != nil {
		raw = p.extract(document)
	} else if document != "" {
		raw = []string{document}
	}
	return p.Filter(raw)
}

// Filter runs the split, stop-word, and term stages on an explicit word list.
// Order is preserved and duplicates pass through; empty in means empty out.
func (p *Pipeline) Filter(words []string) []string {
	out := make([]string, 0, len(words))
	for _, word := range p.splitAll(words) {
		if _, stop := p.stopWords[word]; stop {
			continue
		}
		if p.term != nil && !p.term.MatchString(word) {
			continue
		}
		out = append(out, word)
	}
	return out
}

func (p *Pipeline) splitAll(words []string) []string {
	if p.split == nil {
		return words
	}
	out := make([]string, 0, len(words))
	for _, word := range words {
		for _, part := range p.split.Split(word, -1) {
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// StopWordSet builds a stop-word set from a word list. Matching is exact, so
// the words are stored as given.
func StopWordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// DefaultStopWords returns the classic English function-word set.
func DefaultStopWords() map[string]struct{} {
	return StopWordSet(
		"a", "an", "and", "are", "as", "at", "be", "but", "by",
		"for", "if", "in", "into", "is", "it", "no", "not", "of",
		"on", "or", "such", "that", "the", "their", "then", "there",
		"these", "they", "this", "to", "was", "will", "with",
	)
}
