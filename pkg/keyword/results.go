package keyword

// Hit is one matching keyword and its relevance score. Larger scores are
// more relevant; scores compare only within a single search execution, not
// across index states.
type Hit struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Results is the outcome of one search.
type Results struct {
	// Hits holds up to limit entries, ranked by descending score.
	Hits []Hit `json:"hits"`

	// Total counts every matching entry, including those beyond the limit.
	Total uint64 `json:"total"`

	// MaxScore is the highest score among all matches, not just the
	// returned page.
	MaxScore float64 `json:"max_score"`
}

// Stats describes committed index state.
type Stats struct {
	// Keywords is the number of live entries.
	Keywords uint64 `json:"keywords"`

	// Epoch counts commits applied since the index opened.
	Epoch uint64 `json:"epoch"`

	// Path is the index directory, empty for in-memory indexes.
	Path string `json:"path,omitempty"`
}
