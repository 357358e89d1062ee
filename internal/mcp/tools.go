package mcp

// MaxLimit caps the number of hits any single tool call may request.
const MaxLimit = 100

// SearchKeywordsInput defines the input schema for the search_keywords tool.
type SearchKeywordsInput struct {
	Query string `json:"query,omitempty" jsonschema:"the query string; empty matches every keyword"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of hits, default from configuration"`
}

// SearchKeywordsOutput defines the output schema for the search_keywords tool.
type SearchKeywordsOutput struct {
	Hits     []HitOutput `json:"hits" jsonschema:"matching keywords ranked by descending score"`
	Total    uint64      `json:"total" jsonschema:"total matches, including those beyond the limit"`
	MaxScore float64     `json:"max_score" jsonschema:"highest score among all matches"`
}

// HitOutput is a single matching keyword.
type HitOutput struct {
	Term  string  `json:"term" jsonschema:"the matched keyword"`
	Score float64 `json:"score" jsonschema:"relevance score, comparable within one search"`
}

// IndexTextInput defines the input schema for the index_text tool.
type IndexTextInput struct {
	Text string `json:"text" jsonschema:"the document text to index"`
}

// IndexWordsInput defines the input schema for the index_words tool.
type IndexWordsInput struct {
	Words []string `json:"words" jsonschema:"the words to index; filter stages still apply"`
}

// ClearIndexInput defines the input schema for the clear_index tool (no parameters).
type ClearIndexInput struct{}

// IndexAckOutput reports index state after a mutation.
type IndexAckOutput struct {
	Keywords uint64 `json:"keywords" jsonschema:"number of keywords in the index"`
	Epoch    uint64 `json:"epoch" jsonschema:"commits applied since the index opened"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Status   string `json:"status" jsonschema:"index readiness"`
	Storage  string `json:"storage" jsonschema:"disk or memory"`
	Path     string `json:"path,omitempty" jsonschema:"index directory for on-disk indexes"`
	Keywords uint64 `json:"keywords" jsonschema:"number of keywords in the index"`
	Epoch    uint64 `json:"epoch" jsonschema:"commits applied since the index opened"`
}
