package store

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
)

// KeywordField is the single stored and indexed field on every entry.
const KeywordField = "keyword"

// Entry is the Bleve document for one keyword. The external document ID is
// the keyword itself, which is what turns delete-then-insert into an upsert:
// deleting the ID removes the only entry that can exist for the term.
type Entry struct {
	Keyword string `json:"keyword"`
}

// buildMapping maps the keyword field with the keyword analyzer: the whole
// value is one token and nothing is case folded, so index-time and
// query-time analysis agree byte for byte.
func buildMapping() *mapping.IndexMappingImpl {
	field := bleve.NewTextFieldMapping()
	field.Analyzer = keyword.Name
	field.Store = true
	field.IncludeInAll = false
	field.IncludeTermVectors = false

	entry := bleve.NewDocumentMapping()
	entry.AddFieldMappingsAt(KeywordField, field)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = entry
	m.DefaultAnalyzer = keyword.Name
	m.DefaultField = KeywordField
	return m
}
