package store

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// wildcardChars are the two pattern characters the wildcard path handles.
const wildcardChars = "*?"

// querySyntaxChars mean the full query-string language is in play and a
// term cannot be treated as a bare wildcard pattern.
const querySyntaxChars = "+-=&|><!(){}[]^\"~:\\/"

// ParseQuery turns a raw query string into an executable query.
//
// Blank input matches everything. A single wildcard term, optionally
// prefixed with "keyword:", becomes a wildcard query on the keyword field;
// anything else goes through the full query-string parser with the keyword
// field as default. Unparseable input returns ErrMalformedQuery.
//
// Parsed queries are cached; parsing is pure and the cached values are
// never mutated after construction.
func (s *Store) ParseQuery(raw string) (query.Query, error) {
	qs := strings.TrimSpace(raw)
	if qs == "" {
		return bleve.NewMatchAllQuery(), nil
	}

	if q, ok := s.queries.Get(qs); ok {
		return q, nil
	}

	q, err := s.parse(qs)
	if err != nil {
		return nil, err
	}
	s.queries.Add(qs, q)
	return q, nil
}

func (s *Store) parse(qs string) (query.Query, error) {
	if !s.allowLeading {
		for _, token := range strings.Fields(qs) {
			if strings.HasPrefix(token, "*") || strings.HasPrefix(token, "?") {
				return nil, fmt.Errorf("%w: leading wildcard in %q", ErrMalformedQuery, qs)
			}
		}
	}

	if term, ok := bareWildcard(qs); ok {
		if !s.allowLeading && (strings.HasPrefix(term, "*") || strings.HasPrefix(term, "?")) {
			return nil, fmt.Errorf("%w: leading wildcard in %q", ErrMalformedQuery, qs)
		}
		wq := bleve.NewWildcardQuery(term)
		wq.SetField(KeywordField)
		return wq, nil
	}

	parsed, err := bleve.NewQueryStringQuery(qs).Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}
	return parsed, nil
}

// bareWildcard reports whether qs is a single wildcard term, optionally
// prefixed with the keyword field name.
func bareWildcard(qs string) (string, bool) {
	term := strings.TrimPrefix(qs, KeywordField+":")
	if term == "" || strings.ContainsAny(term, " \t") {
		return "", false
	}
	if !strings.ContainsAny(term, wildcardChars) {
		return "", false
	}
	if strings.ContainsAny(term, querySyntaxChars) {
		return "", false
	}
	return term, true
}
