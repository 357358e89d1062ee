package mcp

import (
	"fmt"
	"strings"

	"github.com/keydex/keydex/pkg/keyword"
)

// FormatSearchResults formats search results as markdown.
func FormatSearchResults(query string, results *keyword.Results) string {
	title := fmt.Sprintf("\"%s\"", query)
	if strings.TrimSpace(query) == "" {
		title = "all keywords"
	}

	if results == nil || len(results.Hits) == 0 {
		return fmt.Sprintf("No keywords found for %s", title)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Keyword Results for %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Found %d match", results.Total))
	if results.Total != 1 {
		sb.WriteString("es")
	}
	if results.Total > uint64(len(results.Hits)) {
		sb.WriteString(fmt.Sprintf(" (showing %d)", len(results.Hits)))
	}
	sb.WriteString("\n\n")

	for i, h := range results.Hits {
		fmt.Fprintf(&sb, "%d. `%s` (score: %.2f)\n", i+1, h.Term, h.Score)
	}

	return sb.String()
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
