package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/internal/output"
	"github.com/keydex/keydex/internal/telemetry"
	"github.com/keydex/keydex/pkg/keyword"
)

type searchOptions struct {
	limit  int
	format string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed keywords",
		Long: `Search the keyword index with query-string syntax.

Plain terms match exact keywords, * and ? wildcards match patterns,
and full query-string expressions (fields, boolean operators) are
passed through to the engine. An empty query matches every keyword.`,
		Example: `  # Exact term
  keydex search hello

  # Wildcard patterns
  keydex search "run*"
  keydex search "w?dget" --limit 5

  # Query-string syntax
  keydex search "keyword:data*"

  # Everything in the index
  keydex search`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum results to return (0 uses the configured default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	defer setupCommandLogging()()
	out := output.New(cmd.OutOrStdout())

	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format: %s (use: text, json)", opts.format)
	}

	root := projectRoot()
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	ix, err := buildIndex(cfg, root)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()

	metrics, metricsCleanup := openMetrics(cfg, root)
	defer metricsCleanup()

	start := time.Now()
	results, err := ix.Search(ctx, query, opts.limit)
	if err != nil {
		if errors.Is(err, keyword.ErrMalformedQuery) {
			return fmt.Errorf("malformed query %q: %w", query, err)
		}
		return describeErr(err)
	}

	if metrics != nil {
		metrics.Record(telemetry.QueryEvent{
			Query:     query,
			Kind:      telemetry.ClassifyQuery(query),
			Hits:      len(results.Hits),
			Total:     results.Total,
			Latency:   time.Since(start),
			Timestamp: time.Now(),
		})
	}

	if opts.format == "json" {
		return out.JSON(searchOutput{
			Query:    query,
			Total:    results.Total,
			MaxScore: results.MaxScore,
			Hits:     results.Hits,
		})
	}

	printResults(out, query, results)
	return nil
}

// searchOutput is the JSON payload for search --format json.
type searchOutput struct {
	Query    string        `json:"query"`
	Total    uint64        `json:"total"`
	MaxScore float64       `json:"max_score"`
	Hits     []keyword.Hit `json:"hits"`
}

func printResults(out *output.Writer, query string, results *keyword.Results) {
	if len(results.Hits) == 0 {
		if strings.TrimSpace(query) == "" {
			out.Status("", "The index is empty")
		} else {
			out.Statusf("", "No keywords match %q", query)
		}
		return
	}

	label := fmt.Sprintf("%q", query)
	if strings.TrimSpace(query) == "" {
		label = "match-all"
	}
	out.Statusf("🔍", "Found %d of %d keywords for %s", len(results.Hits), results.Total, label)
	out.Newline()

	for i, hit := range results.Hits {
		out.Statusf("", "%2d. %s (score: %.2f)", i+1, hit.Term, hit.Score)
	}
}
