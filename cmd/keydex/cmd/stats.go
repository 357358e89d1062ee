package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/internal/output"
	"github.com/keydex/keydex/internal/telemetry"
	"github.com/keydex/keydex/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Show the state of the project's keyword index: keyword count, commit
epoch, storage mode, and on-disk sizes.`,
		Example: `  # Human-readable status
  keydex stats

  # Machine-readable status
  keydex stats --json

  # Query telemetry collected by searches
  keydex stats queries`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newStatsQueriesCmd())

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	defer setupCommandLogging()()

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

	stats, err := ix.Stats()
	if err != nil {
		return describeErr(err)
	}

	info := ui.StatusInfo{
		Root:     root,
		Keywords: stats.Keywords,
		Epoch:    stats.Epoch,
	}
	if stats.Path == "" {
		info.Storage = "memory"
	} else {
		info.Storage = "disk"
		info.Path = stats.Path
		info.IndexSize = dirSize(stats.Path)
		if !cfg.Telemetry.Disabled {
			info.TelemetrySize = fileSize(resolvePath(root, cfg.Telemetry.Path))
		}
	}

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor())
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func newStatsQueriesCmd() *cobra.Command {
	var (
		jsonOutput bool
		topN       int
	)

	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Show query pattern statistics",
		Long: `Display query telemetry collected by searches on this machine:
  - Query kind distribution (term / wildcard / match-all)
  - Top query terms
  - Recent zero-hit queries
  - Latency distribution

All metrics stay local; nothing is ever reported externally.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatsQueries(cmd.Context(), cmd, jsonOutput, topN)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&topN, "top", 10, "Number of top terms to show")

	return cmd
}

// queryStatsOutput is the JSON payload for stats queries.
type queryStatsOutput struct {
	QueryKindCounts     map[telemetry.QueryKind]int64     `json:"query_kind_counts"`
	TopTerms            []telemetry.TermCount             `json:"top_terms"`
	ZeroHitQueries      []string                          `json:"zero_hit_queries"`
	LatencyDistribution map[telemetry.LatencyBucket]int64 `json:"latency_distribution"`
}

func runStatsQueries(ctx context.Context, cmd *cobra.Command, jsonOutput bool, topN int) error {
	defer setupCommandLogging()()
	out := output.New(cmd.OutOrStdout())

	root := projectRoot()
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if cfg.Telemetry.Disabled {
		out.Warning("Telemetry is disabled in configuration")
		return nil
	}

	path := resolvePath(root, cfg.Telemetry.Path)
	if !fileExists(path) {
		out.Status("", "No query metrics recorded yet")
		out.Status("💡", "Metrics accumulate as searches run")
		return nil
	}

	st, err := telemetry.OpenSQLiteMetricsStore(path)
	if err != nil {
		return fmt.Errorf("open metrics store: %w", err)
	}
	defer func() { _ = st.Close() }()

	// All recorded history; date granularity in the store is daily.
	from := "0000-01-01"
	to := time.Now().Format("2006-01-02")

	kinds, err := st.GetQueryKindCounts(from, to)
	if err != nil {
		return fmt.Errorf("load query kinds: %w", err)
	}
	topTerms, err := st.GetTopTerms(topN)
	if err != nil {
		return fmt.Errorf("load top terms: %w", err)
	}
	zeroHits, err := st.GetZeroHitQueries(10)
	if err != nil {
		return fmt.Errorf("load zero-hit queries: %w", err)
	}
	latencies, err := st.GetLatencyCounts(from, to)
	if err != nil {
		return fmt.Errorf("load latency counts: %w", err)
	}

	stats := queryStatsOutput{
		QueryKindCounts:     kinds,
		TopTerms:            topTerms,
		ZeroHitQueries:      zeroHits,
		LatencyDistribution: latencies,
	}

	if jsonOutput {
		return out.JSON(stats)
	}

	printQueryStats(out, stats)
	return nil
}

func printQueryStats(out *output.Writer, stats queryStatsOutput) {
	var total int64
	for _, n := range stats.QueryKindCounts {
		total += n
	}

	out.Statusf("📊", "Query patterns (%d queries recorded)", total)
	out.Newline()

	if total == 0 {
		out.Status("", "No query metrics recorded yet")
		return
	}

	out.Status("", "By kind:")
	for _, kind := range []telemetry.QueryKind{telemetry.QueryKindTerm, telemetry.QueryKindWildcard, telemetry.QueryKindMatchAll} {
		if n := stats.QueryKindCounts[kind]; n > 0 {
			out.Statusf("", "  %-10s %d", kind, n)
		}
	}
	out.Newline()

	if len(stats.TopTerms) > 0 {
		out.Status("", "Top terms:")
		for _, tc := range stats.TopTerms {
			out.Statusf("", "  %-20s %d", tc.Term, tc.Count)
		}
		out.Newline()
	}

	if len(stats.ZeroHitQueries) > 0 {
		out.Status("", "Recent zero-hit queries:")
		for _, q := range stats.ZeroHitQueries {
			out.Statusf("", "  %q", q)
		}
		out.Newline()
	}

	buckets := []telemetry.LatencyBucket{
		telemetry.BucketP10, telemetry.BucketP50, telemetry.BucketP100,
		telemetry.BucketP500, telemetry.BucketP1000,
	}
	values := make([]int64, len(buckets))
	var recorded bool
	for i, b := range buckets {
		values[i] = stats.LatencyDistribution[b]
		if values[i] > 0 {
			recorded = true
		}
	}
	if recorded {
		out.Statusf("", "Latency:  %s  (<10ms .. >=500ms)", ui.Sparkline(values))
	}
}

// dirSize sums file sizes under path. Unreadable entries count as zero.
func dirSize(path string) int64 {
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
