// Package cmd provides the CLI commands for keydex.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/internal/logging"
	"github.com/keydex/keydex/internal/profiling"
	"github.com/keydex/keydex/internal/telemetry"
	"github.com/keydex/keydex/pkg/keyword"
	"github.com/keydex/keydex/pkg/version"
)

// Profiling flags
var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the keydex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keydex",
		Short: "Embeddable keyword index with an MCP server",
		Long: `Keydex maintains a searchable index of unique keywords extracted from
text. Documents are tokenized, filtered, and upserted one commit per
word; searches run against immutable snapshots so they never block
writes or see half-applied commits.

Just run 'keydex' in your project directory to start the MCP server.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If help was explicitly requested, show it
			if len(args) > 0 {
				return cmd.Help()
			}
			return runSmartDefault(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("keydex version {{.Version}}\n")

	// Profiling flags
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	// Debug logging flag
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.keydex/logs/")

	// Setup profiling and logging hooks
	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	// Add subcommands
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts CPU/trace profiling and debug logging if flags are set.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error

	// Start debug logging if enabled
	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	// Start CPU profiling
	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}

	// Start trace profiling
	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("failed to start trace: %w", err)
		}
	}

	return nil
}

// stopProfilingAndLogging stops profiling and logging, writes memory profile if requested.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	// Stop CPU profiling
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}

	// Stop tracing
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}

	// Write memory profile if requested
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

	// Stop debug logging
	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// runSmartDefault implements the zero-argument flow: bare 'keydex' in a
// project directory starts the MCP server over stdio.
func runSmartDefault(ctx context.Context) error {
	// The MCP protocol uses stdout exclusively for JSON-RPC messages, so
	// nothing may be printed before the server takes over. Diagnostics
	// live in 'keydex stats' and the log file.
	return runServe(ctx, "")
}

// projectRoot locates the directory whose .keydex/ data this invocation
// uses: the nearest ancestor with a .git directory or .keydex.yaml file,
// falling back to the working directory.
func projectRoot() string {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	return root
}

// resolvePath anchors a config-relative path at the project root. Absolute
// paths pass through untouched.
func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// buildIndex opens the project's keyword index with the effective
// configuration applied. The store itself opens lazily on first use, so
// this never touches disk by itself.
func buildIndex(cfg *config.Config, root string) (*keyword.Index, error) {
	graceDelay, err := cfg.GraceDelay()
	if err != nil {
		return nil, err
	}
	splitPattern, err := cfg.SplitPattern()
	if err != nil {
		return nil, err
	}
	termPattern, err := cfg.TermPattern()
	if err != nil {
		return nil, err
	}

	opts := []keyword.Option{
		keyword.WithSplitPattern(splitPattern),
		keyword.WithTermPattern(termPattern),
		keyword.WithGraceDelay(graceDelay),
		keyword.WithDefaultLimit(cfg.Search.DefaultLimit),
		keyword.WithLeadingWildcard(!cfg.Index.DisableLeadingWildcard),
		keyword.WithParseCacheSize(cfg.Index.ParseCacheSize),
		keyword.WithLogger(slog.Default()),
	}
	if len(cfg.Index.StopWords) > 0 {
		opts = append(opts, keyword.WithStopWords(cfg.Index.StopWords...))
	}
	if cfg.Index.Path != "" {
		opts = append(opts, keyword.WithPath(resolvePath(root, cfg.Index.Path)))
	}

	return keyword.New(opts...)
}

// openMetrics starts the query metrics collector backed by the project's
// telemetry database. Telemetry never blocks a command: when the store
// cannot be opened the collector is skipped with a logged warning. The
// returned cleanup flushes and closes both collector and store.
func openMetrics(cfg *config.Config, root string) (*telemetry.QueryMetrics, func()) {
	noop := func() {}
	if cfg.Telemetry.Disabled {
		return nil, noop
	}

	path := resolvePath(root, cfg.Telemetry.Path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		slog.Warn("telemetry.store_unavailable", slog.String("error", err.Error()))
		return nil, noop
	}
	st, err := telemetry.OpenSQLiteMetricsStore(path)
	if err != nil {
		slog.Warn("telemetry.store_unavailable", slog.String("error", err.Error()))
		return nil, noop
	}

	tcfg := telemetry.DefaultConfig()
	if cfg.Telemetry.RecentQueries > 0 {
		tcfg.RecentQueriesCapacity = cfg.Telemetry.RecentQueries
	}
	m := telemetry.NewQueryMetricsWithConfig(st, tcfg)
	return m, func() {
		_ = m.Close()
		_ = st.Close()
	}
}

// setupCommandLogging routes slog output to the log file so stdout stays
// reserved for command output. The --debug hook owns logging when set.
func setupCommandLogging() func() {
	if debugMode {
		return func() {}
	}
	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return func() {}
	}
	slog.SetDefault(logger)
	return cleanup
}

// describeErr adds a hint to the errors users actually hit.
func describeErr(err error) error {
	if errors.Is(err, keyword.ErrLocked) {
		return fmt.Errorf("%w (is another keydex process using this index?)", err)
	}
	return err
}
