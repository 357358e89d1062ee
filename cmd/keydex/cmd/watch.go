package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/internal/output"
	"github.com/keydex/keydex/internal/watcher"
	"github.com/keydex/keydex/pkg/keyword"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and index changed files",
		Long: `Watch a directory tree and feed changed text files to the index.

Files matching the configured extensions are indexed when created or
modified. Deletions are ignored: the index holds keywords, not files,
so there is nothing to retract. Press Ctrl-C to stop.`,
		Example: `  # Watch the project root
  keydex watch

  # Watch a specific directory
  keydex watch ./docs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runWatch(cmd.Context(), cmd, dir)
		},
	}

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string) error {
	defer setupCommandLogging()()
	out := output.New(cmd.OutOrStdout())

	root := projectRoot()
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = root
	}

	debounce, err := cfg.WatchDebounce()
	if err != nil {
		return err
	}
	pollInterval, err := cfg.WatchPollInterval()
	if err != nil {
		return err
	}

	ix, err := buildIndex(cfg, root)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()

	w, err := watcher.New(watcher.Options{
		Debounce:     debounce,
		PollInterval: pollInterval,
		Extensions:   cfg.Watch.Extensions,
		Logger:       slog.Default(),
	})
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out.Statusf("👀", "Watching %s (%s backend)", dir, w.Backend())
	out.Status("", "Press Ctrl-C to stop")

	go consumeEvents(ctx, out, ix, w, dir)
	go func() {
		for err := range w.Errors() {
			slog.Warn("watch.error", slog.String("error", err.Error()))
		}
	}()

	if err := w.Start(ctx, dir); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	out.Newline()
	out.Success("Watch stopped")
	return nil
}

func consumeEvents(ctx context.Context, out *output.Writer, ix *keyword.Index, w *watcher.Watcher, dir string) {
	for batch := range w.Events() {
		indexed := indexBatch(ctx, ix, dir, batch)
		if indexed == 0 {
			continue
		}

		stats, err := ix.Stats()
		if err != nil {
			slog.Warn("watch.stats_failed", slog.String("error", err.Error()))
			continue
		}
		out.Statusf("📝", "Indexed %d changed file(s): %d keywords at epoch %d",
			indexed, stats.Keywords, stats.Epoch)
	}
}

// indexBatch feeds created and modified files from one debounced batch to
// the index. Event paths are relative to the watched directory.
func indexBatch(ctx context.Context, ix *keyword.Index, dir string, batch []watcher.Event) int {
	indexed := 0
	for _, ev := range batch {
		if ev.Op != watcher.OpCreate && ev.Op != watcher.OpModify {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, ev.Path))
		if err != nil {
			slog.Warn("watch.read_failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
			continue
		}
		if err := ix.Index(ctx, string(data)); err != nil {
			slog.Warn("watch.index_failed", slog.String("path", ev.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
	}
	return indexed
}
