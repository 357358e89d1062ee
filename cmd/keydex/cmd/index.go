package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/internal/output"
	"github.com/keydex/keydex/internal/ui"
	"github.com/keydex/keydex/pkg/keyword"
)

type indexOptions struct {
	words bool
	files []string
	dirs  []string
	plain bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [text...]",
		Short: "Add documents to the keyword index",
		Long: `Add documents to the keyword index.

Each document is tokenized, filtered against the stop-word and
term-pattern rules, and its surviving words are upserted. Indexing the
same words again is a no-op: the index holds each keyword exactly once.

Text can come from arguments, stdin, or files:`,
		Example: `  # Index a sentence given as arguments
  keydex index "the quick brown fox"

  # Index a piped document
  cat notes.txt | keydex index

  # Index files and directory trees
  keydex index --file notes.txt --file ideas.md
  keydex index --dir ./docs

  # Index pre-split words, skipping tokenization
  keydex index --words running jumped swimming`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.words, "words", "w", false, "Treat arguments as pre-split words (skips tokenization, not filtering)")
	cmd.Flags().StringSliceVar(&opts.files, "file", nil, "Index the contents of a file (repeatable)")
	cmd.Flags().StringSliceVar(&opts.dirs, "dir", nil, "Index every matching file under a directory (repeatable)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain progress output, no animation")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, args []string, opts indexOptions) error {
	defer setupCommandLogging()()
	out := output.New(cmd.OutOrStdout())

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

	paths, err := collectFiles(opts.files, opts.dirs, cfg.Watch.Extensions)
	if err != nil {
		return err
	}

	documents := 0

	switch {
	case opts.words:
		if len(args) == 0 {
			return fmt.Errorf("--words requires at least one word argument")
		}
		if err := ix.IndexWords(ctx, args); err != nil {
			return describeErr(err)
		}
		documents++
	case len(args) > 0:
		if err := ix.Index(ctx, strings.Join(args, " ")); err != nil {
			return describeErr(err)
		}
		documents++
	case len(paths) == 0:
		// No arguments and no files: read one document from stdin.
		if f, ok := cmd.InOrStdin().(*os.File); ok && ui.IsTTY(f) {
			return fmt.Errorf("nothing to index: pass text arguments, --file/--dir, or pipe a document on stdin")
		}
		doc, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if err := ix.Index(ctx, string(doc)); err != nil {
			return describeErr(err)
		}
		documents++
	}

	if len(paths) > 0 {
		n, err := indexFiles(ctx, cmd, ix, paths, opts.plain)
		documents += n
		if err != nil {
			return describeErr(err)
		}
	}

	stats, err := ix.Stats()
	if err != nil {
		return describeErr(err)
	}
	out.Successf("Indexed %d document(s): %d keywords at epoch %d", documents, stats.Keywords, stats.Epoch)

	return nil
}

// collectFiles expands --dir trees into concrete file paths and appends the
// explicit --file arguments. Directory walks honor the configured watch
// extensions and skip hidden directories; explicit files are taken as-is.
func collectFiles(files, dirs, extensions []string) ([]string, error) {
	var paths []string

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != dir && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if matchesExtension(path, extensions) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}

	return append(paths, files...), nil
}

func matchesExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// indexFiles feeds each file to the index as a separate document. Reads
// run concurrently; word commits serialize inside the index.
func indexFiles(ctx context.Context, cmd *cobra.Command, ix *keyword.Index, paths []string, plain bool) (int, error) {
	bar := ui.NewProgress(cmd.OutOrStdout(), len(paths), "Indexing", plain)
	defer bar.Finish()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	var documents atomic.Int64
	for _, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			if err := ix.Index(ctx, string(data)); err != nil {
				return fmt.Errorf("index %s: %w", path, err)
			}
			slog.Debug("index.file", slog.String("path", path), slog.Int("bytes", len(data)))
			documents.Add(1)
			bar.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return int(documents.Load()), err
}
