package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/internal/output"
)

func newClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every keyword from the index",
		Long: `Remove every keyword from the index in a single commit.

The cleared state is visible to the next search immediately; searches
already in flight finish against the snapshot they started with.`,
		Example: `  # Clear with confirmation prompt
  keydex clear

  # Clear without prompting
  keydex clear --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClear(cmd.Context(), cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Clear without confirmation")

	return cmd
}

func runClear(ctx context.Context, cmd *cobra.Command, force bool) error {
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

	stats, err := ix.Stats()
	if err != nil {
		return describeErr(err)
	}
	if stats.Keywords == 0 {
		out.Status("", "The index is already empty")
		return nil
	}

	if !force {
		out.Warningf("About to remove %d keywords from %s", stats.Keywords, root)
		_, _ = fmt.Fprint(cmd.OutOrStdout(), "Proceed? [y/N] ")

		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			out.Status("", "Aborted")
			return nil
		}
	}

	if err := ix.DeleteAll(ctx); err != nil {
		return describeErr(err)
	}

	out.Successf("Removed %d keywords", stats.Keywords)
	return nil
}
