package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keydex/keydex/internal/config"
	"github.com/keydex/keydex/internal/logging"
	"github.com/keydex/keydex/internal/mcp"
	"github.com/keydex/keydex/internal/ui"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the keydex MCP server.

The server speaks JSON-RPC over stdio and exposes the keyword index
through tools: search_keywords, index_text, index_words, clear_index,
and index_status. Logs go to the log file; stdout carries only
protocol frames.`,
		Example: `  # Start the server (stdio transport)
  keydex serve

  # Typical MCP client registration
  claude mcp add keydex -- keydex serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "Transport protocol (stdio)")

	return cmd
}

// runServe starts the MCP server. Nothing may be written to stdout before
// the transport owns it: clients treat stray bytes as protocol corruption.
func runServe(ctx context.Context, transport string) error {
	root := projectRoot()
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if transport == "" {
		transport = cfg.Server.Transport
	}

	// Logs go to the file only while stdout belongs to the protocol.
	if cleanup, err := logging.SetupMCPModeWithLevel(cfg.Server.LogLevel); err == nil {
		defer cleanup()
	}

	if err := verifyStdin(); err != nil {
		return err
	}

	ix, err := buildIndex(cfg, root)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()

	srv, err := mcp.NewServer(ix, cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer func() { _ = srv.Close() }()

	metrics, metricsCleanup := openMetrics(cfg, root)
	defer metricsCleanup()
	if metrics != nil {
		srv.SetMetrics(metrics)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("serve.start",
		slog.String("root", root),
		slog.String("transport", transport))

	err = srv.Serve(ctx, transport)
	if errors.Is(err, context.Canceled) {
		// Signal-driven shutdown is the normal way to stop the server.
		return nil
	}
	return describeErr(err)
}

// verifyStdin rejects interactive terminals: the MCP server expects a
// client speaking JSON-RPC on a pipe, and serving a terminal session only
// produces a silent hang.
func verifyStdin() error {
	if ui.IsTTY(os.Stdin) {
		return fmt.Errorf("stdin is a terminal: the MCP server expects a client on a pipe (register keydex with an MCP client instead of running 'serve' interactively)")
	}
	return nil
}
