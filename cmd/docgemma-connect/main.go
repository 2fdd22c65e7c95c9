// Package main provides the CLI entry point for docgemma-connect, the
// clinical decision-support agent server.
//
// docgemma-connect wires a small LM through a seven-node Graph Runtime
// (intent classification, tool selection/execution, result
// classification, error handling, synthesis) behind a REST + WebSocket
// Session API, with human-in-the-loop tool approval and session
// persistence.
//
// # Basic Usage
//
// Start the server:
//
//	docgemma-connect serve --config docgemma.yaml
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docgemma-connect",
		Short: "docgemma-connect - clinical decision-support agent server",
		Long: `docgemma-connect drives a small LM through a reactive Graph Runtime
(intent classification, tool selection, tool execution, result
classification, error handling, synthesis) behind a REST + WebSocket
Session API, with human-in-the-loop tool approval.`,
		Version:      version + " (commit: " + commit + ", built: " + date + ")",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(buildServeCmd())

	return rootCmd
}
