package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the session
// server.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docgemma-connect session server",
		Long: `Start the session server.

The server will:
1. Load configuration from the specified file (or docgemma.yaml)
2. Construct the Session Store, Model Adapter, and Tool Registry
3. Build the Graph Runtime and Agent Runner
4. Serve the REST Session API and the duplex WebSocket channel

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  docgemma-connect serve

  # Start with custom config
  docgemma-connect serve --config /etc/docgemma/production.yaml

  # Start with debug logging
  docgemma-connect serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "docgemma.yaml", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging (verbose output)")

	return cmd
}
