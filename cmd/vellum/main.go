package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vellum-studio/vellum/cmd/vellum/commands"
	"github.com/vellum-studio/vellum/logger"
)

var rootCmd = &cobra.Command{
	Use:   "vellum",
	Short: "Vellum - collaborative diagram canvas server",
	Long: `Vellum - collaborative diagram canvas server.

Vellum keeps a shared drawing scene in memory, synchronizes it to connected
canvas clients over WebSocket, and exposes the scene to agents through a
REST surface and an MCP tool gateway.

Available commands:
  serve   - Start the canvas server
  status  - Check a running server's health and scene counters
  config  - Inspect the effective configuration
  version - Show version information

Examples:
  vellum serve                  # Start on the configured port (default 3100)
  vellum serve -v --port 4000   # Info-level logs on a custom port
  vellum status                 # Ping the local server
  vellum config show            # Print the merged configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(verbosity, jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as machine-readable JSON")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
