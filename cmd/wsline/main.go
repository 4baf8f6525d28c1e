// Wsline is a command-line WebSocket client and diagnostic tool.
//
// It connects to WebSocket servers using its own RFC 6455 protocol
// implementation, pipes messages between the connection and the terminal,
// measures ping round-trips, and can run a local echo server for testing.
// Frequently used servers can be saved as named endpoints.
//
// Usage:
//
//	wsline [command] [flags]
//
// See 'wsline --help' for available commands. Set WSLINE_LOG_LEVEL=debug
// for protocol-level logging.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wsline/internal/logging"
	"github.com/muurk/wsline/internal/version"
)

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wsline",
	Short: "WebSocket client and diagnostic tool",
	Long: `A command-line WebSocket client built on its own protocol implementation.

Connect to a server and exchange messages interactively, measure ping
round-trip times, run a local echo server, and manage named endpoints
for servers you talk to often.`,
	Version: version.Version,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wsline %s\n", version.Full())
	},
}
