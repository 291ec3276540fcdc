package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/firestige/taskctl/internal/control"
)

// shutdownCmd asks a running host process to stop gracefully over the
// control socket (spec.md §4.8's "let running pool tasks finish").
var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Gracefully stop a running taskctl host",
	Run: func(cmd *cobra.Command, args []string) {
		runShutdownCommand()
	},
}

func runShutdownCommand() {
	client := control.NewClient(socketPath, 10*time.Second)

	if err := client.Ping(); err != nil {
		exitWithError("host is not running or socket is inaccessible", err)
	}

	resp, err := client.Shutdown()
	if err != nil {
		exitWithError("failed to send shutdown command", err)
	}
	if resp.Error != nil {
		exitWithError(fmt.Sprintf("daemon_shutdown failed: %s", resp.Error.Message), nil)
	}

	fmt.Println("Shutdown requested.")
}
