package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/firestige/taskctl/internal/control"
)

// taskCmd talks to a running host process over the control socket
// (the "fourth surface" supplement to shell/scheduler/chat — see
// SPEC_FULL.md).
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect or run tasks on a running taskctl host",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List declared tasks",
	Run: func(cmd *cobra.Command, args []string) {
		client := control.NewClient(socketPath, 10*time.Second)
		resp, err := client.TaskList()
		if err != nil {
			exitWithError("failed to list tasks", err)
		}
		if resp.Error != nil {
			exitWithError(fmt.Sprintf("task_list failed: %s", resp.Error.Message), nil)
		}
		result := resp.Result.(map[string]any)
		tasks, _ := result["tasks"].([]any)
		if len(tasks) == 0 {
			fmt.Println("No declared tasks.")
			return
		}
		for _, t := range tasks {
			fmt.Printf("  - %v\n", t)
		}
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running-count of each task",
	Run: func(cmd *cobra.Command, args []string) {
		client := control.NewClient(socketPath, 10*time.Second)
		resp, err := client.TaskStatus()
		if err != nil {
			exitWithError("failed to fetch task status", err)
		}
		if resp.Error != nil {
			exitWithError(fmt.Sprintf("task_status failed: %s", resp.Error.Message), nil)
		}
		out, err := json.MarshalIndent(resp.Result, "", "  ")
		if err != nil {
			exitWithError("failed to format result", err)
		}
		fmt.Println(string(out))
	},
}

var taskRunCmd = &cobra.Command{
	Use:   "run <name> [KEY=VALUE ...]",
	Short: "Run a declared task once",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		runArgs := parseKeyValueArgs(args[1:])

		client := control.NewClient(socketPath, 30*time.Second)
		resp, err := client.TaskRun(name, runArgs)
		if err != nil {
			exitWithError("failed to send run command", err)
		}
		if resp.Error != nil {
			exitWithError(fmt.Sprintf("task_run failed: %s", resp.Error.Message), nil)
		}
		result := resp.Result.(map[string]any)
		fmt.Printf("Task %q started, run_id=%v\n", name, result["run_id"])
	},
}

func parseKeyValueArgs(tokens []string) map[string]any {
	out := make(map[string]any, len(tokens))
	for _, tok := range tokens {
		if i := strings.IndexByte(tok, '='); i >= 0 {
			out[tok[:i]] = tok[i+1:]
			continue
		}
		out[tok] = true
	}
	return out
}

func init() {
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskRunCmd)
}
