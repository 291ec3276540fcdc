package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/firestige/taskctl/internal/catalog"
)

// validateCmd checks a standalone catalog document without starting a
// host process — useful for pre-checking a tasklist before deploying
// it inside a full config.json.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a task catalog file",
	Long: `Validate a task catalog document (JSON or YAML) without starting a host.

File format is auto-detected from extension (.json, .yaml, .yml).`,
	Run: func(cmd *cobra.Command, args []string) {
		runValidateCommand()
	},
}

var validateCatalogFile string

func init() {
	validateCmd.Flags().StringVarP(&validateCatalogFile, "file", "f", "", "catalog file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidateCommand() {
	data, err := os.ReadFile(validateCatalogFile)
	if err != nil {
		exitWithError(fmt.Sprintf("failed to read file %s", validateCatalogFile), err)
	}

	tasks, err := catalog.ParseAuto(data, validateCatalogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("VALID: %d task(s)\n", len(tasks))
	for _, t := range tasks {
		fmt.Printf("  - %s (%d arg(s), %d schedule(s))\n", t.Name, len(t.Args), len(t.Schedule))
	}
}
