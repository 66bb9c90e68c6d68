// Package cli implements the cobra-based CLI commands for caravel.
//
// Each subcommand (up, down, status, scale, restart, logs, validate) is
// defined in its own file within this package. This file defines the root
// command that serves as the parent for all subcommands and handles
// global flags and exit-code mapping.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flag variables shared across all subcommands. These are bound to
// cobra persistent flags on the root command, which makes them available
// to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose lowers the log level to debug, printing every engine
	// operation the orchestrator performs to stderr.
	verbose bool

	// stackFilePath overrides the stack file location. Empty means the
	// configured default (CARAVEL_STACK_FILE, falling back to caravel.yml).
	stackFilePath string
)

// Version, Commit, and Date are set at build time via ldflags. They are
// injected from the main package to display version information.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command. The root
// command itself performs no action; functionality lives in subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "caravel",
		Short: "Declarative multi-container stack orchestration",
		Long: `caravel deploys, scales, and tears down multi-container stacks defined
in a YAML stack file, directly against the container engine.

Services declare their image, ports, environment, volumes, replica count,
and dependencies; caravel starts them in dependency order, names each
container deterministically, and tracks everything through labels so any
command can pick up a running stack.`,

		// Errors are formatted by Execute (text or JSON based on --json),
		// so cobra's automatic printing is disabled.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&stackFilePath, "file", "f", "",
		"Stack file path (default: $CARAVEL_STACK_FILE or caravel.yml)")

	rootCmd.AddCommand(NewUpCommand())
	rootCmd.AddCommand(NewDownCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewScaleCommand())
	rootCmd.AddCommand(NewRestartCommand())
	rootCmd.AddCommand(NewLogsCommand())
	rootCmd.AddCommand(NewValidateCommand())

	return rootCmd
}

// Execute runs the root command and translates errors into OS exit codes
// (see exit.go for the mapping). This is the entry point called from main.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
}

// printError outputs an error in the appropriate format (JSON or text)
// based on the --json global flag. Errors always go to stderr; stdout is
// reserved for successful command output.
func printError(err error) {
	if jsonOutput {
		errObj := map[string]any{
			"error": map[string]any{
				"message": err.Error(),
			},
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
