// logs.go implements the "caravel logs" command: print the stack's
// container logs.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogsCommand creates the "logs" cobra command.
func NewLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs [service...]",
		Short: "Print container logs for the stack",
		Long: `Print the logs of every tracked container, or only those of the named
services. Each container's output is preceded by a [container-name] header.

Examples:
  caravel logs
  caravel logs web
  caravel logs web worker`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd.Context(), args)
		},
	}
}

func runLogs(ctx context.Context, services []string) error {
	env, cleanup, err := setupStack(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := env.st.Logs(ctx, services...)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}
