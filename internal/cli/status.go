// status.go implements the "caravel status" command and the status
// rendering shared with "up".
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/caravel/stack"
)

// NewStatusCommand creates the "status" cobra command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stack's deployment state",
		Long: `Show the aggregate state of the stack and each service's replicas.

The overall state is one of not_deployed, partially_deployed, deployed,
or degraded. JSON output additionally includes per-container detail.

Examples:
  caravel status
  caravel status --json`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	env, cleanup, err := setupStack(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	status, err := env.st.Status(ctx)
	if err != nil {
		return err
	}
	printStatus(status)
	return nil
}

// printStatus renders a stack status in text or JSON format, depending on
// the global --json flag.
func printStatus(status *stack.StackStatus) {
	if jsonOutput {
		data, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(data))
		return
	}
	fmt.Print(formatStatusText(status))
}

// formatStatusText renders the human-readable status table:
//
//	Stack: demo (deployed)
//
//	SERVICE     REPLICAS  RUNNING  HEALTHY  UNHEALTHY
//	db          1/1       1        1        0
//	web         2/2       2        2        0
//
// REPLICAS shows tracked/expected. Exported indirectly through the status
// and up commands; kept as a pure function so it is testable.
func formatStatusText(status *stack.StackStatus) string {
	out := fmt.Sprintf("Stack: %s (%s)\n", status.Name, status.State)
	if len(status.Services) == 0 {
		return out
	}

	out += "\n"
	out += fmt.Sprintf("%-20s %-9s %-8s %-8s %s\n",
		"SERVICE", "REPLICAS", "RUNNING", "HEALTHY", "UNHEALTHY")
	for _, svc := range status.Services {
		out += fmt.Sprintf("%-20s %-9s %-8d %-8d %d\n",
			svc.Name,
			fmt.Sprintf("%d/%d", svc.Replicas, svc.Expected),
			svc.Running,
			svc.Healthy,
			svc.Unhealthy,
		)
	}
	return out
}
