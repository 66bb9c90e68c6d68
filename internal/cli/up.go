// up.go implements the "caravel up" command: deploy every service of the
// stack in dependency order.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewUpCommand creates the "up" cobra command.
func NewUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Deploy the stack",
		Long: `Deploy every service defined in the stack file.

Services start in dependency order (depends_on), concurrently where the
order allows. Containers are named {stack}-{service}-{index}, so re-running
up on an existing deployment adopts its containers instead of failing.

Examples:
  caravel up
  caravel up -f deploy/stack.yml
  caravel up --json`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context())
		},
	}
}

func runUp(ctx context.Context) error {
	env, cleanup, err := setupStack(ctx, false)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := env.st.Up(ctx); err != nil {
		return err
	}

	// Show what was deployed rather than a bare success line.
	status, err := env.st.Status(ctx)
	if err != nil {
		return err
	}
	printStatus(status)
	return nil
}
