// scale.go implements the "caravel scale" command: change a service's
// replica count on a deployed stack.
package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewScaleCommand creates the "scale" cobra command.
func NewScaleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scale <service> <replicas>",
		Short: "Change a service's replica count",
		Long: `Change the number of replicas for one deployed service.

Growing starts new containers continuing the replica index sequence;
shrinking stops and removes the highest-indexed replicas first.

Examples:
  caravel scale web 4
  caravel scale worker 1`,

		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.Atoi(args[1])
			if err != nil {
				return wrapCLIError(exitValidationError,
					fmt.Sprintf("invalid replica count %q", args[1]), err)
			}
			return runScale(cmd.Context(), args[0], target)
		},
	}
}

func runScale(ctx context.Context, service string, target int) error {
	env, cleanup, err := setupStack(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := env.st.Scale(ctx, service, target); err != nil {
		return err
	}

	status, err := env.st.Status(ctx)
	if err != nil {
		return err
	}
	printStatus(status)
	return nil
}
