// down.go implements the "caravel down" command: tear the stack down.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewDownCommand creates the "down" cobra command.
func NewDownCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop and remove the stack's containers and networks",
		Long: `Stop and remove every container of the stack, then its networks.

Teardown runs in reverse dependency order and is best-effort: individual
failures are collected and reported while the rest of the stack is still
removed. Named volumes are preserved.

Examples:
  caravel down
  caravel down -f deploy/stack.yml`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDown(cmd.Context())
		},
	}
}

func runDown(ctx context.Context) error {
	env, cleanup, err := setupStack(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := env.st.Down(ctx); err != nil {
		return err
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]string{
			"stack":  env.st.Name(),
			"result": "removed",
		}, "", "  ")
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("Stack %q removed\n", env.st.Name())
	return nil
}
