// restart.go implements the "caravel restart" command: restart a
// service's containers in place.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewRestartCommand creates the "restart" cobra command.
func NewRestartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restart <service>",
		Short: "Restart a service's containers in place",
		Long: `Restart every container of one deployed service without recreating it.

Examples:
  caravel restart web`,

		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestart(cmd.Context(), args[0])
		},
	}
}

func runRestart(ctx context.Context, service string) error {
	env, cleanup, err := setupStack(ctx, true)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := env.st.Restart(ctx, service); err != nil {
		return err
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(map[string]string{
			"stack":   env.st.Name(),
			"service": service,
			"result":  "restarted",
		}, "", "  ")
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("Service %q restarted\n", service)
	return nil
}
