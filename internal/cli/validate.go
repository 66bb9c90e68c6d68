// validate.go implements the "caravel validate" command: check a stack
// file without touching the engine.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/caravel/internal/config"
	"github.com/mmr-tortoise/caravel/stack"
)

// NewValidateCommand creates the "validate" cobra command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the stack file",
		Long: `Parse the stack file and check it as a whole: per-service configuration,
duplicate names, unresolved depends_on targets, and dependency cycles.
No engine connection is made.

Examples:
  caravel validate
  caravel validate -f deploy/stack.yml`,

		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
}

func runValidate() error {
	cfg, err := config.Load()
	if err != nil {
		return wrapCLIError(exitGeneralError, "failed to load configuration", err)
	}

	file, err := loadStackFile(cfg)
	if err != nil {
		return err
	}
	if err := stack.ValidateGraph(file.Services); err != nil {
		return err
	}

	if jsonOutput {
		names := make([]string, 0, len(file.Services))
		for _, svc := range file.Services {
			names = append(names, svc.Name())
		}
		data, _ := json.MarshalIndent(map[string]any{
			"stack":    file.Name,
			"valid":    true,
			"services": names,
		}, "", "  ")
		fmt.Println(string(data))
		return nil
	}
	fmt.Printf("Stack %q is valid (%d services)\n", file.Name, len(file.Services))
	return nil
}
