package modelscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relaykit/anthrelay/pkg/anthropic"
)

const modelsLongDesc string = `List the supported Anthropic models.

Prints the catalog of model identifiers accepted by the relay along with
their display names. The catalog is fixed at build time.`

const modelsShortDesc string = "List supported models"

func NewModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, m := range anthropic.Models() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-32s %s\n", m.ID, m.Name)
			}
			return nil
		},
	}
}
