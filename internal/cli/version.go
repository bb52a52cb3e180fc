package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grez-lucas/payfill/internal/payform"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and the built-in field contract version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.jsonOut {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "{\"version\":%q,\"contract_version\":%q}\n", Version, payform.ContractVersion)
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "payfill %s (field contract %s)\n", Version, payform.ContractVersion)
			return err
		},
	}
}
