// Command teamctl is the operator tool for a teamflow deployment.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "teamctl",
		Short:         "Operate a teamflow deployment",
		Long:          `Administrative commands for teamflow: schema migration, org chart inspection and recurrence previews.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newOrgChartCmd(), newNextDueCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
