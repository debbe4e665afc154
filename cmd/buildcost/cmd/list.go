package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"buildcost/trades"
)

// listCmd lists the registered calculators
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available calculators",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tINPUTS")
		for _, calc := range trades.Default().All() {
			fields := calc.Fields()
			names := make([]string, 0, len(fields))
			for _, f := range fields {
				name := f.Name
				if f.Required {
					name += "*"
				}
				names = append(names, name)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", calc.ID(), calc.Title(), strings.Join(names, ", "))
		}
		return tw.Flush()
	},
}
