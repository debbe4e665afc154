package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "buildcost/internal/errors"
)

var resetAll bool

// stateCmd inspects persisted calculator state
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or clear saved calculator state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show <calculator-id>",
	Short: "Print the saved inputs and last result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := startApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Calculator(args[0]); err != nil {
			return err
		}
		st, ok := a.Store.LoadCalculator(cmd.Context(), args[0])
		if !ok {
			return apperrors.NotFound("saved state", args[0])
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset [calculator-id]",
	Short: "Clear saved state for one calculator, or all with --all",
	Args: func(cmd *cobra.Command, args []string) error {
		if resetAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := startApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if resetAll {
			if !a.Store.ClearAll(ctx) {
				return apperrors.New(apperrors.TypeStorage, "failed to clear saved state")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared all saved state")
			return nil
		}

		svc, err := a.Calculator(args[0])
		if err != nil {
			return err
		}
		if !svc.Reset(ctx) {
			return apperrors.New(apperrors.TypeStorage, "failed to clear saved state")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", svc.ID())
		return nil
	},
}

func init() {
	stateResetCmd.Flags().BoolVar(&resetAll, "all", false, "clear every calculator's saved state")
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
}
