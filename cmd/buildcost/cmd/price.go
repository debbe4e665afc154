package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"buildcost/internal/config"
)

// priceCmd resolves one unit price
var priceCmd = &cobra.Command{
	Use:   "price <category> <item> [unit]",
	Short: "Show the region-adjusted price of a catalog item",
	Long: `Resolve a catalog item against the active region and show the base
price, the regional factor and where the factor came from.

Examples:
  buildcost price concrete ready_mix_4000psi per_cubic_yard
  buildcost price lumber stud_2x4_8ft --region west_coast`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit := ""
		if len(args) == 3 {
			unit = args[2]
		}

		a, err := startApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		price, err := a.Engine.Resolve(args[0], args[1], unit)
		if err != nil {
			return err
		}

		p := printer()
		w := cmd.OutOrStdout()
		p.Fprintf(w, "%s.%s", args[0], args[1])
		if unit != "" {
			p.Fprintf(w, " (%s)", unit)
		}
		p.Fprintf(w, "\n  region:     %s\n", price.Region)
		p.Fprintf(w, "  base price: %.2f\n", price.BasePrice.InexactFloat64())
		p.Fprintf(w, "  factor:     %s (%s)\n", price.RegionalFactor.String(), price.FactorSource)
		p.Fprintf(w, "  unit price: %.2f\n", price.UnitPrice.InexactFloat64())
		return nil
	},
}

// printer formats numbers for the configured export locale
func printer() *message.Printer {
	tag, err := language.Parse(config.Get().Export.Locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return message.NewPrinter(tag)
}
