package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/export"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	computeQuantities quantityOptions
	showDays          bool
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Price consumption over a date window",
	Long: `Compute the cost of each tariff component for every day in [--from, --to].

Consumption is a flat --per-day amount unless --db points at a meter database.

Examples:
  tariffctl compute --from 2023-08-20 --to 2023-08-25 --per-day 1
  tariffctl compute --from 2024-01-01 --to 2024-01-31 --db esm-meter.db --kind gas --conversion-factor 9.77 --days`,
	Args: cobra.NoArgs,
	RunE: runCompute,
}

func init() {
	computeQuantities.register(computeCmd)
	computeCmd.Flags().BoolVarP(&showDays, "days", "d", false, "show the cost of every day")
}

func runCompute(cmd *cobra.Command, args []string) error {
	summary, err := summarize(cmd, &computeQuantities)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), summary, showDays)
	return nil
}

// summarize prices the selected consumption with the loaded tariff.
func summarize(cmd *cobra.Command, opts *quantityOptions) (*export.Summary, error) {
	pricer, err := loadPricer()
	if err != nil {
		return nil, err
	}
	target, err := opts.targetCurrency()
	if err != nil {
		return nil, err
	}
	q, err := opts.load(cmd.Context())
	if err != nil {
		return nil, err
	}
	breakdown, err := pricer.Compute(q, target)
	if err != nil {
		return nil, err
	}
	return export.Summarize(q, breakdown)
}

func printSummary(out io.Writer, s *export.Summary, days bool) {
	bold := color.New(color.Bold)

	bold.Fprintf(out, "%s .. %s\n", s.From.Format(time.DateOnly), s.To.Format(time.DateOnly))
	fmt.Fprintf(out, "  %-24s %s %s\n", "consumption", s.Quantity.StringFixed(3), s.QuantityUnit)
	for _, name := range s.Components {
		fmt.Fprintf(out, "  %-24s %s %s\n", name, s.Amounts[name].StringFixed(2), s.Currency)
	}
	fmt.Fprintf(out, "  %-24s %s\n", "total", color.GreenString("%s %s", s.Total.StringFixed(2), s.Currency))

	if !days {
		return
	}
	fmt.Fprintln(out)
	for _, row := range s.Days {
		fmt.Fprintf(out, "  %s  %10s %s  %10s %s\n",
			row.Date.Format(time.DateOnly),
			row.Quantity.StringFixed(3), s.QuantityUnit,
			row.Total.StringFixed(4), s.Currency)
	}
}
