// Package cmd provides the tariffctl commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/NotCoffee418/esm_costs/pkg/config"
	"github.com/NotCoffee418/esm_costs/pkg/logging"
	"github.com/NotCoffee418/esm_costs/pkg/pathing"
	"github.com/NotCoffee418/esm_costs/pkg/pricing"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	tariffFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "tariffctl",
	Short: "Validate tariffs and price energy consumption",
	Long: `tariffctl loads a tariff file and turns daily consumption into a cost
breakdown per tariff component, VAT included.

Examples:
  tariffctl validate --tariff ./tariff.yaml
  tariffctl compute --from 2023-08-20 --to 2023-08-25 --per-day 1
  tariffctl compute --from 2024-01-01 --to 2024-01-31 --db /var/lib/esm_costs/esm-meter.db
  tariffctl export --from 2024-01-01 --to 2024-01-31 --format pdf -o january.pdf`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := logging.DefaultConfig()
		cfg.Level = "warn"
		if verbose {
			cfg.Level = "debug"
		}
		return logging.Initialize(cfg)
	},
}

// Execute runs the CLI
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
	}
	logging.Sync()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&tariffFile, "tariff", "t", pathing.GetTariffPath(), "tariff file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadPricer() (*pricing.Pricer, error) {
	t, err := config.LoadTariff(tariffFile)
	if err != nil {
		return nil, err
	}
	return pricing.NewPricer(t)
}
