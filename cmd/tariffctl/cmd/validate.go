package cmd

import (
	"fmt"
	"strings"

	"github.com/NotCoffee418/esm_costs/pkg/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var writeDefault bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a tariff file loads",
	Long: `Parse the tariff file and list its components and VAT classes.

With --init a missing file is first created from the built-in default tariff.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&writeDefault, "init", false, "write the default tariff if the file does not exist")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if writeDefault {
		if err := config.EnsureTariffFile(tariffFile); err != nil {
			return err
		}
	}

	t, err := config.LoadTariff(tariffFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s is valid\n", color.GreenString(tariffFile))
	for name, schedule := range t.Components.All() {
		fmt.Fprintf(out, "  %-24s %d periods\n", color.CyanString(name), schedule.Len())
	}
	if ids := t.VatIDs(); len(ids) > 0 {
		fmt.Fprintf(out, "  VAT classes: %s\n", strings.Join(ids, ", "))
	}
	return nil
}
