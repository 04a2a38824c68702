package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/NotCoffee418/esm_costs/pkg/export"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	exportQuantities quantityOptions
	exportFormat     string
	exportOutput     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a cost breakdown to an XLSX workbook or PDF statement",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportQuantities.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "xlsx", "output format (xlsx, pdf)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default costs_<from>_<to>.<format>)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(exportFormat)
	var build func(*export.Summary) ([]byte, error)
	switch format {
	case "xlsx":
		build = export.BuildXLSX
	case "pdf":
		build = export.BuildPDF
	default:
		return errors.Errorf("unknown format %q", exportFormat)
	}

	summary, err := summarize(cmd, &exportQuantities)
	if err != nil {
		return err
	}
	raw, err := build(summary)
	if err != nil {
		return errors.Wrapf(err, "building %s", format)
	}

	path := exportOutput
	if path == "" {
		path = fmt.Sprintf("costs_%s_%s.%s", exportQuantities.from, exportQuantities.to, format)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (total %s %s)\n",
		color.GreenString(path), summary.Total.StringFixed(2), summary.Currency)
	return nil
}
