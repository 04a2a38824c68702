package export

import (
	"bytes"
	"testing"

	"github.com/NotCoffee418/esm_costs/pkg/config"
	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/NotCoffee418/esm_costs/pkg/pricing"
	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func augustSummary(t *testing.T) *Summary {
	t.Helper()
	tf, err := config.ParseTariff(config.DefaultTariffYAML)
	require.NoError(t, err)
	pricer, err := pricing.NewPricer(tf)
	require.NoError(t, err)

	q := pricing.NewQuantitySeries(
		dateseries.New(dateseries.Day(2023, 8, 20), dateseries.Day(2023, 8, 25), 1),
		units.KiloWattHour, units.DayUnit)
	b, err := pricer.Compute(q, units.Euro)
	require.NoError(t, err)

	s, err := Summarize(q, b)
	require.NoError(t, err)
	return s
}

func TestSummarize(t *testing.T) {
	s := augustSummary(t)

	assert.Equal(t, units.Euro, s.Currency)
	assert.True(t, s.Quantity.Equal(decimal.NewFromInt(6)))
	// 6 * 0.86912910 = 5.2147746
	assert.Equal(t, "5.21", s.Total.StringFixed(2))
	assert.Equal(t, []string{"consumption_prices", "subscription_prices", "transport_prices", "energy_taxes"}, s.Components)
	// 6 * 0.05568 * 1.2 = 0.400896
	assert.Equal(t, "0.40", s.Amounts["consumption_prices"].StringFixed(2))

	require.Len(t, s.Days, 6)
	assert.Equal(t, dateseries.Day(2023, 8, 20), s.Days[0].Date)
	assert.Equal(t, "0.8691", s.Days[0].Total.StringFixed(4))
	assert.Len(t, s.Days[0].Costs, 4)
}

func TestSummarizeRejectsMismatch(t *testing.T) {
	q := pricing.NewQuantitySeries(dateseries.New(dateseries.Day(2023, 8, 20), dateseries.Day(2023, 8, 21), 1), units.KiloWattHour, units.DayUnit)
	other := pricing.NewQuantitySeries(dateseries.New(dateseries.Day(2023, 8, 20), dateseries.Day(2023, 8, 22), 1), units.KiloWattHour, units.DayUnit)
	tf, err := config.ParseTariff(config.DefaultTariffYAML)
	require.NoError(t, err)
	b, err := pricing.Compute(other, units.Euro, tf.Components, tf.VatClasses)
	require.NoError(t, err)

	_, err = Summarize(q, b)
	assert.Error(t, err)
	_, err = Summarize(q, nil)
	assert.Error(t, err)
}

func TestBuildXLSX(t *testing.T) {
	raw, err := BuildXLSX(augustSummary(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	from, err := f.GetCellValue(summarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "2023-08-20", from)

	label, err := f.GetCellValue(summarySheet, "A12")
	require.NoError(t, err)
	assert.Equal(t, "Total", label)
	total, err := f.GetCellValue(summarySheet, "B12")
	require.NoError(t, err)
	assert.Equal(t, "5.21", total)

	rows, err := f.GetRows(daysSheet)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, []string{"Day", "Quantity (kWh)", "consumption_prices", "subscription_prices", "transport_prices", "energy_taxes", "Total"}, rows[0])
	assert.Equal(t, "2023-08-25", rows[6][0])
}

func TestBuildPDF(t *testing.T) {
	raw, err := BuildPDF(augustSummary(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))
}
