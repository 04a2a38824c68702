package export

import (
	"github.com/NotCoffee418/esm_costs/pkg/pricing"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	amountPlaces   = 2
	dailyPlaces    = 4
	quantityPlaces = 3
)

// Summarize rounds a breakdown and the quantities it was computed from.
// Totals are rounded from the unrounded sums so they never drift from the engine.
func Summarize(q pricing.QuantitySeries, b *pricing.CostBreakdown) (*Summary, error) {
	if b == nil || q.Series == nil {
		return nil, errors.New("export: nothing to summarize")
	}
	total := b.Total()
	if !q.IsAlignedWith(total.Series) {
		return nil, errors.New("export: quantities and costs cover different days")
	}

	s := &Summary{
		From:         q.Start(),
		To:           q.End(),
		Currency:     total.ValueUnit,
		QuantityUnit: q.ValueUnit,
		Components:   b.Names(),
		Quantity:     decimal.NewFromFloat(q.Sum()).Round(quantityPlaces),
		Amounts:      make(map[string]decimal.Decimal),
		Total:        decimal.NewFromFloat(total.Sum()).Round(amountPlaces),
	}

	costs := make([][]float64, len(s.Components))
	for i, name := range s.Components {
		cost, _ := b.Component(name)
		s.Amounts[name] = decimal.NewFromFloat(cost.Sum()).Round(amountPlaces)
		costs[i] = cost.Values()
	}

	quantities := q.Values()
	totals := total.Values()
	i := 0
	for day := range q.All() {
		row := DayRow{
			Date:     day,
			Quantity: decimal.NewFromFloat(quantities[i]).Round(quantityPlaces),
			Costs:    make([]decimal.Decimal, len(costs)),
			Total:    decimal.NewFromFloat(totals[i]).Round(dailyPlaces),
		}
		for c := range costs {
			row.Costs[c] = decimal.NewFromFloat(costs[c][i]).Round(dailyPlaces)
		}
		s.Days = append(s.Days, row)
		i++
	}
	return s, nil
}
