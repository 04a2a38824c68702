// Package export renders cost breakdowns as rounded summaries, XLSX workbooks and PDF statements.
package export

import (
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/shopspring/decimal"
)

// Summary is a breakdown rounded for people: period totals to cents, daily values to 4 decimals.
type Summary struct {
	From, To     time.Time
	Currency     units.PriceUnit
	QuantityUnit units.QuantityUnit
	// Component names in tariff order
	Components []string
	Quantity   decimal.Decimal
	Amounts    map[string]decimal.Decimal
	Total      decimal.Decimal
	Days       []DayRow
}

type DayRow struct {
	Date     time.Time
	Quantity decimal.Decimal
	// Same order as Summary.Components
	Costs []decimal.Decimal
	Total decimal.Decimal
}
