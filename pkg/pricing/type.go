// Package pricing turns metered quantities and a tariff into per-component cost series.
package pricing

import (
	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/NotCoffee418/esm_costs/pkg/tariff"
	"github.com/NotCoffee418/esm_costs/pkg/units"
)

// ValueArray is a day series tagged with the unit of its values and the billing
// period each slot covers.
type ValueArray[V ~string, B ~string] struct {
	*dateseries.Series
	ValueUnit V
	BaseUnit  B
}

// QuantitySeries holds metered consumption, e.g. kWh per day.
type QuantitySeries = ValueArray[units.QuantityUnit, units.TimeUnit]

// CostSeries holds money per billing period, e.g. € per day.
type CostSeries = ValueArray[units.PriceUnit, units.TimeUnit]

// CostBreakdown is the result of one pricing run. Every series shares the quantity window.
// Accessors hand out copies, so a breakdown never changes after Compute.
type CostBreakdown struct {
	names []string
	costs map[string]CostSeries
	total CostSeries
}

// Pricer computes breakdowns against a tariff loaded once and shared read-only.
type Pricer struct {
	tariff *tariff.Tariff
}

// Legacy accessor names kept for configurations and dashboards built on the fixed four components.
var componentAliases = map[string]string{
	"consumption":       "consumption_prices",
	"subscription":      "subscription_prices",
	"transport":         "transport_prices",
	"energy_taxes_cost": "energy_taxes",
}
