// Package tariff models dated tariff schedules and rasterizes them into per-day series.
package tariff

import (
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/pkg/errors"
)

// ErrConfiguration is returned for tariffs that cannot be priced.
var ErrConfiguration = errors.New("tariff: invalid configuration")

// Period is one dated entry of a schedule. It is valid from Start until End (exclusive).
// A nil End means "until the next period", or unbounded for the last one.
type Period[T any] struct {
	Start time.Time
	End   *time.Time
	Value T
}

// Schedule is an ordered list of periods sorted by Start. Immutable once built.
type Schedule[T any] struct {
	periods []Period[T]
}

// Rate is a composite tariff rate: an optional price per quantity and an optional
// price per billing period, both expressed in PriceUnit.
type Rate struct {
	QuantityValue *float64
	TimeValue     *float64
	PriceUnit     units.PriceUnit
	QuantityUnit  units.QuantityUnit
	TimeUnit      units.TimeUnit
	VatID         string
}

type Breakpoint = Period[Rate]
type PriceSchedule = Schedule[Rate]

// VatClass groups the VAT rate history (plain fractions, 0.2 = 20%) of one id.
type VatClass struct {
	ID    string
	Rates *Schedule[float64]
}

// Components is an ordered set of named price schedules.
type Components struct {
	names     []string
	schedules map[string]*PriceSchedule
}

// Tariff is the full pricing configuration shared read-only by every computation.
type Tariff struct {
	Components *Components
	VatClasses []VatClass
}
