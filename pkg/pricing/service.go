package pricing

import (
	"iter"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/NotCoffee418/esm_costs/pkg/tariff"
	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/pkg/errors"
)

func NewValueArray[V ~string, B ~string](s *dateseries.Series, value V, base B) ValueArray[V, B] {
	return ValueArray[V, B]{Series: s, ValueUnit: value, BaseUnit: base}
}

// NewQuantitySeries wraps s as quantities of unit per base period.
func NewQuantitySeries(s *dateseries.Series, unit units.QuantityUnit, base units.TimeUnit) QuantitySeries {
	return NewValueArray(s, unit, base)
}

// NewPricer validates t and returns a Pricer bound to it. t must not be mutated afterwards.
func NewPricer(t *tariff.Tariff) (*Pricer, error) {
	if t == nil {
		return nil, errors.Wrap(tariff.ErrConfiguration, "no tariff")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Pricer{tariff: t}, nil
}

func (p *Pricer) Tariff() *tariff.Tariff { return p.tariff }

// Compute prices q against the bound tariff, expressing costs in target.
func (p *Pricer) Compute(q QuantitySeries, target units.PriceUnit) (*CostBreakdown, error) {
	return Compute(q, target, p.tariff.Components, p.tariff.VatClasses)
}

// Compute returns the cost of q for every component plus their total, VAT included.
// Nothing is returned when any component fails.
func Compute(q QuantitySeries, target units.PriceUnit, components *tariff.Components, vat []tariff.VatClass) (*CostBreakdown, error) {
	if q.Series == nil {
		return nil, errors.Wrap(tariff.ErrConfiguration, "no quantities to price")
	}
	t := &tariff.Tariff{Components: components, VatClasses: vat}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	from, to := q.Start(), q.End()
	ledger := tariff.RasterizeVat(vat, from, to)

	out := &CostBreakdown{
		costs: make(map[string]CostSeries, components.Len()),
		total: NewValueArray(dateseries.New(from, to, 0), target, q.BaseUnit),
	}
	for name, schedule := range components.All() {
		cost, err := componentCost(q, target, schedule, ledger)
		if err != nil {
			return nil, errors.Wrapf(err, "component %s", name)
		}
		total, err := out.total.Add(cost)
		if err != nil {
			return nil, errors.Wrapf(err, "component %s", name)
		}
		out.total.Series = total
		out.names = append(out.names, name)
		out.costs[name] = NewValueArray(cost, target, q.BaseUnit)
	}
	return out, nil
}

// RateSeries rasterizes a schedule into its quantity and time rates over q's window,
// converted to target per q's units and with VAT applied per breakpoint.
func RateSeries(q QuantitySeries, target units.PriceUnit, schedule *tariff.PriceSchedule, ledger tariff.VatLedger) (quantityRate, timeRate *dateseries.Series, err error) {
	converted, err := tariff.Map(schedule, func(bp tariff.Breakpoint) (tariff.Rate, error) {
		return convertRate(bp, target, q.ValueUnit, q.BaseUnit)
	})
	if err != nil {
		return nil, nil, err
	}

	from, to := q.Start(), q.End()
	var vatErr error
	withVat := func(pick func(r *tariff.Rate) *float64) func(bp *tariff.Breakpoint, day time.Time) float64 {
		return func(bp *tariff.Breakpoint, day time.Time) float64 {
			v := pick(&bp.Value)
			if v == nil {
				return 0
			}
			rate, err := ledger.Rate(bp.Value.VatID, day)
			if err != nil && vatErr == nil {
				vatErr = err
			}
			return *v * (1 + rate)
		}
	}
	quantityRate = converted.Rasterize(from, to, withVat(func(r *tariff.Rate) *float64 { return r.QuantityValue }))
	timeRate = converted.Rasterize(from, to, withVat(func(r *tariff.Rate) *float64 { return r.TimeValue }))
	if vatErr != nil {
		return nil, nil, vatErr
	}
	return quantityRate, timeRate, nil
}

func componentCost(q QuantitySeries, target units.PriceUnit, schedule *tariff.PriceSchedule, ledger tariff.VatLedger) (*dateseries.Series, error) {
	if schedule.Len() == 0 {
		return dateseries.New(q.Start(), q.End(), 0), nil
	}
	qRate, tRate, err := RateSeries(q, target, schedule, ledger)
	if err != nil {
		return nil, err
	}
	cost, err := q.Mul(qRate)
	if err != nil {
		return nil, err
	}
	return cost.Add(tRate)
}

// convertRate expresses a breakpoint rate in target per quantityUnit and per timeUnit.
// Month and year rates use the breakpoint start as reference for its whole span.
func convertRate(bp tariff.Breakpoint, target units.PriceUnit, quantityUnit units.QuantityUnit, timeUnit units.TimeUnit) (tariff.Rate, error) {
	r := bp.Value
	out := tariff.Rate{
		PriceUnit:    target,
		QuantityUnit: quantityUnit,
		TimeUnit:     timeUnit,
		VatID:        r.VatID,
	}
	if r.QuantityValue != nil {
		v, err := units.ConvertQuantityRate(*r.QuantityValue, r.PriceUnit, target, r.QuantityUnit, quantityUnit)
		if err != nil {
			return out, errors.Wrapf(err, "breakpoint %s", bp.Start.Format(time.DateOnly))
		}
		out.QuantityValue = &v
	}
	if r.TimeValue != nil {
		ref := bp.Start
		v, err := units.ConvertTimeRate(*r.TimeValue, r.PriceUnit, target, r.TimeUnit, timeUnit, &ref)
		if err != nil {
			return out, errors.Wrapf(err, "breakpoint %s", bp.Start.Format(time.DateOnly))
		}
		out.TimeValue = &v
	}
	return out, nil
}

// Names returns component names in tariff order.
func (b *CostBreakdown) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Component returns the cost of a component by name or legacy alias.
// An unknown component reports false and an all-zero series over the breakdown window.
func (b *CostBreakdown) Component(name string) (CostSeries, bool) {
	if c, ok := b.costs[name]; ok {
		return clone(c), true
	}
	if alias, ok := componentAliases[name]; ok {
		if c, ok := b.costs[alias]; ok {
			return clone(c), true
		}
	}
	zero := dateseries.New(b.total.Start(), b.total.End(), 0)
	return NewValueArray(zero, b.total.ValueUnit, b.total.BaseUnit), false
}

// Total is the sum of all components.
func (b *CostBreakdown) Total() CostSeries {
	return clone(b.total)
}

func clone[V ~string, B ~string](v ValueArray[V, B]) ValueArray[V, B] {
	return NewValueArray(dateseries.FromValues(v.Start(), v.Values()), v.ValueUnit, v.BaseUnit)
}

// Components yields each component cost in tariff order.
func (b *CostBreakdown) Components() iter.Seq2[string, CostSeries] {
	return func(yield func(string, CostSeries) bool) {
		for _, n := range b.names {
			if !yield(n, clone(b.costs[n])) {
				return
			}
		}
	}
}
