package cmd

import (
	"context"
	"os"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/aggregator"
	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/NotCoffee418/esm_costs/pkg/meterdb"
	"github.com/NotCoffee418/esm_costs/pkg/pricing"
	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// quantityOptions selects the consumption to price: a flat amount per day,
// or the daily consumption recorded in a meter database.
type quantityOptions struct {
	from     string
	to       string
	perDay   float64
	unit     string
	currency string

	dbPath   string
	kind     string
	timezone string
	factor   float64
}

func (o *quantityOptions) register(c *cobra.Command) {
	c.Flags().StringVar(&o.from, "from", "", "first day, YYYY-MM-DD")
	c.Flags().StringVar(&o.to, "to", "", "last day (inclusive), YYYY-MM-DD")
	c.Flags().Float64Var(&o.perDay, "per-day", 1, "flat consumption per day")
	c.Flags().StringVar(&o.unit, "unit", string(units.KiloWattHour), "unit of --per-day (Wh, kWh, MWh)")
	c.Flags().StringVar(&o.currency, "currency", "eur", "currency of the result (eur, cent)")
	c.Flags().StringVar(&o.dbPath, "db", "", "read consumption from this meter database instead of --per-day")
	c.Flags().StringVar(&o.kind, "kind", string(meterdb.Electricity), "meter kind in --db (electricity, gas)")
	c.Flags().StringVar(&o.timezone, "timezone", "Europe/Amsterdam", "timezone that cuts days in --db")
	c.Flags().Float64Var(&o.factor, "conversion-factor", 0, "kWh per m³ for gas")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
}

func (o *quantityOptions) window() (time.Time, time.Time, error) {
	from, err := dateseries.ParseDay(o.from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := dateseries.ParseDay(o.to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.Wrapf(dateseries.ErrRange, "--to %s is before --from %s", o.to, o.from)
	}
	return from, to, nil
}

func (o *quantityOptions) load(ctx context.Context) (pricing.QuantitySeries, error) {
	from, to, err := o.window()
	if err != nil {
		return pricing.QuantitySeries{}, err
	}

	if o.dbPath == "" {
		unit, err := units.ParseQuantityUnit(o.unit)
		if err != nil {
			return pricing.QuantitySeries{}, err
		}
		return pricing.NewQuantitySeries(dateseries.New(from, to, o.perDay), unit, units.DayUnit), nil
	}

	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return pricing.QuantitySeries{}, err
	}
	// Opening would create an empty database
	if _, err := os.Stat(o.dbPath); err != nil {
		return pricing.QuantitySeries{}, errors.Wrap(err, "meter database")
	}
	store, err := meterdb.Open(o.dbPath)
	if err != nil {
		return pricing.QuantitySeries{}, err
	}
	defer store.Close()

	return aggregator.DailyQuantities(ctx, store, meterdb.Kind(o.kind), from, to, loc, o.factor)
}

func (o *quantityOptions) targetCurrency() (units.PriceUnit, error) {
	return units.ParsePriceUnit(o.currency)
}
