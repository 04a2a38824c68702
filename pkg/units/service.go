package units

import (
	"time"

	"github.com/pkg/errors"
)

// Number of minor units per unit.
var priceScale = map[PriceUnit]float64{
	Euro: 1,
	Cent: 100,
}

// Size in watt-hours.
var quantitySize = map[QuantityUnit]float64{
	WattHour:     1,
	KiloWattHour: 1_000,
	MegaWattHour: 1_000_000,
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

// Length of a time unit in days. Month and year need the reference date.
func timeSize(u TimeUnit, ref *time.Time) (float64, error) {
	switch u {
	case DayUnit:
		return 1, nil
	case WeekUnit:
		return 7, nil
	case MonthUnit:
		if ref == nil {
			return 0, errors.Wrap(ErrUnit, "month conversion requires a reference date")
		}
		return float64(DaysInMonth(ref.Year(), ref.Month())), nil
	case YearUnit:
		if ref == nil {
			return 0, errors.Wrap(ErrUnit, "year conversion requires a reference date")
		}
		return float64(DaysInYear(ref.Year())), nil
	}
	return 0, errors.Wrapf(ErrUnit, "unknown time unit %q", string(u))
}

// PriceFactor is the multiplier turning an amount in from into an amount in to.
func PriceFactor(from, to PriceUnit) (float64, error) {
	f, ok := priceScale[from]
	if !ok {
		return 0, errors.Wrapf(ErrUnit, "unknown price unit %q", string(from))
	}
	t, ok := priceScale[to]
	if !ok {
		return 0, errors.Wrapf(ErrUnit, "unknown price unit %q", string(to))
	}
	return t / f, nil
}

// QuantityFactor is the multiplier turning a quantity in from into a quantity in to.
func QuantityFactor(from, to QuantityUnit) (float64, error) {
	f, ok := quantitySize[from]
	if !ok {
		return 0, errors.Wrapf(ErrUnit, "unknown quantity unit %q", string(from))
	}
	t, ok := quantitySize[to]
	if !ok {
		return 0, errors.Wrapf(ErrUnit, "unknown quantity unit %q", string(to))
	}
	return f / t, nil
}

// TimeFactor is the multiplier turning a duration in from into a duration in to.
// Month and year conversions are evaluated against ref's month or year.
func TimeFactor(from, to TimeUnit, ref *time.Time) (float64, error) {
	f, err := timeSize(from, ref)
	if err != nil {
		return 0, err
	}
	t, err := timeSize(to, ref)
	if err != nil {
		return 0, err
	}
	return f / t, nil
}

func ConvertPrice(v float64, from, to PriceUnit) (float64, error) {
	f, err := PriceFactor(from, to)
	if err != nil {
		return 0, err
	}
	return v * f, nil
}

func ConvertQuantity(v float64, from, to QuantityUnit) (float64, error) {
	f, err := QuantityFactor(from, to)
	if err != nil {
		return 0, err
	}
	return v * f, nil
}

func ConvertTime(v float64, from, to TimeUnit, ref *time.Time) (float64, error) {
	f, err := TimeFactor(from, to, ref)
	if err != nil {
		return 0, err
	}
	return v * f, nil
}

// ConvertQuantityRate converts a price per quantity, e.g. €/kWh to ¢/Wh.
func ConvertQuantityRate(v float64, fromPrice, toPrice PriceUnit, fromQty, toQty QuantityUnit) (float64, error) {
	pf, err := PriceFactor(fromPrice, toPrice)
	if err != nil {
		return 0, err
	}
	qf, err := QuantityFactor(fromQty, toQty)
	if err != nil {
		return 0, err
	}
	return v * pf / qf, nil
}

// ConvertTimeRate converts a price per billing period, e.g. €/month to €/day.
// ref selects the month or year whose day count is used.
func ConvertTimeRate(v float64, fromPrice, toPrice PriceUnit, fromTime, toTime TimeUnit, ref *time.Time) (float64, error) {
	pf, err := PriceFactor(fromPrice, toPrice)
	if err != nil {
		return 0, err
	}
	tf, err := TimeFactor(fromTime, toTime, ref)
	if err != nil {
		return 0, err
	}
	return v * pf / tf, nil
}
