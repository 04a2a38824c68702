// Package units converts values between price, quantity and billing period units.
// The three families are independent; month and year factors depend on a reference date.
package units

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnit is returned for unknown units or calendar conversions without a reference date.
var ErrUnit = errors.New("units: invalid unit conversion")

type PriceUnit string

const (
	Euro PriceUnit = "€"
	Cent PriceUnit = "¢"
)

type QuantityUnit string

const (
	WattHour     QuantityUnit = "Wh"
	KiloWattHour QuantityUnit = "kWh"
	MegaWattHour QuantityUnit = "MWh"
)

type TimeUnit string

const (
	DayUnit   TimeUnit = "day"
	WeekUnit  TimeUnit = "week"
	MonthUnit TimeUnit = "month"
	YearUnit  TimeUnit = "year"
)

// ISO4217 returns the currency code expected by statistics consumers.
func (u PriceUnit) ISO4217() (string, error) {
	if u == Euro {
		return "EUR", nil
	}
	return "", errors.Wrapf(ErrUnit, "no currency code for %q", string(u))
}

// ParsePriceUnit accepts the canonical symbol or a common spelling.
func ParsePriceUnit(s string) (PriceUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "€", "eur", "euro", "euros":
		return Euro, nil
	case "¢", "c", "ct", "cent", "cents":
		return Cent, nil
	}
	return "", errors.Wrapf(ErrUnit, "unknown price unit %q", s)
}

func ParseQuantityUnit(s string) (QuantityUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wh":
		return WattHour, nil
	case "kwh":
		return KiloWattHour, nil
	case "mwh":
		return MegaWattHour, nil
	}
	return "", errors.Wrapf(ErrUnit, "unknown quantity unit %q", s)
}

func ParseTimeUnit(s string) (TimeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "days", "daily":
		return DayUnit, nil
	case "week", "weeks", "weekly":
		return WeekUnit, nil
	case "month", "months", "monthly":
		return MonthUnit, nil
	case "year", "years", "yearly":
		return YearUnit, nil
	}
	return "", errors.Wrapf(ErrUnit, "unknown time unit %q", s)
}
