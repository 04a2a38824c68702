package units

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestCalendar(t *testing.T) {
	assert.Equal(t, 31, DaysInMonth(2023, time.January))
	assert.Equal(t, 28, DaysInMonth(2023, time.February))
	assert.Equal(t, 29, DaysInMonth(2024, time.February))
	assert.Equal(t, 30, DaysInMonth(2023, time.June))
	assert.Equal(t, 365, DaysInYear(2023))
	assert.Equal(t, 366, DaysInYear(2024))
	assert.Equal(t, 365, DaysInYear(1900))
	assert.Equal(t, 366, DaysInYear(2000))
}

func TestPriceConversion(t *testing.T) {
	v, err := ConvertPrice(1.5, Euro, Cent)
	require.NoError(t, err)
	assert.InDelta(t, 150, v, 1e-9)

	v, err = ConvertPrice(150, Cent, Euro)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-9)
}

func TestQuantityConversion(t *testing.T) {
	v, err := ConvertQuantity(2, MegaWattHour, KiloWattHour)
	require.NoError(t, err)
	assert.InDelta(t, 2000, v, 1e-9)

	v, err = ConvertQuantity(1500, WattHour, KiloWattHour)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, v, 1e-9)
}

func TestRoundTrips(t *testing.T) {
	x := 12.345
	ref := date(2023, time.February, 10)

	prices := []PriceUnit{Euro, Cent}
	for _, a := range prices {
		for _, b := range prices {
			y, err := ConvertPrice(x, a, b)
			require.NoError(t, err)
			back, err := ConvertPrice(y, b, a)
			require.NoError(t, err)
			assert.InDelta(t, x, back, 1e-9)
		}
	}

	quantities := []QuantityUnit{WattHour, KiloWattHour, MegaWattHour}
	for _, a := range quantities {
		for _, b := range quantities {
			y, err := ConvertQuantity(x, a, b)
			require.NoError(t, err)
			back, err := ConvertQuantity(y, b, a)
			require.NoError(t, err)
			assert.InDelta(t, x, back, 1e-9)
		}
	}

	periods := []TimeUnit{DayUnit, WeekUnit, MonthUnit, YearUnit}
	for _, a := range periods {
		for _, b := range periods {
			y, err := ConvertTime(x, a, b, ref)
			require.NoError(t, err)
			back, err := ConvertTime(y, b, a, ref)
			require.NoError(t, err)
			assert.InDelta(t, x, back, 1e-9)
		}
	}
}

func TestMonthFactorDependsOnReference(t *testing.T) {
	jan, err := TimeFactor(DayUnit, MonthUnit, date(2023, time.January, 15))
	require.NoError(t, err)
	feb, err := TimeFactor(DayUnit, MonthUnit, date(2023, time.February, 15))
	require.NoError(t, err)

	assert.NotEqual(t, jan, feb)
	assert.InDelta(t, 1.0/31, jan, 1e-12)
	assert.InDelta(t, 1.0/28, feb, 1e-12)
}

func TestYearFactorDependsOnLeapYear(t *testing.T) {
	plain, err := TimeFactor(YearUnit, DayUnit, date(2023, time.March, 1))
	require.NoError(t, err)
	leap, err := TimeFactor(YearUnit, DayUnit, date(2024, time.March, 1))
	require.NoError(t, err)

	assert.Equal(t, 365.0, plain)
	assert.Equal(t, 366.0, leap)
}

func TestTimeRate(t *testing.T) {
	// 20.36 €/month in July is 20.36/31 €/day
	v, err := ConvertTimeRate(20.36, Euro, Euro, MonthUnit, DayUnit, date(2023, time.July, 1))
	require.NoError(t, err)
	assert.InDelta(t, 20.36/31, v, 1e-12)

	v, err = ConvertTimeRate(34.38, Euro, Cent, YearUnit, DayUnit, date(2023, time.January, 1))
	require.NoError(t, err)
	assert.InDelta(t, 3438.0/365, v, 1e-9)

	v, err = ConvertTimeRate(7, Euro, Euro, WeekUnit, DayUnit, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1, v, 1e-12)
}

func TestQuantityRate(t *testing.T) {
	v, err := ConvertQuantityRate(0.08, Euro, Cent, KiloWattHour, WattHour)
	require.NoError(t, err)
	assert.InDelta(t, 0.008, v, 1e-12)

	v, err = ConvertQuantityRate(80, Euro, Euro, MegaWattHour, KiloWattHour)
	require.NoError(t, err)
	assert.InDelta(t, 0.08, v, 1e-12)
}

func TestErrors(t *testing.T) {
	_, err := ConvertPrice(1, PriceUnit("$"), Euro)
	assert.True(t, errors.Is(err, ErrUnit))

	_, err = ConvertQuantity(1, KiloWattHour, QuantityUnit("m3"))
	assert.True(t, errors.Is(err, ErrUnit))

	_, err = ConvertTime(1, MonthUnit, DayUnit, nil)
	assert.True(t, errors.Is(err, ErrUnit))

	_, err = ConvertTime(1, DayUnit, YearUnit, nil)
	assert.True(t, errors.Is(err, ErrUnit))

	_, err = ConvertTime(1, TimeUnit("fortnight"), DayUnit, nil)
	assert.True(t, errors.Is(err, ErrUnit))

	// week and day never need a reference
	_, err = ConvertTime(1, WeekUnit, DayUnit, nil)
	assert.NoError(t, err)
}

func TestParse(t *testing.T) {
	p, err := ParsePriceUnit("EUR")
	require.NoError(t, err)
	assert.Equal(t, Euro, p)

	q, err := ParseQuantityUnit("kwh")
	require.NoError(t, err)
	assert.Equal(t, KiloWattHour, q)

	tu, err := ParseTimeUnit("Month")
	require.NoError(t, err)
	assert.Equal(t, MonthUnit, tu)

	_, err = ParseQuantityUnit("month")
	assert.True(t, errors.Is(err, ErrUnit))

	code, err := Euro.ISO4217()
	require.NoError(t, err)
	assert.Equal(t, "EUR", code)

	_, err = Cent.ISO4217()
	assert.True(t, errors.Is(err, ErrUnit))
}
