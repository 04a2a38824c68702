package aggregator

import (
	"context"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/NotCoffee418/esm_costs/pkg/meterdb"
	"github.com/NotCoffee418/esm_costs/pkg/pricing"
	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Raw readings are kept this long once snapshots cover them.
const retention = 3 * 30 * 24 * time.Hour

// roundToHourStart returns the Unix timestamp of the start of the hour for the given time
func roundToHourStart(t time.Time) int64 {
	return t.UTC().Truncate(time.Hour).Unix()
}

// localMidnight is the instant the calendar day starts in loc.
func localMidnight(day time.Time, loc *time.Location) int64 {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc).Unix()
}

// DailyQuantities returns the consumption of each calendar day in [from, to] as kWh per day.
// Days are cut at local midnight in loc. A day's consumption is the increase of the last
// register value before its end over the previous one; days without readings stay 0 and the
// increase lands on the next day that has one. A register that goes backwards (meter swap)
// contributes 0 for that day. Gas registers are converted with gasFactor kWh per m³.
func DailyQuantities(
	ctx context.Context,
	src StandingSource,
	kind meterdb.Kind,
	from, to time.Time,
	loc *time.Location,
	gasFactor float64,
) (pricing.QuantitySeries, error) {
	toKwh, err := kwhFactor(kind, gasFactor)
	if err != nil {
		return pricing.QuantitySeries{}, err
	}
	series, err := dailyDeltas(ctx, src, kind, from, to, loc, toKwh)
	if err != nil {
		return pricing.QuantitySeries{}, err
	}
	return pricing.NewQuantitySeries(series, units.KiloWattHour, units.DayUnit), nil
}

// DailyVolumes returns the gas volume of each calendar day in [from, to] in m³,
// cut the same way as DailyQuantities.
func DailyVolumes(ctx context.Context, src StandingSource, from, to time.Time, loc *time.Location) (*dateseries.Series, error) {
	return dailyDeltas(ctx, src, meterdb.Gas, from, to, loc, 1.0/1000)
}

// dailyDeltas spreads register increases over days, multiplied by scale.
func dailyDeltas(
	ctx context.Context,
	src StandingSource,
	kind meterdb.Kind,
	from, to time.Time,
	loc *time.Location,
	scale float64,
) (*dateseries.Series, error) {
	from, to = dateseries.Truncate(from), dateseries.Truncate(to)
	if to.Before(from) {
		return nil, errors.Wrapf(dateseries.ErrRange, "window %s..%s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	if loc == nil {
		loc = time.UTC
	}

	series := dateseries.New(from, to, 0)

	windowStart := localMidnight(from, loc)
	base, found, err := src.LastStandingBefore(ctx, kind, windowStart)
	if err != nil {
		return nil, errors.Wrap(err, "reading start standing")
	}
	if !found {
		// Recording started inside the window
		base, found, err = src.FirstStandingFrom(ctx, kind, windowStart)
		if err != nil {
			return nil, errors.Wrap(err, "reading start standing")
		}
		if !found {
			return series, nil
		}
	}

	previous := int64(base.Value)
	for day := range series.All() {
		end, found, err := src.LastStandingBefore(ctx, kind, localMidnight(day.AddDate(0, 0, 1), loc))
		if err != nil {
			return nil, errors.Wrapf(err, "reading standing for %s", day.Format(time.DateOnly))
		}
		if !found || end.Timestamp < base.Timestamp {
			continue
		}
		current := int64(end.Value)
		if delta := current - previous; delta > 0 {
			series.Set(day, float64(delta)*scale)
		}
		previous = current
	}
	return series, nil
}

// Registers are stored in Wh and dm³.
func kwhFactor(kind meterdb.Kind, gasFactor float64) (float64, error) {
	switch kind {
	case meterdb.Electricity:
		return 1.0 / 1000, nil
	case meterdb.Gas:
		if gasFactor <= 0 {
			return 0, errors.Errorf("gas needs a positive conversion factor, got %v", gasFactor)
		}
		return gasFactor / 1000, nil
	default:
		return 0, errors.Errorf("unknown meter kind %q", kind)
	}
}

// AggregateAndCleanup snapshots the previous hour and drops raw readings past retention.
// Meant to run hourly from meter_collector.
func AggregateAndCleanup(ctx context.Context, store SnapshotStore, now time.Time, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Current hour is still ongoing
	hourStart := roundToHourStart(now.Add(-time.Hour))
	logger.Debug("snapshotting hour", zap.Time("hour", time.Unix(hourStart, 0).UTC()))

	if _, err := store.SnapshotTotalPowerHourly(ctx, hourStart); err != nil {
		return errors.Wrap(err, "creating power snapshot")
	}
	if _, err := store.SnapshotTotalGasHourly(ctx, hourStart); err != nil {
		return errors.Wrap(err, "creating gas snapshot")
	}

	cutoff := now.Add(-retention).Unix()
	lastSnapshot, found, err := store.LastSnapshotHour(ctx)
	if err != nil {
		return errors.Wrap(err, "reading last snapshot")
	}
	// Only clean up what snapshots already cover
	if !found || lastSnapshot < cutoff {
		return nil
	}
	if err := store.DeleteReadingsBefore(ctx, cutoff); err != nil {
		return errors.Wrap(err, "cleaning up old readings")
	}
	logger.Info("cleaned up raw readings", zap.Time("before", time.Unix(cutoff, 0).UTC()))
	return nil
}

// Run calls AggregateAndCleanup at the top of every hour until ctx is done.
func Run(ctx context.Context, store SnapshotStore, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		now := time.Now()
		next := now.Truncate(time.Hour).Add(time.Hour)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}
		if err := AggregateAndCleanup(ctx, store, time.Now(), logger); err != nil {
			logger.Error("hourly aggregation failed", zap.Error(err))
		}
	}
}
