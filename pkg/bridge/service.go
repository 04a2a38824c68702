package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/aggregator"
	"github.com/NotCoffee418/esm_costs/pkg/config"
	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/NotCoffee418/esm_costs/pkg/haws"
	"github.com/NotCoffee418/esm_costs/pkg/meterdb"
	"github.com/NotCoffee418/esm_costs/pkg/metrics"
	"github.com/NotCoffee418/esm_costs/pkg/pricing"
	"github.com/NotCoffee418/esm_costs/pkg/tariff"
	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// New wires the configured devices. A nil tariff publishes energy only.
func New(cfg *config.CostBridgeConfig, t *tariff.Tariff, source aggregator.StandingSource, ha Publisher, logger *zap.Logger) (*Bridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("bridge")

	var pricer *pricing.Pricer
	if t != nil {
		var err error
		if pricer, err = pricing.NewPricer(t); err != nil {
			return nil, err
		}
	}

	b := &Bridge{
		interval: time.Duration(cfg.ScanIntervalMinutes) * time.Minute,
		ha:       ha,
		logger:   logger,
	}
	for _, dc := range cfg.Devices {
		loc, err := time.LoadLocation(dc.Timezone)
		if err != nil {
			return nil, errors.Wrapf(err, "device %q", dc.Name)
		}
		b.devices = append(b.devices, &Device{
			cfg:    dc,
			kind:   meterdb.Kind(dc.Kind),
			loc:    loc,
			pricer: pricer,
			source: source,
			ha:     ha,
			logger: logger.With(zap.String("device", dc.Name)),
			now:    time.Now,
		})
	}
	return b, nil
}

// Run publishes every device each scan interval until ctx is cancelled.
// An interval of 0 runs a single cycle.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		err := b.RunOnce(ctx)
		metrics.IncCycle(err)
		if err != nil {
			b.logger.Error("cycle failed", zap.Error(err))
		}

		if b.interval == 0 {
			return err
		}

		b.logger.Info("waiting before next scan", zap.Duration("interval", b.interval))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.interval):
		}
	}
}

// RunOnce connects, publishes all devices concurrently and disconnects.
// A failing device is logged and skipped; only connection failures are returned.
func (b *Bridge) RunOnce(ctx context.Context) error {
	if err := b.ha.Connect(ctx); err != nil {
		return errors.Wrap(err, "connecting to Home Assistant")
	}
	defer b.ha.Close()

	b.logger.Info("publishing devices", zap.Int("count", len(b.devices)))
	var wg sync.WaitGroup
	for _, d := range b.devices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.Publish(ctx); err != nil {
				d.logger.Error("publish failed", zap.Error(err))
				return
			}
			d.logger.Info("device published")
		}()
	}
	wg.Wait()
	return nil
}

// asOfDate is the configured as_of_date or today in the device timezone.
func (d *Device) asOfDate() time.Time {
	if d.cfg.AsOfDate != "" {
		if day, err := dateseries.ParseDay(d.cfg.AsOfDate); err == nil {
			return day
		}
	}
	now := d.now().In(d.loc)
	return dateseries.Day(now.Year(), now.Month(), now.Day())
}

// localMidnight is the instant a calendar day starts in the device timezone.
func (d *Device) localMidnight(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, d.loc)
}

// Publish brings the energy and cost statistics of the device up to the day before as_of.
// Gas devices also get their volume in m³.
func (d *Device) Publish(ctx context.Context) error {
	asOf := d.asOfDate()
	d.logger.Debug("publishing", zap.Time("as_of", asOf))

	energy := energySensor(d.cfg.Name)
	total := totalCostSensor(d.cfg.Name)
	components := map[string]string{}
	var names []string
	if d.pricer != nil {
		names = d.pricer.Tariff().Components.Names()
		for _, name := range names {
			components[name] = componentSensor(d.cfg.Name, name)
		}

		code, err := currencyCode(units.Euro)
		if err != nil {
			return err
		}
		d.ha.MigrateStatistic(ctx, legacyTotalCostSensor(d.cfg.Name), total, friendlyPrefix+" Total Cost", code)
	}

	costSensors := []string{total}
	for _, name := range names {
		costSensors = append(costSensors, components[name])
	}
	sensors := append([]string{energy}, costSensors...)
	var volume string
	if d.kind == meterdb.Gas {
		volume = volumeSensor(d.cfg.Name)
		sensors = append(sensors, volume)
	}

	if d.cfg.Reset && !d.resetDone {
		if err := d.ha.ClearStatistics(ctx, sensors); err != nil {
			return errors.Wrap(err, "resetting statistics")
		}
		d.resetDone = true
		d.logger.Info("statistics reset", zap.Strings("sensors", sensors))
	}

	last := make(map[string]lastValue, len(sensors))
	for _, sensor := range sensors {
		lv, err := d.findLast(ctx, sensor, asOf)
		if err != nil {
			return err
		}
		last[sensor] = lv
	}

	// Only complete days are published
	endDate := asOf.AddDate(0, 0, -1)
	energyStart := last[energy].date.AddDate(0, 0, 1)
	costStart := last[total].date.AddDate(0, 0, 1)
	for _, sensor := range costSensors[1:] {
		if s := last[sensor].date.AddDate(0, 0, 1); s.Before(costStart) {
			costStart = s
		}
	}
	startDate := energyStart
	if d.pricer != nil && costStart.Before(startDate) {
		startDate = costStart
	}

	if volume != "" {
		if err := d.publishVolume(ctx, volume, last[volume], endDate); err != nil {
			return err
		}
	}

	if startDate.After(endDate) {
		d.logger.Info("nothing new to publish")
		return nil
	}

	quantities, err := aggregator.DailyQuantities(ctx, d.source, d.kind, startDate, endDate, d.loc, d.cfg.ConversionFactor)
	if err != nil {
		return errors.Wrap(err, "reading consumption")
	}

	if !energyStart.After(endDate) {
		slice, err := quantities.Slice(energyStart, endDate)
		if err != nil {
			return err
		}
		unitClass := "energy"
		if err := d.publishSeries(ctx, energy, friendlyPrefix+" Energy", &unitClass, string(quantities.ValueUnit), slice, last[energy].sum); err != nil {
			return err
		}
	}

	if d.pricer == nil || costStart.After(endDate) {
		return nil
	}

	slice, err := quantities.Slice(costStart, endDate)
	if err != nil {
		return err
	}
	started := time.Now()
	breakdown, err := d.pricer.Compute(pricing.NewQuantitySeries(slice, quantities.ValueUnit, quantities.BaseUnit), units.Euro)
	metrics.ObservePricing(d.cfg.Name, err, time.Since(started))
	if err != nil {
		return errors.Wrap(err, "pricing consumption")
	}

	for name, cost := range breakdown.Components() {
		code, err := currencyCode(cost.ValueUnit)
		if err != nil {
			return err
		}
		sensor := components[name]
		if err := d.publishSeries(ctx, sensor, componentFriendlyName(name), nil, code, cost.Series, last[sensor].sum); err != nil {
			return err
		}
		metrics.SetCumulativeCost(d.cfg.Name, name, last[sensor].sum+cost.Sum())
	}

	totalCost := breakdown.Total()
	code, err := currencyCode(totalCost.ValueUnit)
	if err != nil {
		return err
	}
	if err := d.publishSeries(ctx, total, friendlyPrefix+" Total Cost", nil, code, totalCost.Series, last[total].sum); err != nil {
		return err
	}
	metrics.SetCumulativeCost(d.cfg.Name, "total", last[total].sum+totalCost.Sum())
	return nil
}

// publishVolume imports the daily gas volume after the last published day.
func (d *Device) publishVolume(ctx context.Context, sensor string, last lastValue, endDate time.Time) error {
	start := last.date.AddDate(0, 0, 1)
	if start.After(endDate) {
		return nil
	}
	volumes, err := aggregator.DailyVolumes(ctx, d.source, start, endDate, d.loc)
	if err != nil {
		return errors.Wrap(err, "reading gas volume")
	}
	unitClass := "volume"
	return d.publishSeries(ctx, sensor, friendlyPrefix+" Volume", &unitClass, "m³", volumes, last.sum)
}

// findLast returns the newest published day and sum of sensor, or
// as_of - last_days and 0 when nothing was published yet.
func (d *Device) findLast(ctx context.Context, sensor string, asOf time.Time) (lastValue, error) {
	fallback := lastValue{date: asOf.AddDate(0, 0, -d.cfg.LastDays)}

	exists, err := d.ha.ExistsStatisticID(ctx, sensor, "sum")
	if err != nil {
		return lastValue{}, errors.Wrapf(err, "checking %s", sensor)
	}
	if !exists {
		d.logger.Debug("sensor does not exist yet", zap.String("sensor", sensor))
		return fallback, nil
	}

	point, found, err := d.ha.LastStatistic(ctx, sensor, d.localMidnight(asOf), d.cfg.LastDays)
	if err != nil {
		// Republishing from the fallback date is safe, imports overwrite by day
		d.logger.Warn("reading last statistic failed", zap.String("sensor", sensor), zap.Error(err))
		return fallback, nil
	}
	if !found {
		return fallback, nil
	}

	local := point.Start.In(d.loc)
	lv := lastValue{date: dateseries.Day(local.Year(), local.Month(), local.Day()), sum: point.Sum}
	d.logger.Debug("last statistic",
		zap.String("sensor", sensor),
		zap.Time("date", lv.date),
		zap.Float64("sum", lv.sum))
	return lv, nil
}

// publishSeries imports the running total of values on top of initial, one point per local midnight.
func (d *Device) publishSeries(ctx context.Context, sensor, name string, unitClass *string, unit string, values *dateseries.Series, initial float64) error {
	totals := values.CumulativeSum().AddScalar(initial)

	stats := make([]haws.Statistic, 0, totals.Len())
	for day, sum := range totals.All() {
		stats = append(stats, haws.Statistic{Start: d.localMidnight(day), State: sum, Sum: sum})
	}

	if err := d.ha.ImportStatistics(ctx, sensor, "recorder", name, unitClass, unit, stats); err != nil {
		return errors.Wrapf(err, "importing %s", sensor)
	}
	metrics.AddPublished(d.cfg.Name, len(stats))
	return nil
}
