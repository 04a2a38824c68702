package meterdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/esmutils"
	"github.com/NotCoffee418/esm_costs/pkg/types"
	"github.com/pkg/errors"
)

// RecordReading stores the register totals of a decoded telegram.
// Gas is skipped for meters without a gas module.
func (s *Store) RecordReading(ctx context.Context, reading *types.MeterReading) error {
	ts := reading.Timestamp.Unix()
	err := s.InsertTotalPowerReading(ctx, &MeterDbTotalPowerReading{
		Timestamp:               ts,
		TotalConsumptionDayWh:   esmutils.KwhToWh(reading.TotalConsumptionDayKWH),
		TotalConsumptionNightWh: esmutils.KwhToWh(reading.TotalConsumptionNightKWH),
		TotalProductionDayWh:    esmutils.KwhToWh(reading.TotalProductionDayKWH),
		TotalProductionNightWh:  esmutils.KwhToWh(reading.TotalProductionNightKWH),
	})
	if err != nil {
		return errors.Wrap(err, "storing power totals")
	}
	if reading.MeterSerialGas == "" && reading.GasConsumptionM3 == 0 {
		return nil
	}
	err = s.InsertTotalGasReading(ctx, &MeterDbTotalGasReading{
		Timestamp:           ts,
		TotalConsumptionDM3: esmutils.M3ToDM3(reading.GasConsumptionM3),
	})
	return errors.Wrap(err, "storing gas totals")
}

func (s *Store) InsertTotalPowerReading(ctx context.Context, reading *MeterDbTotalPowerReading) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO total_power_readings "+
			"(timestamp, consumption_day_wh, consumption_night_wh, production_day_wh, production_night_wh) "+
			"VALUES (?, ?, ?, ?, ?)",
		reading.Timestamp,
		reading.TotalConsumptionDayWh,
		reading.TotalConsumptionNightWh,
		reading.TotalProductionDayWh,
		reading.TotalProductionNightWh,
	)
	return err
}

func (s *Store) InsertTotalGasReading(ctx context.Context, reading *MeterDbTotalGasReading) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO total_gas_readings "+
			"(timestamp, consumption_dm3) "+
			"VALUES (?, ?)",
		reading.Timestamp,
		reading.TotalConsumptionDM3,
	)
	return err
}

// getHourEnd returns the Unix timestamp of the last second of the hour (next hour start - 1)
func getHourEnd(hourStart int64) int64 {
	return time.Unix(hourStart, 0).Add(time.Hour).Unix() - 1
}

// SnapshotTotalPowerHourly keeps the last power reading of the hour starting at hourStart.
// Returns false when the hour has no reading.
func (s *Store) SnapshotTotalPowerHourly(ctx context.Context, hourStart int64) (bool, error) {
	var r MeterDbTotalPowerReading
	err := s.db.QueryRowContext(ctx, `
		SELECT consumption_day_wh, consumption_night_wh, production_day_wh, production_night_wh
		FROM total_power_readings
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, hourStart, getHourEnd(hourStart)).Scan(
		&r.TotalConsumptionDayWh,
		&r.TotalConsumptionNightWh,
		&r.TotalProductionDayWh,
		&r.TotalProductionNightWh,
	)
	if err == sql.ErrNoRows {
		// No entry within timeframe, that's okay
		return false, nil
	}
	if err != nil {
		return false, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshot_total_power_hourly
		(timestamp, consumption_day_standing, consumption_night_standing, production_day_standing, production_night_standing)
		VALUES (?, ?, ?, ?, ?)
	`, hourStart, r.TotalConsumptionDayWh, r.TotalConsumptionNightWh, r.TotalProductionDayWh, r.TotalProductionNightWh)
	return err == nil, err
}

// SnapshotTotalGasHourly keeps the last gas reading of the hour starting at hourStart.
func (s *Store) SnapshotTotalGasHourly(ctx context.Context, hourStart int64) (bool, error) {
	var dm3Standing uint32
	err := s.db.QueryRowContext(ctx, `
		SELECT consumption_dm3
		FROM total_gas_readings
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, hourStart, getHourEnd(hourStart)).Scan(&dm3Standing)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshot_total_gas_hourly
		(timestamp, dm3_standing)
		VALUES (?, ?)
	`, hourStart, dm3Standing)
	return err == nil, err
}

// LastSnapshotHour returns the most recent power snapshot hour.
func (s *Store) LastSnapshotHour(ctx context.Context) (int64, bool, error) {
	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(timestamp) FROM snapshot_total_power_hourly").Scan(&last); err != nil {
		return 0, false, err
	}
	return last.Int64, last.Valid, nil
}

// DeleteReadingsBefore drops raw totals older than cutoff. Snapshots are kept.
func (s *Store) DeleteReadingsBefore(ctx context.Context, cutoff int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM total_power_readings WHERE timestamp < ?", cutoff); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM total_gas_readings WHERE timestamp < ?", cutoff)
	return err
}

type standingQueries struct {
	raw      string
	snapshot string
}

var lastBeforeQueries = map[Kind]standingQueries{
	Electricity: {
		raw: `SELECT timestamp, consumption_day_wh + consumption_night_wh FROM total_power_readings
			WHERE timestamp < ? ORDER BY timestamp DESC LIMIT 1`,
		snapshot: `SELECT timestamp, consumption_day_standing + consumption_night_standing FROM snapshot_total_power_hourly
			WHERE timestamp < ? ORDER BY timestamp DESC LIMIT 1`,
	},
	Gas: {
		raw: `SELECT timestamp, consumption_dm3 FROM total_gas_readings
			WHERE timestamp < ? ORDER BY timestamp DESC LIMIT 1`,
		snapshot: `SELECT timestamp, dm3_standing FROM snapshot_total_gas_hourly
			WHERE timestamp < ? ORDER BY timestamp DESC LIMIT 1`,
	},
}

var firstFromQueries = map[Kind]standingQueries{
	Electricity: {
		raw: `SELECT timestamp, consumption_day_wh + consumption_night_wh FROM total_power_readings
			WHERE timestamp >= ? ORDER BY timestamp ASC LIMIT 1`,
		snapshot: `SELECT timestamp, consumption_day_standing + consumption_night_standing FROM snapshot_total_power_hourly
			WHERE timestamp >= ? ORDER BY timestamp ASC LIMIT 1`,
	},
	Gas: {
		raw: `SELECT timestamp, consumption_dm3 FROM total_gas_readings
			WHERE timestamp >= ? ORDER BY timestamp ASC LIMIT 1`,
		snapshot: `SELECT timestamp, dm3_standing FROM snapshot_total_gas_hourly
			WHERE timestamp >= ? ORDER BY timestamp ASC LIMIT 1`,
	},
}

// LastStandingBefore returns the latest register value strictly before ts,
// looking at raw readings and hourly snapshots.
func (s *Store) LastStandingBefore(ctx context.Context, kind Kind, ts int64) (Standing, bool, error) {
	q, ok := lastBeforeQueries[kind]
	if !ok {
		return Standing{}, false, errors.Errorf("unknown meter kind %q", kind)
	}
	return s.pickStanding(ctx, q, ts, func(a, b Standing) bool { return a.Timestamp > b.Timestamp })
}

// FirstStandingFrom returns the earliest register value at or after ts.
func (s *Store) FirstStandingFrom(ctx context.Context, kind Kind, ts int64) (Standing, bool, error) {
	q, ok := firstFromQueries[kind]
	if !ok {
		return Standing{}, false, errors.Errorf("unknown meter kind %q", kind)
	}
	return s.pickStanding(ctx, q, ts, func(a, b Standing) bool { return a.Timestamp < b.Timestamp })
}

func (s *Store) pickStanding(ctx context.Context, q standingQueries, ts int64, better func(a, b Standing) bool) (Standing, bool, error) {
	var best Standing
	found := false
	for _, query := range []string{q.raw, q.snapshot} {
		var st Standing
		err := s.db.QueryRowContext(ctx, query, ts).Scan(&st.Timestamp, &st.Value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return Standing{}, false, err
		}
		if !found || better(st, best) {
			best, found = st, true
		}
	}
	return best, found, nil
}
