package meterdb

import "database/sql"

// Store wraps the meter database. Only meter_collector writes to it; any service may read.
type Store struct {
	db *sql.DB
}

// Kind selects the register a standing is read from.
type Kind string

const (
	// Consumed electricity, day plus night tariff, in Wh.
	Electricity Kind = "electricity"
	// Consumed gas in dm³.
	Gas Kind = "gas"
)

type MeterDbTotalPowerReading struct {
	Timestamp               int64  `db:"timestamp"`
	TotalConsumptionDayWh   uint32 `db:"consumption_day_wh"`
	TotalConsumptionNightWh uint32 `db:"consumption_night_wh"`
	TotalProductionDayWh    uint32 `db:"production_day_wh"`
	TotalProductionNightWh  uint32 `db:"production_night_wh"`
}

type MeterDbTotalGasReading struct {
	Timestamp           int64  `db:"timestamp"`
	TotalConsumptionDM3 uint32 `db:"consumption_dm3"`
}

// Snapshot models - retained meter readings
type SnapshotTotalPowerHourly struct {
	Timestamp                int64  `db:"timestamp"`
	ConsumptionDayStanding   uint32 `db:"consumption_day_standing"`
	ConsumptionNightStanding uint32 `db:"consumption_night_standing"`
	ProductionDayStanding    uint32 `db:"production_day_standing"`
	ProductionNightStanding  uint32 `db:"production_night_standing"`
}

type SnapshotTotalGasHourly struct {
	Timestamp   int64  `db:"timestamp"`
	Dm3Standing uint32 `db:"dm3_standing"`
}

// Standing is a register value at a point in time, in Wh or dm³ depending on Kind.
type Standing struct {
	Timestamp int64
	Value     uint32
}
