package aggregator

import (
	"context"

	"github.com/NotCoffee418/esm_costs/pkg/meterdb"
)

// StandingSource looks up meter register values. Implemented by *meterdb.Store.
type StandingSource interface {
	LastStandingBefore(ctx context.Context, kind meterdb.Kind, ts int64) (meterdb.Standing, bool, error)
	FirstStandingFrom(ctx context.Context, kind meterdb.Kind, ts int64) (meterdb.Standing, bool, error)
}

// SnapshotStore is the part of the meter database the hourly maintenance task needs.
type SnapshotStore interface {
	SnapshotTotalPowerHourly(ctx context.Context, hourStart int64) (bool, error)
	SnapshotTotalGasHourly(ctx context.Context, hourStart int64) (bool, error)
	LastSnapshotHour(ctx context.Context) (int64, bool, error)
	DeleteReadingsBefore(ctx context.Context, cutoff int64) error
}
