// Package bridge periodically prices meter consumption and publishes the
// cumulative results as Home Assistant statistics.
package bridge

import (
	"context"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/aggregator"
	"github.com/NotCoffee418/esm_costs/pkg/config"
	"github.com/NotCoffee418/esm_costs/pkg/haws"
	"github.com/NotCoffee418/esm_costs/pkg/meterdb"
	"github.com/NotCoffee418/esm_costs/pkg/pricing"
	"go.uber.org/zap"
)

// Publisher is the statistics API of Home Assistant. Implemented by *haws.Client.
type Publisher interface {
	Connect(ctx context.Context) error
	Close() error
	ExistsStatisticID(ctx context.Context, statisticID, statisticType string) (bool, error)
	LastStatistic(ctx context.Context, statisticID string, asOf time.Time, depthDays int) (haws.StatisticPoint, bool, error)
	ImportStatistics(ctx context.Context, statisticID, source, name string, unitClass *string, unit string, stats []haws.Statistic) error
	ClearStatistics(ctx context.Context, statisticIDs []string) error
	MigrateStatistic(ctx context.Context, oldID, newID, newName, unit string) bool
}

type Bridge struct {
	interval time.Duration
	ha       Publisher
	devices  []*Device
	logger   *zap.Logger
}

// Device publishes one meter.
type Device struct {
	cfg    config.DeviceConfig
	kind   meterdb.Kind
	loc    *time.Location
	pricer *pricing.Pricer
	source aggregator.StandingSource
	ha     Publisher
	logger *zap.Logger

	// Reset runs once per process
	resetDone bool
	now       func() time.Time
}

// lastValue is the newest published day of a sensor and its cumulative sum.
type lastValue struct {
	date time.Time
	sum  float64
}
