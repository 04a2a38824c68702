package haws_test

import (
	"context"
	"testing"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/haws"
	"github.com/NotCoffee418/esm_costs/pkg/haws/hawstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "secret-token"

func connect(t *testing.T, srv *hawstest.Server) *haws.Client {
	t.Helper()
	client := haws.New(srv.Config(token), nil)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { client.Close() })
	return client
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestConnectRejectsBadToken(t *testing.T) {
	srv := hawstest.NewServer(token)
	defer srv.Close()

	client := haws.New(srv.Config("wrong"), nil)
	err := client.Connect(context.Background())
	assert.ErrorIs(t, err, haws.ErrHomeAssistant)
}

func TestConnectGivesUpOnCancel(t *testing.T) {
	srv := hawstest.NewServer(token)
	cfg := srv.Config(token)
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := haws.New(cfg, nil).Connect(ctx)
	assert.Error(t, err)
}

func TestRequestWithoutConnection(t *testing.T) {
	srv := hawstest.NewServer(token)
	defer srv.Close()

	_, err := haws.New(srv.Config(token), nil).ListStatisticIDs(context.Background(), "sum")
	assert.ErrorIs(t, err, haws.ErrHomeAssistant)
}

func TestImportAndReadBack(t *testing.T) {
	srv := hawstest.NewServer(token)
	defer srv.Close()
	client := connect(t, srv)
	ctx := context.Background()

	exists, err := client.ExistsStatisticID(ctx, "sensor.home_energy", "sum")
	require.NoError(t, err)
	assert.False(t, exists)

	energy := "energy"
	err = client.ImportStatistics(ctx, "sensor.home_energy", "recorder", "Home Energy", &energy, "kWh", []haws.Statistic{
		{Start: day(1), State: 1.5, Sum: 1.5},
		{Start: day(2), State: 3.5, Sum: 3.5},
		{Start: day(3), State: 4, Sum: 4},
	})
	require.NoError(t, err)

	meta, ok := srv.Metadata("sensor.home_energy")
	require.True(t, ok)
	assert.Equal(t, "kWh", meta.Unit)
	require.NotNil(t, meta.UnitClass)
	assert.Equal(t, "energy", *meta.UnitClass)

	exists, err = client.ExistsStatisticID(ctx, "sensor.home_energy", "sum")
	require.NoError(t, err)
	assert.True(t, exists)

	last, found, err := client.LastStatistic(ctx, "sensor.home_energy", day(3), 30)
	require.NoError(t, err)
	require.True(t, found)
	// Window end is exclusive
	assert.True(t, last.Start.Equal(day(2)))
	assert.Equal(t, 3.5, last.Sum)

	_, found, err = client.LastStatistic(ctx, "sensor.other", day(3), 30)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestImportNothingSendsNothing(t *testing.T) {
	srv := hawstest.NewServer(token)
	defer srv.Close()
	client := connect(t, srv)

	require.NoError(t, client.ImportStatistics(context.Background(), "sensor.x", "recorder", "X", nil, "EUR", nil))
	assert.Empty(t, srv.Commands())
}

func TestClearStatistics(t *testing.T) {
	srv := hawstest.NewServer(token)
	defer srv.Close()
	srv.Seed("sensor.home_total_cost", hawstest.Point{Start: day(1), Sum: 2})
	client := connect(t, srv)

	require.NoError(t, client.ClearStatistics(context.Background(), []string{"sensor.home_total_cost"}))
	assert.Empty(t, srv.Points("sensor.home_total_cost"))
}

func TestFailedRequest(t *testing.T) {
	srv := hawstest.NewServer(token)
	defer srv.Close()
	srv.Fail("recorder/clear_statistics")
	client := connect(t, srv)

	err := client.ClearStatistics(context.Background(), []string{"sensor.a"})
	assert.ErrorIs(t, err, haws.ErrHomeAssistant)

	// The session stays usable
	_, err = client.ListStatisticIDs(context.Background(), "")
	assert.NoError(t, err)
}

func TestMigrateStatistic(t *testing.T) {
	ctx := context.Background()

	t.Run("copies old history", func(t *testing.T) {
		srv := hawstest.NewServer(token)
		defer srv.Close()
		srv.Seed("sensor.home_cost",
			hawstest.Point{Start: day(1), State: 1, Sum: 1},
			hawstest.Point{Start: day(2), State: 2.5, Sum: 2.5})
		client := connect(t, srv)

		assert.True(t, client.MigrateStatistic(ctx, "sensor.home_cost", "sensor.home_total_cost", "Home Total Cost", "EUR"))
		migrated := srv.Points("sensor.home_total_cost")
		require.Len(t, migrated, 2)
		assert.Equal(t, 2.5, migrated[1].Sum)
		assert.Len(t, srv.Points("sensor.home_cost"), 2)
	})

	t.Run("skips when both exist", func(t *testing.T) {
		srv := hawstest.NewServer(token)
		defer srv.Close()
		srv.Seed("sensor.home_cost", hawstest.Point{Start: day(1), Sum: 1})
		srv.Seed("sensor.home_total_cost", hawstest.Point{Start: day(1), Sum: 9})
		client := connect(t, srv)

		assert.True(t, client.MigrateStatistic(ctx, "sensor.home_cost", "sensor.home_total_cost", "Home Total Cost", "EUR"))
		assert.Equal(t, 9.0, srv.Points("sensor.home_total_cost")[0].Sum)
	})

	t.Run("reports failure", func(t *testing.T) {
		srv := hawstest.NewServer(token)
		defer srv.Close()
		srv.Seed("sensor.home_cost", hawstest.Point{Start: day(1), Sum: 1})
		srv.Fail("recorder/import_statistics")
		client := connect(t, srv)

		assert.False(t, client.MigrateStatistic(ctx, "sensor.home_cost", "sensor.home_total_cost", "Home Total Cost", "EUR"))
	})
}
