package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/dateseries"
	"github.com/NotCoffee418/esm_costs/pkg/tariff"
	"github.com/NotCoffee418/esm_costs/pkg/units"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTariff(t *testing.T) {
	tf, err := ParseTariff(DefaultTariffYAML)
	require.NoError(t, err)

	assert.Equal(t, []string{"consumption_prices", "subscription_prices", "transport_prices", "energy_taxes"},
		tf.Components.Names())
	assert.Equal(t, []string{"reduced", "normal"}, tf.VatIDs())

	consumption, ok := tf.Components.Get("consumption_prices")
	require.True(t, ok)
	bps := consumption.Periods()
	require.Len(t, bps, 12)
	for _, bp := range bps {
		assert.Equal(t, units.Euro, bp.Value.PriceUnit)
		assert.Equal(t, units.KiloWattHour, bp.Value.QuantityUnit)
		assert.Equal(t, "normal", bp.Value.VatID)
		assert.Nil(t, bp.Value.TimeValue)
	}
	assert.Equal(t, dateseries.Day(2023, 8, 1), bps[2].Start)
	assert.InDelta(t, 0.05568, *bps[2].Value.QuantityValue, 1e-12)
	assert.Equal(t, dateseries.Day(2023, 9, 1), *bps[2].End)
	assert.Nil(t, bps[11].End)

	transport, _ := tf.Components.Get("transport_prices")
	tb := transport.Periods()[0].Value
	assert.Equal(t, units.YearUnit, tb.TimeUnit)
	assert.Equal(t, "reduced", tb.VatID)
	assert.InDelta(t, 34.38, *tb.TimeValue, 1e-12)
}

func TestDefaultTariffRates(t *testing.T) {
	tf, err := ParseTariff(DefaultTariffYAML)
	require.NoError(t, err)
	consumption, _ := tf.Components.Get("consumption_prices")

	at := func(from, to, day [3]int) float64 {
		out := consumption.Rasterize(
			dateseries.Day(from[0], time.Month(from[1]), from[2]),
			dateseries.Day(to[0], time.Month(to[1]), to[2]),
			func(bp *tariff.Breakpoint, _ time.Time) float64 { return *bp.Value.QuantityValue })
		v, err := out.Get(dateseries.Day(day[0], time.Month(day[1]), day[2]))
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, 0.05568, at([3]int{2023, 8, 20}, [3]int{2023, 9, 5}, [3]int{2023, 8, 20}))
	assert.Equal(t, 0.05412, at([3]int{2023, 8, 20}, [3]int{2023, 9, 5}, [3]int{2023, 9, 5}))
	assert.Equal(t, 0.07790, at([3]int{2023, 5, 25}, [3]int{2023, 6, 5}, [3]int{2023, 5, 25}))
	assert.Equal(t, 0.04842, at([3]int{2024, 12, 25}, [3]int{2025, 1, 5}, [3]int{2024, 12, 25}))
	assert.Equal(t, 0.07807, at([3]int{2024, 12, 25}, [3]int{2025, 1, 5}, [3]int{2025, 1, 5}))
	assert.Equal(t, 0.05392, at([3]int{2023, 7, 20}, [3]int{2023, 9, 5}, [3]int{2023, 7, 20}))
	assert.Equal(t, 0.07790, at([3]int{2023, 5, 1}, [3]int{2023, 5, 5}, [3]int{2023, 5, 5}))
	assert.Equal(t, 0.07807, at([3]int{2025, 5, 1}, [3]int{2025, 5, 5}, [3]int{2025, 5, 1}))
}

func TestLegacyTariff(t *testing.T) {
	tf, err := LoadTariff(filepath.Join("testdata", "legacy_tariff.yaml"))
	require.NoError(t, err)

	consumption, _ := tf.Components.Get("consumption_prices")
	bps := consumption.Periods()
	require.Len(t, bps, 2)
	assert.Equal(t, units.Cent, bps[1].Value.PriceUnit)
	assert.Equal(t, units.KiloWattHour, bps[1].Value.QuantityUnit)
	assert.Equal(t, "normal", bps[1].Value.VatID)
	require.NotNil(t, bps[1].Value.QuantityValue)
	assert.InDelta(t, 5.392, *bps[1].Value.QuantityValue, 1e-12)

	subscription, _ := tf.Components.Get("subscription_prices")
	sbs := subscription.Periods()
	assert.Equal(t, units.MonthUnit, sbs[1].Value.TimeUnit)
	require.NotNil(t, sbs[1].Value.TimeValue)
	assert.Nil(t, sbs[1].Value.QuantityValue)
	assert.Equal(t, dateseries.Day(2024, 1, 1), *sbs[1].End)

	require.Len(t, tf.VatClasses, 2)
	normal := tf.VatClasses[1]
	assert.Equal(t, "normal", normal.ID)
	assert.Equal(t, 2, normal.Rates.Len())
}

func TestTariffErrors(t *testing.T) {
	cases := map[string]struct {
		doc  string
		want error
	}{
		"empty": {"", tariff.ErrConfiguration},
		"no components": {`
pricing:
  vat: []
`, tariff.ErrConfiguration},
		"time only": {`
pricing:
  subscription_prices:
    - start_date: "2023-01-01"
      time_value: 10
`, tariff.ErrConfiguration},
		"missing start": {`
pricing:
  consumption_prices:
    - quantity_value: 0.1
`, tariff.ErrConfiguration},
		"bad date": {`
pricing:
  consumption_prices:
    - start_date: "2023-13-01"
      quantity_value: 0.1
`, tariff.ErrConfiguration},
		"no value": {`
pricing:
  consumption_prices:
    - start_date: "2023-01-01"
`, tariff.ErrConfiguration},
		"unknown unit": {`
pricing:
  consumption_prices:
    - start_date: "2023-01-01"
      quantity_value: 0.1
      quantity_unit: "m3"
`, units.ErrUnit},
		"vat without id": {`
pricing:
  vat:
    - start_date: "2023-01-01"
      value: 0.2
  consumption_prices:
    - start_date: "2023-01-01"
      quantity_value: 0.1
`, tariff.ErrConfiguration},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTariff([]byte(tc.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())
		})
	}
}

func TestTariffWithoutPricingKey(t *testing.T) {
	tf, err := ParseTariff([]byte(`
consumption:
  - start_date: "2024-01-01"
    quantity_value: 25
    price_unit: "¢"
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"consumption"}, tf.Components.Names())
	assert.Empty(t, tf.VatClasses)
}

func TestEndDateIsNotInherited(t *testing.T) {
	tf, err := ParseTariff([]byte(`
pricing:
  consumption_prices:
    - start_date: "2023-01-01"
      end_date: "2023-03-01"
      quantity_value: 10
      price_unit: "¢"
      vat_id: normal
    - start_date: "2023-06-01"
      quantity_value: 11
    - start_date: "2023-09-01"
      quantity_value: 12
`))
	require.NoError(t, err)

	consumption, _ := tf.Components.Get("consumption_prices")
	bps := consumption.Periods()
	require.Len(t, bps, 3)

	require.NotNil(t, bps[0].End)
	assert.Equal(t, dateseries.Day(2023, 3, 1), *bps[0].End)
	// Without its own end_date an entry closes on the next start, or stays open when last.
	require.NotNil(t, bps[1].End)
	assert.Equal(t, dateseries.Day(2023, 9, 1), *bps[1].End)
	assert.Nil(t, bps[2].End)

	for _, bp := range bps[1:] {
		assert.Equal(t, units.Cent, bp.Value.PriceUnit)
		assert.Equal(t, "normal", bp.Value.VatID)
	}
}

func TestEnsureTariffFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.yaml")
	require.NoError(t, EnsureTariffFile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultTariffYAML, raw)

	require.NoError(t, os.WriteFile(path, []byte("custom"), 0644))
	require.NoError(t, EnsureTariffFile(path))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(raw))
}

func TestLoadCostBridgeConfig(t *testing.T) {
	cfg, err := LoadCostBridgeConfigFrom(filepath.Join("testdata", "cost_bridge.toml"))
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.ScanIntervalMinutes)
	assert.Equal(t, "ha.local", cfg.HomeAssistant.Host)
	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, "gas", cfg.Devices[1].Kind)
	assert.InDelta(t, 9.77, cfg.Devices[1].ConversionFactor, 1e-12)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestCostBridgeConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cost_bridge.toml")
	cfg, err := LoadCostBridgeConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultCostBridgeConfig().Devices, cfg.Devices)

	// round trip through the written file
	again, err := LoadCostBridgeConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.HomeAssistant, again.HomeAssistant)
	assert.Equal(t, cfg.Devices, again.Devices)
}

func TestCostBridgeConfigValidate(t *testing.T) {
	valid := func() *CostBridgeConfig { return DefaultCostBridgeConfig() }

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Devices = append(cfg.Devices, cfg.Devices[0])
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Devices[0].Kind = "water"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Devices[0].Kind = "gas"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Devices[0].Timezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Devices[0].AsOfDate = "yesterday"
	assert.Error(t, cfg.Validate())
}

func TestMeterCollectorConfigCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ESM_COSTS_CONFIG_DIR", dir)

	require.NoError(t, LoadMeterCollectorConfig())
	assert.Equal(t, DefaultMeterCollectorConfig(), ActiveMeterCollectorConfig)
	assert.FileExists(t, filepath.Join(dir, "meter_collector.toml"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "meter_collector.toml"), []byte(`
serial_device = "/dev/ttyAMA0"
baudrate = 9600
remote_feed = "raspberrypi.local:9039"
`), 0644))
	require.NoError(t, LoadMeterCollectorConfig())
	assert.Equal(t, "/dev/ttyAMA0", ActiveMeterCollectorConfig.SerialDevice)
	assert.Equal(t, uint(9600), ActiveMeterCollectorConfig.Baudrate)
	assert.Equal(t, "raspberrypi.local:9039", ActiveMeterCollectorConfig.RemoteFeed)
}
