package config

import (
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/esm_costs/pkg/logging"
	"github.com/NotCoffee418/esm_costs/pkg/pathing"
	"github.com/pkg/errors"
)

var (
	ActiveMeterCollectorConfig *MeterCollectorConfig
	ActiveCostBridgeConfig     *CostBridgeConfig
)

func DefaultMeterCollectorConfig() *MeterCollectorConfig {
	return &MeterCollectorConfig{
		SerialDevice:  "/dev/ttyUSB0",
		Baudrate:      115200,
		ListenAddress: "0.0.0.0",
		ListenPort:    9039,
		Logging:       logging.DefaultConfig(),
	}
}

func DefaultCostBridgeConfig() *CostBridgeConfig {
	return &CostBridgeConfig{
		ScanIntervalMinutes: 480,
		TariffFile:          pathing.GetTariffPath(),
		MetricsAddress:      "0.0.0.0:9040",
		HomeAssistant: HomeAssistantConfig{
			Host:     "localhost",
			Port:     8123,
			Endpoint: "/api/websocket",
		},
		Devices: []DeviceConfig{
			{
				Name:     "electricity",
				Kind:     "electricity",
				LastDays: 365,
				Timezone: "Europe/Amsterdam",
			},
		},
		Logging: logging.DefaultConfig(),
	}
}

func LoadMeterCollectorConfig() error {
	cfg, err := loadOrCreate(filepath.Join(pathing.GetConfigDir(), "meter_collector.toml"), DefaultMeterCollectorConfig())
	if err != nil {
		return err
	}
	ActiveMeterCollectorConfig = cfg
	return nil
}

func LoadCostBridgeConfig() error {
	cfg, err := LoadCostBridgeConfigFrom(filepath.Join(pathing.GetConfigDir(), "cost_bridge.toml"))
	if err != nil {
		return err
	}
	ActiveCostBridgeConfig = cfg
	return nil
}

// LoadCostBridgeConfigFrom reads and validates a bridge config, writing the default one if path doesn't exist.
func LoadCostBridgeConfigFrom(path string) (*CostBridgeConfig, error) {
	cfg, err := loadOrCreate(path, DefaultCostBridgeConfig())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

func (c *CostBridgeConfig) Validate() error {
	if c.ScanIntervalMinutes < 0 {
		return errors.New("scan_interval_minutes must not be negative")
	}
	if c.TariffFile == "" {
		return errors.New("tariff_file is required")
	}
	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.Name == "" {
			return errors.Errorf("device %d has no name", i)
		}
		if seen[d.Name] {
			return errors.Errorf("duplicate device %q", d.Name)
		}
		seen[d.Name] = true
		switch d.Kind {
		case "electricity":
		case "gas":
			if d.ConversionFactor <= 0 {
				return errors.Errorf("device %q: gas needs a positive conversion_factor", d.Name)
			}
		default:
			return errors.Errorf("device %q: unknown kind %q", d.Name, d.Kind)
		}
		if d.LastDays <= 0 {
			return errors.Errorf("device %q: last_days must be positive", d.Name)
		}
		if _, err := time.LoadLocation(d.Timezone); err != nil {
			return errors.Wrapf(err, "device %q", d.Name)
		}
		if d.AsOfDate != "" {
			if _, err := time.Parse(time.DateOnly, d.AsOfDate); err != nil {
				return errors.Wrapf(err, "device %q: as_of_date", d.Name)
			}
		}
	}
	return nil
}

// loadOrCreate decodes path. A missing file is created from defaults.
func loadOrCreate[T any](path string, defaults *T) (*T, error) {
	// Create default if not exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfgFile, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		defer cfgFile.Close()
		if err := toml.NewEncoder(cfgFile).Encode(defaults); err != nil {
			return nil, errors.Wrapf(err, "writing default %s", path)
		}
		return defaults, nil
	}

	// Load existing config
	var cfg T
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return &cfg, nil
}
