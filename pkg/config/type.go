package config

import "github.com/NotCoffee418/esm_costs/pkg/logging"

type MeterCollectorConfig struct {
	SerialDevice  string `toml:"serial_device"`
	Baudrate      uint   `toml:"baudrate"`
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
	// Empty means pathing.GetMeterDbPath()
	DbPath string `toml:"db_path"`
	// host:port of another collector whose /ws feed replaces the serial port
	RemoteFeed string         `toml:"remote_feed"`
	Logging    logging.Config `toml:"logging"`
}

type CostBridgeConfig struct {
	// 0 runs a single cycle and exits
	ScanIntervalMinutes int    `toml:"scan_interval_minutes"`
	TariffFile          string `toml:"tariff_file"`
	DbPath              string `toml:"db_path"`
	// host:port for /metrics, empty disables it
	MetricsAddress string              `toml:"metrics_address"`
	HomeAssistant  HomeAssistantConfig `toml:"home_assistant"`
	Devices        []DeviceConfig      `toml:"devices"`
	Logging        logging.Config      `toml:"logging"`
}

type HomeAssistantConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Endpoint string `toml:"endpoint"`
	Token    string `toml:"token"`
	TLS      bool   `toml:"tls"`
}

type DeviceConfig struct {
	Name string `toml:"name"`
	// "electricity" or "gas"
	Kind     string `toml:"kind"`
	LastDays int    `toml:"last_days"`
	Timezone string `toml:"timezone"`
	// Clears the published statistics once on startup
	Reset bool `toml:"reset"`
	// YYYY-MM-DD, empty means today
	AsOfDate string `toml:"as_of_date"`
	// kWh per m³, gas only
	ConversionFactor float64 `toml:"conversion_factor"`
}
