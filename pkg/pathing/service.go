package pathing

import (
	"os"
	"path/filepath"
)

// Overridable for containers and tests.
const (
	dataDirEnv   = "ESM_COSTS_DATA_DIR"
	configDirEnv = "ESM_COSTS_CONFIG_DIR"
)

// EnsureDirs creates the data and config directories if they don't exist yet.
func EnsureDirs() error {
	// Directories that must exist:
	dirs := []string{
		GetDataDir(),
		GetConfigDir(),
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

func GetMeterDbPath() string {
	return filepath.Join(GetDataDir(), "esm-meter.db")
}

// GetTariffPath is the default tariff file, next to the service configs.
func GetTariffPath() string {
	return filepath.Join(GetConfigDir(), "tariff.yaml")
}

func GetDataDir() string {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		return dir
	}
	return "/var/lib/esm_costs"
}

func GetConfigDir() string {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return dir
	}
	return "/etc/esm_costs"
}
