// Package logging holds the process-wide zap logger shared by the services.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	mu      sync.Mutex
	logFile *os.File
)

// Config is the [logging] section of the service configs.
type Config struct {
	// debug, info, warn, error
	Level string `toml:"level"`
	// console or json
	Format string `toml:"format"`
	// stdout, stderr or a file path
	Output string `toml:"output"`
}

func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: "stderr",
	}
}

// Initialize replaces the global logger. An unknown level falls back to info.
// A log file opened by a previous call is closed.
func Initialize(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var out zapcore.WriteSyncer
	var file *os.File
	switch cfg.Output {
	case "", "stderr":
		out = zapcore.AddSync(os.Stderr)
	case "stdout":
		out = zapcore.AddSync(os.Stdout)
	default:
		file, err = os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		out = zapcore.AddSync(file)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		// No escape codes in files
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if file != nil {
			encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
	Logger = zap.New(zapcore.NewCore(encoder, out, level), zap.AddCaller())
	Sugar = Logger.Sugar()
	logFile = file
	return nil
}

// Sync flushes buffered entries and closes the log file, if any. Call before exit.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
}

func closeFileLocked() {
	if Logger != nil {
		_ = Logger.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// Named returns a child logger for one component, e.g. "bridge".
func Named(name string) *zap.Logger {
	return Logger.Named(name)
}

func With(fields ...zap.Field) *zap.Logger {
	return Logger.With(fields...)
}

func init() {
	_ = Initialize(DefaultConfig())
}
