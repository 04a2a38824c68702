package p1

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/metrics"
	"github.com/NotCoffee418/esm_costs/pkg/types"
	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	"github.com/sigurn/crc16"
	"go.uber.org/zap"
)

// Tolerance before we give up on the port.
const maxConsecutiveErrors = 10

var retryDelay = time.Second

// Use CRC16_ARC which matches the DSMR specification
var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// DSMR timestamps carry W (winter, CET) or S (summer, CEST) instead of an offset.
var dstZones = map[string]*time.Location{
	"W": time.FixedZone("CET", 1*60*60),
	"S": time.FixedZone("CEST", 2*60*60),
}

// NewReader initializes a new P1 reader client.
func NewReader(port string, baudrate uint, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		port:     port,
		baudrate: baudrate,
		logger:   logger.Named("p1"),
	}
}

// Start reads telegrams until ctx is cancelled or too many consecutive reads fail.
// Meters send one telegram per second. handleReading runs in its own goroutine.
func (p *Reader) Start(ctx context.Context, handleReading func(reading *types.MeterReading)) error {
	port, err := p.connect()
	if err != nil {
		return err
	}
	defer p.disconnect()

	// Closing the port unblocks a pending read
	stop := context.AfterFunc(ctx, p.disconnect)
	defer stop()

	return p.readLoop(ctx, bufio.NewReader(port), handleReading)
}

func (p *Reader) readLoop(ctx context.Context, r *bufio.Reader, handleReading func(reading *types.MeterReading)) error {
	consecutiveErrors := 0
	var lastError error

	for consecutiveErrors < maxConsecutiveErrors {
		if ctx.Err() != nil {
			return nil
		}

		telegram, err := ReadTelegram(r)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			consecutiveErrors++
			lastError = err
			metrics.IncTelegram(metrics.TelegramError)
			p.logger.Warn("error reading telegram",
				zap.Int("attempt", consecutiveErrors),
				zap.Int("max", maxConsecutiveErrors),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}

		reading, err := ParseTelegram(telegram)
		if err != nil {
			if errors.Is(err, ErrInvalidCRC) {
				metrics.IncTelegram(metrics.TelegramInvalidCRC)
				p.logger.Debug("invalid CRC, skipping telegram")
			} else {
				metrics.IncTelegram(metrics.TelegramError)
				p.logger.Warn("unparseable telegram", zap.Error(err))
			}
			continue
		}

		metrics.IncTelegram(metrics.TelegramOK)
		p.readingMutex.Lock()
		p.latestReading = reading
		p.readingMutex.Unlock()

		go handleReading(reading)
		consecutiveErrors = 0
	}

	p.logger.Error("too many consecutive errors, stopping reader",
		zap.Int("max", maxConsecutiveErrors),
		zap.Error(lastError))
	return errors.Wrapf(lastError, "p1: %d consecutive read errors", maxConsecutiveErrors)
}

// Latest returns the most recent valid reading, or nil.
func (p *Reader) Latest() *types.MeterReading {
	p.readingMutex.RLock()
	defer p.readingMutex.RUnlock()
	return p.latestReading
}

// Open the connection to the P1 port.
func (p *Reader) connect() (io.ReadWriteCloser, error) {
	options := serial.OpenOptions{
		PortName:        p.port,
		BaudRate:        p.baudrate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", p.port)
	}

	p.readingMutex.Lock()
	p.serialPort = port
	p.readingMutex.Unlock()
	p.logger.Info("connected to P1 port", zap.String("port", p.port), zap.Uint("baudrate", p.baudrate))
	return port, nil
}

func (p *Reader) disconnect() {
	p.readingMutex.Lock()
	defer p.readingMutex.Unlock()
	if p.serialPort != nil {
		p.serialPort.Close()
		p.serialPort = nil
		p.logger.Info("disconnected from P1 port")
	}
}

// ReadTelegram returns the next complete telegram, from the "/" header line through the "!" CRC line.
// Lines before the first header are dropped.
func ReadTelegram(r *bufio.Reader) (string, error) {
	if r == nil {
		return "", ErrNotConnected
	}

	var buffer strings.Builder
	var inTelegram bool

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}

		if strings.HasPrefix(line, "/") {
			// Start of telegram
			buffer.Reset()
			buffer.WriteString(line)
			inTelegram = true
		} else if inTelegram {
			buffer.WriteString(line)
			if strings.HasPrefix(strings.TrimSpace(line), "!") {
				// End of telegram
				return buffer.String(), nil
			}
		}
	}
}

// ValidateCRC checks the CRC16/ARC trailer against everything up to and including "!".
func ValidateCRC(telegram string) bool {
	parts := strings.Split(telegram, "!")
	if len(parts) != 2 || len(parts[1]) < 4 {
		return false
	}

	data := parts[0] + "!"
	givenCRC := parts[1][:4]
	calcCRCHex := fmt.Sprintf("%04X", crc16.Checksum([]byte(data), crcTable))

	return strings.ToUpper(givenCRC) == calcCRCHex
}

// ParseTelegram decodes a telegram into a reading. Fields missing from the
// telegram stay zero. Without a timestamp line the reading is stamped now.
func ParseTelegram(telegram string) (*types.MeterReading, error) {
	if !ValidateCRC(telegram) {
		return nil, ErrInvalidCRC
	}

	reading := &types.MeterReading{Timestamp: time.Now()}

	if match := timestampPattern.FindStringSubmatch(telegram); match != nil {
		t, err := time.ParseInLocation("060102150405", match[1], dstZones[match[2]])
		if err != nil {
			return nil, errors.Wrapf(err, "parsing telegram timestamp %q", match[1])
		}
		reading.Timestamp = t
	}

	// Parse regular OBIS codes
	floatSetters := map[string]func(float64){
		"current_consumption":     func(v float64) { reading.CurrentConsumptionKW = v },
		"current_production":      func(v float64) { reading.CurrentProductionKW = v },
		"l1_consumption":          func(v float64) { reading.L1ConsumptionKW = v },
		"l2_consumption":          func(v float64) { reading.L2ConsumptionKW = v },
		"l3_consumption":          func(v float64) { reading.L3ConsumptionKW = v },
		"l1_production":           func(v float64) { reading.L1ProductionKW = v },
		"l2_production":           func(v float64) { reading.L2ProductionKW = v },
		"l3_production":           func(v float64) { reading.L3ProductionKW = v },
		"total_consumption_day":   func(v float64) { reading.TotalConsumptionDayKWH = v },
		"total_consumption_night": func(v float64) { reading.TotalConsumptionNightKWH = v },
		"total_production_day":    func(v float64) { reading.TotalProductionDayKWH = v },
		"total_production_night":  func(v float64) { reading.TotalProductionNightKWH = v },
		"l1_voltage":              func(v float64) { reading.L1VoltageV = v },
		"l2_voltage":              func(v float64) { reading.L2VoltageV = v },
		"l3_voltage":              func(v float64) { reading.L3VoltageV = v },
		"l1_current":              func(v float64) { reading.L1CurrentA = v },
		"l2_current":              func(v float64) { reading.L2CurrentA = v },
		"l3_current":              func(v float64) { reading.L3CurrentA = v },
		"gas_consumption":         func(v float64) { reading.GasConsumptionM3 = v },
	}
	for field, setter := range floatSetters {
		if match := obisFloatPatterns[field].FindStringSubmatch(telegram); match != nil {
			if value, err := strconv.ParseFloat(match[1], 64); err == nil {
				setter(value)
			}
		}
	}

	intSetters := map[string]func(int){
		"switch_electricity": func(v int) { reading.SwitchElectricity = v },
		"switch_gas":         func(v int) { reading.SwitchGas = v },
	}
	for field, setter := range intSetters {
		if match := obisIntPatterns[field].FindStringSubmatch(telegram); match != nil {
			if value, err := strconv.Atoi(match[1]); err == nil {
				setter(value)
			}
		}
	}

	if match := currentTariffPattern.FindStringSubmatch(telegram); match != nil {
		if value, err := strconv.Atoi(match[1]); err == nil {
			// 0001 -> 1, 0002 -> 2
			reading.CurrentTariff = value % 10
		}
	}

	if match := meterSerialElectricityPattern.FindStringSubmatch(telegram); match != nil {
		reading.MeterSerialElectricity = decodeSerial(match[1])
	}
	if match := meterSerialGasPattern.FindStringSubmatch(telegram); match != nil {
		reading.MeterSerialGas = decodeSerial(match[1])
	}

	return reading, nil
}

// Serials are hex encoded ASCII on most meters.
func decodeSerial(raw string) string {
	if decoded, err := hex.DecodeString(raw); err == nil {
		return string(decoded)
	}
	return raw
}
