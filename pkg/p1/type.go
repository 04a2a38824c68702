package p1

import (
	"io"
	"sync"

	"github.com/NotCoffee418/esm_costs/pkg/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrInvalidCRC   = errors.New("p1: invalid telegram CRC")
	ErrNotConnected = errors.New("p1: serial port not connected")
)

// Reader reads DSMR telegrams from a P1 serial port.
type Reader struct {
	port          string
	baudrate      uint
	serialPort    io.ReadWriteCloser
	latestReading *types.MeterReading
	readingMutex  sync.RWMutex
	logger        *zap.Logger
}
