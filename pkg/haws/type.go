// Package haws talks to the Home Assistant WebSocket API to read and import
// long-term statistics.
package haws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrHomeAssistant is returned for protocol, authentication and request failures.
var ErrHomeAssistant = errors.New("haws: home assistant error")

// Client is one authenticated WebSocket session. Requests are serialized.
type Client struct {
	url     string
	token   string
	timeout time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	messageID int
}

// Statistic is one imported point. Start is the local midnight of the day.
type Statistic struct {
	Start time.Time `json:"start"`
	State float64   `json:"state"`
	Sum   float64   `json:"sum"`
}

// StatisticPoint is a point read back from the recorder.
type StatisticPoint struct {
	Start time.Time
	Sum   float64
	State float64
}

type statisticMetadata struct {
	HasMean           bool    `json:"has_mean"`
	HasSum            bool    `json:"has_sum"`
	StatisticID       string  `json:"statistic_id"`
	Source            string  `json:"source"`
	Name              string  `json:"name"`
	UnitClass         *string `json:"unit_class"`
	UnitOfMeasurement string  `json:"unit_of_measurement"`
}

type response struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Result  any    `json:"result"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}
