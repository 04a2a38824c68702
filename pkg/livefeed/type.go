// Package livefeed broadcasts decoded meter readings over WebSocket and subscribes to such a feed.
package livefeed

import (
	"sync"

	"github.com/NotCoffee418/esm_costs/pkg/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans readings out to the connected /ws clients and remembers the latest one for /latest.
type Hub struct {
	// Guards clients, latest and every write to a client connection
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	latest  *types.MeterReading
	logger  *zap.Logger
}
