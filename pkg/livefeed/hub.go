package livefeed

import (
	"encoding/json"
	"net/http"

	"github.com/NotCoffee418/esm_costs/pkg/metrics"
	"github.com/NotCoffee418/esm_costs/pkg/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboards on the LAN connect from anywhere
	},
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		logger:  logger.Named("livefeed"),
	}
}

// Broadcast stores reading as the latest one and sends it to every client.
// Clients that fail the write are dropped.
func (h *Hub) Broadcast(reading *types.MeterReading) {
	data := reading.ToJsonBytes()

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = reading
	for client := range h.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("dropping client", zap.String("remote", client.RemoteAddr().String()), zap.Error(err))
			h.removeLocked(client)
		}
	}
}

func (h *Hub) Latest() *types.MeterReading {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the client subscribed until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	h.mu.Lock()
	// Send current reading immediately if available
	if h.latest != nil {
		if err := conn.WriteMessage(websocket.TextMessage, h.latest.ToJsonBytes()); err != nil {
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	h.clients[conn] = true
	metrics.SetLiveClients(len(h.clients))
	h.mu.Unlock()

	// Keep connection alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}

// ServeLatest answers with the latest reading as JSON, or 404 before the first one.
func (h *Hub) ServeLatest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	reading := h.Latest()
	if reading == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "No readings available yet",
		})
		return
	}
	w.Write(reading.ToJsonBytes())
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	if !h.clients[conn] {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	metrics.SetLiveClients(len(h.clients))
}

// Close disconnects every client. Hijacked connections outlive http.Server.Shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
}
