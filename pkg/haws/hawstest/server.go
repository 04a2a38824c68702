// Package hawstest runs an in-process Home Assistant WebSocket endpoint that
// implements the recorder statistics commands used by haws.
package hawstest

import (
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/config"
	"github.com/gorilla/websocket"
)

// Point is a stored statistic row.
type Point struct {
	Start time.Time
	State float64
	Sum   float64
}

// Metadata is what the last import declared for a statistic.
type Metadata struct {
	Name      string
	Unit      string
	UnitClass *string
	Source    string
}

type Server struct {
	*httptest.Server
	token string

	mu       sync.Mutex
	points   map[string][]Point
	metadata map[string]Metadata
	commands []string
	failing  map[string]bool
}

// NewServer starts a server that accepts token. Close it when done.
func NewServer(token string) *Server {
	s := &Server{
		token:    token,
		points:   make(map[string][]Point),
		metadata: make(map[string]Metadata),
		failing:  make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveWS))
	return s
}

// Config points a client at this server.
func (s *Server) Config(token string) config.HomeAssistantConfig {
	host, port, _ := net.SplitHostPort(s.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return config.HomeAssistantConfig{
		Host:     host,
		Port:     p,
		Endpoint: "/api/websocket",
		Token:    token,
	}
}

// Seed replaces the stored rows of a statistic.
func (s *Server) Seed(statisticID string, points ...Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points[statisticID] = append([]Point(nil), points...)
}

func (s *Server) Points(statisticID string) []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Point(nil), s.points[statisticID]...)
}

func (s *Server) Metadata(statisticID string) (Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metadata[statisticID]
	return m, ok
}

// Commands lists the command types received, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Fail makes every request of the given command type return an error result.
func (s *Server) Fail(command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[command] = true
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "auth_required", "ha_version": "2024.6.0"}); err != nil {
		return
	}
	var auth map[string]any
	if err := conn.ReadJSON(&auth); err != nil {
		return
	}
	if auth["type"] != "auth" || auth["access_token"] != s.token {
		conn.WriteJSON(map[string]string{"type": "auth_invalid", "message": "Invalid access token or password"})
		return
	}
	if err := conn.WriteJSON(map[string]string{"type": "auth_ok", "ha_version": "2024.6.0"}); err != nil {
		return
	}

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if err := conn.WriteJSON(s.handle(msg)); err != nil {
			return
		}
	}
}

func (s *Server) handle(msg map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	command, _ := msg["type"].(string)
	s.commands = append(s.commands, command)
	result := map[string]any{"id": msg["id"], "type": "result", "success": true, "result": nil}
	fail := func(code, message string) map[string]any {
		result["success"] = false
		result["error"] = map[string]string{"code": code, "message": message}
		return result
	}
	if s.failing[command] {
		return fail("home_assistant_error", "forced failure")
	}

	switch command {
	case "recorder/list_statistic_ids":
		ids := make([]string, 0, len(s.points))
		for id := range s.points {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		list := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			list = append(list, map[string]any{"statistic_id": id, "has_sum": true})
		}
		result["result"] = list

	case "recorder/statistics_during_period":
		start, err1 := time.Parse(time.RFC3339, stringOf(msg["start_time"]))
		end, err2 := time.Parse(time.RFC3339, stringOf(msg["end_time"]))
		if err1 != nil || err2 != nil {
			return fail("invalid_format", "bad period")
		}
		out := make(map[string]any)
		ids, _ := msg["statistic_ids"].([]any)
		for _, raw := range ids {
			id := stringOf(raw)
			var rows []map[string]any
			for _, p := range s.points[id] {
				if p.Start.Before(start) || !p.Start.Before(end) {
					continue
				}
				rows = append(rows, map[string]any{
					"start": float64(p.Start.UnixMilli()),
					"end":   float64(p.Start.Add(24 * time.Hour).UnixMilli()),
					"state": p.State,
					"sum":   p.Sum,
				})
			}
			if len(rows) > 0 {
				out[id] = rows
			}
		}
		result["result"] = out

	case "recorder/import_statistics":
		meta, _ := msg["metadata"].(map[string]any)
		id := stringOf(meta["statistic_id"])
		var unitClass *string
		if uc, ok := meta["unit_class"].(string); ok {
			unitClass = &uc
		}
		s.metadata[id] = Metadata{
			Name:      stringOf(meta["name"]),
			Unit:      stringOf(meta["unit_of_measurement"]),
			UnitClass: unitClass,
			Source:    stringOf(meta["source"]),
		}
		stats, _ := msg["stats"].([]any)
		for _, raw := range stats {
			row, _ := raw.(map[string]any)
			start, err := time.Parse(time.RFC3339Nano, stringOf(row["start"]))
			if err != nil {
				return fail("invalid_format", "bad start")
			}
			s.upsert(id, Point{Start: start, State: floatOf(row["state"]), Sum: floatOf(row["sum"])})
		}

	case "recorder/clear_statistics":
		ids, _ := msg["statistic_ids"].([]any)
		for _, raw := range ids {
			delete(s.points, stringOf(raw))
			delete(s.metadata, stringOf(raw))
		}

	default:
		return fail("unknown_command", "Unknown command.")
	}
	return result
}

// Imports overwrite rows with the same start, like the recorder does.
func (s *Server) upsert(id string, p Point) {
	rows := s.points[id]
	for i := range rows {
		if rows[i].Start.Equal(p.Start) {
			rows[i] = p
			return
		}
	}
	rows = append(rows, p)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Start.Before(rows[j].Start) })
	s.points[id] = rows
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func floatOf(v any) float64 {
	f, _ := v.(float64)
	return f
}
