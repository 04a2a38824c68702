package haws

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/config"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Connection retry policy
var (
	maxRetries     = 5
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second
)

const defaultTimeout = 30 * time.Second

// New prepares a client for the configured instance. Call Connect before any request.
func New(cfg config.HomeAssistantConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	scheme := "ws"
	if cfg.TLS {
		scheme = "wss"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/api/websocket"
	}
	u := url.URL{Scheme: scheme, Host: cfg.Host + ":" + strconv.Itoa(cfg.Port), Path: endpoint}
	return &Client{
		url:     u.String(),
		token:   cfg.Token,
		timeout: defaultTimeout,
		logger:  logger.Named("haws"),
	}
}

// Connect dials and authenticates, retrying transport failures with exponential backoff.
// Rejected credentials are not retried.
func (c *Client) Connect(ctx context.Context) error {
	retryCount := 0
	for {
		if retryCount > 0 {
			// Calculate retry delay with exponential backoff
			retryDelay := time.Duration(1<<retryCount) * baseRetryDelay
			if retryDelay > maxRetryDelay {
				retryDelay = maxRetryDelay
			}
			c.logger.Info("retrying connection",
				zap.Duration("delay", retryDelay),
				zap.Int("attempt", retryCount+1),
				zap.Int("max", maxRetries))
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		c.logger.Debug("connecting", zap.String("url", c.url))
		retry, err := c.dial(ctx)
		if err == nil {
			c.logger.Debug("connected to Home Assistant")
			return nil
		}
		if !retry {
			return err
		}
		c.logger.Warn("connection failed", zap.Error(err))
		retryCount++
		if retryCount >= maxRetries {
			return errors.Wrapf(err, "giving up after %d attempts", maxRetries)
		}
	}
}

func (c *Client) dial(ctx context.Context) (bool, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	header := http.Header{"Authorization": {"Bearer " + c.token}}
	conn, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return true, err
	}

	conn.SetReadDeadline(c.deadline(ctx))
	conn.SetWriteDeadline(c.deadline(ctx))

	// The server opens with auth_required
	var hello response
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return true, err
	}
	if hello.Type != "auth_required" {
		conn.Close()
		return false, errors.Wrapf(ErrHomeAssistant, "expected auth_required, got %q", hello.Type)
	}

	if err := conn.WriteJSON(map[string]string{"type": "auth", "access_token": c.token}); err != nil {
		conn.Close()
		return true, err
	}

	var auth response
	if err := conn.ReadJSON(&auth); err != nil {
		conn.Close()
		return true, err
	}
	if auth.Type != "auth_ok" {
		conn.Close()
		return false, errors.Wrapf(ErrHomeAssistant, "authentication failed: %s %s", auth.Type, auth.Message)
	}

	c.mu.Lock()
	c.conn = conn
	c.messageID = 1
	c.mu.Unlock()
	return false, nil
}

// Close ends the session. Safe to call when not connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	c.logger.Debug("disconnected from Home Assistant")
	return err
}

func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(d) {
		return dl
	}
	return d
}

// SendMessage stamps msg with the next request id and returns the result payload.
func (c *Client) SendMessage(ctx context.Context, msg map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, errors.Wrap(ErrHomeAssistant, "not connected")
	}

	id := c.messageID
	c.messageID++
	msg["id"] = id

	c.conn.SetWriteDeadline(c.deadline(ctx))
	if err := c.conn.WriteJSON(msg); err != nil {
		return nil, errors.Wrapf(err, "sending %v", msg["type"])
	}

	c.conn.SetReadDeadline(c.deadline(ctx))
	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			return nil, errors.Wrapf(err, "reading response to %v", msg["type"])
		}
		// Skip anything that doesn't answer this request
		if resp.ID != id {
			continue
		}
		if resp.Type != "result" {
			return nil, errors.Wrapf(ErrHomeAssistant, "invalid response type %q", resp.Type)
		}
		if !resp.Success {
			if resp.Error != nil {
				return nil, errors.Wrapf(ErrHomeAssistant, "%v failed: %s: %s", msg["type"], resp.Error.Code, resp.Error.Message)
			}
			return nil, errors.Wrapf(ErrHomeAssistant, "%v failed", msg["type"])
		}
		return resp.Result, nil
	}
}

// ListStatisticIDs returns the recorder statistic ids, optionally filtered by type ("sum" or "mean").
func (c *Client) ListStatisticIDs(ctx context.Context, statisticType string) ([]string, error) {
	msg := map[string]any{"type": "recorder/list_statistic_ids"}
	if statisticType != "" {
		msg["statistic_type"] = statisticType
	}

	result, err := c.SendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	items, ok := result.([]any)
	if !ok {
		return nil, errors.Wrapf(ErrHomeAssistant, "list_statistic_ids: got %T instead of a list", result)
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, cast.ToString(cast.ToStringMap(item)["statistic_id"]))
	}
	c.logger.Debug("listed statistic ids", zap.Int("count", len(ids)))
	return ids, nil
}

func (c *Client) ExistsStatisticID(ctx context.Context, statisticID, statisticType string) (bool, error) {
	ids, err := c.ListStatisticIDs(ctx, statisticType)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == statisticID {
			return true, nil
		}
	}
	return false, nil
}

// StatisticsDuringPeriod returns daily points per statistic id. Ids without data are absent.
func (c *Client) StatisticsDuringPeriod(ctx context.Context, statisticIDs []string, start, end time.Time) (map[string][]StatisticPoint, error) {
	result, err := c.SendMessage(ctx, map[string]any{
		"type":          "recorder/statistics_during_period",
		"start_time":    start.Format(time.RFC3339),
		"end_time":      end.Format(time.RFC3339),
		"statistic_ids": statisticIDs,
		"period":        "day",
	})
	if err != nil {
		return nil, err
	}
	raw, ok := result.(map[string]any)
	if !ok {
		return nil, errors.Wrapf(ErrHomeAssistant, "statistics_during_period: got %T instead of an object", result)
	}

	out := make(map[string][]StatisticPoint, len(raw))
	for id, rows := range raw {
		items, ok := rows.([]any)
		if !ok {
			return nil, errors.Wrapf(ErrHomeAssistant, "statistics for %s: got %T instead of a list", id, rows)
		}
		points := make([]StatisticPoint, 0, len(items))
		for _, item := range items {
			row := cast.ToStringMap(item)
			startAt, err := parseStart(row["start"])
			if err != nil {
				return nil, errors.Wrapf(err, "statistics for %s", id)
			}
			points = append(points, StatisticPoint{
				Start: startAt,
				Sum:   cast.ToFloat64(row["sum"]),
				State: cast.ToFloat64(row["state"]),
			})
		}
		out[id] = points
	}
	return out, nil
}

// Recent recorders send epoch milliseconds, older ones ISO strings.
func parseStart(v any) (time.Time, error) {
	if ms, err := cast.ToFloat64E(v); err == nil {
		return time.UnixMilli(int64(ms)), nil
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrHomeAssistant, "unreadable start %v", v)
	}
	return t, nil
}

// LastStatistic returns the latest point of statisticID within depthDays before asOf.
func (c *Client) LastStatistic(ctx context.Context, statisticID string, asOf time.Time, depthDays int) (StatisticPoint, bool, error) {
	stats, err := c.StatisticsDuringPeriod(ctx, []string{statisticID}, asOf.AddDate(0, 0, -depthDays), asOf)
	if err != nil {
		return StatisticPoint{}, false, err
	}
	points := stats[statisticID]
	if len(points) == 0 {
		c.logger.Warn("no statistics found", zap.String("statistic_id", statisticID))
		return StatisticPoint{}, false, nil
	}
	return points[len(points)-1], true, nil
}

// ImportStatistics writes cumulative points for statisticID. Nothing is sent for an empty slice.
func (c *Client) ImportStatistics(ctx context.Context, statisticID, source, name string, unitClass *string, unit string, stats []Statistic) error {
	if len(stats) == 0 {
		c.logger.Debug("no statistics to import", zap.String("statistic_id", statisticID))
		return nil
	}

	_, err := c.SendMessage(ctx, map[string]any{
		"type": "recorder/import_statistics",
		"metadata": statisticMetadata{
			HasMean:           false,
			HasSum:            true,
			StatisticID:       statisticID,
			Source:            source,
			Name:              name,
			UnitClass:         unitClass,
			UnitOfMeasurement: unit,
		},
		"stats": stats,
	})
	if err != nil {
		return err
	}
	c.logger.Debug("imported statistics", zap.String("statistic_id", statisticID), zap.Int("count", len(stats)))
	return nil
}

func (c *Client) ClearStatistics(ctx context.Context, statisticIDs []string) error {
	_, err := c.SendMessage(ctx, map[string]any{
		"type":          "recorder/clear_statistics",
		"statistic_ids": statisticIDs,
	})
	return err
}

// MigrateStatistic copies the history of oldID into newID when only oldID exists.
// When both exist nothing is touched. Returns false if the migration failed; the
// old statistic is left in place either way.
func (c *Client) MigrateStatistic(ctx context.Context, oldID, newID, newName, unit string) bool {
	logger := c.logger.With(zap.String("from", oldID), zap.String("to", newID))

	if err := c.migrateStatistic(ctx, oldID, newID, newName, unit, logger); err != nil {
		logger.Warn("statistic migration failed, keeping old sensor", zap.Error(err))
		return false
	}
	return true
}

func (c *Client) migrateStatistic(ctx context.Context, oldID, newID, newName, unit string, logger *zap.Logger) error {
	ids, err := c.ListStatisticIDs(ctx, "sum")
	if err != nil {
		return err
	}
	var oldExists, newExists bool
	for _, id := range ids {
		oldExists = oldExists || id == oldID
		newExists = newExists || id == newID
	}

	if !oldExists {
		logger.Debug("no old sensor, nothing to migrate")
		return nil
	}
	if newExists {
		logger.Warn("both sensors exist, skipping migration")
		return nil
	}

	logger.Info("migrating statistics")
	history, err := c.StatisticsDuringPeriod(ctx, []string{oldID}, time.Unix(0, 0).UTC(), time.Now())
	if err != nil {
		return err
	}
	points := history[oldID]
	if len(points) == 0 {
		logger.Info("old sensor has no history")
		return nil
	}

	stats := make([]Statistic, len(points))
	for i, p := range points {
		stats[i] = Statistic{Start: p.Start, State: p.State, Sum: p.Sum}
	}
	if err := c.ImportStatistics(ctx, newID, "recorder", newName, nil, unit, stats); err != nil {
		return err
	}
	logger.Info("migrated statistics", zap.Int("count", len(stats)))
	return nil
}
