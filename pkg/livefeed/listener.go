package livefeed

import (
	"context"
	"net/url"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/types"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	maxRetries    = 10
	maxRetryDelay = 60 * time.Second
	// Meters send a telegram every second
	readTimeout  = 10 * time.Second
	pingInterval = 30 * time.Second
)

var baseRetryDelay = 2 * time.Second

// Listen subscribes to the /ws feed of another collector at host (host:port) and calls
// handleReading for each reading. It reconnects with exponential backoff and returns nil
// once ctx is cancelled, or an error after maxRetries failed connection attempts in a row.
func Listen(ctx context.Context, host string, handleReading func(reading *types.MeterReading), logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("livefeed")

	// WebSocket server URL
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}

	retryCount := 0
	var lastErr error
	for {
		if retryCount > 0 {
			// Calculate retry delay with exponential backoff
			retryDelay := time.Duration(1<<retryCount) * baseRetryDelay
			if retryDelay > maxRetryDelay {
				retryDelay = maxRetryDelay
			}
			logger.Info("retrying connection",
				zap.Duration("delay", retryDelay),
				zap.Int("attempt", retryCount+1),
				zap.Int("max", maxRetries))
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil
			}
		}

		logger.Info("connecting", zap.String("url", u.String()))
		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("connection failed", zap.Error(err))
			lastErr = err
			retryCount++
			if retryCount >= maxRetries {
				return errors.Wrapf(lastErr, "livefeed: giving up after %d attempts", maxRetries)
			}
			continue
		}

		logger.Info("connected, accepting meter readings")
		retryCount = 0

		broken := handleConnection(ctx, c, handleReading, logger)
		c.Close()
		if !broken {
			return nil
		}
		logger.Info("connection lost, will retry")
	}
}

// handleConnection reads readings until the connection breaks (true) or ctx is cancelled (false).
func handleConnection(ctx context.Context, c *websocket.Conn, handleReading func(reading *types.MeterReading), logger *zap.Logger) bool {
	done := make(chan struct{})

	// Set read deadline to detect dead connections
	c.SetReadDeadline(time.Now().Add(readTimeout))

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("websocket error", zap.Error(err))
				} else {
					logger.Debug("connection closed", zap.Error(err))
				}
				return
			}
			c.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				logger.Debug("unexpected message type", zap.Int("type", messageType))
				continue
			}
			if reading := types.MeterReadingFromJsonBytes(message); reading != nil {
				handleReading(reading)
			} else {
				logger.Warn("failed to parse meter reading", zap.ByteString("message", message))
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				logger.Warn("failed to send ping", zap.Error(err))
			}
		case <-ctx.Done():
			err := c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			if err != nil {
				logger.Debug("error sending close message", zap.Error(err))
			}
			// Wait for close confirmation or timeout
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
