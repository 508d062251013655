package stream

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sentiment-observer/src/helpers"
	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1024 * 1024 // 1MB
	eventQueueSize = 256
)

// -----------------------------------------------------------------------------
// StreamClient
// -----------------------------------------------------------------------------

// StreamClient maintains exactly one push connection filtered to the active
// (subjects, resolution). Subscribe closes the old connection before the new
// dial; a generation counter keeps a superseded pump from emitting events or
// reconnecting after a switch.
type StreamClient struct {
	Config *models.MConfig
	Logger *logger.Logger
	Dialer *websocket.Dialer

	events chan models.MStreamEvent

	mu         sync.Mutex
	conn       *websocket.Conn
	generation int64
	closed     bool
}

// -----------------------------------------------------------------------------

// wireMessage is the upstream payload shape.
type wireMessage struct {
	Type              string         `json:"type"`
	Bucket            models.MBucket `json:"bucket"`
	OriginTimestampMs int64          `json:"origin_timestamp_ms"`
}

// -----------------------------------------------------------------------------

func NewStreamClient(cfg *models.MConfig, log *logger.Logger) *StreamClient {
	return &StreamClient{
		Config: cfg,
		Logger: log,
		Dialer: websocket.DefaultDialer,
		events: make(chan models.MStreamEvent, eventQueueSize),
	}
}

// -----------------------------------------------------------------------------

// Events is the single channel all stream events arrive on.
func (c *StreamClient) Events() <-chan models.MStreamEvent {
	return c.events
}

// -----------------------------------------------------------------------------

// Subscribe replaces the active subscription. The old connection is closed
// synchronously before the new one opens so stale-filter events cannot
// arrive after a switch.
func (c *StreamClient) Subscribe(subjects []string, resolution string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("stream client is closed")
	}

	c.generation++
	gen := c.generation

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := c.dialAndSubscribe(subjects, resolution)
	if err != nil {
		c.mu.Unlock()
		// First dial failed; keep trying in the background.
		c.Logger.Warning("Stream dial failed, reconnecting in background: %v", err)
		go c.reconnect(gen, subjects, resolution)
		return nil
	}

	c.conn = conn
	c.mu.Unlock()

	go c.readPump(conn, gen, subjects, resolution)
	return nil
}

// -----------------------------------------------------------------------------

func (c *StreamClient) dialAndSubscribe(subjects []string, resolution string) (*websocket.Conn, error) {
	conn, _, err := c.Dialer.Dial(c.Config.Stream.URL, nil)
	if err != nil {
		return nil, err
	}

	cmd := models.MSubscribeCommand{
		Command:    "subscribe",
		Subjects:   subjects,
		Resolution: resolution,
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(cmd); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// -----------------------------------------------------------------------------

// readPump consumes messages until the connection dies or is superseded.
func (c *StreamClient) readPump(conn *websocket.Conn, gen int64, subjects []string, resolution string) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !c.isCurrent(gen) {
				// Superseded by a newer subscription; nothing to do.
				return
			}
			c.emit(gen, models.MStreamEvent{
				Type: models.StreamEventError,
				Err:  helpers.NewStreamError("push connection lost", err),
			})
			go c.reconnect(gen, subjects, resolution)
			return
		}

		conn.SetReadDeadline(time.Now().Add(pongWait))

		var wire wireMessage
		if err := json.Unmarshal(message, &wire); err != nil {
			c.Logger.Warning("Unparseable stream message: %v", err)
			continue
		}

		event := models.MStreamEvent{
			Bucket:            wire.Bucket,
			OriginTimestampMs: wire.OriginTimestampMs,
			ReceivedAtMs:      time.Now().UnixMilli(),
		}

		switch wire.Type {
		case string(models.StreamEventPartial):
			event.Type = models.StreamEventPartial
		case string(models.StreamEventFinal):
			event.Type = models.StreamEventFinal
		default:
			c.Logger.Debug("Ignoring stream message type %q", wire.Type)
			continue
		}

		c.emit(gen, event)
	}
}

// -----------------------------------------------------------------------------

// reconnect re-dials with capped exponential backoff. Bounded by
// max_reconnect_attempts (0 = unlimited); gives up silently once the
// subscription has been superseded or the client closed.
func (c *StreamClient) reconnect(gen int64, subjects []string, resolution string) {
	base := time.Duration(c.Config.Stream.ReconnectBaseDelayMs) * time.Millisecond
	max := time.Duration(c.Config.Stream.ReconnectMaxDelayMs) * time.Millisecond
	maxAttempts := c.Config.Stream.MaxReconnectAttempts

	for attempt := 0; ; attempt++ {
		if maxAttempts > 0 && attempt >= maxAttempts {
			c.emit(gen, models.MStreamEvent{
				Type: models.StreamEventError,
				Err:  helpers.NewStreamError(fmt.Sprintf("gave up reconnecting after %d attempts", maxAttempts), nil),
			})
			return
		}

		time.Sleep(helpers.Backoff(attempt, base, max))

		c.mu.Lock()
		if c.closed || c.generation != gen {
			c.mu.Unlock()
			return
		}

		conn, err := c.dialAndSubscribe(subjects, resolution)
		if err != nil {
			c.mu.Unlock()
			c.Logger.Warning("Stream reconnect attempt %d failed: %v", attempt+1, err)
			continue
		}

		c.conn = conn
		c.mu.Unlock()

		c.Logger.Info("Stream reconnected after %d attempt(s)", attempt+1)
		go c.readPump(conn, gen, subjects, resolution)
		return
	}
}

// -----------------------------------------------------------------------------

func (c *StreamClient) isCurrent(gen int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.generation == gen
}

// -----------------------------------------------------------------------------

// emit delivers an event unless the subscription was superseded. Delivery is
// non-blocking: if the consumer stalls and the queue fills, events are
// dropped rather than wedging the pump.
func (c *StreamClient) emit(gen int64, event models.MStreamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.generation != gen {
		return
	}

	select {
	case c.events <- event:
	default:
		c.Logger.Warning("Stream event queue full, dropping %s event", event.Type)
	}
}

// -----------------------------------------------------------------------------

// Close tears the subscription down and closes the events channel.
func (c *StreamClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.generation++

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	close(c.events)
	return nil
}
