package fanout

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gorilla/websocket"

	"github.com/charleschow/ns-market/internal/events"
	"github.com/charleschow/ns-market/internal/telemetry"
)

const (
	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
)

// Recorder receives every raw frame before it is decoded.
// Satisfied by *journal.Store.
type Recorder interface {
	Record(action string, raw []byte)
}

// Client connects to the host's push socket and republishes received
// frames onto the local in-process bus.
type Client struct {
	url      string
	bus      *events.Bus
	recorder Recorder
}

// NewClient builds a client for url (e.g. ws://localhost:9300/ws).
// recorder may be nil.
func NewClient(url string, bus *events.Bus, recorder Recorder) *Client {
	return &Client{
		url:      url,
		bus:      bus,
		recorder: recorder,
	}
}

// ConnectWithRetry connects to the host and reconnects on failure
// with exponential backoff. Blocks until ctx is cancelled.
func (c *Client) ConnectWithRetry(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		connStart := time.Now()
		err := c.connect(ctx)
		if ctx.Err() != nil {
			return
		}

		if time.Since(connStart) > time.Minute {
			attempt = 0
		}

		attempt++
		backoff := time.Duration(float64(minBackoff) * math.Pow(2, float64(min(attempt-1, 5))))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		if err != nil {
			telemetry.Warnf("fanout: connection lost (attempt %d): %v, retrying in %s", attempt, err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	telemetry.Infof("fanout: connected to %s", c.url)
	c.setConnected(true)
	defer c.setConnected(false)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		c.handleFrame(msg)
	}
}

func (c *Client) handleFrame(msg []byte) {
	telemetry.Metrics.FramesReceived.Inc()

	if c.recorder != nil {
		action, _ := Action(msg)
		c.recorder.Record(action, msg)
	}

	evt, err := UnmarshalEvent(msg)
	if err != nil {
		telemetry.Metrics.FrameParseErrors.Inc()
		telemetry.Warnf("fanout: unmarshal error: %v", err)
		return
	}

	c.bus.Publish(evt)
}

func (c *Client) setConnected(up bool) {
	if up {
		telemetry.Metrics.HostConnected.Set(1)
	} else {
		telemetry.Metrics.HostConnected.Set(0)
	}
	c.bus.Publish(events.New(events.EventHostStatus, events.HostStatusEvent{Connected: up}))
}
