package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// relayEnvelope wraps every message crossing the relay: a session topic plus
// an opaque payload.
type relayEnvelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// RelayClient is a websocket connection to the wallet-connection relay. It
// publishes signing requests to session topics and feeds responses back into
// the signing channel via the registered handler.
type RelayClient struct {
	conn *websocket.Conn
	log  zerolog.Logger

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handler   func(Response)

	closed    chan struct{}
	closeOnce sync.Once
}

// DialRelay connects to the relay and starts the read loop. Register a
// response handler with OnResponse before the first request goes out.
func DialRelay(ctx context.Context, relayURL string, log zerolog.Logger) (*RelayClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, relayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay: %w", err)
	}

	c := &RelayClient{
		conn:   conn,
		log:    log,
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// OnResponse registers the function the read loop delivers wallet responses
// to, typically Channel.HandleResponse.
func (c *RelayClient) OnResponse(fn func(Response)) {
	c.handlerMu.Lock()
	c.handler = fn
	c.handlerMu.Unlock()
}

// Publish sends one signing request to the given session topic.
func (c *RelayClient) Publish(ctx context.Context, topic string, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode signing request: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	}
	if err := c.conn.WriteJSON(relayEnvelope{Topic: topic, Payload: payload}); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (c *RelayClient) readLoop() {
	for {
		var env relayEnvelope
		if err := c.conn.ReadJSON(&env); err != nil {
			select {
			case <-c.closed:
			default:
				c.log.Warn().Err(err).Msg("relay read loop terminated")
			}
			return
		}

		var resp Response
		if err := json.Unmarshal(env.Payload, &resp); err != nil || resp.ID == 0 {
			c.log.Debug().Str("topic", env.Topic).Msg("ignoring non-response relay message")
			continue
		}

		c.handlerMu.RLock()
		handler := c.handler
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(resp)
		}
	}
}

// Close shuts the relay connection down.
func (c *RelayClient) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}
