package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/lightshow-core/internal/infrastructure/config"
)

// Logger is the subset of logging.Logger used by the client.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MessageHandler receives one message. Handlers run on paho's goroutines
// and should return quickly; a returned error is logged.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is a broker connection shared by the controller and the simulator.
// Each client announces itself as online on connect and offline on Close;
// the broker publishes the will if the process dies instead.
//
// All methods are safe for concurrent use. Subscriptions survive
// reconnects.
type Client struct {
	conn      pahomqtt.Client
	cfg       config.MQTTConfig
	connected atomic.Bool

	mu     sync.RWMutex
	subs   map[string]subscription
	logger Logger
}

// Connect dials the broker and waits for the first CONNACK.
//
// Parameters:
//   - cfg: Broker address, credentials, QoS and reconnect settings
//
// Returns:
//   - *Client: Connected client
//   - error: Wrapping ErrConnectionFailed on timeout or refusal
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg, subs: make(map[string]subscription)}

	opts := buildClientOptions(cfg)
	setWill(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.onConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.connected.Store(false)
		c.warn("MQTT connection lost", "client_id", cfg.Broker.ClientID, "error", err)
	})
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.warn("MQTT reconnecting", "client_id", cfg.Broker.ClientID)
	})

	c.conn = pahomqtt.NewClient(opts)
	token := c.conn.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; report connected now.
	c.connected.Store(true)
	return c, nil
}

// onConnect restores subscriptions and announces presence after every
// (re)connect.
func (c *Client) onConnect() {
	c.connected.Store(true)

	c.mu.RLock()
	for topic, sub := range c.subs {
		c.conn.Subscribe(topic, sub.qos, c.dispatch(sub.handler))
	}
	c.mu.RUnlock()

	c.conn.Publish(Topics{}.ClientStatus(c.cfg.Broker.ClientID), byte(c.cfg.QoS), true,
		presencePayload(c.cfg.Broker.ClientID, presenceOnline, ""))
}

// Close announces a graceful shutdown and disconnects.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.conn.Publish(Topics{}.ClientStatus(c.cfg.Broker.ClientID), byte(c.cfg.QoS), true,
			presencePayload(c.cfg.Broker.ClientID, presenceOffline, "graceful_shutdown"))
		token.WaitTimeout(publishTimeout)
	}
	c.conn.Disconnect(disconnectQuiesceMillis)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.connected.Load() && c.conn.IsConnected()
}

// SetLogger sets the logger for connection and handler problems.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) warn(msg string, args ...any) {
	c.mu.RLock()
	logger := c.logger
	c.mu.RUnlock()
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// dispatch adapts a MessageHandler to paho, logging errors and panics.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.warn("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.warn("MQTT handler failed", "topic", msg.Topic(), "error", err)
		}
	}
}
