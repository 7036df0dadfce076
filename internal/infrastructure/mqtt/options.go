package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/lightshow-core/internal/infrastructure/config"
)

const (
	connectTimeout          = 10 * time.Second
	publishTimeout          = 5 * time.Second
	disconnectQuiesceMillis = 1000
	keepAlive               = 60 * time.Second
	maxQoS                  = 2
)

// Presence states published on the client status topic.
const (
	presenceOnline  = "online"
	presenceOffline = "offline"
)

// Presence is the retained payload of lightshow/system/{client_id}/status.
type Presence struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

// buildClientOptions maps the mqtt config section onto paho options.
// Sessions are clean; reconnects back off from InitialDelay to MaxDelay.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// setWill registers the retained offline notice the broker publishes when
// the client vanishes without a clean disconnect.
func setWill(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetBinaryWill(Topics{}.ClientStatus(clientID),
		presencePayload(clientID, presenceOffline, "unexpected_disconnect"), 1, true)
}

func presencePayload(clientID, status, reason string) []byte {
	data, _ := json.Marshal(Presence{ //nolint:errcheck // plain strings always marshal
		Status:    status,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return data
}
