package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the lightshow controller
// and the DMX simulator. Both binaries read the same file and use the
// sections that apply to them.
type Config struct {
	Show      ShowConfig      `yaml:"show"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Render    RenderConfig    `yaml:"render"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// ShowConfig identifies the installation (a stage, a venue, a touring rig).
type ShowConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings for the control API.
type SecurityConfig struct {
	JWT      JWTConfig      `yaml:"jwt"`
	Operator OperatorConfig `yaml:"operator"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// OperatorConfig holds the single operator account allowed to compile and
// start playback. PasswordHash is an argon2id PHC string.
type OperatorConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// RenderConfig controls sequence compilation.
type RenderConfig struct {
	// FrameRate is the number of universe snapshots per second.
	FrameRate float64 `yaml:"frame_rate"`

	// PulsesPerBeat is the tick resolution of the "bar.beat.tick" notation.
	PulsesPerBeat int `yaml:"pulses_per_beat"`

	// StageFile is the YAML stage description (fixtures and devices).
	StageFile string `yaml:"stage_file"`

	// SequencesDir holds the manifest and declarative cue files.
	SequencesDir string `yaml:"sequences_dir"`

	// Manifest is the manifest file name inside SequencesDir.
	Manifest string `yaml:"manifest"`

	// OutputDir receives <name>.dmx frame stores and event sidecars.
	OutputDir string `yaml:"output_dir"`

	// Workers bounds the number of sequences compiled in parallel.
	Workers int `yaml:"workers"`
}

// PlaybackConfig controls the real-time player.
type PlaybackConfig struct {
	// Endpoints are "host:port" UDP receivers every frame is sent to.
	Endpoints []string `yaml:"endpoints"`

	// Discovery enables mDNS browsing for simulators on the LAN.
	Discovery bool `yaml:"discovery"`

	// DiscoveryTimeout bounds the browse window in seconds.
	DiscoveryTimeout int `yaml:"discovery_timeout"`
}

// SimulatorConfig controls the receiver/simulator.
type SimulatorConfig struct {
	Listen       string `yaml:"listen"`
	BufferSize   int    `yaml:"buffer_size"`
	ReadTimeout  int    `yaml:"read_timeout"` // milliseconds, 0 blocks forever
	Seed         int64  `yaml:"seed"`
	ShortPayload string `yaml:"short_payload"` // "reject" or "partial"
	RenderRate   int    `yaml:"render_rate"`   // ticks per second
	Advertise    bool   `yaml:"advertise"`
	Console      bool   `yaml:"console"`

	// Managed runs the simulator as a child process of the controller.
	Managed ManagedSimulatorConfig `yaml:"managed"`
}

// ManagedSimulatorConfig configures the supervised simulator process.
type ManagedSimulatorConfig struct {
	Enabled             bool   `yaml:"enabled"`
	Binary              string `yaml:"binary"`
	RestartOnFailure    bool   `yaml:"restart_on_failure"`
	RestartDelaySeconds int    `yaml:"restart_delay_seconds"`
	MaxRestartAttempts  int    `yaml:"max_restart_attempts"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LIGHTSHOW_SECTION_KEY
// For example: LIGHTSHOW_DATABASE_PATH, LIGHTSHOW_RENDER_FRAME_RATE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration. It is what Load starts from
// and is useful for tools that run without a config file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Show: ShowConfig{
			ID:   "stage-001",
			Name: "Lightshow",
		},
		Database: DatabaseConfig{
			Path:        "./data/lightshow.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lightshow",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     500,
			FlushInterval: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
		Render: RenderConfig{
			FrameRate:     40,
			PulsesPerBeat: 24,
			StageFile:     "./configs/stage.yaml",
			SequencesDir:  "./sequences",
			Manifest:      "manifest.yaml",
			OutputDir:     "./data/compiled",
			Workers:       4,
		},
		Playback: PlaybackConfig{
			Endpoints:        []string{"127.0.0.1:5005"},
			DiscoveryTimeout: 2,
		},
		Simulator: SimulatorConfig{
			Listen:       "127.0.0.1:5005",
			BufferSize:   1024,
			Seed:         1,
			ShortPayload: "reject",
			RenderRate:   3,
			Managed: ManagedSimulatorConfig{
				Binary:              "dmxsim",
				RestartOnFailure:    true,
				RestartDelaySeconds: 2,
				MaxRestartAttempts:  5,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LIGHTSHOW_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIGHTSHOW_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("LIGHTSHOW_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LIGHTSHOW_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LIGHTSHOW_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("LIGHTSHOW_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	if v := os.Getenv("LIGHTSHOW_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("LIGHTSHOW_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
	if v := os.Getenv("LIGHTSHOW_OPERATOR_PASSWORD_HASH"); v != "" {
		cfg.Security.Operator.PasswordHash = v
	}

	if v := os.Getenv("LIGHTSHOW_RENDER_FRAME_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Render.FrameRate = f
		}
	}
	if v := os.Getenv("LIGHTSHOW_PLAYBACK_ENDPOINTS"); v != "" {
		cfg.Playback.Endpoints = splitList(v)
	}
	if v := os.Getenv("LIGHTSHOW_SIMULATOR_LISTEN"); v != "" {
		cfg.Simulator.Listen = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Show.ID == "" {
		errs = append(errs, "show.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// The control API can start playback on real fixtures, so a forged
	// token must not be possible.
	const minJWTSecretLength = 32
	if c.API.Enabled {
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set LIGHTSHOW_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
		}
	}

	if c.Render.FrameRate <= 0 {
		errs = append(errs, "render.frame_rate must be positive")
	}
	if c.Render.PulsesPerBeat < 1 {
		errs = append(errs, "render.pulses_per_beat must be at least 1")
	}
	if c.Render.Workers < 1 {
		errs = append(errs, "render.workers must be at least 1")
	}

	for _, ep := range c.Playback.Endpoints {
		if !strings.Contains(ep, ":") {
			errs = append(errs, fmt.Sprintf("playback.endpoints: %q must be host:port", ep))
		}
	}

	if c.Simulator.BufferSize < 1 {
		errs = append(errs, "simulator.buffer_size must be positive")
	}
	switch c.Simulator.ShortPayload {
	case "reject", "partial":
	default:
		errs = append(errs, "simulator.short_payload must be \"reject\" or \"partial\"")
	}
	if c.Simulator.RenderRate < 1 {
		errs = append(errs, "simulator.render_rate must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// FrameInterval returns the nominal time between two frames.
func (r RenderConfig) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / r.FrameRate)
}

// ReadTimeoutDuration returns the simulator read deadline, zero meaning none.
func (s SimulatorConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Millisecond
}
