package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validJWTSecret = "test-secret-key-at-least-32-chars!"

func TestLoad_ValidConfig(t *testing.T) {
	content := `
show:
  id: "test-stage"
database:
  path: "/tmp/test.db"
render:
  frame_rate: 30
  pulses_per_beat: 96
playback:
  endpoints: ["10.0.0.5:5005", "10.0.0.6:5005"]
simulator:
  short_payload: partial
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Show.ID != "test-stage" {
		t.Errorf("Show.ID = %q, want %q", cfg.Show.ID, "test-stage")
	}
	if cfg.Render.FrameRate != 30 {
		t.Errorf("Render.FrameRate = %v, want 30", cfg.Render.FrameRate)
	}
	if cfg.Render.PulsesPerBeat != 96 {
		t.Errorf("Render.PulsesPerBeat = %d, want 96", cfg.Render.PulsesPerBeat)
	}
	if len(cfg.Playback.Endpoints) != 2 {
		t.Errorf("len(Playback.Endpoints) = %d, want 2", len(cfg.Playback.Endpoints))
	}
	if cfg.Simulator.ShortPayload != "partial" {
		t.Errorf("Simulator.ShortPayload = %q, want partial", cfg.Simulator.ShortPayload)
	}
	// Untouched sections keep their defaults.
	if cfg.Simulator.BufferSize != 1024 {
		t.Errorf("Simulator.BufferSize = %d, want 1024", cfg.Simulator.BufferSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
show:
  id: ""
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty show.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWT.Secret = validJWTSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}, wantErr: false},
		{name: "missing show ID", mutate: func(c *Config) { c.Show.ID = "" }, wantErr: true},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "invalid port low", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: true},
		{name: "invalid port high", mutate: func(c *Config) { c.API.Port = 70000 }, wantErr: true},
		{name: "missing JWT secret", mutate: func(c *Config) { c.Security.JWT.Secret = "" }, wantErr: true},
		{name: "JWT secret too short", mutate: func(c *Config) { c.Security.JWT.Secret = "short" }, wantErr: true},
		{
			name: "JWT secret not needed without API",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.Security.JWT.Secret = ""
			},
			wantErr: false,
		},
		{name: "zero frame rate", mutate: func(c *Config) { c.Render.FrameRate = 0 }, wantErr: true},
		{name: "zero pulses per beat", mutate: func(c *Config) { c.Render.PulsesPerBeat = 0 }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Render.Workers = 0 }, wantErr: true},
		{name: "endpoint without port", mutate: func(c *Config) { c.Playback.Endpoints = []string{"localhost"} }, wantErr: true},
		{name: "unknown short payload policy", mutate: func(c *Config) { c.Simulator.ShortPayload = "pad" }, wantErr: true},
		{name: "zero buffer size", mutate: func(c *Config) { c.Simulator.BufferSize = 0 }, wantErr: true},
		{name: "zero render rate", mutate: func(c *Config) { c.Simulator.RenderRate = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}
	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}
	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestRenderConfig_FrameInterval(t *testing.T) {
	r := RenderConfig{FrameRate: 40}
	if got := r.FrameInterval(); got != 25*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want 25ms", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("LIGHTSHOW_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LIGHTSHOW_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LIGHTSHOW_MQTT_USERNAME", "testuser")
	t.Setenv("LIGHTSHOW_MQTT_PASSWORD", "testpass")
	t.Setenv("LIGHTSHOW_API_HOST", "192.168.1.1")
	t.Setenv("LIGHTSHOW_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("LIGHTSHOW_JWT_SECRET", "jwt-secret")
	t.Setenv("LIGHTSHOW_RENDER_FRAME_RATE", "25")
	t.Setenv("LIGHTSHOW_PLAYBACK_ENDPOINTS", "10.0.0.1:5005, 10.0.0.2:5005")
	t.Setenv("LIGHTSHOW_SIMULATOR_LISTEN", "0.0.0.0:6000")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "jwt-secret")
	}
	if cfg.Render.FrameRate != 25 {
		t.Errorf("Render.FrameRate = %v, want 25", cfg.Render.FrameRate)
	}
	if len(cfg.Playback.Endpoints) != 2 || cfg.Playback.Endpoints[1] != "10.0.0.2:5005" {
		t.Errorf("Playback.Endpoints = %v, want two trimmed entries", cfg.Playback.Endpoints)
	}
	if cfg.Simulator.Listen != "0.0.0.0:6000" {
		t.Errorf("Simulator.Listen = %q, want %q", cfg.Simulator.Listen, "0.0.0.0:6000")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Show.ID == "" {
		t.Error("defaultConfig should have non-empty Show.ID")
	}
	if cfg.Render.PulsesPerBeat != 24 {
		t.Errorf("defaultConfig Render.PulsesPerBeat = %d, want 24", cfg.Render.PulsesPerBeat)
	}
	if cfg.Simulator.ShortPayload != "reject" {
		t.Errorf("defaultConfig Simulator.ShortPayload = %q, want reject", cfg.Simulator.ShortPayload)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}
