package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	imErrors "sudooom.im.typing/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
user:
  id: 7
  email: me@example.com
transport:
  kind: http
  http:
    base_url: http://chat.local
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Typing.StartedExpiryPeriod != 15*time.Second {
		t.Errorf("期望 StartedExpiryPeriod = 15s, 实际 = %v", cfg.Typing.StartedExpiryPeriod)
	}
	if cfg.Typing.StartedSendFrequency != 10*time.Second {
		t.Errorf("期望 StartedSendFrequency = 10s, 实际 = %v", cfg.Typing.StartedSendFrequency)
	}
	if cfg.Typing.StoppedWaitPeriod != 5*time.Second {
		t.Errorf("期望 StoppedWaitPeriod = 5s, 实际 = %v", cfg.Typing.StoppedWaitPeriod)
	}
	if cfg.Timer.TickInterval != time.Millisecond {
		t.Errorf("期望 TickInterval = 1ms, 实际 = %v", cfg.Timer.TickInterval)
	}
	if cfg.User.ID != 7 {
		t.Errorf("期望 User.ID = 7, 实际 = %d", cfg.User.ID)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
user:
  id: 7
transport:
  kind: http
  http:
    base_url: http://chat.local
typing:
  stopped_wait_period: 5s
`)
	t.Setenv("TYPING_TYPING_STOPPED_WAIT_PERIOD", "7s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Typing.StoppedWaitPeriod != 7*time.Second {
		t.Errorf("期望环境变量覆盖为 7s, 实际 = %v", cfg.Typing.StoppedWaitPeriod)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !imErrors.Is(err, imErrors.ErrInvalidConfig) {
		t.Errorf("期望 ErrInvalidConfig, 实际 = %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			User:      UserConfig{ID: 1},
			Typing:    TypingConfig{StartedExpiryPeriod: time.Second, StartedSendFrequency: time.Second, StoppedWaitPeriod: time.Second},
			Timer:     TimerConfig{TickInterval: time.Millisecond, SlotCount: 10},
			Transport: TransportConfig{Kind: TransportHTTP, HTTP: HTTPConfig{BaseURL: "http://x"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing user", func(c *Config) { c.User.ID = 0 }, true},
		{"zero wait period", func(c *Config) { c.Typing.StoppedWaitPeriod = 0 }, true},
		{"zero tick", func(c *Config) { c.Timer.TickInterval = 0 }, true},
		{"http without base url", func(c *Config) { c.Transport.HTTP.BaseURL = "" }, true},
		{"nats without url", func(c *Config) { c.Transport.Kind = TransportNATS }, true},
		{"nats with url", func(c *Config) { c.Transport.Kind = TransportNATS; c.NATS.URL = "nats://x" }, false},
		{"unknown transport", func(c *Config) { c.Transport.Kind = "smtp" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !imErrors.Is(err, imErrors.ErrInvalidConfig) {
				t.Errorf("期望 ErrInvalidConfig, 实际 = %v", err)
			}
		})
	}
}
