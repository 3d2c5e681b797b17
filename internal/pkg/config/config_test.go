package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TRANSPORTEBA_UPSTREAM_CLIENT_ID", "")
	t.Setenv("TRANSPORTEBA_UPSTREAM_CLIENT_SECRET", "")

	cfg, err := Load("transporteba-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Upstream.MaxRecords != 100 {
		t.Errorf("expected max_records 100, got %d", cfg.Upstream.MaxRecords)
	}
	if cfg.Offline.Storage != "memory" {
		t.Errorf("expected memory storage, got %q", cfg.Offline.Storage)
	}
	if cfg.Geolocation.DefaultLat != -34.6037 || cfg.Geolocation.DefaultLng != -58.3816 {
		t.Errorf("unexpected default coordinate %v,%v", cfg.Geolocation.DefaultLat, cfg.Geolocation.DefaultLng)
	}
	if len(cfg.Realtime.Endpoints) != 3 || cfg.Realtime.Interval != 30 {
		t.Errorf("unexpected realtime defaults %+v", cfg.Realtime)
	}
	if cfg.Telemetry.ServiceName != "transporteba-test" {
		t.Errorf("expected service name from argument, got %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverridesCredentials(t *testing.T) {
	t.Setenv("TRANSPORTEBA_UPSTREAM_CLIENT_ID", "id-from-env")
	t.Setenv("TRANSPORTEBA_UPSTREAM_CLIENT_SECRET", "secret-from-env")

	cfg, err := Load("transporteba-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Upstream.ClientID != "id-from-env" || cfg.Upstream.ClientSecret != "secret-from-env" {
		t.Fatalf("credentials not read from env: %+v", cfg.Upstream)
	}
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: 3000, ReadTimeout: 10, WriteTimeout: 10, StaticDir: "./web"},
		Upstream: UpstreamConfig{BaseURL: "https://apitransporte.buenosaires.gob.ar", Timeout: 15, MaxRecords: 100},
		NATS:     NATSConfig{URL: "nats://localhost:4222"},
		Valkey:   ValkeyConfig{Addr: "localhost:6379"},
		Offline: OfflineConfig{
			Version: "v5", APIBase: "http://localhost:3000", Storage: "memory",
			PrefsPath: "layers.json", LayerDelay: 400, ControlSubj: "offline.control",
		},
		Geolocation: GeolocationConfig{
			IPLookupURL: "https://ipapi.co/json/", Timeout: 10, MaxAge: 60, MaxAccuracyM: 1000,
			DefaultLat: -34.6037, DefaultLng: -58.3816, IPTimeoutSecs: 5,
		},
		Realtime: RealtimeConfig{Endpoints: []string{"colectivos/posiciones"}, Interval: 30, Concurrency: 4},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad base url", func(c *Config) { c.Upstream.BaseURL = "not a url" }, "upstream.base_url"},
		{"layer delay too short", func(c *Config) { c.Offline.LayerDelay = 50 }, "offline.layer_delay_ms"},
		{"unknown storage", func(c *Config) { c.Offline.Storage = "disk" }, "offline.storage"},
		{"latitude out of range", func(c *Config) { c.Geolocation.DefaultLat = -120 }, "geolocation.default_lat"},
		{"half credentials", func(c *Config) { c.Upstream.ClientID = "only-id" }, "must be set together"},
		{"nats enabled without url", func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "" }, "nats.url"},
		{"no realtime endpoints", func(c *Config) { c.Realtime.Endpoints = nil }, "realtime.endpoints"},
		{"poll interval too short", func(c *Config) { c.Realtime.Interval = 1 }, "realtime.interval"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got: %v", tc.want, err)
			}
		})
	}
}
