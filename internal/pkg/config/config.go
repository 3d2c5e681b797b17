package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Upstream    UpstreamConfig    `mapstructure:"upstream"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Offline     OfflineConfig     `mapstructure:"offline"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Realtime    RealtimeConfig    `mapstructure:"realtime"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  int    `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout int    `mapstructure:"write_timeout" validate:"gt=0"`
	StaticDir    string `mapstructure:"static_dir" validate:"required"`
	// RateLimit is requests per minute per IP; 0 disables limiting.
	RateLimit    int    `mapstructure:"rate_limit" validate:"gte=0"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

// UpstreamConfig describes the government transit API. Credentials must come
// from the environment or a local config file.
type UpstreamConfig struct {
	BaseURL      string `mapstructure:"base_url" validate:"required,url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Timeout      int    `mapstructure:"timeout" validate:"gt=0"` // seconds
	MaxRecords   int    `mapstructure:"max_records" validate:"gt=0,lte=5000"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url" validate:"required_if=Enabled true"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// OfflineConfig drives the client-side offline worker.
type OfflineConfig struct {
	Version     string `mapstructure:"version" validate:"required"`
	APIBase     string `mapstructure:"api_base" validate:"required,url"`
	Storage     string `mapstructure:"storage" validate:"oneof=memory valkey"`
	PrefsPath   string `mapstructure:"prefs_path" validate:"required"`
	LayerDelay  int    `mapstructure:"layer_delay_ms" validate:"gte=300,lte=500"`
	ControlSubj string `mapstructure:"control_subject" validate:"required"`
}

// GeolocationConfig drives the client position fallback chain.
type GeolocationConfig struct {
	IPLookupURL   string  `mapstructure:"ip_lookup_url" validate:"required,url"`
	Timeout       int     `mapstructure:"timeout" validate:"gte=10,lte=15"` // seconds
	MaxAge        int     `mapstructure:"max_age" validate:"gte=0"`         // seconds
	MaxAccuracyM  float64 `mapstructure:"max_accuracy_m" validate:"gt=0"`
	DefaultLat    float64 `mapstructure:"default_lat" validate:"latitude"`
	DefaultLng    float64 `mapstructure:"default_lng" validate:"longitude"`
	IPTimeoutSecs int     `mapstructure:"ip_timeout" validate:"gt=0"`
}

// RealtimeConfig drives the snapshot poller.
type RealtimeConfig struct {
	Endpoints   []string `mapstructure:"endpoints" validate:"min=1,dive,required"`
	Interval    int      `mapstructure:"interval" validate:"gte=10"` // seconds
	Concurrency int      `mapstructure:"concurrency" validate:"gte=1,lte=8"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// UpstreamTimeout returns the upstream timeout as a duration.
func (u UpstreamConfig) UpstreamTimeout() time.Duration {
	return time.Duration(u.Timeout) * time.Second
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.static_dir", "./web")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.allow_origins", "*")
	v.SetDefault("upstream.base_url", "https://apitransporte.buenosaires.gob.ar")
	v.SetDefault("upstream.client_id", "")
	v.SetDefault("upstream.client_secret", "")
	v.SetDefault("upstream.timeout", 15)
	v.SetDefault("upstream.max_records", 100)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("offline.version", "v5")
	v.SetDefault("offline.api_base", "http://localhost:3000")
	v.SetDefault("offline.storage", "memory")
	v.SetDefault("offline.prefs_path", "transporteba-layers.json")
	v.SetDefault("offline.layer_delay_ms", 400)
	v.SetDefault("offline.control_subject", "offline.control")
	v.SetDefault("geolocation.ip_lookup_url", "https://ipapi.co/json/")
	v.SetDefault("geolocation.timeout", 10)
	v.SetDefault("geolocation.max_age", 60)
	v.SetDefault("geolocation.max_accuracy_m", 1000)
	v.SetDefault("geolocation.default_lat", -34.6037)
	v.SetDefault("geolocation.default_lng", -58.3816)
	v.SetDefault("geolocation.ip_timeout", 5)
	v.SetDefault("realtime.endpoints", []string{"colectivos/posiciones", "subtes/estado", "trenes/estado"})
	v.SetDefault("realtime.interval", 30)
	v.SetDefault("realtime.concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TRANSPORTEBA_UPSTREAM_CLIENT_ID → upstream.client_id
	v.SetEnvPrefix("TRANSPORTEBA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, describe(fe))
		}
	}

	if (c.Upstream.ClientID == "") != (c.Upstream.ClientSecret == "") {
		errs = append(errs, "upstream.client_id and upstream.client_secret must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// newValidator reports fields by their config key rather than the Go name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describe turns a validator error into "server.port failed min=1 (got 0)".
func describe(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return fmt.Sprintf("%s failed %s (got %v)", ns, rule, fe.Value())
}
