package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StorageBackendMemory   = "memory"
	StorageBackendPostgres = "postgres"
)

// EnvSpec is the environment configuration needed for the API to start.
type EnvSpec struct {
	Port     int    `envconfig:"port" default:"8080"`
	LogLevel string `envconfig:"log_level" default:"info"`

	StorageBackend string `envconfig:"storage_backend" default:"memory"`

	DSN               string        `envconfig:"dsn"`
	DBMaxConns        int32         `envconfig:"db_max_conns" default:"25"`
	DBMinConns        int32         `envconfig:"db_min_conns" default:"2"`
	DBMaxConnLifetime time.Duration `envconfig:"db_max_conn_lifetime" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"db_max_conn_idle_time" default:"30m"`

	CookieName   string        `envconfig:"cookie_name" default:"triplink_token"`
	CookieSecure bool          `envconfig:"cookie_secure" default:"false"`
	CookieMaxAge time.Duration `envconfig:"cookie_max_age" default:"720h"`

	CORSAllowedOrigins []string `envconfig:"cors_allowed_origins"`

	TracingEnabled   bool   `envconfig:"tracing_enabled" default:"false"`
	OtelHTTPEndpoint string `envconfig:"otel_http_endpoint"`

	GeocoderURL       string `envconfig:"geocoder_url" default:"https://nominatim.openstreetmap.org"`
	GeocoderUserAgent string `envconfig:"geocoder_user_agent" default:"TripLink/1.0"`

	OpenAIAPIKey string `envconfig:"openai_api_key"`
	OpenAIURL    string `envconfig:"openai_url" default:"https://api.openai.com/v1"`
	OpenAIModel  string `envconfig:"openai_model" default:"gpt-4o-mini"`

	OutboundTimeout time.Duration `envconfig:"outbound_timeout" default:"8s"`
}

// LoadFromEnv sources EnvSpec from the process environment and validates it.
func LoadFromEnv() (*EnvSpec, error) {
	specs := new(EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		return nil, fmt.Errorf("issues with environment sourcing: %w", err)
	}
	if err := specs.Validate(); err != nil {
		return nil, err
	}
	return specs, nil
}

func (s *EnvSpec) Validate() error {
	s.StorageBackend = strings.ToLower(strings.TrimSpace(s.StorageBackend))
	switch s.StorageBackend {
	case StorageBackendMemory:
	case StorageBackendPostgres:
		if strings.TrimSpace(s.DSN) == "" {
			return fmt.Errorf("DSN is required when STORAGE_BACKEND=%s", StorageBackendPostgres)
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q (expected memory|postgres)", s.StorageBackend)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", s.Port)
	}
	if strings.TrimSpace(s.CookieName) == "" {
		return fmt.Errorf("COOKIE_NAME must be non-empty")
	}
	if s.CookieMaxAge <= 0 {
		return fmt.Errorf("COOKIE_MAX_AGE must be > 0")
	}
	if s.OutboundTimeout <= 0 {
		return fmt.Errorf("OUTBOUND_TIMEOUT must be > 0")
	}
	return nil
}
