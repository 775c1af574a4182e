package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"

	"resitrack/backend/internal/txn"
)

const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	ProjectID          string   `envconfig:"FIREBASE_PROJECT_ID"`
	GoogleCloudProject string   `envconfig:"GOOGLE_CLOUD_PROJECT"`
	Port               string   `envconfig:"PORT" default:"8080"`
	AllowedOrigins     []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	ServiceAccountJSON string `envconfig:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	CredentialsFile    string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	WebAPIKey          string `envconfig:"FIREBASE_WEB_API_KEY"`

	// Backend selects fsstore + Firebase Auth, or memstore + an in-memory
	// identity provider for local runs.
	Backend  string `envconfig:"STORE_BACKEND" default:"firestore"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone string `envconfig:"APP_TIMEZONE" default:"UTC"`

	TxMaxAttempts    int           `envconfig:"TX_MAX_ATTEMPTS" default:"5"`
	TxRetryBaseDelay time.Duration `envconfig:"TX_RETRY_BASE_DELAY" default:"25ms"`
	TxRetryMaxDelay  time.Duration `envconfig:"TX_RETRY_MAX_DELAY" default:"1s"`

	AMQPURL        string `envconfig:"AMQP_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"resitrack.events"`
	PushEnabled    bool   `envconfig:"PUSH_ENABLED" default:"true"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	location *time.Location
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ProjectID == "" {
		c.ProjectID = c.GoogleCloudProject
	}
	c.AllowedOrigins = trimAll(c.AllowedOrigins)
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendFirestore:
		if c.ProjectID == "" {
			return fmt.Errorf("%w: missing FIREBASE_PROJECT_ID or GOOGLE_CLOUD_PROJECT", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: STORE_BACKEND must be %q or %q", ErrInvalidConfig, BackendFirestore, BackendMemory)
	}

	if err := c.TxPolicy().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return fmt.Errorf("%w: APP_TIMEZONE %q: %v", ErrInvalidConfig, c.TimeZone, err)
	}
	c.location = loc
	return nil
}

func (c Config) TxPolicy() txn.Policy {
	return txn.Policy{
		MaxAttempts: c.TxMaxAttempts,
		BaseDelay:   c.TxRetryBaseDelay,
		MaxDelay:    c.TxRetryMaxDelay,
	}
}

// Location is the zone plain due dates are interpreted in.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func trimAll(in []string) []string {
	out := []string{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
