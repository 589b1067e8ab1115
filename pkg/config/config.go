package config

import (
	"fmt"
	"github.com/kelseyhightower/envconfig"
	"time"
)

// Config holds the process configuration of a host embedding the profiler. The capture
// policy itself is read separately by policy.EnvPolicyImpl so it can be reloaded.
// The sections are embedded so that every variable shares the same prefix.
type Config struct {
	ServerConfig
	ElasticsearchConfig
	OtlpConfig
	WriteBufferConfig
	LogConfig
	// StoreID tags every profile with the storefront that served it.
	StoreID string `envconfig:"STORE_ID" default:"default"`
}

type ServerConfig struct {
	Address         string        `envconfig:"LISTEN_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

type ElasticsearchConfig struct {
	Addresses []string `envconfig:"ES_ADDRESSES" default:"http://localhost:9200"`
	// RefreshMode is one of wait_for, true or false.
	RefreshMode string `envconfig:"ES_REFRESH" default:"false"`
	// Enabled turns off the Elasticsearch store, useful when only exporting traces.
	Enabled bool `envconfig:"ES_ENABLED" default:"true"`
}

type OtlpConfig struct {
	// Endpoint of an OTLP gRPC collector; export is disabled when empty.
	Endpoint    string `envconfig:"OTLP_ENDPOINT"`
	ServiceName string `envconfig:"OTLP_SERVICE_NAME" default:"lantern"`
}

type WriteBufferConfig struct {
	Size          int           `envconfig:"BUFFER_SIZE" default:"30"`
	FlushInterval time.Duration `envconfig:"BUFFER_FLUSH_INTERVAL" default:"2s"`
	FlushTimeout  time.Duration `envconfig:"BUFFER_FLUSH_TIMEOUT" default:"10s"`
	// RevisionCacheSize bounds the number of tokens whose last written revision is remembered.
	RevisionCacheSize int64 `envconfig:"REVISION_CACHE_SIZE" default:"100000"`
}

type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load reads the configuration from environment variables under prefix.
func Load(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
