package domain

import "time"

// Config holds the complete service configuration.
type Config struct {
	// Server settings
	Server ServerConfig `mapstructure:"server"`

	// Component configurations
	Repository RepositoryConfig `mapstructure:"repository"`
	Cache      CacheConfig      `mapstructure:"cache"`
	EventBus   EventBusConfig   `mapstructure:"event_bus"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Quota      QuotaConfig      `mapstructure:"quota"`

	// Observability
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // seconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // seconds
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// WorkerConfig configures asynchronous scoring.
type WorkerConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Tenants to subscribe for; empty subscribes the global tenant
	Tenants []string `mapstructure:"tenants"`

	// Concurrency bounds batch scoring fan-out
	Concurrency int `mapstructure:"concurrency"`
}

// QuotaConfig bounds requests per tenant per window. Zero disables the quota.
type QuotaConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	// ServiceName tags every log line and names the service in traces.
	ServiceName string `mapstructure:"service_name"`
}
