// Package config loads service configuration and initializes logging.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/opensource-finance/fhi/internal/domain"
)

// Load reads configuration from fhi.yaml (optional) and FHI_* environment variables.
func Load() (*domain.Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("fhi")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("repository.driver", "sqlite")
	v.SetDefault("repository.sqlite_path", "./fhi.db")
	v.SetDefault("repository.postgres_host", "localhost")
	v.SetDefault("repository.postgres_port", 5432)
	v.SetDefault("repository.postgres_db", "fhi")
	v.SetDefault("repository.postgres_sslmode", "disable")
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.local_max_size", 10000)
	v.SetDefault("cache.local_ttl", 5*time.Minute)
	v.SetDefault("cache.result_ttl", time.Hour)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("event_bus.type", "channel")
	v.SetDefault("event_bus.channel_buffer_size", 1000)
	v.SetDefault("event_bus.nats_url", "nats://localhost:4222")
	v.SetDefault("event_bus.nats_max_reconnects", 10)
	v.SetDefault("event_bus.nats_reconnect_wait", 5)
	v.SetDefault("worker.enabled", false)
	v.SetDefault("worker.concurrency", 8)
	v.SetDefault("quota.requests", 0)
	v.SetDefault("quota.window", time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.service_name", "fhi")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode ("serve" or "cli").
func Validate(cfg *domain.Config, mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
		switch cfg.Repository.Driver {
		case "sqlite", "postgres":
		default:
			errs = append(errs, "repository.driver must be sqlite or postgres")
		}
		switch cfg.Cache.Type {
		case "memory", "redis":
		default:
			errs = append(errs, "cache.type must be memory or redis")
		}
		switch cfg.EventBus.Type {
		case "channel", "nats":
		default:
			errs = append(errs, "event_bus.type must be channel or nats")
		}
		if cfg.Worker.Concurrency < 1 || cfg.Worker.Concurrency > 256 {
			errs = append(errs, "worker.concurrency must be between 1 and 256")
		}
		if cfg.Quota.Requests < 0 {
			errs = append(errs, "quota.requests must be >= 0")
		}
		if cfg.Quota.Requests > 0 && cfg.Quota.Window <= 0 {
			errs = append(errs, "quota.window must be > 0 when quota.requests is set")
		}
	case "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg domain.LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
