package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	MaxTitleLength int `env:"MAX_TITLE_LENGTH" default:"200"`

	MaxWebSocketConnections int           `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MailboxSize             int           `env:"MAILBOX_SIZE" default:"16"`
	WriteTimeout            time.Duration `env:"WRITE_TIMEOUT" default:"5s"`
	PingInterval            time.Duration `env:"PING_INTERVAL" default:"30s"`
	PongTimeout             time.Duration `env:"PONG_TIMEOUT" default:"60s"`

	CreateRateLimit float64 `env:"CREATE_RATE_LIMIT" default:"10"`
	CreateRateBurst int     `env:"CREATE_RATE_BURST" default:"20"`

	RedisURL           string `env:"REDIS_URL"`
	RedisEventsChannel string `env:"REDIS_EVENTS_CHANNEL" default:"taskpulse:events"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MirrorEnabled reports whether events are also published to Redis.
func (c *Config) MirrorEnabled() bool {
	return c.RedisURL != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}
	if u, err := url.Parse(cfg.AppURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_URL must be an absolute URL, got %q", cfg.AppURL)
	}
	if cfg.MaxTitleLength < 1 || cfg.MaxTitleLength > 10000 {
		return errors.New("MAX_TITLE_LENGTH must be between 1 and 10000")
	}
	if cfg.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be positive")
	}
	if cfg.MailboxSize < 1 || cfg.MailboxSize > 4096 {
		return errors.New("MAILBOX_SIZE must be between 1 and 4096")
	}
	if cfg.WriteTimeout <= 0 {
		return errors.New("WRITE_TIMEOUT must be positive")
	}
	if cfg.PingInterval <= 0 || cfg.PongTimeout <= cfg.PingInterval {
		return errors.New("PONG_TIMEOUT must be greater than a positive PING_INTERVAL")
	}
	if cfg.CreateRateLimit <= 0 || cfg.CreateRateBurst < 1 {
		return errors.New("CREATE_RATE_LIMIT and CREATE_RATE_BURST must be positive")
	}
	if cfg.RedisURL != "" && cfg.RedisEventsChannel == "" {
		return errors.New("REDIS_EVENTS_CHANNEL is required when REDIS_URL is set")
	}
	return nil
}
