// Package config provides configuration management for the workout bot.
// It loads configuration from environment variables and provides default
// values where appropriate.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/madtank/workoutbot/internal/conversation"
)

// Config holds all configuration for the application.
type Config struct {
	// TelegramToken is the authentication token for the Telegram Bot API.
	// This token is required and must be obtained from BotFather.
	TelegramToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`

	// PollInterval is the pause between two polling cycles. A bare number
	// is read as seconds.
	PollInterval time.Duration `mapstructure:"POLL_INTERVAL"`
	// PollTimeout is the Telegram long-poll timeout in seconds.
	PollTimeout int `mapstructure:"POLL_TIMEOUT"`
	// UpdatesLimit bounds the number of updates handled per cycle.
	UpdatesLimit int  `mapstructure:"UPDATES_LIMIT"`
	BotDebug     bool `mapstructure:"BOT_DEBUG"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// SessionStore selects where user contexts live: "memory" or "redis".
	SessionStore string `mapstructure:"SESSION_STORE"`
	// SessionTTL drops contexts idle for longer than this. Zero disables it.
	SessionTTL    time.Duration `mapstructure:"SESSION_TTL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`

	// PostgresURL enables the workout history table when set.
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	// KafkaBrokers enables publishing finished workouts when set.
	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	WorkoutTopic string   `mapstructure:"WORKOUT_TOPIC"`

	// MetricsAddr is the listen address for /health and /metrics.
	// Empty disables the HTTP server.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
}

// ErrMissingToken is returned by Validate when no bot token is configured.
var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is required")

var defaults = map[string]any{
	"TELEGRAM_BOT_TOKEN": "",
	"POLL_INTERVAL":      time.Second,
	"POLL_TIMEOUT":       30,
	"UPDATES_LIMIT":      100,
	"BOT_DEBUG":          false,
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "text",
	"SESSION_STORE":      conversation.BackendMemory,
	"SESSION_TTL":        time.Duration(0),
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_PASSWORD":     "",
	"POSTGRES_URL":       "",
	"KAFKA_BROKERS":      []string{},
	"WORKOUT_TOPIC":      "workout_events",
	"METRICS_ADDR":       ":9090",
}

// New creates a Config from environment variables, falling back to
// defaults for anything unset.
func New() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if secs, err := strconv.ParseInt(v.GetString("POLL_INTERVAL"), 10, 64); err == nil {
		v.Set("POLL_INTERVAL", time.Duration(secs)*time.Second)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings the bot cannot start with.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	switch c.SessionStore {
	case conversation.BackendMemory, conversation.BackendRedis:
	default:
		return fmt.Errorf("%w: %q", conversation.ErrUnknownStore, c.SessionStore)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("POLL_INTERVAL must not be negative")
	}
	return nil
}
