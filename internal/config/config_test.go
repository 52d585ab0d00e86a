package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/madtank/workoutbot/internal/conversation"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	require.Equal(t, time.Second, cfg.PollInterval)
	require.Equal(t, 30, cfg.PollTimeout)
	require.Equal(t, 100, cfg.UpdatesLimit)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, conversation.BackendMemory, cfg.SessionStore)
	require.Zero(t, cfg.SessionTTL)
	require.Equal(t, "workout_events", cfg.WorkoutTopic)
	require.Equal(t, ":9090", cfg.MetricsAddr)
	require.Empty(t, cfg.KafkaBrokers)
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("POLL_TIMEOUT", "10")
	t.Setenv("BOT_DEBUG", "true")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := New()
	require.NoError(t, err)

	require.Equal(t, "123:abc", cfg.TelegramToken)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
	require.Equal(t, 10, cfg.PollTimeout)
	require.True(t, cfg.BotDebug)
	require.Equal(t, conversation.BackendRedis, cfg.SessionStore)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, "redis:6379", cfg.RedisAddr)
	require.Equal(t, "postgres://example", cfg.PostgresURL)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.NoError(t, cfg.Validate())
}

func TestNewPollIntervalInSeconds(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "5")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestNewNegativePollIntervalFailsValidation(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("POLL_INTERVAL", "-3")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, -3*time.Second, cfg.PollInterval)
	require.Error(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := &Config{SessionStore: conversation.BackendMemory}
	require.ErrorIs(t, cfg.Validate(), ErrMissingToken)

	cfg.TelegramToken = "token"
	require.NoError(t, cfg.Validate())

	cfg.SessionStore = "etcd"
	require.ErrorIs(t, cfg.Validate(), conversation.ErrUnknownStore)
}
