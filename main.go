package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"

	"github.com/madtank/workoutbot/internal/bot"
	"github.com/madtank/workoutbot/internal/config"
	"github.com/madtank/workoutbot/internal/conversation"
	"github.com/madtank/workoutbot/internal/handlers"
	"github.com/madtank/workoutbot/internal/history"
	"github.com/madtank/workoutbot/internal/observability"
	"github.com/madtank/workoutbot/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Stop on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Session store
	var rdb *redis.Client
	if cfg.SessionStore == conversation.BackendRedis {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
	}
	store, err := conversation.New(cfg.SessionStore, rdb, cfg.SessionTTL)
	if err != nil {
		return err
	}
	if manager, ok := store.(*conversation.Manager); ok && cfg.SessionTTL > 0 {
		interval := max(cfg.SessionTTL/2, time.Second)
		go manager.RunCleanup(ctx, interval, cfg.SessionTTL, observability.RecordSessionsExpired)
	}

	// Workout history
	var (
		recorders history.Multi
		serverOpts []server.Option
	)
	if cfg.PostgresURL != "" {
		pool, err := history.ConnectPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pg := history.NewPostgresRecorder(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		recorders = append(recorders, pg)
		serverOpts = append(serverOpts, server.WithWorkouts(pg))
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := history.NewKafkaPublisher(history.NewKafkaWriter(cfg.KafkaBrokers, cfg.WorkoutTopic))
		defer publisher.Close()
		recorders = append(recorders, publisher)
	}

	opts := []bot.ProcessorOption{bot.WithProcessorLogger(logger)}
	if len(recorders) > 0 {
		opts = append(opts, bot.WithRecorder(recorders))
	}
	processor := bot.NewProcessor(store, handlers.NewDispatcher(handlers.WithLogger(logger)), opts...)

	// Metrics and workout history over HTTP
	if cfg.MetricsAddr != "" {
		// run also returns on startup errors, so the server is stopped explicitly
		stopServer := startServer(ctx, cfg.MetricsAddr, logger, serverOpts...)
		defer stopServer()
	}

	// Create bot instance
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return err
	}
	api.Debug = cfg.BotDebug
	logger.Info("authorized", "account", api.Self.UserName, "session_store", cfg.SessionStore)

	poller := bot.NewPoller(api, processor,
		bot.WithInterval(cfg.PollInterval),
		bot.WithLongPoll(cfg.PollTimeout, cfg.UpdatesLimit),
		bot.WithPollerLogger(logger),
	)
	return poller.Run(ctx, 0)
}

// startServer runs the HTTP server in the background. The returned func
// stops it and waits until its shutdown has finished.
func startServer(ctx context.Context, addr string, logger *slog.Logger, opts ...server.Option) (stop func()) {
	srv := server.NewServer(opts...)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Run(ctx, addr); err != nil {
			logger.Error("http server failed", "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
