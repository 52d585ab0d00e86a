package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/madtank/workoutbot/internal/observability"
)

// Client is the part of *tgbotapi.BotAPI the poller uses.
type Client interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TurnProcessor runs one dialog turn.
type TurnProcessor interface {
	Process(ctx context.Context, userID int64, text string) (string, bool, error)
}

// Poller pulls batches of updates from Telegram and answers them in order.
type Poller struct {
	client    Client
	processor TurnProcessor
	interval  time.Duration
	timeout   int
	limit     int
	logger    *slog.Logger
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the pause between polling cycles.
func WithInterval(interval time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = interval
	}
}

// WithLongPoll sets the Telegram long-poll timeout in seconds and the
// maximum number of updates fetched per cycle.
func WithLongPoll(timeout, limit int) PollerOption {
	return func(p *Poller) {
		p.timeout = timeout
		p.limit = limit
	}
}

// WithPollerLogger sets a custom logger.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// NewPoller creates a poller. It polls every second and fetches up to 100
// updates per cycle unless configured otherwise.
//
// Parameters:
// - client: The Telegram client, usually *tgbotapi.BotAPI
// - processor: Runs the dialog turn for each text message
func NewPoller(client Client, processor TurnProcessor, opts ...PollerOption) *Poller {
	p := &Poller{
		client:    client,
		processor: processor,
		interval:  time.Second,
		limit:     100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleUpdates runs one polling cycle starting at offset and returns the
// offset for the next cycle: the highest update id seen plus one, or offset
// itself when the batch was empty or could not be fetched.
//
// Replies are sent fire-and-forget. A failed delivery is logged; the turn's
// state change stands.
func (p *Poller) HandleUpdates(ctx context.Context, offset int) (int, error) {
	updates, err := p.client.GetUpdates(tgbotapi.UpdateConfig{
		Offset:  offset,
		Limit:   p.limit,
		Timeout: p.timeout,
	})
	if err != nil {
		return offset, fmt.Errorf("get updates: %w", err)
	}
	p.logger.Debug("received updates", "count", len(updates), "offset", offset)

	next := offset
	for _, update := range updates {
		if update.UpdateID >= next {
			next = update.UpdateID + 1
		}

		msg := update.Message
		if msg == nil || msg.From == nil || msg.Chat == nil {
			p.logger.Debug("message is absent in update", "update_id", update.UpdateID)
			continue
		}

		reply, ok, err := p.processor.Process(ctx, msg.From.ID, msg.Text)
		if err != nil {
			p.logger.Error("failed to process message", "update_id", update.UpdateID, "user_id", msg.From.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		if _, err := p.client.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
			observability.RecordDeliveryError()
			p.logger.Warn("failed to send reply", "chat_id", msg.Chat.ID, "error", err)
		}
	}
	return next, nil
}

// Run polls until ctx is cancelled. Cycle errors are logged and polling
// continues after the usual interval.
func (p *Poller) Run(ctx context.Context, offset int) error {
	p.logger.Info("poller started", "interval", p.interval, "offset", offset)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		next, err := p.HandleUpdates(ctx, offset)
		if err != nil {
			p.logger.Error("polling cycle failed", "error", err)
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}
	}
}
