// Package bot connects the workout dialog to Telegram. Processor runs a
// single turn against the session store; Poller drains Telegram updates and
// delivers the replies.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/madtank/workoutbot/internal/conversation"
	"github.com/madtank/workoutbot/internal/handlers"
	"github.com/madtank/workoutbot/internal/history"
	"github.com/madtank/workoutbot/internal/observability"
	"github.com/madtank/workoutbot/internal/training"
)

// Processor runs dialog turns. The get-dispatch-save sequence for one user
// is serialized by a per-user lock, so a turn's state is either fully
// visible to later turns or not at all.
type Processor struct {
	store      conversation.Store
	dispatcher *handlers.Dispatcher
	locks      *conversation.Locker
	recorder   history.Recorder
	logger     *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithRecorder hands finished workouts to recorder.
func WithRecorder(recorder history.Recorder) ProcessorOption {
	return func(p *Processor) {
		p.recorder = recorder
	}
}

// WithProcessorLogger sets a custom logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a processor on store and dispatcher.
func NewProcessor(store conversation.Store, dispatcher *handlers.Dispatcher, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:      store,
		dispatcher: dispatcher,
		locks:      conversation.NewLocker(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one turn for userID and returns the reply to deliver.
// An empty text means the update carried no text: nothing changes and ok
// is false. A store error leaves the user's context as it was before the
// turn and yields no reply.
//
// Parameters:
// - userID: The Telegram user's unique identifier
// - text: The message text, empty when the update carried none
//
// Returns:
// - reply: The text to send back to the user's chat
// - ok: Whether there is a reply to send
// - err: A session store failure
func (p *Processor) Process(ctx context.Context, userID int64, text string) (reply string, ok bool, err error) {
	if text == "" {
		p.logger.Debug("text is absent in message", "user_id", userID)
		return "", false, nil
	}

	unlock := p.locks.Lock(userID)
	defer unlock()

	current, err := p.store.GetOrCreate(ctx, userID)
	if err != nil {
		observability.RecordStoreError("get")
		return "", false, fmt.Errorf("get context for user %d: %w", userID, err)
	}

	out := p.dispatcher.Dispatch(current, text)

	if err := p.store.SaveOrEvict(ctx, out.Context); err != nil {
		observability.RecordStoreError("save")
		return "", false, fmt.Errorf("save context for user %d: %w", userID, err)
	}
	observability.RecordTurn(out.Rule)

	if out.Context.State == training.Finished {
		p.finish(ctx, out.Context)
	}

	return out.Reply, true, nil
}

// finish records the finished workouts of uc. Failures are only logged;
// the context has already been evicted.
func (p *Processor) finish(ctx context.Context, uc training.UserContext) {
	for _, w := range history.FromContext(uc) {
		observability.RecordWorkout(w.Activity, w.Distance, w.Elapsed)
		p.logger.Info("workout finished",
			"user_id", w.UserID,
			"activity", w.Activity,
			"distance", w.Distance,
			"elapsed", w.Elapsed,
		)

		if p.recorder == nil {
			continue
		}
		if err := p.recorder.Record(ctx, w); err != nil {
			observability.RecordRecorderError()
			p.logger.Error("failed to record workout", "workout_id", w.ID, "error", err)
		}
	}
}
