// Package handlers implements the workout dialog: given the user's current
// context and the text they sent, it decides the reply and the next context.
//
// The dispatcher is a pure transform apart from reading the clock. It never
// fails; unrecognized input always maps to a defined reply.
package handlers

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/madtank/workoutbot/internal/training"
)

// Commands understood by the dialog.
const (
	CommandHelp  = "/HELP"
	CommandStart = "/START"
	CommandStop  = "/STOP"
)

// Recognized activity keywords.
const (
	ActivityRun     = "/RUN"
	ActivityCycling = "/CYCLING"
)

// Activities lists the activity keywords in the order they are offered.
var Activities = []string{ActivityRun, ActivityCycling}

// Rule names reported in Outcome.Rule.
const (
	RuleHelp     = "help"
	RuleStart    = "start"
	RuleActivity = "activity"
	RuleStop     = "stop"
	RuleDistance = "distance"
	RuleUnknown  = "unknown"
)

// HelpText is the reply to CommandHelp.
var HelpText = fmt.Sprintf("Send %s to begin a workout", CommandStart)

// Outcome is the result of one dialog turn.
type Outcome struct {
	// Reply is the text to deliver to the user.
	Reply string
	// Context is the user's next context.
	Context training.UserContext
	// Rule names the rule that produced the outcome.
	Rule string
}

// rule pairs a predicate over (state, text) with the transition it triggers.
// handle mutates the context it is given; the dispatcher hands it a copy.
type rule struct {
	name   string
	match  func(state training.State, text string) bool
	handle func(d *Dispatcher, text string, uc *training.UserContext) string
}

// rules are evaluated in order and the first match wins.
var rules = []rule{
	{
		name:   RuleHelp,
		match:  func(_ training.State, text string) bool { return text == CommandHelp },
		handle: (*Dispatcher).help,
	},
	{
		name: RuleStart,
		match: func(state training.State, text string) bool {
			return text == CommandStart && state == training.ReadyToStart
		},
		handle: (*Dispatcher).start,
	},
	{
		name: RuleActivity,
		match: func(state training.State, text string) bool {
			return isActivity(text) && state == training.ChooseTraining
		},
		handle: (*Dispatcher).selectActivity,
	},
	{
		name: RuleStop,
		match: func(state training.State, text string) bool {
			return text == CommandStop && state == training.TrainingInProgress
		},
		handle: (*Dispatcher).stop,
	},
	{
		name:   RuleDistance,
		match:  func(state training.State, _ string) bool { return state == training.SelectDistance },
		handle: (*Dispatcher).selectDistance,
	},
}

// Dispatcher routes a message to the rule matching the user's state.
type Dispatcher struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the clock used for activity start and finish marks.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher using the real clock.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one turn. The given context is not modified; the next
// context is returned in the outcome.
func (d *Dispatcher) Dispatch(uc training.UserContext, text string) Outcome {
	next := uc.Clone()
	name := RuleUnknown
	var reply string

	for _, r := range rules {
		if r.match(uc.State, text) {
			name = r.name
			reply = r.handle(d, text, &next)
			break
		}
	}
	if name == RuleUnknown {
		reply = d.unknown(text, &next)
	}

	d.logger.Debug("dialog turn",
		"user_id", uc.UserID,
		"text", text,
		"rule", name,
		"from", uc.State,
		"to", next.State,
	)

	return Outcome{Reply: reply, Context: next, Rule: name}
}

func (d *Dispatcher) help(_ string, _ *training.UserContext) string {
	return HelpText
}

func (d *Dispatcher) start(_ string, uc *training.UserContext) string {
	uc.State = training.ChooseTraining
	return "Choose a workout: " + strings.Join(Activities, ", ")
}

func (d *Dispatcher) selectActivity(text string, uc *training.UserContext) string {
	uc.Training.Add(training.StartActivity(text, d.now()))
	uc.State = training.TrainingInProgress
	return fmt.Sprintf("Press %s to finish", CommandStop)
}

func (d *Dispatcher) stop(_ string, uc *training.UserContext) string {
	uc.State = training.SelectDistance
	return "Enter the distance covered"
}

func (d *Dispatcher) selectDistance(text string, uc *training.UserContext) string {
	distance, ok := parseDistance(text)
	if !ok {
		return fmt.Sprintf("Distance must be a positive number. You entered: %s", text)
	}

	uc.State = training.Finished
	activity := uc.Training.First()
	if activity == nil {
		return "Workout finished"
	}
	activity.Finish(distance, d.now())
	return fmt.Sprintf("Workout finished. Distance: %d, time: %d s",
		activity.Distance, int64(activity.Elapsed/time.Second))
}

func (d *Dispatcher) unknown(text string, _ *training.UserContext) string {
	return fmt.Sprintf("Unknown command: %s, send %s for help", text, CommandHelp)
}

// parseDistance accepts a non-negative decimal integer that fits in 32 bits,
// optionally preceded by a single '+'.
func parseDistance(text string) (uint32, bool) {
	v, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func isActivity(text string) bool {
	for _, a := range Activities {
		if a == text {
			return true
		}
	}
	return false
}
