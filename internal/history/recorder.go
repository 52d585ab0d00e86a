// Package history records finished workouts outside the session store,
// so they outlive the conversation that produced them.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/madtank/workoutbot/internal/training"
)

// Workout is one finished activity.
type Workout struct {
	ID         string
	UserID     int64
	Activity   string
	StartedAt  time.Time
	FinishedAt time.Time
	Elapsed    time.Duration
	Distance   uint32
}

// Recorder stores finished workouts.
type Recorder interface {
	Record(ctx context.Context, w Workout) error
}

// FromContext converts the finished activities of uc into workouts.
// FinishedAt is derived from the start mark and the elapsed time.
func FromContext(uc training.UserContext) []Workout {
	var out []Workout
	for _, a := range uc.Training.Activities {
		if !a.Finished {
			continue
		}
		out = append(out, Workout{
			ID:         uuid.NewString(),
			UserID:     uc.UserID,
			Activity:   a.Name,
			StartedAt:  a.StartedAt.Round(0),
			FinishedAt: a.StartedAt.Add(a.Elapsed).Round(0),
			Elapsed:    a.Elapsed,
			Distance:   a.Distance,
		})
	}
	return out
}

// Multi sends every workout to all recorders and joins their errors.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, w Workout) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
