package training

import "time"

// Activity is one timed exercise instance inside a training session.
// Elapsed and Distance stay zero until Finish is called.
type Activity struct {
	// Name is the keyword the user picked, e.g. "/RUN".
	Name string `json:"name"`
	// StartedAt is captured from time.Now and keeps its monotonic reading
	// for as long as the record stays in process memory.
	StartedAt time.Time `json:"started_at"`
	// Elapsed is the time between StartedAt and the accepted distance.
	Elapsed time.Duration `json:"elapsed"`
	// Distance is the distance reported by the user.
	Distance uint32 `json:"distance"`
	// Finished is set exactly once by Finish.
	Finished bool `json:"finished"`
}

// StartActivity creates an unfinished activity record started at now.
func StartActivity(name string, now time.Time) Activity {
	return Activity{Name: name, StartedAt: now}
}

// Finish records the distance and the time elapsed since the start mark.
// It reports false and leaves the record untouched if it was already finished.
//
// A start mark that lost its monotonic reading (e.g. after a round-trip
// through an external store) falls back to wall-clock math, so a clock step
// backwards is clamped to zero rather than producing a negative duration.
func (a *Activity) Finish(distance uint32, now time.Time) bool {
	if a.Finished {
		return false
	}
	elapsed := now.Sub(a.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	a.Elapsed = elapsed
	a.Distance = distance
	a.Finished = true
	return true
}

// Session is the ordered collection of activities for one conversation.
type Session struct {
	StartedAt  time.Time  `json:"started_at"`
	Activities []Activity `json:"activities"`
}

// Add appends an activity, preserving insertion order.
func (s *Session) Add(a Activity) {
	s.Activities = append(s.Activities, a)
}

// First returns the first activity in the session, or nil when it is empty.
// Finishing always targets this record.
func (s *Session) First() *Activity {
	if len(s.Activities) == 0 {
		return nil
	}
	return &s.Activities[0]
}

// Unfinished counts activities that have not been finished yet.
func (s *Session) Unfinished() int {
	n := 0
	for _, a := range s.Activities {
		if !a.Finished {
			n++
		}
	}
	return n
}

// UserContext is the unit of per-user state: the dialog state plus the
// training session the user owns.
type UserContext struct {
	UserID   int64   `json:"user_id"`
	State    State   `json:"state"`
	Training Session `json:"training"`
	// UpdatedAt is stamped by the session store on every save.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserContext returns a context in ReadyToStart with an empty session.
func NewUserContext(userID int64, now time.Time) *UserContext {
	return &UserContext{
		UserID:    userID,
		State:     ReadyToStart,
		Training:  Session{StartedAt: now},
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so the caller can mutate it without touching
// the original's activities.
func (c UserContext) Clone() UserContext {
	clone := c
	if c.Training.Activities != nil {
		clone.Training.Activities = make([]Activity, len(c.Training.Activities))
		copy(clone.Training.Activities, c.Training.Activities)
	}
	return clone
}

// Consistent reports whether the state agrees with the shape of the session.
func (c UserContext) Consistent() bool {
	switch c.State {
	case ReadyToStart, ChooseTraining:
		return len(c.Training.Activities) == 0
	case TrainingInProgress, SelectDistance:
		return len(c.Training.Activities) == 1 && c.Training.Unfinished() == 1
	case Finished:
		return c.Training.Unfinished() == 0
	}
	return false
}
