// Package training holds the per-user workout data the dialog operates on:
// the dialog state, the training session and its activity records.
package training

import "fmt"

// State is the stage of a single user's conversation.
// States only move forward; Finished is terminal and is never stored.
type State int

const (
	// ReadyToStart is the state of a freshly created context.
	ReadyToStart State = iota
	// ChooseTraining waits for one of the activity keywords.
	ChooseTraining
	// TrainingInProgress means an activity is being timed.
	TrainingInProgress
	// SelectDistance waits for the distance covered.
	SelectDistance
	// Finished closes the conversation; the context is evicted.
	Finished
)

var stateNames = map[State]string{
	ReadyToStart:       "ready_to_start",
	ChooseTraining:     "choose_training",
	TrainingInProgress: "training_in_progress",
	SelectDistance:     "select_distance",
	Finished:           "finished",
}

// String returns the snake_case name of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(text))
}
