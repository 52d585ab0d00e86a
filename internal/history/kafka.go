package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventWorkoutFinished is the event_type header of published workouts.
const EventWorkoutFinished = "workout.finished"

// WorkoutFinished is the event published for every finished workout.
type WorkoutFinished struct {
	WorkoutID      string    `json:"workout_id"`
	UserID         int64     `json:"user_id"`
	Activity       string    `json:"activity"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	Distance       uint32    `json:"distance"`
}

// Writer is the part of kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes finished workouts as JSON events.
type KafkaPublisher struct {
	writer Writer
}

// NewKafkaWriter builds a synchronous writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

// NewKafkaPublisher creates a publisher on writer.
func NewKafkaPublisher(writer Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Record publishes w keyed by user id, so a user's workouts stay ordered
// within one partition.
func (p *KafkaPublisher) Record(ctx context.Context, w Workout) error {
	payload, err := json.Marshal(WorkoutFinished{
		WorkoutID:      w.ID,
		UserID:         w.UserID,
		Activity:       w.Activity,
		StartedAt:      w.StartedAt,
		FinishedAt:     w.FinishedAt,
		ElapsedSeconds: int64(w.Elapsed / time.Second),
		Distance:       w.Distance,
	})
	if err != nil {
		return fmt.Errorf("encode workout %s: %w", w.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(w.UserID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventWorkoutFinished)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish workout %s: %w", w.ID, err)
	}
	return nil
}

// Close releases the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
