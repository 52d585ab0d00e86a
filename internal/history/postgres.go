package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used here.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Schema creates the workouts table.
const Schema = `
CREATE TABLE IF NOT EXISTS workouts (
	id              UUID PRIMARY KEY,
	user_id         BIGINT NOT NULL,
	activity        TEXT NOT NULL,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL,
	elapsed_seconds BIGINT NOT NULL,
	distance        BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS workouts_user_started_idx ON workouts (user_id, started_at DESC);
`

// PostgresRecorder writes workouts to the workouts table.
type PostgresRecorder struct {
	db Querier
}

// NewPostgresRecorder creates a recorder on db.
func NewPostgresRecorder(db Querier) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// ConnectPostgres opens a pool and verifies it with a ping.
func ConnectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema applies Schema.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create workouts schema: %w", err)
	}
	return nil
}

// Record inserts w.
func (r *PostgresRecorder) Record(ctx context.Context, w Workout) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO workouts (id, user_id, activity, started_at, finished_at, elapsed_seconds, distance)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, w.ID, w.UserID, w.Activity, w.StartedAt, w.FinishedAt, int64(w.Elapsed/time.Second), int64(w.Distance))
	if err != nil {
		return fmt.Errorf("insert workout %s: %w", w.ID, err)
	}
	return nil
}

// ListByUser returns the user's most recent workouts, newest first.
func (r *PostgresRecorder) ListByUser(ctx context.Context, userID int64, limit int) ([]Workout, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, activity, started_at, finished_at, elapsed_seconds, distance
		FROM workouts WHERE user_id=$1
		ORDER BY started_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []Workout
	for rows.Next() {
		var (
			w        Workout
			elapsed  int64
			distance int64
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.Activity, &w.StartedAt, &w.FinishedAt, &elapsed, &distance); err != nil {
			return nil, err
		}
		w.Elapsed = time.Duration(elapsed) * time.Second
		w.Distance = uint32(distance)
		workouts = append(workouts, w)
	}
	return workouts, rows.Err()
}
