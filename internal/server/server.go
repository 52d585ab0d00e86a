// Package server exposes the bot's health, Prometheus and workout history
// endpoints over HTTP.
package server

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/madtank/workoutbot/internal/history"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests once its
// context is done.
const ShutdownTimeout = 5 * time.Second

// Workout history page sizes.
const (
	defaultWorkoutLimit = 20
	maxWorkoutLimit     = 100
)

// WorkoutLister reads a user's recorded workouts, newest first.
type WorkoutLister interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]history.Workout, error)
}

// Server is the bot's HTTP surface.
type Server struct {
	App      *fiber.App
	Workouts WorkoutLister
}

// Option configures a Server.
type Option func(*Server)

// WithWorkouts serves GET /users/:id/workouts from workouts.
func WithWorkouts(workouts WorkoutLister) Option {
	return func(s *Server) {
		s.Workouts = workouts
	}
}

// NewServer creates the fiber app and registers its routes. /health and
// /metrics are always served; the history route only with WithWorkouts.
func NewServer(opts ...Option) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())

	s := &Server{App: app}
	for _, opt := range opts {
		opt(s)
	}
	registerRoutes(s)
	return s
}

// registerRoutes mounts the handlers on s.App.
func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if s.Workouts != nil {
		s.App.Get("/users/:id/workouts", s.listWorkouts)
	}
}

type workoutResponse struct {
	ID             string    `json:"id"`
	Activity       string    `json:"activity"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	Distance       uint32    `json:"distance"`
}

func (s *Server) listWorkouts(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "user id must be an integer")
	}
	limit := c.QueryInt("limit", defaultWorkoutLimit)
	if limit < 1 || limit > maxWorkoutLimit {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 100")
	}

	workouts, err := s.Workouts.ListByUser(c.Context(), userID, limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	out := make([]workoutResponse, 0, len(workouts))
	for _, w := range workouts {
		out = append(out, workoutResponse{
			ID:             w.ID,
			Activity:       w.Activity,
			StartedAt:      w.StartedAt,
			FinishedAt:     w.FinishedAt,
			ElapsedSeconds: int64(w.Elapsed / time.Second),
			Distance:       w.Distance,
		})
	}
	return c.JSON(fiber.Map{"user_id": userID, "workouts": out})
}

// Run listens on addr until ctx is done, then shuts the app down, waiting at
// most ShutdownTimeout for in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.App.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return s.App.ShutdownWithTimeout(ShutdownTimeout)
}
