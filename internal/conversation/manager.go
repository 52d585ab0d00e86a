// Package conversation provides the session store for the workout bot.
// It keeps one UserContext per user between turns and drops a context as
// soon as its conversation reaches the Finished state.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/madtank/workoutbot/internal/training"
)

// Store backends selectable through configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrUnknownStore is returned for an unsupported store backend name.
var ErrUnknownStore = errors.New("unknown session store")

// Store keeps user contexts between turns.
//
// GetOrCreate returns a copy of the stored context, or a fresh ReadyToStart
// context when the user has none. SaveOrEvict stores the context, or removes
// the user's entry when the context is Finished, so no Finished context is
// ever kept.
type Store interface {
	GetOrCreate(ctx context.Context, userID int64) (training.UserContext, error)
	SaveOrEvict(ctx context.Context, uc training.UserContext) error
}

// New builds the Store for backend. client is only used by the Redis backend.
func New(backend string, client *redis.Client, ttl time.Duration) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewManager(), nil
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis session store needs a client")
		}
		return NewRedisStore(client, ttl), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, backend)
	}
}

// Manager is the in-memory Store. Its scope is the process lifetime.
// The sessions map is guarded by a mutex, so different users can be served
// from different goroutines.
type Manager struct {
	// sessions maps Telegram user IDs to their stored contexts
	sessions map[int64]training.UserContext
	now      func() time.Time
	mu       sync.RWMutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerClock overrides the clock used to stamp contexts.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates an empty in-memory store.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[int64]training.UserContext),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns a deep copy of the user's context, or a new one.
// The new context is not stored until SaveOrEvict is called.
func (m *Manager) GetOrCreate(_ context.Context, userID int64) (training.UserContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if uc, ok := m.sessions[userID]; ok {
		return uc.Clone(), nil
	}
	return *training.NewUserContext(userID, m.now()), nil
}

// SaveOrEvict stores the context, or removes it once Finished.
func (m *Manager) SaveOrEvict(_ context.Context, uc training.UserContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if uc.State == training.Finished {
		delete(m.sessions, uc.UserID)
		return nil
	}
	stored := uc.Clone()
	stored.UpdatedAt = m.now()
	m.sessions[uc.UserID] = stored
	return nil
}

// Len returns the number of stored contexts.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// CleanupIdle removes contexts not saved for longer than maxIdle and
// returns how many were removed.
func (m *Manager) CleanupIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for userID, uc := range m.sessions {
		if now.Sub(uc.UpdatedAt) > maxIdle {
			delete(m.sessions, userID)
			removed++
		}
	}
	return removed
}

// RunCleanup calls CleanupIdle every interval until ctx is done.
// onRemoved, if non-nil, receives the count of every non-empty sweep.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxIdle time.Duration, onRemoved func(int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.CleanupIdle(maxIdle); n > 0 && onRemoved != nil {
				onRemoved(n)
			}
		}
	}
}
