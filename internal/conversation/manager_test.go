package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madtank/workoutbot/internal/training"
)

func TestManagerGetOrCreateReturnsFreshContext(t *testing.T) {
	m := NewManager()

	uc, err := m.GetOrCreate(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), uc.UserID)
	require.Equal(t, training.ReadyToStart, uc.State)
	require.Empty(t, uc.Training.Activities)

	// a lookup alone does not insert anything
	require.Zero(t, m.Len())
}

func TestManagerSaveAndEvict(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	uc, err := m.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	uc.State = training.TrainingInProgress
	uc.Training.Add(training.StartActivity("/RUN", time.Now()))
	require.NoError(t, m.SaveOrEvict(ctx, uc))
	require.Equal(t, 1, m.Len())

	stored, err := m.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, training.TrainingInProgress, stored.State)
	require.Len(t, stored.Training.Activities, 1)

	stored.State = training.Finished
	require.NoError(t, m.SaveOrEvict(ctx, stored))
	require.Zero(t, m.Len())

	fresh, err := m.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, training.ReadyToStart, fresh.State)
	require.Empty(t, fresh.Training.Activities)
}

func TestManagerNeverInsertsFinished(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	uc := training.NewUserContext(5, time.Now())
	uc.State = training.Finished
	require.NoError(t, m.SaveOrEvict(ctx, *uc))
	require.Zero(t, m.Len())
}

func TestManagerReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	uc, _ := m.GetOrCreate(ctx, 3)
	uc.State = training.SelectDistance
	uc.Training.Add(training.StartActivity("/CYCLING", time.Now()))
	require.NoError(t, m.SaveOrEvict(ctx, uc))

	first, _ := m.GetOrCreate(ctx, 3)
	first.Training.First().Finish(10, time.Now())
	first.State = training.ChooseTraining

	second, _ := m.GetOrCreate(ctx, 3)
	require.Equal(t, training.SelectDistance, second.State)
	require.False(t, second.Training.First().Finished)
}

func TestManagerCleanupIdle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(WithManagerClock(func() time.Time { return now }))

	stale, _ := m.GetOrCreate(ctx, 1)
	require.NoError(t, m.SaveOrEvict(ctx, stale))

	now = now.Add(time.Hour)
	active, _ := m.GetOrCreate(ctx, 2)
	require.NoError(t, m.SaveOrEvict(ctx, active))

	now = now.Add(time.Minute)
	require.Equal(t, 1, m.CleanupIdle(30*time.Minute))
	require.Equal(t, 1, m.Len())

	uc, _ := m.GetOrCreate(ctx, 2)
	require.Equal(t, int64(2), uc.UserID)
}

func TestManagerRunCleanupStopsOnCancel(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.RunCleanup(ctx, time.Millisecond, time.Hour, nil)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}

func TestManagerConcurrentUsers(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			uc, err := m.GetOrCreate(ctx, id)
			assert.NoError(t, err)
			uc.State = training.ChooseTraining
			assert.NoError(t, m.SaveOrEvict(ctx, uc))
		}(i)
	}
	wg.Wait()

	require.Equal(t, 50, m.Len())
}

func TestNewStore(t *testing.T) {
	store, err := New(BackendMemory, nil, 0)
	require.NoError(t, err)
	require.IsType(t, &Manager{}, store)

	_, err = New(BackendRedis, nil, 0)
	require.Error(t, err)

	_, err = New("etcd", nil, 0)
	require.ErrorIs(t, err, ErrUnknownStore)
}
