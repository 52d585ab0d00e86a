package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/madtank/workoutbot/internal/training"
)

const redisKeyPrefix = "workoutbot:session:"

// RedisStore keeps JSON-encoded contexts in Redis so they survive a bot
// restart. A context read back from Redis has lost its monotonic clock
// reading; elapsed time is then measured on the wall clock.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore creates a store on client. A ttl of zero keeps contexts
// until they are finished.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

// GetOrCreate loads the user's context, or returns a fresh one.
func (s *RedisStore) GetOrCreate(ctx context.Context, userID int64) (training.UserContext, error) {
	raw, err := s.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return *training.NewUserContext(userID, s.now()), nil
	}
	if err != nil {
		return training.UserContext{}, fmt.Errorf("load session %d: %w", userID, err)
	}

	var uc training.UserContext
	if err := json.Unmarshal(raw, &uc); err != nil {
		return training.UserContext{}, fmt.Errorf("decode session %d: %w", userID, err)
	}
	return uc, nil
}

// SaveOrEvict writes the context, or deletes the key once Finished.
func (s *RedisStore) SaveOrEvict(ctx context.Context, uc training.UserContext) error {
	key := redisKey(uc.UserID)
	if uc.State == training.Finished {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("evict session %d: %w", uc.UserID, err)
		}
		return nil
	}

	uc.UpdatedAt = s.now()
	raw, err := json.Marshal(uc)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", uc.UserID, err)
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %d: %w", uc.UserID, err)
	}
	return nil
}
