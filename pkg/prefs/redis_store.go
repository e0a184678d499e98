package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pingline:prefs:"

// RedisStore is a Redis-backed Store for multi-process deployments. Values
// are stored as JSON under one key per user with no expiration: preferences
// are superseded, never deleted.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a preference store on an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(userID string) string { return redisKeyPrefix + userID }

func (s *RedisStore) Get(ctx context.Context, userID string) (Preferences, error) {
	raw, err := s.client.Get(ctx, redisKey(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		p := Default(userID)
		p.UpdatedAt = time.Now()
		if err := s.put(ctx, p); err != nil {
			return Preferences{}, err
		}
		return p, nil
	case err != nil:
		return Preferences{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var p Preferences
	if err := json.Unmarshal(raw, &p); err != nil {
		return Preferences{}, fmt.Errorf("%w: corrupt record: %v", ErrStoreUnavailable, err)
	}
	return p, nil
}

func (s *RedisStore) Update(ctx context.Context, userID string, patch Patch) (Preferences, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}

	updated, err := apply(current, patch)
	if err != nil {
		return Preferences{}, err
	}
	updated.UpdatedAt = time.Now()

	if err := s.put(ctx, updated); err != nil {
		return Preferences{}, err
	}
	return updated, nil
}

func (s *RedisStore) put(ctx context.Context, p Preferences) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.client.Set(ctx, redisKey(p.UserID), raw, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
