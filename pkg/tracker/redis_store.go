package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pingline/pingline/pkg/notification"
)

const (
	redisDeliveryPrefix = "pingline:delivery:"
	redisUserPrefix     = "pingline:deliveries:"
	redisUsersKey       = "pingline:delivery_users"
)

// RedisStore is a Redis-backed Store for multi-process deployments. Each
// delivery is a JSON value under its own key; per-user history is a sorted
// set scored by creation time so range queries map onto ZRANGEBYSCORE.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a delivery store on an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func deliveryKey(id string) string { return redisDeliveryPrefix + id }
func userKey(userID string) string { return redisUserPrefix + userID }

func (s *RedisStore) Create(ctx context.Context, d *notification.Delivery) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, deliveryKey(d.ID), raw, 0)
	pipe.ZAdd(ctx, userKey(d.UserID), redis.Z{
		Score:  float64(d.CreatedAt.UnixNano()),
		Member: d.ID,
	})
	pipe.SAdd(ctx, redisUsersKey, d.UserID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*notification.Delivery, error) {
	raw, err := s.client.Get(ctx, deliveryKey(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("%w: %s", ErrDeliveryNotFound, id)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var d notification.Delivery
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: corrupt record: %v", ErrStoreUnavailable, err)
	}
	return &d, nil
}

func (s *RedisStore) Update(ctx context.Context, d *notification.Delivery) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.client.Set(ctx, deliveryKey(d.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) ListByUser(ctx context.Context, userID string, since time.Time) ([]*notification.Delivery, error) {
	ids, err := s.client.ZRangeByScore(ctx, userKey(userID), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", since.UnixNano()),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]*notification.Delivery, 0, len(ids))
	for _, id := range ids {
		d, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrDeliveryNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *RedisStore) Users(ctx context.Context) ([]string, error) {
	users, err := s.client.SMembers(ctx, redisUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return users, nil
}
