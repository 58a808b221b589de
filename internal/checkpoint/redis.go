package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/landsat-historic/internal/redis"
)

// Compile-time interface compliance check.
var _ Store = (*RedisStore)(nil)

const redisKeyPrefix = "landsat:checkpoint:"

// RedisStore keeps checkpoints as plain Redis strings without expiry.
type RedisStore struct {
	log   logrus.FieldLogger
	redis redis.Client
}

// NewRedisStore creates a Redis-backed checkpoint store.
func NewRedisStore(log logrus.FieldLogger, redisClient redis.Client) *RedisStore {
	return &RedisStore{
		log:   log.WithField("component", "checkpoint_redis"),
		redis: redisClient,
	}
}

// Get reads the checkpoint stored under name.
func (s *RedisStore) Get(ctx context.Context, name string) (string, error) {
	value, err := s.redis.Get(ctx, redisKeyPrefix+name)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		return "", fmt.Errorf("get checkpoint %s: %w", name, err)
	}

	return value, nil
}

// Put overwrites the checkpoint stored under name.
func (s *RedisStore) Put(ctx context.Context, name, value string) error {
	if err := s.redis.Set(ctx, redisKeyPrefix+name, value, 0); err != nil {
		return fmt.Errorf("put checkpoint %s: %w", name, err)
	}

	s.log.WithFields(logrus.Fields{
		"name":  name,
		"value": value,
	}).Debug("Stored checkpoint")

	return nil
}

// CompareAndSwap atomically advances the checkpoint via a Lua script.
func (s *RedisStore) CompareAndSwap(ctx context.Context, name, expected, value string) (bool, error) {
	swapped, err := s.redis.CompareAndSwap(ctx, redisKeyPrefix+name, expected, value, 0)
	if err != nil {
		return false, fmt.Errorf("swap checkpoint %s: %w", name, err)
	}

	s.log.WithFields(logrus.Fields{
		"name":     name,
		"expected": expected,
		"value":    value,
		"swapped":  swapped,
	}).Debug("Compared and swapped checkpoint")

	return swapped, nil
}
