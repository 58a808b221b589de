package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the connection settings of the Redis client that backs the
// window checkpoint (keys under landsat:checkpoint:) and the leader lock.
// Both share one pool, so PoolSize must cover a backfill run plus lock
// renewal.
type Config struct {
	Address  string
	Password string //nolint:gosec // Config field, not a hardcoded secret.
	// DB selects the logical database holding checkpoint and lock keys.
	DB int

	DialTimeout time.Duration
	// ReadTimeout bounds the compare-and-swap scripts as well as plain reads.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// options maps the configuration onto go-redis client options.
func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Address,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolSize:     c.PoolSize,
	}
}
