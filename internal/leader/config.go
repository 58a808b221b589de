package leader

import "time"

// Config holds leader election configuration.
type Config struct {
	// LockKey is the Redis key holding the current leader's instance id.
	LockKey string
	// LockTTL expires the lock when the leader dies without releasing it.
	LockTTL time.Duration
	// RenewInterval must stay below LockTTL.
	RenewInterval time.Duration
	// RetryInterval paces followers trying to take over.
	RetryInterval time.Duration
}
