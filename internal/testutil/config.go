package testutil

import (
	"time"

	"github.com/ethpandaops/landsat-historic/internal/config"
)

// NewTestConfig returns a valid config for testing. Validate has already
// been applied, so defaults are filled in.
func NewTestConfig() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Minute,
			ShutdownTimeout: time.Second,
			LogLevel:        "info",
		},
		Redis: config.RedisConfig{
			Address:     "localhost:6379",
			DialTimeout: time.Second,
			PoolSize:    2,
		},
		Leader: config.LeaderConfig{
			LockKey:       "landsat-historic:leader",
			LockTTL:       10 * time.Second,
			RenewInterval: 3 * time.Second,
			RetryInterval: 5 * time.Second,
		},
		Source: config.SourceConfig{
			Bucket: "landsat-historic-inventory-bucket",
		},
		Window: config.WindowConfig{
			Lookback:          30,
			InitialCheckpoint: "2021-07-01 00:00:00",
		},
		Publish: config.PublishConfig{
			TopicARN: "arn:aws:sns:us-west-2:123456789012:landsat-historic",
		},
	}

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}
