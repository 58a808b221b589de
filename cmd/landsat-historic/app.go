package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/landsat-historic/internal/awsclient"
	"github.com/ethpandaops/landsat-historic/internal/catalog"
	"github.com/ethpandaops/landsat-historic/internal/checkpoint"
	"github.com/ethpandaops/landsat-historic/internal/config"
	"github.com/ethpandaops/landsat-historic/internal/dispatch"
	"github.com/ethpandaops/landsat-historic/internal/inventory"
	"github.com/ethpandaops/landsat-historic/internal/leader"
	"github.com/ethpandaops/landsat-historic/internal/processor"
	"github.com/ethpandaops/landsat-historic/internal/publish"
	"github.com/ethpandaops/landsat-historic/internal/query"
	"github.com/ethpandaops/landsat-historic/internal/redis"
	"github.com/ethpandaops/landsat-historic/internal/version"
	"github.com/ethpandaops/landsat-historic/internal/window"
)

// infrastructure holds core infrastructure components. redisClient and
// elector are nil when nothing configured needs them.
type infrastructure struct {
	aws         *awsclient.Clients
	redisClient redis.Client
	elector     leader.Elector
}

// setupLogger creates and configures the application logger.
func setupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logger.WithFields(logrus.Fields{
		"version":    version.Short(),
		"git_commit": version.Get().GitCommit,
		"build_date": version.BuildDate,
	}).Info("Starting...")

	return logger
}

// loadAndValidateConfig loads the configuration file and validates it.
func loadAndValidateConfig(logger *logrus.Logger, configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Set log level from config
	level, parseErr := logrus.ParseLevel(cfg.Server.LogLevel)
	if parseErr != nil {
		logger.WithError(parseErr).Warn("Invalid log level, using info")

		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"source":     fmt.Sprintf("s3://%s/%s", cfg.Source.Bucket, cfg.Source.Key),
		"backend":    cfg.Window.Backend,
		"checkpoint": cfg.Window.ParameterName,
		"lookback":   fmt.Sprintf("%d %s", cfg.Window.Lookback, cfg.Window.Unit),
	}).Info("Configuration loaded")

	return cfg, nil
}

// setupInfrastructure initializes the AWS clients, and Redis plus leader
// election when they are needed. withElector is set by serve when it
// schedules jobs.
func setupInfrastructure(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
	withElector bool,
) (*infrastructure, error) {
	clients, err := awsclient.New(ctx, logger, awsConfig(cfg))
	if err != nil {
		return nil, err
	}

	infra := &infrastructure{aws: clients}

	if cfg.Window.Backend != config.BackendRedis && !withElector {
		return infra, nil
	}

	infra.redisClient = redis.NewClient(logger, redisConfig(cfg))

	if err := infra.redisClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start Redis client: %w", err)
	}

	if !withElector {
		return infra, nil
	}

	infra.elector = leader.NewElector(logger, leaderConfig(cfg), infra.redisClient)

	if err := infra.elector.Start(ctx); err != nil {
		_ = infra.redisClient.Stop()

		return nil, fmt.Errorf("failed to start leader election: %w", err)
	}

	return infra, nil
}

// stop releases leadership before closing Redis connections.
func (i *infrastructure) stop(logger logrus.FieldLogger) {
	if i.elector != nil {
		if err := i.elector.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping leader election")
		}
	}

	if i.redisClient != nil {
		if err := i.redisClient.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping Redis client")
		}
	}
}

// newStore picks the checkpoint backend.
func newStore(logger logrus.FieldLogger, cfg *config.Config, infra *infrastructure) (checkpoint.Store, error) {
	switch cfg.Window.Backend {
	case config.BackendRedis:
		if infra.redisClient == nil {
			return nil, fmt.Errorf("redis checkpoint backend without a Redis client")
		}

		return checkpoint.NewRedisStore(logger, infra.redisClient), nil
	case config.BackendSSM:
		return checkpoint.NewSSMStore(logger, infra.aws.SSM), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Window.Backend)
	}
}

// newProcessor wires the resolver, selector and publisher together.
func newProcessor(logger logrus.FieldLogger, cfg *config.Config, infra *infrastructure) (*processor.Processor, error) {
	store, err := newStore(logger, cfg, infra)
	if err != nil {
		return nil, err
	}

	publishCfg := publishConfig(cfg)
	if err := publishCfg.Validate(); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	return processor.New(
		logger,
		processorConfig(cfg),
		window.NewResolver(logger, windowConfig(cfg), store),
		query.NewS3Selector(logger, queryConfig(cfg), infra.aws.S3),
		publish.NewSNSPublisher(logger, publishCfg, infra.aws.SNS),
	), nil
}

// newCopier builds the inventory copier writing into the source bucket.
func newCopier(logger logrus.FieldLogger, cfg *config.Config, infra *infrastructure) (*inventory.Copier, error) {
	copyCfg := inventoryConfig(cfg)
	if err := copyCfg.Validate(); err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}

	return inventory.NewCopier(logger, copyCfg, infra.aws.S3), nil
}

func awsConfig(cfg *config.Config) awsclient.Config {
	return awsclient.Config{
		Region:       cfg.AWS.Region,
		Profile:      cfg.AWS.Profile,
		Endpoint:     cfg.AWS.Endpoint,
		UsePathStyle: cfg.AWS.UsePathStyle,
	}
}

func redisConfig(cfg *config.Config) redis.Config {
	return redis.Config{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
	}
}

func leaderConfig(cfg *config.Config) leader.Config {
	return leader.Config{
		LockKey:       cfg.Leader.LockKey,
		LockTTL:       cfg.Leader.LockTTL,
		RenewInterval: cfg.Leader.RenewInterval,
		RetryInterval: cfg.Leader.RetryInterval,
	}
}

func windowConfig(cfg *config.Config) window.Config {
	return window.Config{
		Name:              cfg.Window.ParameterName,
		Layout:            cfg.Window.Layout,
		Unit:              window.Unit(cfg.Window.Unit),
		Lookback:          cfg.Window.Lookback,
		InitialCheckpoint: cfg.Window.InitialCheckpoint,
	}
}

func queryConfig(cfg *config.Config) query.Config {
	return query.Config{
		Bucket: cfg.Source.Bucket,
		Key:    cfg.Source.Key,
		Filters: query.Filters{
			AcquiredPattern:  cfg.Query.AcquiredPattern,
			WindowPattern:    cfg.Query.WindowPattern,
			ProcessingLevel:  cfg.Query.ProcessingLevel,
			SensorID:         cfg.Query.SensorID,
			SpacecraftID:     cfg.Query.SpacecraftID,
			ProductIDPattern: cfg.Query.ProductIDPattern,
		},
	}
}

func publishConfig(cfg *config.Config) publish.Config {
	return publish.Config{TopicARN: cfg.Publish.TopicARN}
}

func processorConfig(cfg *config.Config) processor.Config {
	return processor.Config{
		Timeout: cfg.Processor.Timeout,
		Dispatch: dispatch.Config{
			MaxFragmentBytes: cfg.Dispatch.MaxFragmentBytes(),
			MalformedPolicy:  dispatch.MalformedPolicy(cfg.Dispatch.MalformedPolicy),
		},
		Enrichment: catalog.EnricherConfig{
			ExpectedSensors: cfg.Enrichment.ExpectedSensors,
			LocationBucket:  cfg.Enrichment.LocationBucket,
		},
	}
}

func inventoryConfig(cfg *config.Config) inventory.Config {
	return inventory.Config{
		SourceBucket: cfg.Inventory.SourceBucket,
		SourceKey:    cfg.Inventory.SourceKey,
		DestBucket:   cfg.Source.Bucket,
		DestKey:      cfg.Inventory.DestKey,
	}
}
