package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/landsat-historic/internal/config"
	"github.com/ethpandaops/landsat-historic/internal/processor"
	"github.com/ethpandaops/landsat-historic/internal/scheduler"
	"github.com/ethpandaops/landsat-historic/internal/server"
	"github.com/ethpandaops/landsat-historic/internal/window"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled backfill loop",
		Long: `Serve exposes /health, /metrics, GET /api/v1/checkpoint and POST /api/v1/runs.

With schedule.enabled the leader instance processes the next checkpointed
window every schedule.interval. With inventory.enabled it also refreshes the
inventory copy every inventory.interval.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(opts.configPath)
		},
	}
}

func runServe(configPath string) error {
	logger := setupLogger()

	// Create application context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadAndValidateConfig(logger, configPath)
	if err != nil {
		return err
	}

	scheduled := cfg.Schedule.Enabled || cfg.Inventory.Enabled

	infra, err := setupInfrastructure(ctx, logger, cfg, scheduled)
	if err != nil {
		return fmt.Errorf("infrastructure setup failed: %w", err)
	}

	proc, err := newProcessor(logger, cfg, infra)
	if err != nil {
		infra.stop(logger)

		return fmt.Errorf("processor setup failed: %w", err)
	}

	var sched *scheduler.Scheduler

	if scheduled {
		sched, err = startScheduler(ctx, logger, cfg, infra, proc)
		if err != nil {
			infra.stop(logger)

			return fmt.Errorf("scheduler setup failed: %w", err)
		}
	}

	srv := startServer(cfg, logger, infra, proc)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	// Cancel application context to signal all services to stop
	cancel()

	shutdownGracefully(logger, cfg, srv, sched, infra)

	return nil
}

// backfillJobs builds the periodic jobs enabled in cfg.
func backfillJobs(
	logger logrus.FieldLogger,
	cfg *config.Config,
	infra *infrastructure,
	proc *processor.Processor,
) ([]scheduler.Job, error) {
	var jobs []scheduler.Job

	if cfg.Schedule.Enabled {
		jobs = append(jobs, scheduler.Job{
			Name:       "backfill",
			Interval:   cfg.Schedule.Interval,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				_, err := proc.Run(ctx, window.Checkpointed())
				if errors.Is(err, processor.ErrRunInProgress) {
					logger.Info("Skipping scheduled run, a triggered run is active")

					return nil
				}

				return err
			},
		})
	}

	if cfg.Inventory.Enabled {
		copier, err := newCopier(logger, cfg, infra)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, scheduler.Job{
			Name:     "inventory",
			Interval: cfg.Inventory.Interval,
			Run: func(ctx context.Context) error {
				_, err := copier.Sync(ctx)

				return err
			},
		})
	}

	return jobs, nil
}

// startScheduler starts the leader gated job loops.
func startScheduler(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
	infra *infrastructure,
	proc *processor.Processor,
) (*scheduler.Scheduler, error) {
	jobs, err := backfillJobs(logger, cfg, infra, proc)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(logger, infra.elector, jobs...)

	if err := sched.Start(ctx); err != nil {
		return nil, err
	}

	return sched, nil
}

// startServer creates and starts the HTTP server.
func startServer(
	cfg *config.Config,
	logger *logrus.Logger,
	infra *infrastructure,
	proc *processor.Processor,
) *server.Server {
	srv := server.New(logger, server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Layout:       cfg.Window.Layout,
	}, proc, infra.elector)

	// Start server in goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server starting")

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server error")
		}
	}()

	return srv
}

// shutdownGracefully performs graceful shutdown of all services.
// Shutdown order:
// 1. HTTP server (stop accepting runs).
// 2. Scheduler (wait for an active run to observe cancellation).
// 3. Leader election (release leadership lock).
// 4. Redis client (close connections).
func shutdownGracefully(
	logger *logrus.Logger,
	cfg *config.Config,
	srv *server.Server,
	sched *scheduler.Scheduler,
	infra *infrastructure,
) {
	logger.Info("Initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during server shutdown")
	}

	if sched != nil {
		if err := sched.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping scheduler")
		}
	}

	infra.stop(logger)

	logger.Info("Server stopped gracefully")
}
