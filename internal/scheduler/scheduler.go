// Package scheduler runs periodic jobs on the instance holding the leader
// lock.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/landsat-historic/internal/leader"
)

// Job is a periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the job once as soon as leadership is confirmed.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Scheduler ticks every registered job while this instance leads.
type Scheduler struct {
	log     logrus.FieldLogger
	elector leader.Elector
	jobs    []Job
	settle  time.Duration
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a Scheduler.
func New(log logrus.FieldLogger, elector leader.Elector, jobs ...Job) *Scheduler {
	return &Scheduler{
		log:     log.WithField("component", "scheduler"),
		elector: elector,
		jobs:    jobs,
		settle:  100 * time.Millisecond,
		done:    make(chan struct{}),
	}
}

// Start validates the jobs and launches one loop per job.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("job %s: interval must be positive", job.Name)
		}

		if job.Run == nil {
			return fmt.Errorf("job %s: no run function", job.Name)
		}
	}

	s.log.WithField("jobs", len(s.jobs)).Info("Starting scheduler")

	for _, job := range s.jobs {
		s.wg.Add(1)

		go s.loop(ctx, job)
	}

	return nil
}

// Stop stops all loops and waits for running jobs to return.
func (s *Scheduler) Stop() error {
	s.log.Info("Stopping scheduler")
	close(s.done)
	s.wg.Wait()

	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	log := s.log.WithField("job", job.Name)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	// Give leader election a moment to settle.
	select {
	case <-time.After(s.settle):
	case <-ctx.Done():
		return
	case <-s.done:
		return
	}

	if job.RunOnStart && s.elector.IsLeader() {
		s.execute(ctx, log, job)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if s.elector.IsLeader() {
				s.execute(ctx, log, job)
			} else {
				log.Debug("Not leader, skipping tick")
			}
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, log logrus.FieldLogger, job Job) {
	start := time.Now()

	if err := job.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		log.WithError(err).Error("Job failed")

		return
	}

	log.WithField("duration", time.Since(start)).Debug("Job finished")
}
