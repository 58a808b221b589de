// Package processor runs one backfill invocation: resolve the window, query
// the inventory, publish every matching scene, then advance the checkpoint.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/landsat-historic/internal/catalog"
	"github.com/ethpandaops/landsat-historic/internal/dispatch"
	"github.com/ethpandaops/landsat-historic/internal/publish"
	"github.com/ethpandaops/landsat-historic/internal/query"
	"github.com/ethpandaops/landsat-historic/internal/window"
)

// ErrRunInProgress is returned when a run is requested while another one is
// still active in this process.
var ErrRunInProgress = errors.New("a run is already in progress")

// Config holds processor settings.
type Config struct {
	// Timeout bounds a whole run. Exceeding it fails the run without commit.
	Timeout    time.Duration
	Dispatch   dispatch.Config
	Enrichment catalog.EnricherConfig
}

// Report summarises a run.
type Report struct {
	RunID         string
	Mode          string
	Start         string
	End           string
	Checkpoint    string
	NewCheckpoint string
	Committed     bool
	Published     int
	Skipped       int
	Dispatch      dispatch.Result
	Duration      time.Duration
}

// Processor wires window resolution, the query, and publishing together.
type Processor struct {
	log        logrus.FieldLogger
	cfg        Config
	resolver   *window.Resolver
	selector   query.Selector
	publisher  publish.Publisher
	dispatcher *dispatch.Dispatcher
	enricher   *catalog.Enricher
	mu         sync.Mutex
}

// New creates a Processor.
func New(
	log logrus.FieldLogger,
	cfg Config,
	resolver *window.Resolver,
	selector query.Selector,
	publisher publish.Publisher,
) *Processor {
	log = log.WithField("component", "processor")

	return &Processor{
		log:        log,
		cfg:        cfg,
		resolver:   resolver,
		selector:   selector,
		publisher:  publisher,
		dispatcher: dispatch.New(log, cfg.Dispatch),
		enricher:   catalog.NewEnricher(cfg.Enrichment),
	}
}

// Plan resolves the window Run would process for in, without side effects.
func (p *Processor) Plan(ctx context.Context, in window.Input) (window.Resolution, error) {
	return p.resolver.Resolve(ctx, in)
}

// Run processes one window. The checkpoint advances only when every record
// of the window was published.
func (p *Processor) Run(ctx context.Context, in window.Input) (Report, error) {
	if !p.mu.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer p.mu.Unlock()

	report := Report{RunID: uuid.New().String(), Mode: "checkpoint"}
	if _, ok := in.Explicit(); ok {
		report.Mode = "explicit"
	}

	log := p.log.WithFields(logrus.Fields{
		"run_id": report.RunID,
		"mode":   report.Mode,
	})

	started := time.Now()

	err := p.run(ctx, log, in, &report)

	report.Duration = time.Since(started)
	runDuration.WithLabelValues(report.Mode).Observe(report.Duration.Seconds())

	if err != nil {
		runsTotal.WithLabelValues(report.Mode, "failed").Inc()
		log.WithError(err).WithField("published", report.Published).Error("Run failed, checkpoint not advanced")

		return report, err
	}

	runsTotal.WithLabelValues(report.Mode, "succeeded").Inc()
	log.WithFields(logrus.Fields{
		"start":          report.Start,
		"end":            report.End,
		"published":      report.Published,
		"skipped":        report.Skipped,
		"reassembled":    report.Dispatch.Reassembled,
		"committed":      report.Committed,
		"new_checkpoint": report.NewCheckpoint,
		"duration":       report.Duration,
	}).Info("Run completed")

	return report, nil
}

func (p *Processor) run(ctx context.Context, log logrus.FieldLogger, in window.Input, report *Report) error {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	res, err := p.resolver.Resolve(ctx, in)
	if err != nil {
		return fmt.Errorf("resolve window: %w", err)
	}

	report.Start, report.End = res.Start, res.End
	report.Checkpoint = res.Checkpoint

	stream, err := p.selector.Select(ctx, res.Start, res.End)
	if err != nil {
		return fmt.Errorf("select: %w", err)
	}

	defer func() {
		if cerr := stream.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close result stream")
		}
	}()

	result, err := p.dispatcher.Dispatch(ctx, stream, func(ctx context.Context, raw json.RawMessage) error {
		return p.handle(ctx, log, raw, report)
	}, observeStats)

	report.Dispatch = result
	report.Skipped += result.Skipped
	reassembledTotal.Add(float64(result.Reassembled))

	if result.Skipped > 0 {
		recordsTotal.WithLabelValues("skipped").Add(float64(result.Skipped))
	}

	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	// The deadline may pass after the last event arrived.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run deadline: %w", err)
	}

	if err := p.resolver.Commit(ctx, res); err != nil {
		return err
	}

	if res.Commits() {
		report.NewCheckpoint = res.NewCheckpoint
		report.Committed = true

		if t, perr := time.Parse(p.resolver.Layout(), res.NewCheckpoint); perr == nil {
			checkpointTimestamp.Set(float64(t.Unix()))
		}
	}

	return nil
}

// handle decodes, enriches and publishes one record.
func (p *Processor) handle(ctx context.Context, log logrus.FieldLogger, raw json.RawMessage, report *Report) error {
	scene, err := catalog.DecodeScene(raw)
	if err != nil {
		return p.reject(log, err, report)
	}

	granule, err := p.enricher.Enrich(scene)
	if err != nil {
		return p.reject(log, err, report)
	}

	if err := p.publisher.Publish(ctx, publish.Message{
		LandsatProductID: granule.ProductID,
		S3Location:       granule.Location,
	}); err != nil {
		recordsTotal.WithLabelValues("failed").Inc()

		return err
	}

	report.Published++
	recordsTotal.WithLabelValues("published").Inc()

	return nil
}

// reject drops a record that failed validation under the skip policy.
// Every other failure is returned and aborts the run.
func (p *Processor) reject(log logrus.FieldLogger, err error, report *Report) error {
	if p.cfg.Dispatch.MalformedPolicy == dispatch.PolicySkip && errors.Is(err, dispatch.ErrMalformedRecord) {
		log.WithError(err).Warn("Skipping record that failed validation")

		report.Skipped++
		recordsTotal.WithLabelValues("skipped").Inc()

		return nil
	}

	recordsTotal.WithLabelValues("failed").Inc()

	return err
}

func observeStats(stats dispatch.StatsEvent) {
	selectBytesTotal.WithLabelValues("scanned").Add(float64(stats.BytesScanned))
	selectBytesTotal.WithLabelValues("processed").Add(float64(stats.BytesProcessed))
	selectBytesTotal.WithLabelValues("returned").Add(float64(stats.BytesReturned))
}
