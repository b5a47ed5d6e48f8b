package stats

import (
	"context"
	"time"

	"fitspot/pkg/logger"
)

// JobProcessor runs the periodic aggregation work: the full recompute sweep
// that repairs incremental drift, and the daily/monthly snapshot builds.
type JobProcessor struct {
	service Service
	config  *JobConfig
	log     *logger.Logger
	done    chan struct{}
}

// JobConfig contains the schedule for background aggregation jobs
type JobConfig struct {
	RecomputeInterval time.Duration
	SnapshotInterval  time.Duration
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		RecomputeInterval: 6 * time.Hour,
		SnapshotInterval:  24 * time.Hour,
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}
	return &JobProcessor{
		service: service,
		config:  config,
		log:     logger.Get(),
		done:    make(chan struct{}),
	}
}

// Start launches the background jobs.
func (jp *JobProcessor) Start(ctx context.Context) {
	go jp.runRecomputeLoop(ctx)
	go jp.runSnapshotLoop(ctx)
	jp.log.Info("stats background jobs started",
		"recompute_interval", jp.config.RecomputeInterval.String(),
		"snapshot_interval", jp.config.SnapshotInterval.String(),
	)
}

// Stop stops all background jobs.
func (jp *JobProcessor) Stop() {
	close(jp.done)
	jp.log.Info("stats background jobs stopped")
}

func (jp *JobProcessor) runRecomputeLoop(ctx context.Context) {
	ticker := time.NewTicker(jp.config.RecomputeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.runRecompute(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) runRecompute(ctx context.Context) {
	jp.log.LogJobStarted("full_recompute")
	if _, err := jp.service.RecomputeAllHosts(ctx); err != nil {
		jp.log.LogJobFailed("full_recompute", err)
		return
	}
	if _, err := jp.service.RecomputeActivities(ctx, nil); err != nil {
		jp.log.LogJobFailed("full_recompute", err)
	}
}

func (jp *JobProcessor) runSnapshotLoop(ctx context.Context) {
	ticker := time.NewTicker(jp.config.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.runSnapshots(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runSnapshots snapshots the last completed periods. The day and month are
// passed explicitly; the nil-argument defaults target the current period.
func (jp *JobProcessor) runSnapshots(ctx context.Context) {
	jp.log.LogJobStarted("daily_snapshot")
	yesterday := time.Now().AddDate(0, 0, -1)
	if _, err := jp.service.BuildDailySnapshot(ctx, &yesterday); err != nil {
		jp.log.LogJobFailed("daily_snapshot", err)
	}

	// The monthly build for the previous month runs on the first tick of a
	// new month.
	if time.Now().Day() == 1 {
		jp.log.LogJobStarted("monthly_snapshot")
		previous := time.Now().AddDate(0, -1, 0)
		year, month := previous.Year(), int(previous.Month())
		if _, err := jp.service.BuildMonthlySnapshot(ctx, &year, &month); err != nil {
			jp.log.LogJobFailed("monthly_snapshot", err)
		}
	}
}
