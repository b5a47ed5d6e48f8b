package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger wraps slog with helpers for the domain events this service cares
// about, so call sites stay one-liners and the attribute names stay uniform.
type Logger struct {
	*slog.Logger
}

var (
	instance *Logger
	once     sync.Once
)

// Init configures the global logger. Text handler for local development,
// JSON for everything else.
func Init(env string) {
	once.Do(func() {
		var handler slog.Handler

		opts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if strings.EqualFold(env, "development") {
			opts.Level = slog.LevelDebug
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewJSONHandler(os.Stdout, opts)
		}

		instance = &Logger{slog.New(handler)}
		slog.SetDefault(instance.Logger)
	})
}

// Get returns the global logger, initializing a development logger if Init
// was never called (tests, short-lived tools).
func Get() *Logger {
	if instance == nil {
		Init("development")
	}
	return instance
}

// WithContext returns a logger carrying the request id when one is present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if requestID, ok := ctx.Value("request_id").(string); ok {
		return &Logger{l.With(slog.String("request_id", requestID))}
	}
	return l
}

// Domain helpers

// LogEventApplied records one incremental update that reached the metric
// store.
func (l *Logger) LogEventApplied(eventType string, hostID uuid.UUID) {
	l.Debug("metric event applied",
		slog.String("event_type", eventType),
		slog.String("host_id", hostID.String()),
	)
}

// LogEventDropped records an incremental update that failed and was
// swallowed. The batch recompute will repair the drift.
func (l *Logger) LogEventDropped(eventType string, err error) {
	l.Warn("metric event dropped",
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogHostRecomputed records one successful host recompute.
func (l *Logger) LogHostRecomputed(hostID uuid.UUID, duration time.Duration) {
	l.Info("host metrics recomputed",
		slog.String("host_id", hostID.String()),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)
}

// LogBatchRun records the outcome of a full recompute sweep.
func (l *Logger) LogBatchRun(scope string, processed, failed int, duration time.Duration) {
	l.Info("batch aggregation finished",
		slog.String("scope", scope),
		slog.Int("processed", processed),
		slog.Int("failed", failed),
		slog.Int64("duration_ms", duration.Milliseconds()),
	)
}

// LogSnapshotBuilt records a completed snapshot build.
func (l *Logger) LogSnapshotBuilt(granularity string, period string, hosts int) {
	l.Info("snapshots built",
		slog.String("granularity", granularity),
		slog.String("period", period),
		slog.Int("hosts", hosts),
	)
}

// LogConsumerEvent records one message received from the event stream.
func (l *Logger) LogConsumerEvent(topic string, eventType string, partition int32, offset int64) {
	l.Debug("event consumed",
		slog.String("topic", topic),
		slog.String("event_type", eventType),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)
}

// LogJobStarted records a scheduled job beginning a run.
func (l *Logger) LogJobStarted(job string) {
	l.Info("scheduled job started", slog.String("job", job))
}

// LogJobFailed records a scheduled job run that returned an error.
func (l *Logger) LogJobFailed(job string, err error) {
	l.Error("scheduled job failed",
		slog.String("job", job),
		slog.String("error", err.Error()),
	)
}
