// Package observability provides job logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// JobLogger logs the lifecycle of a background job run.
type JobLogger struct {
	job    string
	logger *slog.Logger
}

// NewJobLogger returns a JobLogger for job writing to logger.
func NewJobLogger(job string, logger *slog.Logger) *JobLogger {
	return &JobLogger{job: job, logger: logger}
}

// Start logs the beginning of a run and returns its start time.
func (l *JobLogger) Start(ctx context.Context) time.Time {
	l.logger.DebugContext(ctx, "background job started",
		slog.String("job", l.job),
		slog.String("type", "job_start"),
	)
	return time.Now()
}

// End logs a completed run with its removal counts.
func (l *JobLogger) End(ctx context.Context, start time.Time, removed map[string]int64) {
	attrs := []any{
		slog.String("job", l.job),
		slog.String("type", "job_end"),
		slog.Duration("elapsed", time.Since(start)),
	}
	total := int64(0)
	for kind, n := range removed {
		attrs = append(attrs, slog.Int64(kind, n))
		BackgroundJobRemovals.WithLabelValues(l.job, kind).Add(float64(n))
		total += n
	}
	if total == 0 {
		l.logger.DebugContext(ctx, "background job completed", attrs...)
		return
	}
	l.logger.InfoContext(ctx, "background job completed", attrs...)
}

// Error logs a failed run. Jobs keep running after an error.
func (l *JobLogger) Error(ctx context.Context, err error) {
	l.logger.ErrorContext(ctx, "background job failed",
		slog.String("job", l.job),
		slog.String("type", "job_error"),
		slog.String("error", err.Error()),
	)
}
