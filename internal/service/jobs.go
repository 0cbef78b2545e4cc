package service

import (
	"context"
	"sync"
	"time"

	"photoshare/internal/middleware"
	"photoshare/internal/observability"
)

// JobRunner runs the periodic maintenance jobs until Stop is called.
type JobRunner struct {
	resets            *PasswordResetService
	reconciler        *Reconciler
	sweepInterval     time.Duration
	reconcileInterval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewJobRunner returns a runner. A zero interval disables the matching job;
// reconciler may be nil.
func NewJobRunner(resets *PasswordResetService, reconciler *Reconciler, sweepInterval, reconcileInterval time.Duration) *JobRunner {
	return &JobRunner{
		resets:            resets,
		reconciler:        reconciler,
		sweepInterval:     sweepInterval,
		reconcileInterval: reconcileInterval,
	}
}

// Start launches the jobs. Calling it more than once has no further effect.
func (j *JobRunner) Start(ctx context.Context) {
	j.startOnce.Do(func() {
		ctx, j.cancel = context.WithCancel(ctx)

		if j.resets != nil && j.sweepInterval > 0 {
			j.loop(ctx, "password_reset_sweep", j.sweepInterval, func(ctx context.Context) (map[string]int64, error) {
				n, err := j.resets.SweepExpired(ctx)
				return map[string]int64{"password_resets": n}, err
			})
		}
		if j.reconciler != nil && j.reconcileInterval > 0 {
			j.loop(ctx, "orphan_reconcile", j.reconcileInterval, func(ctx context.Context) (map[string]int64, error) {
				report, err := j.reconciler.Run(ctx)
				if report == nil {
					return nil, err
				}
				return report.Counts(), err
			})
		}
	})
}

func (j *JobRunner) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context) (map[string]int64, error)) {
	logger := observability.NewJobLogger(name, middleware.Logger)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				span, runCtx := observability.NewSpan(ctx, "job."+name)
				start := logger.Start(runCtx)
				removed, err := run(runCtx)
				span.SetError(err)
				span.End()
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Error(runCtx, err)
				}
				if removed != nil {
					logger.End(runCtx, start, removed)
				}
			}
		}
	}()
}

// Stop cancels the jobs and waits for a run in progress to return.
func (j *JobRunner) Stop() {
	j.stopOnce.Do(func() {
		if j.cancel != nil {
			j.cancel()
		}
		j.wg.Wait()
	})
}
