// Package maintenance runs the periodic background jobs that are not part
// of any single tool call: stale-branch warnings and the doctor
// dry-run advisory sweep. It is deliberately kept separate from
// internal/scheduler, which owns the task/subtask/sidequest lifecycle —
// these are two different meanings of "scheduling" that happen to share
// a ticker-based runner.
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Job is one periodic maintenance task.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner ticks each registered Job at its own interval.
type Runner struct {
	logger *slog.Logger
	jobs   []scheduledJob
}

type scheduledJob struct {
	job      Job
	interval time.Duration
	ticker   *time.Ticker
	stop     chan struct{}
}

// NewRunner creates a new maintenance job runner.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// AddJob registers a job to run at the given interval once Start is called.
func (r *Runner) AddJob(job Job, interval time.Duration) {
	r.jobs = append(r.jobs, scheduledJob{
		job:      job,
		interval: interval,
		stop:     make(chan struct{}),
	})
}

// Start begins running every registered job on its own ticker.
func (r *Runner) Start(ctx context.Context) {
	for i := range r.jobs {
		sj := &r.jobs[i]
		sj.ticker = time.NewTicker(sj.interval)

		go func(sj *scheduledJob) {
			r.logger.Info("starting maintenance job", "job", sj.job.Name(), "interval", sj.interval)
			for {
				select {
				case <-sj.ticker.C:
					r.logger.Debug("running maintenance job", "job", sj.job.Name())
					if err := sj.job.Run(ctx); err != nil {
						r.logger.Error("maintenance job failed", "job", sj.job.Name(), "error", err)
					}
				case <-sj.stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}(sj)
	}
}

// Stop halts every registered job.
func (r *Runner) Stop() {
	for i := range r.jobs {
		if r.jobs[i].ticker != nil {
			r.jobs[i].ticker.Stop()
		}
		close(r.jobs[i].stop)
	}
	r.logger.Info("maintenance runner stopped")
}
