package jobs

import (
	"context"
	"time"

	"hireflow-backend/internal/config"
	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/metrics"
	"hireflow-backend/internal/repository"
	"hireflow-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs. Jobs only read deadlines and send
// reminders; they never move a workflow to another state.
type JobRunner struct {
	repos    *repository.Repositories
	notifier service.Notifier
	dedupe   Deduper
	config   *config.Config
	now      func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies. dedupe may be
// nil, in which case every run sends its reminders again.
func NewJobRunner(repos *repository.Repositories, notifier service.Notifier, dedupe Deduper, cfg *config.Config) *JobRunner {
	return &JobRunner{
		repos:    repos,
		notifier: notifier,
		dedupe:   dedupe,
		config:   cfg,
		now:      time.Now,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = errPanicked
		}
		metrics.RecordJobRun(jobName, time.Since(start), err)
	}()

	logger.Info("Starting job", "job", jobName)
	err = jobFunc(context.Background())
	if err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		return
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
}

// RunAllDailyJobs runs all daily jobs (for manual execution)
func (jr *JobRunner) RunAllDailyJobs() {
	jr.SendI9DeadlineReminders()
	jr.SendAuthorizationExpiryReminders()
	jr.SendWaitingPeriodNotices()
}
