package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"hireflow-backend/internal/jobs"
	"hireflow-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. It fails
// when a configured cron spec does not parse.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// I-9 section 2 deadlines and expiring work authorizations
	if _, err := s.cron.AddFunc(cfg.SendI9DeadlineReminders, s.jobs.SendI9DeadlineReminders); err != nil {
		return fmt.Errorf("failed to register SendI9DeadlineReminders job: %w", err)
	}
	if _, err := s.cron.AddFunc(cfg.SendI9DeadlineReminders, s.jobs.SendAuthorizationExpiryReminders); err != nil {
		return fmt.Errorf("failed to register SendAuthorizationExpiryReminders job: %w", err)
	}

	// FCRA waiting periods
	if _, err := s.cron.AddFunc(cfg.SendWaitingPeriodNotices, s.jobs.SendWaitingPeriodNotices); err != nil {
		return fmt.Errorf("failed to register SendWaitingPeriodNotices job: %w", err)
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
