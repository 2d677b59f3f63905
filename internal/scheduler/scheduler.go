package scheduler

import (
	"time"

	"vehicle-risk-backend/internal/jobs"
	"vehicle-risk-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler
	registered := 0

	_, err := s.cron.AddFunc(cfg.RecalculateBonusMalus, s.jobs.RecalculateBonusMalus)
	if err != nil {
		logger.Error("Failed to register RecalculateBonusMalus job", "schedule", cfg.RecalculateBonusMalus, "error", err)
	} else {
		registered++
	}

	_, err = s.cron.AddFunc(cfg.RefreshFxRate, s.jobs.RefreshFxRate)
	if err != nil {
		logger.Error("Failed to register RefreshFxRate job", "schedule", cfg.RefreshFxRate, "error", err)
	} else {
		registered++
	}

	logger.Info("Cron jobs registered", "count", registered)
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

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return s.Entries() > 0
}
