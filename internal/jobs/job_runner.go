package jobs

import (
	"fmt"

	"vehicle-risk-backend/internal/config"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/service"
)

// Job names accepted by RunOnce
const (
	JobRecalculateBonusMalus = "recalculate-bonus-malus"
	JobRefreshFxRate         = "refresh-fx-rate"
	JobAll                   = "all"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	BonusMalus service.BonusMalusService
	Fx         service.FxService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.RecalculateBonusMalus()
	jr.RefreshFxRate()
}

// RunOnce runs a single job by name
func (jr *JobRunner) RunOnce(name string) error {
	switch name {
	case JobRecalculateBonusMalus:
		jr.RecalculateBonusMalus()
	case JobRefreshFxRate:
		jr.RefreshFxRate()
	case JobAll:
		jr.RunAll()
	default:
		return fmt.Errorf("unknown job: %s", name)
	}
	return nil
}
