package jobs

import (
	"sync"
	"time"

	"parkspot-backend/internal/config"
	"parkspot-backend/internal/domain"
	"parkspot-backend/internal/logger"
	"parkspot-backend/internal/metrics"
	"parkspot-backend/internal/repository"
)

const defaultJobTimeout = 30 * time.Second

// RuleLoader receives a full replacement rule set.
type RuleLoader interface {
	ReplaceRules(rules []domain.DiscountRule) error
	Len() int
}

// HealthReporter is told whether the engine holds a usable rule set.
type HealthReporter interface {
	SetRulesReady(ready bool)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	ruleRepo repository.DiscountRuleRepository
	engine   RuleLoader
	health   HealthReporter
	metrics  *metrics.Metrics
	config   *config.Config
	timeout  time.Duration

	refreshMu sync.Mutex
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(ruleRepo repository.DiscountRuleRepository, engine RuleLoader, health HealthReporter, m *metrics.Metrics, cfg *config.Config) *JobRunner {
	return &JobRunner{
		ruleRepo: ruleRepo,
		engine:   engine,
		health:   health,
		metrics:  m,
		config:   cfg,
		timeout:  defaultJobTimeout,
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

	started := time.Now()
	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName, "duration", time.Since(started))
}
