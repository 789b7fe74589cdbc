// Package scheduler runs the enrichment fetcher on a cron schedule, standing
// in for the platform scheduler that drives deployments.
package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/ruleforge/ruleforge/internal/logger"
)

// Scheduler wraps a cron runner holding the enrichment job.
type Scheduler struct {
	cron *cron.Cron
}

// New schedules job under the given cron spec (descriptors like @hourly are
// accepted). The job must be safe to re-run; enrichment is by construction.
func New(spec string, job func()) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, job); err != nil {
		return nil, fmt.Errorf("schedule enrichment job: %w", err)
	}

	return &Scheduler{cron: c}, nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Log().Info("enrichment scheduler started")
}

// Stop halts the scheduler, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
