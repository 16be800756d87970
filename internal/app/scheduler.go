/**
 * @description
 * Cron scheduler for the reconciliation backstop.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic reconciliation pass.
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	logger   *slog.Logger
	schedule string
}

// NewScheduler creates a scheduler that runs the service's reconciliation on
// the given cron schedule (e.g. "@every 60s").
func NewScheduler(service *Service, logger *slog.Logger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		service:  service,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the reconciliation job and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.runReconcile); err != nil {
		s.logger.Error("failed to schedule fee reconciliation job", "error", err)
		return
	}
	s.logger.Info("scheduled fee reconciliation job", "schedule", s.schedule)
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runReconcile() {
	ctx := context.Background()

	report, err := s.service.Reconcile(ctx)
	if err != nil {
		s.logger.Error("fee reconciliation pass failed", "error", err)
		return
	}

	if report.Scanned == 0 {
		return
	}

	s.logger.Info("fee reconciliation pass finished",
		"scanned", report.Scanned,
		"paid", report.Paid,
		"expired", report.Expired,
		"errors", report.Errors,
	)
}
