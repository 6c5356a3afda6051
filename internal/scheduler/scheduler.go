// Package scheduler runs periodic housekeeping: expiring cached advice,
// forgetting idle rate-limit clients, and reporting backend status.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"finadvisor/internal/log"
	"finadvisor/internal/metrics"
)

// Sweeper removes stale entries and reports how many it removed.
type Sweeper interface {
	Sweep() int
}

// SweepFunc adapts a function to Sweeper.
type SweepFunc func() int

func (f SweepFunc) Sweep() int { return f() }

// Scheduler manages all cron tasks.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *log.Logger
}

// New creates a scheduler using standard five-field cron specs and the
// @every/@hourly descriptors. Panicking jobs are recovered and a job is
// skipped while its previous run is still going.
func New(ctx context.Context, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.FromContext(ctx)
	}
	logger = logger.WithComponent(log.ComponentScheduler)
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		ctx:    ctx,
		logger: logger,
	}
}

// RegisterSweep runs every sweeper on spec. An empty spec disables the job.
func (s *Scheduler) RegisterSweep(name, spec string, sweeper Sweeper) error {
	if spec == "" {
		s.logger.Info("Sweep job disabled", "job", name)
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.runSweep(name, sweeper) }); err != nil {
		return fmt.Errorf("register %s sweep: %w", name, err)
	}
	return nil
}

// RegisterStatusReport runs report on spec. An empty spec disables the job.
func (s *Scheduler) RegisterStatusReport(spec string, report func(context.Context)) error {
	if spec == "" {
		s.logger.Info("Status report disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { report(s.ctx) }); err != nil {
		return fmt.Errorf("register status report: %w", err)
	}
	return nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", s.Jobs())
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) runSweep(name string, sweeper Sweeper) {
	removed := sweeper.Sweep()
	if name == "cache" {
		metrics.CacheSweptEntries.Add(float64(removed))
	}
	if removed > 0 {
		s.logger.Debug("Sweep completed",
			"job", name,
			log.FieldOperation, log.OpSweep,
			"removed", removed)
	}
}

// cronLogger adapts the structured logger to cron's logging interface.
type cronLogger struct {
	logger *log.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{log.FieldError, err}, keysAndValues...)...)
}
