package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scheduler fires the runner on a standard five-field cron expression.
// Ticks that arrive while a check is still running are skipped.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	schedule cron.Schedule
	runner   *Runner
	logger   *zap.Logger
}

// New parses spec and prepares a Scheduler. It does not start it.
func New(spec string, runner *Runner, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	logger = logger.Named("schedule")
	cl := cronLogger{logger: logger.Sugar()}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cron: c, spec: spec, schedule: sched, runner: runner, logger: logger}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start registers the job and starts the cron loop. Runs use ctx so that
// canceling it aborts an in-flight check.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, s.job(ctx)); err != nil {
		return fmt.Errorf("add schedule: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("spec", s.spec),
		zap.Time("next_run", s.Next(time.Now())),
	)
	return nil
}

func (s *Scheduler) job(ctx context.Context) func() {
	return func() {
		report, err := s.runner.Trigger(ctx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.logger.Info("scheduled check skipped; manual run in progress")
		case err != nil:
			s.logger.Warn("scheduled check failed", zap.String("run_id", report.RunID), zap.Error(err))
		default:
			s.logger.Info("scheduled check finished",
				zap.String("run_id", report.RunID),
				zap.String("classification", string(report.Classification)),
			)
		}
	}
}

// Stop halts the cron loop and waits for a running job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running check: %w", ctx.Err())
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
