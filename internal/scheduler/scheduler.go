// Package scheduler triggers recurring processing on a cron cadence. A lock
// around each tick keeps concurrent instances from processing the same
// templates twice.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/recurring"
)

// Processor runs one recurring pass.
type Processor interface {
	ProcessDue(ctx context.Context, now time.Time) (recurring.Report, error)
}

// Scheduler runs Processor.ProcessDue under a lock on a cron schedule.
type Scheduler struct {
	proc   Processor
	locker Locker
	spec   string
	key    string
	ttl    time.Duration
	log    *zap.Logger
	clock  func() time.Time
}

// New creates a Scheduler from cfg.
func New(proc Processor, locker Locker, cfg config.SchedulerConfig, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		proc:   proc,
		locker: locker,
		spec:   cfg.Spec,
		key:    cfg.LockKey,
		ttl:    cfg.LockTTL,
		log:    log.Named("scheduler"),
		clock:  func() time.Time { return time.Now().UTC() },
	}
	if s.spec == "" {
		s.spec = "@daily"
	}
	if s.key == "" {
		s.key = "ledger:recurring:process-due"
	}
	if s.ttl <= 0 {
		s.ttl = 10 * time.Minute
	}
	return s
}

// RunOnce processes due templates if the lock is free. It returns
// ErrLockHeld when another instance is already processing.
func (s *Scheduler) RunOnce(ctx context.Context) (recurring.Report, error) {
	unlock, err := s.locker.Acquire(ctx, s.key, s.ttl)
	if err != nil {
		return recurring.Report{}, err
	}
	defer func() {
		// Release even if ctx was cancelled mid-pass.
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("releasing lock", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.ttl)
	defer cancel()
	return s.proc.ProcessDue(ctx, s.clock())
}

// Run starts the cron loop and blocks until ctx is done, then waits for a
// running tick to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger{s.log.Sugar()}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log.Sugar()})),
	)
	if _, err := c.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("parsing schedule %q: %w", s.spec, err)
	}

	s.log.Info("scheduler started", zap.String("spec", s.spec), zap.String("lock", s.key))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrLockHeld):
		s.log.Debug("tick skipped, lock held elsewhere")
	case err != nil:
		s.log.Error("recurring pass failed", zap.Error(err))
	default:
		s.log.Info("tick complete",
			zap.Int("processed", report.Processed),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
