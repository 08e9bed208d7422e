// Package scheduler triggers reconciliation passes on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Houeta/pricewatch/internal/services/checker"
	"github.com/robfig/cron/v3"
)

// DefaultSpec runs a pass every six hours.
const DefaultSpec = "0 */6 * * *"

// ErrInvalidSchedule is returned for a cron expression that cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Options configures the scheduler.
type Options struct {
	Spec       string // Spec is a standard 5-field cron expression or descriptor.
	RunOnStart bool
}

// Scheduler runs at most one pass at a time.
type Scheduler struct {
	log    *slog.Logger
	runner checker.Interface
	cron   *cron.Cron
	opts   Options

	running atomic.Bool
	wg      sync.WaitGroup

	ctx    context.Context //nolint:containedctx // pass context shared by cron jobs.
	cancel context.CancelFunc
}

// New creates a scheduler for runner.
func New(log *slog.Logger, runner checker.Interface, opts Options) (*Scheduler, error) {
	const op = "scheduler.New"

	if opts.Spec == "" {
		opts.Spec = DefaultSpec
	}

	cronLog := cronLogger{log: log.With("component", "cron")}
	s := &Scheduler{
		log:    log.With("component", "scheduler"),
		runner: runner,
		opts:   opts,
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}

	if _, err := s.cron.AddFunc(opts.Spec, s.trigger); err != nil {
		return nil, fmt.Errorf("%s: %w %q: %w", op, ErrInvalidSchedule, opts.Spec, err)
	}

	return s, nil
}

// Start begins scheduling. Passes run under a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.opts.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.trigger()
		}()
	}

	s.cron.Start()
	s.log.Info("Scheduler started", "spec", s.opts.Spec, "run_on_start", s.opts.RunOnStart)
}

// Stop halts scheduling, cancels a running pass and waits for it to return.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}

	done := s.cron.Stop()
	s.cancel()
	<-done.Done()
	s.wg.Wait()

	s.log.Info("Scheduler stopped")
}

func (s *Scheduler) trigger() {
	const opn = "scheduler.trigger"
	log := s.log.With("op", opn)

	if !s.running.CompareAndSwap(false, true) {
		log.Warn("Previous pass still running, trigger skipped")
		return
	}
	defer s.running.Store(false)

	summary, err := s.runner.RunPass(s.ctx)
	if err != nil {
		log.Error("Reconciliation pass failed", "error", err)
		return
	}

	log.Debug("Reconciliation pass finished", "total", summary.Total, "duration", summary.Duration)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
