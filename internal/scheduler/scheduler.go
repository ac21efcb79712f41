// Package scheduler runs the periodic leaderboard jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Default job intervals.
const (
	DefaultRefreshInterval  = 30 * time.Second
	DefaultFinalizeInterval = 5 * time.Minute
)

// Sweeper is the leaderboard work run on a schedule.
// *service.LeaderboardService satisfies it.
type Sweeper interface {
	RefreshActive(ctx context.Context, now time.Time) (int, error)
	FinalizeCompleted(ctx context.Context, now time.Time) (int, error)
}

// Config holds job intervals. Zero values use the defaults.
type Config struct {
	RefreshInterval  time.Duration
	FinalizeInterval time.Duration
}

// Scheduler owns a gocron scheduler and the leaderboard jobs registered on it.
type Scheduler struct {
	sched   gocron.Scheduler
	sweeper Sweeper
	cfg     Config
	clock   func() time.Time
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// New creates a scheduler. clock defaults to time.Now.
func New(sweeper Sweeper, cfg Config, clock func() time.Time, logger *slog.Logger) (*Scheduler, error) {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.FinalizeInterval <= 0 {
		cfg.FinalizeInterval = DefaultFinalizeInterval
	}
	if clock == nil {
		clock = time.Now
	}

	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &Scheduler{
		sched:   sched,
		sweeper: sweeper,
		cfg:     cfg,
		clock:   clock,
		logger:  logger,
	}, nil
}

// Start registers the jobs and starts running them. Jobs see a context that
// is cancelled by Shutdown or when ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	jobs := []struct {
		name     string
		interval time.Duration
		run      func(context.Context, time.Time) (int, error)
	}{
		{"leaderboard-refresh", s.cfg.RefreshInterval, s.sweeper.RefreshActive},
		{"leaderboard-finalize", s.cfg.FinalizeInterval, s.sweeper.FinalizeCompleted},
	}

	for _, j := range jobs {
		_, err := s.sched.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(s.runJob, ctx, j.name, j.run),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			s.cancel()
			return fmt.Errorf("register %s job: %w", j.name, err)
		}
	}

	s.sched.Start()
	s.logger.Info("scheduler started",
		"refresh_interval", s.cfg.RefreshInterval,
		"finalize_interval", s.cfg.FinalizeInterval,
	)
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, name string, run func(context.Context, time.Time) (int, error)) {
	if ctx.Err() != nil {
		return
	}
	n, err := run(ctx, s.clock())
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("scheduled job failed", "job", name, "processed", n, "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("scheduled job ran", "job", name, "processed", n)
	}
}

// Shutdown stops the jobs and waits for running ones to return.
func (s *Scheduler) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}
