package daily

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "0 10 * * *"

// Broadcaster is what the scheduler runs on every tick.
type Broadcaster interface {
	Broadcast(ctx context.Context) (int, error)
}

// Scheduler triggers a Broadcaster on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	target Broadcaster
	spec   string
	logger *slog.Logger
}

type SchedulerConfig struct {
	Schedule string // standard 5-field cron spec, defaults to 10:00 daily
	Timezone string // IANA name, defaults to local time
	Target   Broadcaster
	Logger   *slog.Logger
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("daily timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("daily schedule %q: %w", cfg.Schedule, err)
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		target: cfg.Target,
		spec:   cfg.Schedule,
		logger: cfg.Logger,
	}, nil
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// broadcast to return.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.run(ctx)
	})
	if err != nil {
		return fmt.Errorf("add daily job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("daily scheduler started", "schedule", s.spec, "next", s.Next())

	<-ctx.Done()
	s.logger.Info("daily scheduler stopping")
	<-s.cron.Stop().Done()
	return nil
}

// Next returns the next activation time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run(ctx context.Context) {
	n, err := s.target.Broadcast(ctx)
	if err != nil {
		s.logger.Error("daily broadcast error", "delivered", n, "err", err)
	}
}
