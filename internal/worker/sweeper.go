package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventticketing/internal/domain"

	"github.com/go-co-op/gocron/v2"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = time.Minute

// Sweeper periodically re-verifies stale Pending payments so registrations
// whose webhook never arrived still get approved or rejected.
type Sweeper struct {
	service  domain.ReconciliationService
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(service domain.ReconciliationService, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{service: service, interval: interval, logger: logger}
}

// Run schedules the sweep and blocks until ctx is cancelled. Runs never
// overlap; a sweep still in progress delays the next one.
func (s *Sweeper) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.RunOnce(ctx) }),
		gocron.WithName("pending-payment-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}

	s.logger.Info("pending payment sweeper started", "interval", s.interval)
	scheduler.Start()

	<-ctx.Done()

	s.logger.Info("pending payment sweeper stopping")
	return scheduler.Shutdown()
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	n, err := s.service.SweepPending(ctx)
	if err != nil {
		s.logger.Error("sweep pending payments", "error", err, "settled", n)
		return
	}
	if n > 0 {
		s.logger.Info("swept pending payments", "settled", n)
	}
}
