// Package sweeper applies the date-driven lifecycle changes nobody asks for
// explicitly: scheduled suspensions starting, active ones running out and
// scheduled cancellations taking effect.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/lock"
)

const lockName = "sweeper"

// Source lists the records that are due on a given day.
type Source interface {
	DueSuspensions(ctx context.Context, today calendar.Date) ([]contract.Suspension, error)
	FinishedSuspensions(ctx context.Context, today calendar.Date) ([]contract.Suspension, error)
	DueCancellations(ctx context.Context, today calendar.Date) ([]contract.Instance, error)
}

// Lifecycle applies one change per call, each in its own transaction.
type Lifecycle interface {
	Today() calendar.Date
	ActivateSuspension(ctx context.Context, contractID, suspensionID string) error
	CompleteSuspension(ctx context.Context, contractID, suspensionID string) error
	FinalizeCancellation(ctx context.Context, contractID string) error
}

// Report counts what one pass changed.
type Report struct {
	Activated int
	Completed int
	Finalized int
	Failed    int
}

// Service runs the sweep on a timer.
type Service struct {
	source   Source
	life     Lifecycle
	locker   lock.Locker
	interval time.Duration
	lockTTL  time.Duration
	log      *zap.Logger
}

// NewService creates a sweeper. A nil locker means a single instance.
func NewService(source Source, life Lifecycle, locker lock.Locker, interval, lockTTL time.Duration, log *zap.Logger) *Service {
	if locker == nil {
		locker = lock.Nop{}
	}
	return &Service{
		source:   source,
		life:     life,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
		log:      log,
	}
}

// Run starts the sweeping process in a loop until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("starting sweeper", zap.Duration("interval", s.interval))

	s.tick(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper shutting down")
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	release, ok, err := s.locker.Acquire(ctx, lockName, s.lockTTL)
	if err != nil {
		s.log.Error("failed to acquire sweeper lock", zap.Error(err))
		return
	}
	if !ok {
		s.log.Debug("another instance holds the sweeper lock, skipping")
		return
	}
	defer release()

	s.SweepOnce(ctx)
}

// SweepOnce performs a single pass. Activation runs before completion so a
// suspension that started and ended while the sweeper was down is closed in
// the same pass. Failures on one record do not stop the others.
func (s *Service) SweepOnce(ctx context.Context) Report {
	var rep Report
	today := s.life.Today()

	due, err := s.source.DueSuspensions(ctx, today)
	if err != nil {
		s.log.Error("failed to list due suspensions", zap.Error(err))
	}
	for _, susp := range due {
		if err := s.life.ActivateSuspension(ctx, susp.ContractID, susp.ID); err != nil {
			rep.Failed++
			continue
		}
		rep.Activated++
	}

	finished, err := s.source.FinishedSuspensions(ctx, today)
	if err != nil {
		s.log.Error("failed to list finished suspensions", zap.Error(err))
	}
	for _, susp := range finished {
		if err := s.life.CompleteSuspension(ctx, susp.ContractID, susp.ID); err != nil {
			rep.Failed++
			continue
		}
		rep.Completed++
	}

	cancellations, err := s.source.DueCancellations(ctx, today)
	if err != nil {
		s.log.Error("failed to list due cancellations", zap.Error(err))
	}
	for _, c := range cancellations {
		if err := s.life.FinalizeCancellation(ctx, c.ID); err != nil {
			rep.Failed++
			continue
		}
		rep.Finalized++
	}

	if rep != (Report{}) {
		s.log.Info("sweep finished",
			zap.Stringer("today", today),
			zap.Int("activated", rep.Activated),
			zap.Int("completed", rep.Completed),
			zap.Int("finalized", rep.Finalized),
			zap.Int("failed", rep.Failed))
	}
	return rep
}
