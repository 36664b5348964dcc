package lifecycle

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/notification"
	"gym-contracts-backend/internal/store"
)

// ActivateSuspension starts a scheduled suspension whose start date has
// arrived. On a contract canceled in the meantime the suspension is dropped
// and its reservation released instead.
func (s *Service) ActivateSuspension(ctx context.Context, contractID, suspensionID string) error {
	var started bool
	w, err := s.mutate(ctx, contractID, func(c contract.Instance, history []contract.Suspension) (store.Write, error) {
		susp, ok := contract.FindSuspension(history, suspensionID)
		if !ok {
			return store.Write{}, fmt.Errorf("suspension %s: %w", suspensionID, store.ErrNotFound)
		}
		if c.Status.IsTerminal() && susp.Status == contract.SuspensionScheduled {
			c.PendingSuspensionDays = max(c.PendingSuspensionDays-susp.DaysUsed, 0)
			susp.Status = contract.SuspensionCancelled
			started = false
			return store.Write{Contract: c, Suspension: &susp}, nil
		}
		r, err := s.ledger.Activate(c, susp)
		if err != nil {
			return store.Write{}, err
		}
		started = true
		return store.Write{Contract: r.Contract, Suspension: &r.Suspension}, nil
	})
	if err != nil {
		s.logFailure("activate suspension", contractID, err, zap.String("suspension_id", suspensionID))
		return err
	}
	s.afterSweep(w.Contract)

	if !started {
		s.log.Info("scheduled suspension dropped on canceled contract",
			zap.String("contract_id", contractID),
			zap.String("suspension_id", suspensionID))
		return nil
	}
	s.log.Info("suspension started",
		zap.String("contract_id", contractID),
		zap.String("suspension_id", suspensionID),
		zap.Stringer("end_date", w.Contract.EndDate))
	s.notify(w.Contract, notification.SuspensionStarted)
	return nil
}

// CompleteSuspension closes an active suspension that ran its full course.
func (s *Service) CompleteSuspension(ctx context.Context, contractID, suspensionID string) error {
	w, err := s.mutate(ctx, contractID, func(c contract.Instance, history []contract.Suspension) (store.Write, error) {
		susp, ok := contract.FindSuspension(history, suspensionID)
		if !ok {
			return store.Write{}, fmt.Errorf("suspension %s: %w", suspensionID, store.ErrNotFound)
		}
		r, err := s.ledger.Complete(c, history, susp)
		if err != nil {
			return store.Write{}, err
		}
		return store.Write{Contract: r.Contract, Suspension: &r.Suspension}, nil
	})
	if err != nil {
		s.logFailure("complete suspension", contractID, err, zap.String("suspension_id", suspensionID))
		return err
	}
	s.afterSweep(w.Contract)

	s.log.Info("suspension completed",
		zap.String("contract_id", contractID),
		zap.String("suspension_id", suspensionID),
		zap.String("status", string(w.Contract.Status)))
	if !w.Contract.Status.IsTerminal() {
		s.notify(w.Contract, notification.SuspensionCompleted)
	}
	return nil
}

// FinalizeCancellation terminates a contract whose cancellation date has arrived.
func (s *Service) FinalizeCancellation(ctx context.Context, contractID string) error {
	today := s.Today()
	w, err := s.mutate(ctx, contractID, func(c contract.Instance, _ []contract.Suspension) (store.Write, error) {
		updated, err := contract.Finalize(c, today)
		if err != nil {
			return store.Write{}, err
		}
		return store.Write{Contract: updated}, nil
	})
	if err != nil {
		s.logFailure("finalize cancellation", contractID, err)
		return err
	}
	s.afterSweep(w.Contract)

	s.log.Info("scheduled cancellation finalized", zap.String("contract_id", contractID))
	s.notify(w.Contract, notification.ContractCanceled)
	return nil
}
