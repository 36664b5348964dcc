// Package lifecycle runs contract commands against the store: it loads the
// contract, hands it to the ledger, cancellation or eligibility rules, and
// commits the projected write in one transaction.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/eligibility"
	"gym-contracts-backend/internal/notification"
	"gym-contracts-backend/internal/store"
)

// maxAttempts bounds the read-compute-write loop when a concurrent writer
// wins the version check.
const maxAttempts = 3

// ContractView is the contract projection returned to callers.
type ContractView struct {
	contract.Instance
	DaysRemaining           int `json:"daysRemaining"`
	RemainingSuspensionDays int `json:"remainingSuspensionDays"`
}

// CancelResult is the outcome of a cancellation command.
type CancelResult struct {
	Contract  ContractView `json:"contract"`
	Scheduled bool         `json:"scheduled"`
}

// Decision is the answer to an enrollment eligibility check. A rejection is
// a normal outcome, not an error.
type Decision struct {
	OK        bool                   `json:"ok"`
	Code      contract.Code          `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]any         `json:"details,omitempty"`
	Governing *eligibility.Governing `json:"governingContract,omitempty"`
	// UndatedSessions lists the request's sessions that had no weekday and
	// were therefore not checked against the allow-list or the cap.
	UndatedSessions []int `json:"undatedSessions,omitempty"`
}

// Service is the entry point for contract lifecycle commands and reads.
type Service struct {
	store     store.Store
	ledger    *contract.Ledger
	validator *eligibility.Validator
	clock     calendar.Clock
	notifier  notification.Dispatcher
	log       *zap.Logger

	// swept hooks run after every commit made by a sweep command.
	swept []func(contract.Instance)
}

// NewService wires a Service. A nil notifier disables notifications.
func NewService(st store.Store, clock calendar.Clock, notifier notification.Dispatcher, log *zap.Logger) *Service {
	if notifier == nil {
		notifier = notification.Discard{}
	}
	return &Service{
		store:     st,
		ledger:    contract.NewLedger(clock),
		validator: eligibility.NewValidator(clock),
		clock:     clock,
		notifier:  notifier,
		log:       log,
	}
}

// OnSweepCommit registers fn to run after each commit made by
// ActivateSuspension, CompleteSuspension or FinalizeCancellation. Request
// handlers see their own writes; this is how everything else learns about
// the sweeper's. Register before the sweeper starts.
func (s *Service) OnSweepCommit(fn func(contract.Instance)) {
	s.swept = append(s.swept, fn)
}

// Today returns the service's current business date.
func (s *Service) Today() calendar.Date {
	return calendar.Today(s.clock)
}

// ScheduleSuspension pauses a contract now or reserves days for a future pause.
func (s *Service) ScheduleSuspension(ctx context.Context, contractID string, req contract.SuspensionRequest) (contract.SuspensionResult, error) {
	var result contract.SuspensionResult
	w, err := s.mutate(ctx, contractID, func(c contract.Instance, history []contract.Suspension) (store.Write, error) {
		r, err := s.ledger.Schedule(c, history, req)
		if err != nil {
			return store.Write{}, err
		}
		result = r
		return store.Write{Contract: r.Contract, Suspension: &r.Suspension}, nil
	})
	if err != nil {
		s.logFailure("schedule suspension", contractID, err)
		return contract.SuspensionResult{}, err
	}
	result.Contract = w.Contract

	kind := notification.SuspensionStarted
	if result.Suspension.Status == contract.SuspensionScheduled {
		kind = notification.SuspensionScheduled
	}
	s.log.Info("suspension scheduled",
		zap.String("contract_id", contractID),
		zap.String("suspension_id", result.Suspension.ID),
		zap.String("status", string(result.Suspension.Status)),
		zap.Int("days", result.Suspension.DaysUsed))
	s.notify(w.Contract, kind)
	return result, nil
}

// StopSuspension ends a scheduled or active suspension early. A zero asOf
// means today.
func (s *Service) StopSuspension(ctx context.Context, contractID, suspensionID string, asOf calendar.Date) (contract.StopResult, error) {
	var result contract.StopResult
	w, err := s.mutate(ctx, contractID, func(c contract.Instance, history []contract.Suspension) (store.Write, error) {
		susp, ok := contract.FindSuspension(history, suspensionID)
		if !ok {
			return store.Write{}, fmt.Errorf("suspension %s: %w", suspensionID, store.ErrNotFound)
		}
		r, err := s.ledger.Stop(c, susp, asOf)
		if err != nil {
			return store.Write{}, err
		}
		result = r
		return store.Write{Contract: r.Contract, Suspension: &r.Suspension}, nil
	})
	if err != nil {
		s.logFailure("stop suspension", contractID, err, zap.String("suspension_id", suspensionID))
		return contract.StopResult{}, err
	}
	result.Contract = w.Contract

	s.log.Info("suspension stopped",
		zap.String("contract_id", contractID),
		zap.String("suspension_id", suspensionID),
		zap.String("status", string(result.Suspension.Status)),
		zap.Int("unused_days", result.UnusedDays))
	s.notify(w.Contract, notification.SuspensionStopped)
	return result, nil
}

// CancelContract cancels a contract immediately or schedules its cancellation.
func (s *Service) CancelContract(ctx context.Context, contractID string, req contract.CancelRequest) (CancelResult, error) {
	today := s.Today()
	w, err := s.mutate(ctx, contractID, func(c contract.Instance, _ []contract.Suspension) (store.Write, error) {
		updated, err := contract.Cancel(c, req, today)
		if err != nil {
			return store.Write{}, err
		}
		return store.Write{Contract: updated}, nil
	})
	if err != nil {
		s.logFailure("cancel contract", contractID, err)
		return CancelResult{}, err
	}

	kind := notification.ContractCanceled
	if req.Schedule {
		kind = notification.CancelScheduled
	}
	s.log.Info("contract cancellation applied",
		zap.String("contract_id", contractID),
		zap.String("status", string(w.Contract.Status)),
		zap.Stringer("cancel_date", w.Contract.CancelDate))
	s.notify(w.Contract, kind)
	return CancelResult{Contract: s.view(w.Contract), Scheduled: req.Schedule}, nil
}

// ValidateEnrollment decides whether a client may enroll in the candidate
// sessions. Only boundary failures are returned as errors.
func (s *Service) ValidateEnrollment(ctx context.Context, req eligibility.Request) (Decision, error) {
	if req.ClientID == "" {
		return Decision{}, contract.NewError(contract.CodeInvalidRequest, "client id is required")
	}

	contracts, err := s.store.ListContractsByClient(ctx, req.ClientID)
	if err != nil {
		s.log.Error("failed to load contracts", zap.String("client_id", req.ClientID), zap.Error(err))
		return Decision{}, err
	}
	enrollments, err := s.store.ListActiveEnrollmentsByClient(ctx, req.ClientID)
	if err != nil {
		s.log.Error("failed to load enrollments", zap.String("client_id", req.ClientID), zap.Error(err))
		return Decision{}, err
	}

	undated := eligibility.UndatedSessions(req.Sessions)
	if len(undated) > 0 && req.Kind != eligibility.KindExperimental {
		s.log.Warn("sessions without a weekday skip the weekday checks",
			zap.String("client_id", req.ClientID),
			zap.Ints("sessions", undated))
	}

	gov, err := s.validator.Validate(req, contracts, enrollments)
	if err != nil {
		bizErr, ok := contract.AsError(err)
		if !ok {
			return Decision{}, err
		}
		s.log.Info("enrollment rejected",
			zap.String("client_id", req.ClientID),
			zap.String("code", string(bizErr.Code)),
			zap.String("reason", bizErr.Message))
		return Decision{OK: false, Code: bizErr.Code, Message: bizErr.Message, Details: bizErr.Details, UndatedSessions: undated}, nil
	}
	return Decision{OK: true, Governing: gov, UndatedSessions: undated}, nil
}

// GetContract returns the contract projection.
func (s *Service) GetContract(ctx context.Context, contractID string) (ContractView, error) {
	c, err := s.store.GetContract(ctx, contractID)
	if err != nil {
		return ContractView{}, err
	}
	return s.view(c), nil
}

// ListSuspensions returns the contract's suspension history with statuses
// as of today.
func (s *Service) ListSuspensions(ctx context.Context, contractID string) ([]contract.Suspension, error) {
	if _, err := s.store.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	history, err := s.store.ListSuspensions(ctx, contractID)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	for i := range history {
		history[i].Status = history[i].EffectiveStatus(today)
	}
	return history, nil
}

// ListClientContracts returns every contract of a client.
func (s *Service) ListClientContracts(ctx context.Context, clientID string) ([]ContractView, error) {
	contracts, err := s.store.ListContractsByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	views := make([]ContractView, 0, len(contracts))
	for _, c := range contracts {
		views = append(views, s.view(c))
	}
	return views, nil
}

// --- Helpers ---

func (s *Service) mutate(ctx context.Context, contractID string, fn store.MutateFunc) (store.Write, error) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var w store.Write
		w, err = s.store.Mutate(ctx, contractID, fn)
		if !errors.Is(err, store.ErrConflict) {
			return w, err
		}
		s.log.Warn("contract changed concurrently, retrying",
			zap.String("contract_id", contractID),
			zap.Int("attempt", attempt))
	}
	return store.Write{}, err
}

func (s *Service) view(c contract.Instance) ContractView {
	v := ContractView{Instance: c, RemainingSuspensionDays: c.RemainingSuspensionDays()}
	if !c.Status.IsTerminal() {
		v.DaysRemaining = calendar.DaysRemaining(s.clock.Now(), c.EndDate)
	}
	return v
}

func (s *Service) afterSweep(c contract.Instance) {
	for _, fn := range s.swept {
		fn(c)
	}
}

func (s *Service) notify(c contract.Instance, kind notification.Kind) {
	s.notifier.Dispatch(notification.Event{ClientID: c.ClientID, ContractID: c.ID, Kind: kind})
}

// logFailure logs business rejections at Info and everything else by severity.
func (s *Service) logFailure(op, contractID string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("contract_id", contractID), zap.Error(err))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.log.Info(op+": not found", fields...)
	case errors.Is(err, store.ErrConflict):
		s.log.Warn(op+": gave up after concurrent updates", fields...)
	default:
		if _, ok := contract.AsError(err); ok {
			s.log.Info(op+": rejected", fields...)
			return
		}
		s.log.Error(op+": failed", fields...)
	}
}
