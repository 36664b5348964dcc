package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/eligibility"
	"gym-contracts-backend/internal/lifecycle"
	"gym-contracts-backend/internal/model"
)

// Lifecycle is the contract service behind the HTTP handlers.
type Lifecycle interface {
	GetContract(ctx context.Context, contractID string) (lifecycle.ContractView, error)
	ListSuspensions(ctx context.Context, contractID string) ([]contract.Suspension, error)
	ListClientContracts(ctx context.Context, clientID string) ([]lifecycle.ContractView, error)
	ScheduleSuspension(ctx context.Context, contractID string, req contract.SuspensionRequest) (contract.SuspensionResult, error)
	StopSuspension(ctx context.Context, contractID, suspensionID string, asOf calendar.Date) (contract.StopResult, error)
	CancelContract(ctx context.Context, contractID string, req contract.CancelRequest) (lifecycle.CancelResult, error)
	ValidateEnrollment(ctx context.Context, req eligibility.Request) (lifecycle.Decision, error)
}

// Subscriptions stores browser push subscriptions.
type Subscriptions interface {
	SavePushSubscription(ctx context.Context, sub model.PushSubscription) error
	GetPushSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	life    Lifecycle
	subs    Subscriptions
	webpush *webpush.Options
	cache   *cache.Cache
	log     *zap.Logger
}

// NewHandler creates a new API handler. responses may be nil when caching is off.
func NewHandler(life Lifecycle, subs Subscriptions, webpushOptions *webpush.Options, responses *cache.Cache, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		life:    life,
		subs:    subs,
		webpush: webpushOptions,
		cache:   responses,
		log:     log,
	}
}
