package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"gym-contracts-backend/internal/model"
)

// Kind names the lifecycle change a client is notified about.
type Kind string

const (
	SuspensionScheduled Kind = "suspension_scheduled"
	SuspensionStarted   Kind = "suspension_started"
	SuspensionStopped   Kind = "suspension_stopped"
	SuspensionCompleted Kind = "suspension_completed"
	ContractCanceled    Kind = "contract_canceled"
	CancelScheduled     Kind = "cancellation_scheduled"
)

var messages = map[Kind]string{
	SuspensionScheduled: "Your contract suspension has been scheduled.",
	SuspensionStarted:   "Your contract is now suspended.",
	SuspensionStopped:   "Your contract suspension was stopped early.",
	SuspensionCompleted: "Your contract suspension has ended. Welcome back!",
	ContractCanceled:    "Your contract has been canceled.",
	CancelScheduled:     "Your contract cancellation has been scheduled.",
}

// Event is one committed lifecycle change.
type Event struct {
	ClientID   string `json:"clientId"`
	ContractID string `json:"contractId"`
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
}

// Dispatcher accepts events for asynchronous delivery.
type Dispatcher interface {
	Dispatch(ev Event) bool
}

// Discard drops every event. It is used when push notifications are not configured.
type Discard struct{}

func (Discard) Dispatch(Event) bool { return false }

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the workers need.
type SubscriptionStore interface {
	PushSubscriptionsByClient(ctx context.Context, clientID string) ([]model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	subs    SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
}

// NewWorkerPool creates a new worker pool with a queue of queueSize events.
func NewWorkerPool(size, queueSize int, subs SubscriptionStore, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if queueSize < size {
		queueSize = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, queueSize),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case ev := <-wp.jobs:
			wp.sendNotificationsForClient(ctx, ev)
		case <-ctx.Done():
			wp.log.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an event without blocking. It reports false when the queue
// is full and the event was dropped.
func (wp *WorkerPool) Dispatch(ev Event) bool {
	if ev.Message == "" {
		ev.Message = messages[ev.Kind]
	}
	select {
	case wp.jobs <- ev:
		return true
	default:
		wp.log.Warn("notification queue full, dropping event",
			zap.String("client_id", ev.ClientID),
			zap.String("contract_id", ev.ContractID),
			zap.String("kind", string(ev.Kind)))
		return false
	}
}

// sendNotificationsForClient fetches the client's subscriptions and sends the event to each.
func (wp *WorkerPool) sendNotificationsForClient(ctx context.Context, ev Event) {
	subscriptions, err := wp.subs.PushSubscriptionsByClient(ctx, ev.ClientID)
	if err != nil {
		wp.log.Error("failed to fetch subscriptions", zap.String("client_id", ev.ClientID), zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		wp.log.Error("failed to encode notification", zap.Error(err))
		return
	}

	wp.log.Info("sending notifications",
		zap.Int("count", len(subscriptions)),
		zap.String("client_id", ev.ClientID),
		zap.String("kind", string(ev.Kind)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
