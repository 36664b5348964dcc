package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gym-contracts-backend/internal/model"
	"gym-contracts-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func emptyResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString("")),
	}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, 1, store.NewGormStore(db), &webpush.Options{}, zap.NewNop())

	assert.True(t, wp.Dispatch(Event{ClientID: "cl-1", ContractID: "ct-1", Kind: ContractCanceled}))
	// The queue holds one event and nothing is consuming it.
	assert.False(t, wp.Dispatch(Event{ClientID: "cl-1", ContractID: "ct-1", Kind: ContractCanceled}))

	select {
	case ev := <-wp.jobs:
		assert.Equal(t, "ct-1", ev.ContractID)
		assert.Equal(t, messages[ContractCanceled], ev.Message)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, 4, store.NewGormStore(gormDB), &webpush.Options{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification for one subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		subscription := model.PushSubscription{
			Endpoint: "https://example.com/push",
			ClientID: "cl-1",
			P256DH:   "test_p256dh",
			Auth:     "test_auth",
		}

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				defer wg.Done()
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)

				var ev Event
				assert.NoError(t, json.Unmarshal(payload, &ev))
				assert.Equal(t, SuspensionScheduled, ev.Kind)
				assert.Equal(t, "ct-1", ev.ContractID)
				assert.Equal(t, messages[SuspensionScheduled], ev.Message)
				return emptyResponse(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE client_id = \$1`).
			WithArgs("cl-1").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "client_id", "p256dh", "auth", "created_at"}).
				AddRow(subscription.Endpoint, subscription.ClientID, subscription.P256DH, subscription.Auth, time.Now()))

		wp.Dispatch(Event{ClientID: "cl-1", ContractID: "ct-1", Kind: SuspensionScheduled})
		wg.Wait()
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return emptyResponse(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE client_id = \$1`).
			WithArgs("cl-2").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "client_id", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/expired", "cl-2", "p", "a", time.Now()))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE "push_subscriptions"."endpoint" = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch(Event{ClientID: "cl-2", ContractID: "ct-2", Kind: SuspensionCompleted})

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("skips clients without subscriptions", func(t *testing.T) {
		called := false
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				called = true
				return emptyResponse(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions" WHERE client_id = \$1`).
			WithArgs("cl-3").
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "client_id", "p256dh", "auth", "created_at"}))

		wp.Dispatch(Event{ClientID: "cl-3", ContractID: "ct-3", Kind: ContractCanceled})

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
		assert.False(t, called)
	})
}

func TestDiscard(t *testing.T) {
	var d Dispatcher = Discard{}
	assert.False(t, d.Dispatch(Event{Kind: ContractCanceled}))
}
