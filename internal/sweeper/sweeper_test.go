package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
)

// mockSource is a mock implementation of the Source interface.
type mockSource struct {
	due      []contract.Suspension
	finished []contract.Suspension
	cancels  []contract.Instance
	err      error
}

func (m *mockSource) DueSuspensions(context.Context, calendar.Date) ([]contract.Suspension, error) {
	return m.due, m.err
}

func (m *mockSource) FinishedSuspensions(context.Context, calendar.Date) ([]contract.Suspension, error) {
	return m.finished, m.err
}

func (m *mockSource) DueCancellations(context.Context, calendar.Date) ([]contract.Instance, error) {
	return m.cancels, m.err
}

// mockLifecycle records the calls it receives.
type mockLifecycle struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (m *mockLifecycle) Today() calendar.Date { return calendar.MustParse("2025-05-01") }

func (m *mockLifecycle) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	if m.fail[call] {
		return errors.New("boom")
	}
	return nil
}

func (m *mockLifecycle) ActivateSuspension(_ context.Context, contractID, suspensionID string) error {
	return m.record("activate " + contractID + "/" + suspensionID)
}

func (m *mockLifecycle) CompleteSuspension(_ context.Context, contractID, suspensionID string) error {
	return m.record("complete " + contractID + "/" + suspensionID)
}

func (m *mockLifecycle) FinalizeCancellation(_ context.Context, contractID string) error {
	return m.record("finalize " + contractID)
}

func (m *mockLifecycle) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// busyLocker never grants the lock.
type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, nil
}

func TestSweepOnce(t *testing.T) {
	src := &mockSource{
		due:      []contract.Suspension{{ID: "s-1", ContractID: "ct-1"}, {ID: "s-2", ContractID: "ct-2"}},
		finished: []contract.Suspension{{ID: "s-3", ContractID: "ct-3"}},
		cancels:  []contract.Instance{{ID: "ct-4"}},
	}
	life := &mockLifecycle{fail: map[string]bool{"activate ct-1/s-1": true}}

	svc := NewService(src, life, nil, time.Minute, time.Minute, zap.NewNop())
	rep := svc.SweepOnce(context.Background())

	assert.Equal(t, Report{Activated: 1, Completed: 1, Finalized: 1, Failed: 1}, rep)
	assert.Equal(t, []string{
		"activate ct-1/s-1",
		"activate ct-2/s-2",
		"complete ct-3/s-3",
		"finalize ct-4",
	}, life.calls)
}

func TestSweepOnce_SourceErrors(t *testing.T) {
	src := &mockSource{err: errors.New("db down")}
	life := &mockLifecycle{}

	svc := NewService(src, life, nil, time.Minute, time.Minute, zap.NewNop())
	assert.Equal(t, Report{}, svc.SweepOnce(context.Background()))
	assert.Empty(t, life.calls)
}

func TestTick_SkipsWithoutLock(t *testing.T) {
	src := &mockSource{cancels: []contract.Instance{{ID: "ct-1"}}}
	life := &mockLifecycle{}

	svc := NewService(src, life, busyLocker{}, time.Minute, time.Minute, zap.NewNop())
	svc.tick(context.Background())
	assert.Empty(t, life.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	src := &mockSource{cancels: []contract.Instance{{ID: "ct-1"}}}
	life := &mockLifecycle{}
	svc := NewService(src, life, nil, 10*time.Millisecond, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return life.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
