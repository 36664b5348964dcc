package lifecycle

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/eligibility"
	"gym-contracts-backend/internal/model"
	"gym-contracts-backend/internal/notification"
	"gym-contracts-backend/internal/store"
)

// memStore is an in-memory store.Store for exercising the service.
type memStore struct {
	mu          sync.Mutex
	contracts   map[string]contract.Instance
	suspensions map[string][]contract.Suspension
	enrollments map[string][]eligibility.Enrollment
	// conflicts makes the next N Mutate calls lose the version check.
	conflicts int
	mutations int
}

func newMemStore(contracts ...contract.Instance) *memStore {
	m := &memStore{
		contracts:   make(map[string]contract.Instance),
		suspensions: make(map[string][]contract.Suspension),
		enrollments: make(map[string][]eligibility.Enrollment),
	}
	for _, c := range contracts {
		if c.Version == 0 {
			c.Version = 1
		}
		m.contracts[c.ID] = c
	}
	return m
}

func (m *memStore) CreateContract(_ context.Context, c contract.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = c
	return nil
}

func (m *memStore) GetContract(_ context.Context, id string) (contract.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contracts[id]
	if !ok {
		return contract.Instance{}, store.ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListContractsByClient(_ context.Context, clientID string) ([]contract.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []contract.Instance
	for _, c := range m.contracts {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ListSuspensions(_ context.Context, contractID string) ([]contract.Suspension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]contract.Suspension(nil), m.suspensions[contractID]...), nil
}

func (m *memStore) ListActiveEnrollmentsByClient(_ context.Context, clientID string) ([]eligibility.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enrollments[clientID], nil
}

func (m *memStore) Mutate(_ context.Context, contractID string, fn store.MutateFunc) (store.Write, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contracts[contractID]
	if !ok {
		return store.Write{}, store.ErrNotFound
	}
	history := append([]contract.Suspension(nil), m.suspensions[contractID]...)

	w, err := fn(c, history)
	if err != nil {
		return store.Write{}, err
	}
	if m.conflicts > 0 {
		m.conflicts--
		return store.Write{}, store.ErrConflict
	}

	w.Contract.Version = c.Version + 1
	m.contracts[contractID] = w.Contract
	if w.Suspension != nil {
		m.upsertSuspension(contractID, *w.Suspension)
	}
	m.mutations++
	return w, nil
}

func (m *memStore) upsertSuspension(contractID string, s contract.Suspension) {
	list := m.suspensions[contractID]
	for i := range list {
		if list[i].ID == s.ID {
			list[i] = s
			return
		}
	}
	m.suspensions[contractID] = append(list, s)
}

func (m *memStore) DueSuspensions(_ context.Context, today calendar.Date) ([]contract.Suspension, error) {
	return m.filterSuspensions(func(s contract.Suspension) bool {
		return s.Status == contract.SuspensionScheduled && !s.StartDate.After(today)
	}), nil
}

func (m *memStore) FinishedSuspensions(_ context.Context, today calendar.Date) ([]contract.Suspension, error) {
	return m.filterSuspensions(func(s contract.Suspension) bool {
		return s.Status == contract.SuspensionActive && s.EndDate.Before(today)
	}), nil
}

func (m *memStore) filterSuspensions(keep func(contract.Suspension) bool) []contract.Suspension {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []contract.Suspension
	for _, list := range m.suspensions {
		for _, s := range list {
			if keep(s) {
				out = append(out, s)
			}
		}
	}
	return out
}

func (m *memStore) DueCancellations(_ context.Context, today calendar.Date) ([]contract.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []contract.Instance
	for _, c := range m.contracts {
		if !c.CancelDate.IsZero() && !c.CancelDate.After(today) && !c.Status.IsTerminal() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) SavePushSubscription(context.Context, model.PushSubscription) error { return nil }

func (m *memStore) GetPushSubscription(context.Context, string) (model.PushSubscription, error) {
	return model.PushSubscription{}, store.ErrNotFound
}

func (m *memStore) DeletePushSubscription(context.Context, string) error { return nil }

func (m *memStore) PushSubscriptionsByClient(context.Context, string) ([]model.PushSubscription, error) {
	return nil, nil
}

func (m *memStore) DB() *gorm.DB { return nil }

// recorder captures dispatched notification events.
type recorder struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recorder) Dispatch(ev notification.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) kinds() []notification.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Kind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}
