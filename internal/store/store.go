package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/eligibility"
	"gym-contracts-backend/internal/model"
	"gym-contracts-backend/internal/parse"
)

var (
	// ErrNotFound is returned when a contract, suspension or push subscription does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when the contract row changed between read and write.
	ErrConflict = errors.New("concurrent update conflict")
)

// Write is the projected state of one lifecycle command: the new contract
// fields and, optionally, the suspension record created or changed with them.
type Write struct {
	Contract   contract.Instance
	Suspension *contract.Suspension
}

// MutateFunc computes a Write from the freshly loaded contract and its
// suspension history. It must not have side effects: it may run more than
// once when the caller retries a conflict.
type MutateFunc func(c contract.Instance, history []contract.Suspension) (Write, error)

// Store defines the interface for all database operations.
type Store interface {
	CreateContract(ctx context.Context, c contract.Instance) error
	GetContract(ctx context.Context, id string) (contract.Instance, error)
	ListContractsByClient(ctx context.Context, clientID string) ([]contract.Instance, error)
	ListSuspensions(ctx context.Context, contractID string) ([]contract.Suspension, error)
	ListActiveEnrollmentsByClient(ctx context.Context, clientID string) ([]eligibility.Enrollment, error)

	// Mutate loads the contract and its history, runs fn and commits the
	// result in one transaction.
	Mutate(ctx context.Context, contractID string, fn MutateFunc) (Write, error)

	DueSuspensions(ctx context.Context, today calendar.Date) ([]contract.Suspension, error)
	FinishedSuspensions(ctx context.Context, today calendar.Date) ([]contract.Suspension, error)
	DueCancellations(ctx context.Context, today calendar.Date) ([]contract.Instance, error)

	SavePushSubscription(ctx context.Context, sub model.PushSubscription) error
	GetPushSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, endpoint string) error
	PushSubscriptionsByClient(ctx context.Context, clientID string) ([]model.PushSubscription, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// CreateContract stores a newly sold contract. Version starts at 1.
func (s *gormStore) CreateContract(ctx context.Context, c contract.Instance) error {
	row := contractRow(c)
	if row.Version == 0 {
		row.Version = 1
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create contract %s: %w", c.ID, err)
	}
	return nil
}

func (s *gormStore) GetContract(ctx context.Context, id string) (contract.Instance, error) {
	var row model.ClientContract
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return contract.Instance{}, ErrNotFound
		}
		return contract.Instance{}, fmt.Errorf("failed to load contract %s: %w", id, err)
	}
	return toInstance(row)
}

func (s *gormStore) ListContractsByClient(ctx context.Context, clientID string) ([]contract.Instance, error) {
	var rows []model.ClientContract
	if err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("start_date").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load contracts of client %s: %w", clientID, err)
	}
	return toInstances(rows)
}

func (s *gormStore) ListSuspensions(ctx context.Context, contractID string) ([]contract.Suspension, error) {
	return loadSuspensions(s.db.WithContext(ctx), contractID)
}

func (s *gormStore) ListActiveEnrollmentsByClient(ctx context.Context, clientID string) ([]eligibility.Enrollment, error) {
	var rows []model.Enrollment
	if err := s.db.WithContext(ctx).Where("client_id = ?", clientID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load enrollments of client %s: %w", clientID, err)
	}

	// Status labels are not uniform in storage, so the active filter runs
	// after normalization.
	var out []eligibility.Enrollment
	for _, row := range rows {
		e, err := toEnrollment(row)
		if err != nil {
			return nil, err
		}
		if e.Status == eligibility.EnrollmentActive {
			out = append(out, e)
		}
	}
	return out, nil
}

// Mutate processes a lifecycle command transactionally. The contract row is
// locked for the duration and the update is guarded by its version, so a
// concurrent writer makes this call fail with ErrConflict instead of
// overwriting.
func (s *gormStore) Mutate(ctx context.Context, contractID string, fn MutateFunc) (Write, error) {
	var result Write
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row model.ClientContract
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", contractID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to lock contract %s: %w", contractID, err)
		}

		current, err := toInstance(row)
		if err != nil {
			return err
		}
		history, err := loadSuspensions(tx, contractID)
		if err != nil {
			return err
		}

		w, err := fn(current, history)
		if err != nil {
			return err
		}

		nextVersion := row.Version + 1
		res := tx.Model(&model.ClientContract{}).
			Where("id = ? AND version = ?", contractID, row.Version).
			Updates(contractUpdates(w.Contract, nextVersion, s.now()))
		if res.Error != nil {
			return fmt.Errorf("failed to update contract %s: %w", contractID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		w.Contract.Version = nextVersion

		if w.Suspension != nil {
			srow := suspensionRow(*w.Suspension)
			srow.ClientContractID = contractID
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"start_date", "end_date", "reason", "status", "days_used", "updated_at"}),
			}).Create(&srow).Error; err != nil {
				return fmt.Errorf("failed to save suspension %s: %w", srow.ID, err)
			}
		}

		result = w
		return nil
	})
	if err != nil {
		return Write{}, err
	}
	return result, nil
}

// DueSuspensions returns scheduled suspensions whose start date has arrived.
func (s *gormStore) DueSuspensions(ctx context.Context, today calendar.Date) ([]contract.Suspension, error) {
	var rows []model.Suspension
	if err := s.db.WithContext(ctx).
		Where("LOWER(status) IN ? AND start_date <= ?", parse.SuspensionStatusLabels(contract.SuspensionScheduled), today.Time()).
		Order("start_date").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load due suspensions: %w", err)
	}
	return toSuspensions(rows)
}

// FinishedSuspensions returns active suspensions whose end date has passed.
func (s *gormStore) FinishedSuspensions(ctx context.Context, today calendar.Date) ([]contract.Suspension, error) {
	var rows []model.Suspension
	if err := s.db.WithContext(ctx).
		Where("LOWER(status) IN ? AND end_date < ?", parse.SuspensionStatusLabels(contract.SuspensionActive), today.Time()).
		Order("end_date").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load finished suspensions: %w", err)
	}
	return toSuspensions(rows)
}

// DueCancellations returns non-canceled contracts whose scheduled
// cancellation date has arrived.
func (s *gormStore) DueCancellations(ctx context.Context, today calendar.Date) ([]contract.Instance, error) {
	var rows []model.ClientContract
	if err := s.db.WithContext(ctx).
		Where("cancel_date IS NOT NULL AND cancel_date <= ?", today.Time()).
		Where("LOWER(status) NOT IN ?", parse.ContractStatusLabels(contract.StatusCanceled)).
		Order("cancel_date").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load due cancellations: %w", err)
	}
	return toInstances(rows)
}

func (s *gormStore) SavePushSubscription(ctx context.Context, sub model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"client_id", "p256dh", "auth"}),
	}).Create(&sub).Error
}

func (s *gormStore) GetPushSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.PushSubscription{}, ErrNotFound
		}
		return model.PushSubscription{}, err
	}
	return sub, nil
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) PushSubscriptionsByClient(ctx context.Context, clientID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("client_id = ?", clientID).Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// --- Helpers ---

func loadSuspensions(db *gorm.DB, contractID string) ([]contract.Suspension, error) {
	var rows []model.Suspension
	if err := db.Where("client_contract_id = ?", contractID).Order("start_date").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load suspensions of contract %s: %w", contractID, err)
	}
	return toSuspensions(rows)
}

func toSuspensions(rows []model.Suspension) ([]contract.Suspension, error) {
	out := make([]contract.Suspension, 0, len(rows))
	for _, row := range rows {
		s, err := toSuspension(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toInstances(rows []model.ClientContract) ([]contract.Instance, error) {
	out := make([]contract.Instance, 0, len(rows))
	for _, row := range rows {
		c, err := toInstance(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
