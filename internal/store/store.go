package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"checkin-backend/internal/cluster"
	"checkin-backend/internal/model"
)

// ErrConfigMissing is returned when no access config row covers the
// requested date. Gated operations cannot proceed without one.
var ErrConfigMissing = errors.New("no access config for date")

// ErrStaleTransition is returned when a commit finds the person no longer in
// the state it was loaded with, meaning a concurrent transition won. The
// transaction is rolled back and no ledger rows are appended.
var ErrStaleTransition = errors.New("person state changed since it was loaded")

// Store defines the interface for all database operations.
type Store interface {
	PersonByID(ctx context.Context, id int64) (*model.Person, error)
	PersonByLogin(ctx context.Context, login string) (*model.Person, error)
	CardHolder(ctx context.Context, cardNo int) (*model.Person, error)
	CountOccupants(ctx context.Context, c cluster.Cluster) (int64, error)

	ResolveConfig(ctx context.Context, env string, date time.Time) (*model.AccessConfig, error)
	SaveConfig(ctx context.Context, cfg *model.AccessConfig) error

	CommitCheckIn(ctx context.Context, person *model.Person, cardNo int, at time.Time) error
	CommitCheckOut(ctx context.Context, person *model.Person, eventType, actor string, at time.Time) (*model.UsageRecord, error)

	HistoryByLogin(ctx context.Context, login string, page, pageSize int) ([]model.HistoryEvent, int64, error)
	UsagesBetween(ctx context.Context, login string, from, to time.Time) ([]model.UsageRecord, error)

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	Subscriptions(ctx context.Context) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// PersonByID returns the person with the given id, or nil when no such
// person exists.
func (s *gormStore) PersonByID(ctx context.Context, id int64) (*model.Person, error) {
	var p model.Person
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load person %d: %w", id, err)
	}
	return &p, nil
}

// PersonByLogin returns the person with the given login, or nil.
func (s *gormStore) PersonByLogin(ctx context.Context, login string) (*model.Person, error) {
	var p model.Person
	err := s.db.WithContext(ctx).Where("login = ?", login).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load person %q: %w", login, err)
	}
	return &p, nil
}

// CardHolder returns the person currently holding the card, or nil when the
// card is free. Soft-deleted persons never hold cards.
func (s *gormStore) CardHolder(ctx context.Context, cardNo int) (*model.Person, error) {
	var p model.Person
	err := s.db.WithContext(ctx).Where("card_no = ?", cardNo).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up holder of card %d: %w", cardNo, err)
	}
	return &p, nil
}

// CountOccupants counts non-deleted persons holding a card in the cluster's
// number range.
func (s *gormStore) CountOccupants(ctx context.Context, c cluster.Cluster) (int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Person{})
	if c == cluster.East {
		q = q.Where("card_no > 0 AND card_no < ?", cluster.Boundary)
	} else {
		q = q.Where("card_no >= ?", cluster.Boundary)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count occupants of %s: %w", c, err)
	}
	return count, nil
}

// ResolveConfig returns the single effective config row for the environment
// whose [begin_at, end_at) range contains date, newest first on overlap.
func (s *gormStore) ResolveConfig(ctx context.Context, env string, date time.Time) (*model.AccessConfig, error) {
	var cfg model.AccessConfig
	err := s.db.WithContext(ctx).
		Where("env = ? AND begin_at <= ? AND end_at > ?", env, date, date).
		Order("created_at DESC").
		Order("id DESC").
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConfigMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config for %s at %s: %w", env, date.Format("2006-01-02"), err)
	}
	return &cfg, nil
}

// SaveConfig creates or updates an access config row.
func (s *gormStore) SaveConfig(ctx context.Context, cfg *model.AccessConfig) error {
	if err := s.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return fmt.Errorf("failed to save access config: %w", err)
	}
	return nil
}

// CommitCheckIn claims the card for the person and appends the audit event,
// all in one transaction. The person struct reflects the new state on
// return; on error nothing is persisted.
func (s *gormStore) CommitCheckIn(ctx context.Context, person *model.Person, cardNo int, at time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := model.HistoryEvent{
			Login:     person.Login,
			CardNo:    &cardNo,
			EventType: model.EventCheckIn,
			Actor:     person.Login,
			CreatedAt: at,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append check-in event for %q: %w", person.Login, err)
		}

		// Guard against a concurrent transition: only a still-checked-out
		// row may claim a card. Zero affected rows rolls everything back.
		res := tx.Model(&model.Person{}).
			Where("id = ? AND state = ?", person.ID, model.StateCheckedOut).
			Updates(map[string]any{
				"card_no":       cardNo,
				"checkin_at":    at,
				"state":         model.StateCheckedIn,
				"actor":         "",
				"last_event_id": event.ID,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update person %q on check-in: %w", person.Login, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleTransition
		}

		person.CardNo = &cardNo
		person.CheckinAt = &at
		person.State = model.StateCheckedIn
		person.Actor = ""
		person.LastEventID = &event.ID
		return nil
	})
}

// CommitCheckOut releases the person's card, appends the audit event and the
// completed usage record, all in one transaction.
func (s *gormStore) CommitCheckOut(ctx context.Context, person *model.Person, eventType, actor string, at time.Time) (*model.UsageRecord, error) {
	var usage model.UsageRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		checkinAt := at
		if person.CheckinAt != nil {
			checkinAt = *person.CheckinAt
		}
		usage = model.UsageRecord{
			Login:           person.Login,
			CheckinAt:       checkinAt,
			CheckoutAt:      at,
			DurationSeconds: int64(at.Sub(checkinAt).Seconds()),
			Actor:           actor,
			CreatedAt:       at,
		}
		if err := tx.Create(&usage).Error; err != nil {
			return fmt.Errorf("failed to append usage record for %q: %w", person.Login, err)
		}

		event := model.HistoryEvent{
			Login:     person.Login,
			CardNo:    person.CardNo,
			EventType: eventType,
			Actor:     actor,
			CreatedAt: at,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append %s event for %q: %w", eventType, person.Login, err)
		}

		// Only a still-checked-in row may be released; a concurrent
		// check-out that already committed rolls this one back, ledger
		// appends included, so each episode produces exactly one record.
		res := tx.Model(&model.Person{}).
			Where("id = ? AND state = ?", person.ID, model.StateCheckedIn).
			Updates(map[string]any{
				"card_no":       nil,
				"checkout_at":   at,
				"state":         model.StateCheckedOut,
				"actor":         actor,
				"last_event_id": event.ID,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update person %q on check-out: %w", person.Login, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleTransition
		}

		person.CardNo = nil
		person.CheckoutAt = &at
		person.State = model.StateCheckedOut
		person.Actor = actor
		person.LastEventID = &event.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// HistoryByLogin returns one page of the audit trail for a login, newest
// first, along with the total row count.
func (s *gormStore) HistoryByLogin(ctx context.Context, login string, page, pageSize int) ([]model.HistoryEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	q := s.db.WithContext(ctx).Model(&model.HistoryEvent{}).Where("login = ?", login)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count history for %q: %w", login, err)
	}

	var events []model.HistoryEvent
	err := q.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load history for %q: %w", login, err)
	}
	return events, total, nil
}

// UsagesBetween returns the completed occupancy episodes of a login whose
// check-in falls in [from, to).
func (s *gormStore) UsagesBetween(ctx context.Context, login string, from, to time.Time) ([]model.UsageRecord, error) {
	var usages []model.UsageRecord
	err := s.db.WithContext(ctx).
		Where("login = ? AND checkin_at >= ? AND checkin_at < ?", login, from, to).
		Order("checkin_at ASC").
		Find(&usages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load usages for %q: %w", login, err)
	}
	return usages, nil
}

// UpsertSubscription creates or refreshes a push subscription by endpoint.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// DeleteSubscription removes a push subscription by endpoint.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// Subscriptions returns every stored push subscription.
func (s *gormStore) Subscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	return subs, nil
}
