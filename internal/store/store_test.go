package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"checkin-backend/internal/cluster"
	"checkin-backend/internal/model"
)

var storeDBSeq int64

func newSqliteStore(t *testing.T) (Store, *gorm.DB) {
	dsn := fmt.Sprintf("file:store%d?mode=memory&cache=shared", atomic.AddInt64(&storeDBSeq, 1))
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, testDB.AutoMigrate(
		&model.Person{},
		&model.AccessConfig{},
		&model.HistoryEvent{},
		&model.UsageRecord{},
		&model.PushSubscription{},
	))
	return NewGormStore(testDB), testDB
}

// newMockDB creates a mocked postgres connection for failure-path tests.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestResolveConfig(t *testing.T) {
	s, db := newSqliteStore(t)
	ctx := context.Background()

	date := func(y, m, d int) time.Time {
		return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	}

	older := model.AccessConfig{
		Env: "test", BeginAt: date(2025, 3, 1), EndAt: date(2025, 4, 1),
		MaxEast: 10, MaxWest: 20,
	}
	require.NoError(t, db.Create(&older).Error)
	// Overlapping row created later wins.
	newer := model.AccessConfig{
		Env: "test", BeginAt: date(2025, 3, 1), EndAt: date(2025, 4, 1),
		MaxEast: 30, MaxWest: 40,
	}
	require.NoError(t, db.Create(&newer).Error)

	cfg, err := s.ResolveConfig(ctx, "test", date(2025, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.MaxEast, "newest overlapping config wins")

	// End bound is exclusive.
	_, err = s.ResolveConfig(ctx, "test", date(2025, 4, 1))
	assert.ErrorIs(t, err, ErrConfigMissing)

	// Begin bound is inclusive.
	cfg, err = s.ResolveConfig(ctx, "test", date(2025, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.MaxEast)

	// Wrong environment resolves nothing.
	_, err = s.ResolveConfig(ctx, "production", date(2025, 3, 15))
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestCountOccupantsRanges(t *testing.T) {
	s, db := newSqliteStore(t)
	ctx := context.Background()

	card := func(n int) *int { return &n }
	persons := []model.Person{
		{Login: "e1", State: model.StateCheckedIn, CardNo: card(1)},
		{Login: "e2", State: model.StateCheckedIn, CardNo: card(999)},
		{Login: "w1", State: model.StateCheckedIn, CardNo: card(1000)},
		{Login: "w2", State: model.StateCheckedIn, CardNo: card(4242)},
		{Login: "out", State: model.StateCheckedOut},
	}
	for i := range persons {
		require.NoError(t, db.Create(&persons[i]).Error)
	}

	east, err := s.CountOccupants(ctx, cluster.East)
	require.NoError(t, err)
	assert.Equal(t, int64(2), east)

	west, err := s.CountOccupants(ctx, cluster.West)
	require.NoError(t, err)
	assert.Equal(t, int64(2), west)

	// Soft-deleted occupants stop counting.
	require.NoError(t, db.Delete(&model.Person{}, persons[0].ID).Error)
	east, err = s.CountOccupants(ctx, cluster.East)
	require.NoError(t, err)
	assert.Equal(t, int64(1), east)
}

func TestCardHolder(t *testing.T) {
	s, db := newSqliteStore(t)
	ctx := context.Background()

	holder, err := s.CardHolder(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, holder, "unclaimed card has no holder")

	card := 42
	p := model.Person{Login: "jdoe", State: model.StateCheckedIn, CardNo: &card}
	require.NoError(t, db.Create(&p).Error)

	holder, err = s.CardHolder(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, "jdoe", holder.Login)

	require.NoError(t, db.Delete(&model.Person{}, p.ID).Error)
	holder, err = s.CardHolder(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, holder, "soft-deleted persons do not hold cards")
}

func TestCommitCheckInAndOut(t *testing.T) {
	s, db := newSqliteStore(t)
	ctx := context.Background()

	p := model.Person{Login: "jdoe", Role: model.RoleCadet, State: model.StateCheckedOut}
	require.NoError(t, db.Create(&p).Error)

	t0 := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.CommitCheckIn(ctx, &p, 42, t0))

	assert.Equal(t, model.StateCheckedIn, p.State)
	require.NotNil(t, p.CardNo)
	assert.Equal(t, 42, *p.CardNo)
	require.NotNil(t, p.LastEventID)

	var event model.HistoryEvent
	require.NoError(t, db.First(&event, *p.LastEventID).Error)
	assert.Equal(t, model.EventCheckIn, event.EventType)
	assert.Equal(t, "jdoe", event.Login)

	t1 := t0.Add(10 * time.Minute)
	usage, err := s.CommitCheckOut(ctx, &p, model.EventCheckOut, "jdoe", t1)
	require.NoError(t, err)
	assert.Equal(t, int64(600), usage.DurationSeconds)

	var stored model.Person
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.Equal(t, model.StateCheckedOut, stored.State)
	assert.Nil(t, stored.CardNo, "card is released on check-out")
	require.NotNil(t, stored.CheckoutAt)

	var usageCount, eventCount int64
	db.Model(&model.UsageRecord{}).Count(&usageCount)
	db.Model(&model.HistoryEvent{}).Count(&eventCount)
	assert.Equal(t, int64(1), usageCount)
	assert.Equal(t, int64(2), eventCount)
}

func TestHistoryByLoginPaging(t *testing.T) {
	s, db := newSqliteStore(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		event := model.HistoryEvent{
			Login:     "jdoe",
			EventType: model.EventCheckIn,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.Create(&event).Error)
	}

	events, total, err := s.HistoryByLogin(ctx, "jdoe", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, events, 2)
	assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt), "newest first")

	events, _, err = s.HistoryByLogin(ctx, "jdoe", 3, 2)
	require.NoError(t, err)
	assert.Len(t, events, 1, "last page is short")

	_, total, err = s.HistoryByLogin(ctx, "nobody", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCommitCheckInRollsBackOnFailure(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "history_events"`).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	p := model.Person{ID: 7, Login: "jdoe", State: model.StateCheckedOut}
	err := s.CommitCheckIn(context.Background(), &p, 42, time.Now())
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitCheckOutRollsBackOnFailure(t *testing.T) {
	gormDB, mock := newMockDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "usage_records"`).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	card := 42
	now := time.Now()
	p := model.Person{ID: 7, Login: "jdoe", State: model.StateCheckedIn, CardNo: &card, CheckinAt: &now}
	_, err := s.CommitCheckOut(context.Background(), &p, model.EventCheckOut, "jdoe", now)
	require.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCommitStaleTransitionRefused covers a lost race: a commit built from a
// person snapshot whose state has since changed must append nothing.
func TestCommitStaleTransitionRefused(t *testing.T) {
	s, db := newSqliteStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	p := model.Person{ID: 1, Login: "jdoe", Role: model.RoleCadet, State: model.StateCheckedOut}
	require.NoError(t, db.Create(&p).Error)
	require.NoError(t, s.CommitCheckIn(ctx, &p, 42, now))

	// Two check-outs racing from the same checked-in snapshot.
	first := p
	second := p
	usage, err := s.CommitCheckOut(ctx, &first, model.EventCheckOut, "jdoe", now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(600), usage.DurationSeconds)

	_, err = s.CommitCheckOut(ctx, &second, model.EventCheckOut, "jdoe", now.Add(11*time.Minute))
	require.ErrorIs(t, err, ErrStaleTransition)

	var usageCount int64
	db.Model(&model.UsageRecord{}).Where("login = ?", "jdoe").Count(&usageCount)
	assert.Equal(t, int64(1), usageCount, "a single episode must produce a single usage record")

	var checkoutEvents int64
	db.Model(&model.HistoryEvent{}).Where("login = ? AND event_type = ?", "jdoe", model.EventCheckOut).Count(&checkoutEvents)
	assert.Equal(t, int64(1), checkoutEvents)

	// A check-in built from a snapshot that predates the committed one is
	// refused the same way.
	stale := model.Person{ID: 1, Login: "jdoe", Role: model.RoleCadet, State: model.StateCheckedOut}
	require.NoError(t, s.CommitCheckIn(ctx, &stale, 43, now.Add(20*time.Minute)))
	anotherStale := model.Person{ID: 1, Login: "jdoe", Role: model.RoleCadet, State: model.StateCheckedOut}
	err = s.CommitCheckIn(ctx, &anotherStale, 44, now.Add(21*time.Minute))
	require.ErrorIs(t, err, ErrStaleTransition)

	var checkinEvents int64
	db.Model(&model.HistoryEvent{}).Where("login = ? AND event_type = ?", "jdoe", model.EventCheckIn).Count(&checkinEvents)
	assert.Equal(t, int64(2), checkinEvents)

	var stored model.Person
	require.NoError(t, db.First(&stored, 1).Error)
	require.NotNil(t, stored.CardNo)
	assert.Equal(t, 43, *stored.CardNo, "the losing check-in must not overwrite the card claim")
}
