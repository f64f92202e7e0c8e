package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/migrations"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/database"
)

func TestBuildWhere(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args, err := buildWhere([]domain.Filter{
		{Field: domain.FieldStatus, Operator: domain.OpEq, Value: domain.EventStatusPublished},
		{Field: domain.FieldTitle, Operator: domain.OpContains, Value: "50%_off"},
		{Field: domain.FieldStartDate, Operator: domain.OpGte, Value: ts},
	})
	require.NoError(t, err)
	assert.Equal(t, "WHERE status = $1 AND title ILIKE $2 AND start_date >= $3", where)
	assert.Equal(t, []interface{}{domain.EventStatusPublished, `%50\%\_off%`, ts}, args)

	where, args, err = buildWhere(nil)
	require.NoError(t, err)
	assert.Empty(t, where)
	assert.Nil(t, args)

	_, _, err = buildWhere([]domain.Filter{{Field: "email", Operator: domain.OpEq, Value: "x"}})
	assert.Error(t, err)
}

func setupPostgres(t *testing.T) *database.PostgresDB {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := database.DefaultPostgresConfig()
	if host := os.Getenv("TEST_POSTGRES_HOST"); host != "" {
		cfg.Host = host
	}
	if dbname := os.Getenv("TEST_POSTGRES_DATABASE"); dbname != "" {
		cfg.Database = dbname
	}

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Migrate(ctx, migrations.FS)
	require.NoError(t, err)
	return db
}

func TestPostgresRepositories_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	events := NewPostgresEventRepository(db.Pool())
	regs := NewPostgresRegistrationRepository(db.Pool())
	profiles := NewPostgresProfileRepository(db.Pool())
	likes := NewPostgresLikeRepository(db.Pool())

	slug := "integration-" + time.Now().Format("20060102150405.000000")
	e := newTestEvent(slug)
	capacity := 2
	e.Capacity = &capacity
	require.NoError(t, events.Create(ctx, e))
	t.Cleanup(func() { _ = events.Delete(context.Background(), e.ID) })

	assert.ErrorIs(t, events.Create(ctx, newTestEvent(slug)), ErrSlugTaken)

	err := regs.WithinEventLock(ctx, slug, func(tx LedgerTx, ev *domain.Event) error {
		require.NotNil(t, ev)
		assert.Equal(t, 2, *ev.Capacity)
		if err := tx.Insert(ctx, newTestRegistration(ev.ID, "a@example.com", domain.RegistrationStatusConfirmed, 2)); err != nil {
			return err
		}
		_, err := tx.AdjustRegistrationCount(ctx, ev.ID, 2)
		return err
	})
	require.NoError(t, err)

	err = regs.WithinEventLock(ctx, slug, func(tx LedgerTx, ev *domain.Event) error {
		confirmed, err := tx.ConfirmedQuantity(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, confirmed)
		return tx.Insert(ctx, newTestRegistration(ev.ID, "A@EXAMPLE.com", domain.RegistrationStatusPending, 1))
	})
	assert.ErrorIs(t, err, ErrDuplicateActiveRegistration)

	err = regs.WithinEventLock(ctx, slug, func(tx LedgerTx, ev *domain.Event) error {
		_, err := tx.AdjustRegistrationCount(ctx, ev.ID, -3)
		return err
	})
	assert.ErrorIs(t, err, ErrNegativeCount)

	got, err := events.GetBySlug(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RegistrationCount)

	require.NoError(t, events.IncrementViewCount(ctx, e.ID, 3))
	liked, count, err := likes.Toggle(ctx, "u1", e.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, count)

	assert.ErrorIs(t, profiles.AdjustTotals(ctx, "no-such-organizer", 1, 0), ErrProfileNotFound)
}

// admitOnce runs the admission steps for one attendee under the event lock
func admitOnce(ctx context.Context, regs RegistrationRepository, slug, email string) error {
	return regs.WithinEventLock(ctx, slug, func(tx LedgerTx, ev *domain.Event) error {
		existing, err := tx.FindActiveByEmail(ctx, ev.ID, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateActiveRegistration
		}
		if err := tx.Insert(ctx, newTestRegistration(ev.ID, email, domain.RegistrationStatusConfirmed, 1)); err != nil {
			return err
		}
		_, err = tx.AdjustRegistrationCount(ctx, ev.ID, 1)
		return err
	})
}

var errNoActiveRegistration = errors.New("no active registration")

// cancelOnce withdraws the user's active registration under the event lock
func cancelOnce(ctx context.Context, regs RegistrationRepository, slug, userID string) error {
	return regs.WithinEventLock(ctx, slug, func(tx LedgerTx, ev *domain.Event) error {
		active, err := tx.FindActiveByUser(ctx, ev.ID, userID)
		if err != nil {
			return err
		}
		if active == nil {
			return errNoActiveRegistration
		}
		from := active.Status
		if err := active.TransitionTo(domain.RegistrationStatusCancelled, time.Now()); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, active, from); err != nil {
			return err
		}
		_, err = tx.AdjustRegistrationCount(ctx, ev.ID, -active.Quantity)
		return err
	})
}

func TestPostgresLedger_ConcurrentSameEmail_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	events := NewPostgresEventRepository(db.Pool())
	regs := NewPostgresRegistrationRepository(db.Pool())

	slug := "dedup-race-" + uuid.NewString()
	e := newTestEvent(slug)
	require.NoError(t, events.Create(ctx, e))
	t.Cleanup(func() { _ = events.Delete(context.Background(), e.ID) })

	var (
		wg         sync.WaitGroup
		admitted   atomic.Int32
		duplicates atomic.Int32
		unexpected atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := admitOnce(ctx, regs, slug, "race@example.com")
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, ErrDuplicateActiveRegistration):
				duplicates.Add(1)
			default:
				unexpected.Add(1)
				t.Logf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	assert.Equal(t, int32(19), duplicates.Load())
	assert.Zero(t, unexpected.Load())

	got, err := events.GetBySlug(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegistrationCount)
}

func TestPostgresLedger_ConcurrentCancel_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	events := NewPostgresEventRepository(db.Pool())
	regs := NewPostgresRegistrationRepository(db.Pool())

	slug := "cancel-race-" + uuid.NewString()
	e := newTestEvent(slug)
	require.NoError(t, events.Create(ctx, e))
	t.Cleanup(func() { _ = events.Delete(context.Background(), e.ID) })

	userID := "user-" + uuid.NewString()
	require.NoError(t, regs.WithinEventLock(ctx, slug, func(tx LedgerTx, ev *domain.Event) error {
		reg := newTestRegistration(ev.ID, "mine@example.com", domain.RegistrationStatusConfirmed, 2)
		reg.UserID = &userID
		if err := tx.Insert(ctx, reg); err != nil {
			return err
		}
		_, err := tx.AdjustRegistrationCount(ctx, ev.ID, 2)
		return err
	}))
	require.NoError(t, admitOnce(ctx, regs, slug, "someone@example.com"))

	var (
		wg         sync.WaitGroup
		cancelled  atomic.Int32
		notFound   atomic.Int32
		unexpected atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := cancelOnce(ctx, regs, slug, userID)
			switch {
			case err == nil:
				cancelled.Add(1)
			case errors.Is(err, errNoActiveRegistration), errors.Is(err, ErrStaleRegistration):
				notFound.Add(1)
			default:
				unexpected.Add(1)
				t.Logf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), cancelled.Load())
	assert.Equal(t, int32(19), notFound.Load())
	assert.Zero(t, unexpected.Load())

	got, err := events.GetBySlug(ctx, slug)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RegistrationCount)
}

func TestPostgresEventRepository_DeleteKeepsRegistrations_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	events := NewPostgresEventRepository(db.Pool())
	regs := NewPostgresRegistrationRepository(db.Pool())

	slug := "history-" + uuid.NewString()
	e := newTestEvent(slug)
	require.NoError(t, events.Create(ctx, e))
	require.NoError(t, admitOnce(ctx, regs, slug, "kept@example.com"))

	require.NoError(t, events.Delete(ctx, e.ID))

	kept, err := regs.ListByEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "kept@example.com", kept[0].Email)
}
