package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
)

func TestRegister_CapacityScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withProfile(t, testOrganizer)

	req := eventRequest("Capacity Night")
	req.Capacity = intPtr(2)
	event := env.createEvent(t, req)

	first, err := env.registrations.Register(ctx, event.Slug, registerRequest("a@example.com", "", 1))
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusConfirmed, first.Status)

	_, err = env.registrations.Register(ctx, event.Slug, registerRequest("b@example.com", "", 2))
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = env.registrations.Register(ctx, event.Slug, registerRequest("b@example.com", "", 1))
	require.NoError(t, err)

	_, err = env.registrations.Register(ctx, event.Slug, registerRequest("c@example.com", "", 1))
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	got, err := env.store.Events().GetBySlug(ctx, event.Slug)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RegistrationCount)

	profile, err := env.profiles.GetProfile(ctx, testOrganizer)
	require.NoError(t, err)
	assert.Equal(t, 2, profile.TotalAttendees)
}

func TestRegister_Rejections(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withProfile(t, testOrganizer)

	draftReq := eventRequest("Draft Only")
	draftReq.Status = domain.EventStatusDraft
	draft := env.createEvent(t, draftReq)

	closedReq := eventRequest("Closed Doors")
	closedReq.StartDate = time.Now().Add(-2 * time.Hour)
	closedReq.EndDate = time.Now().Add(2 * time.Hour)
	deadline := time.Now().Add(-time.Hour)
	closedReq.RegistrationDeadline = &deadline
	closed := env.createEvent(t, closedReq)

	open := env.createEvent(t, eventRequest("Open House"))

	tests := []struct {
		name    string
		slug    string
		req     *dto.RegisterRequest
		wantErr error
	}{
		{"unknown slug", "no-such-event", registerRequest("a@example.com", "", 1), ErrEventNotFound},
		{"draft event", draft.Slug, registerRequest("a@example.com", "", 1), ErrEventNotPublished},
		{"deadline passed", closed.Slug, registerRequest("a@example.com", "", 1), ErrDeadlinePassed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.registrations.Register(ctx, tt.slug, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("invalid input", func(t *testing.T) {
		_, err := env.registrations.Register(ctx, open.Slug, registerRequest("not-an-email", "", 1))
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "email")
	})

	t.Run("duplicate email is case insensitive", func(t *testing.T) {
		_, err := env.registrations.Register(ctx, open.Slug, registerRequest("dup@example.com", "", 1))
		require.NoError(t, err)
		_, err = env.registrations.Register(ctx, open.Slug, registerRequest("DUP@Example.com", "", 1))
		assert.ErrorIs(t, err, ErrDuplicateRegistration)
	})
}

func TestRegister_ApprovalAndPricing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withProfile(t, testOrganizer)

	req := eventRequest("Curated Dinner")
	req.RequiresApproval = true
	req.Capacity = intPtr(1)
	req.Price = 25
	event := env.createEvent(t, req)

	_, err := env.registrations.Register(ctx, event.Slug, registerRequest("a@example.com", "", 2))
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	reg, err := env.registrations.Register(ctx, event.Slug, registerRequest("a@example.com", "", 1))
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationStatusPending, reg.Status)
	assert.Equal(t, 25.0, reg.TotalAmount)
	require.NotNil(t, reg.PaymentStatus)
	assert.Equal(t, domain.PaymentStatusPending, *reg.PaymentStatus)

	// pending registrations hold no seats
	_, err = env.registrations.Register(ctx, event.Slug, registerRequest("b@example.com", "", 1))
	require.NoError(t, err)

	got, _ := env.store.Events().GetBySlug(ctx, event.Slug)
	assert.Equal(t, 0, got.RegistrationCount)
}

func TestCancel_ReleasesConfirmedSeats(t *testing.T) {
	for _, withProfile := range []bool{true, false} {
		t.Run(fmt.Sprintf("profile=%v", withProfile), func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			var event *domain.Event
			if withProfile {
				env.withProfile(t, testOrganizer)
				event = env.createEvent(t, eventRequest("Demo Day"))
			} else {
				event = env.seedEvent(t, "demo-day", testOrganizer)
			}

			_, err := env.registrations.Register(ctx, event.Slug, registerRequest("other@example.com", "user-2", 3))
			require.NoError(t, err)
			_, err = env.registrations.Register(ctx, event.Slug, registerRequest("me@example.com", "user-1", 2))
			require.NoError(t, err)

			cancelled, err := env.registrations.Cancel(ctx, event.Slug, "user-1")
			require.NoError(t, err)
			assert.Equal(t, domain.RegistrationStatusCancelled, cancelled.Status)

			got, _ := env.store.Events().GetBySlug(ctx, event.Slug)
			assert.Equal(t, 3, got.RegistrationCount)

			if withProfile {
				profile, err := env.profiles.GetProfile(ctx, testOrganizer)
				require.NoError(t, err)
				assert.Equal(t, 3, profile.TotalAttendees)
			}

			_, err = env.registrations.Cancel(ctx, event.Slug, "user-1")
			assert.ErrorIs(t, err, ErrRegistrationNotFound)
		})
	}
}

func TestCancel_PendingDoesNotTouchCount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withProfile(t, testOrganizer)

	req := eventRequest("Invite Only")
	req.RequiresApproval = true
	event := env.createEvent(t, req)

	_, err := env.registrations.Register(ctx, event.Slug, registerRequest("me@example.com", "user-1", 2))
	require.NoError(t, err)

	_, err = env.registrations.Cancel(ctx, event.Slug, "user-1")
	require.NoError(t, err)

	got, _ := env.store.Events().GetBySlug(ctx, event.Slug)
	assert.Equal(t, 0, got.RegistrationCount)

	// the email is free again after cancellation
	_, err = env.registrations.Register(ctx, event.Slug, registerRequest("me@example.com", "user-1", 1))
	assert.NoError(t, err)
}

func TestCancel_UnknownEvent(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.registrations.Cancel(context.Background(), "missing", "user-1")
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRegister_ConcurrentNeverOverbooks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withProfile(t, testOrganizer)

	req := eventRequest("Launch Party")
	req.Capacity = intPtr(10)
	event := env.createEvent(t, req)

	var (
		wg         sync.WaitGroup
		admitted   atomic.Int32
		rejected   atomic.Int32
		unexpected atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.registrations.Register(ctx, event.Slug, registerRequest(fmt.Sprintf("user%d@example.com", i), "", 1))
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, ErrCapacityExceeded):
				rejected.Add(1)
			default:
				unexpected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(10), admitted.Load())
	assert.Equal(t, int32(40), rejected.Load())
	assert.Zero(t, unexpected.Load())

	got, _ := env.store.Events().GetBySlug(ctx, event.Slug)
	assert.Equal(t, 10, got.RegistrationCount)
}

func TestRegister_ConcurrentSameEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withProfile(t, testOrganizer)
	event := env.createEvent(t, eventRequest("Demo Day"))

	var (
		wg         sync.WaitGroup
		admitted   atomic.Int32
		duplicates atomic.Int32
		unexpected atomic.Int32
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// mixed case still names the same attendee
			email := "Same@Example.com"
			if i%2 == 0 {
				email = "same@example.com"
			}
			_, err := env.registrations.Register(ctx, event.Slug, registerRequest(email, "", 1))
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, ErrDuplicateRegistration):
				duplicates.Add(1)
			default:
				unexpected.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	assert.Equal(t, int32(29), duplicates.Load())
	assert.Zero(t, unexpected.Load())

	got, _ := env.store.Events().GetBySlug(ctx, event.Slug)
	assert.Equal(t, 1, got.RegistrationCount)

	all, err := env.registrations.ListRegistrations(ctx, event.Slug, testOrganizer)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCancel_ConcurrentOnlyOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withProfile(t, testOrganizer)
	event := env.createEvent(t, eventRequest("Office Hours"))

	_, err := env.registrations.Register(ctx, event.Slug, registerRequest("other@example.com", "user-2", 1))
	require.NoError(t, err)
	_, err = env.registrations.Register(ctx, event.Slug, registerRequest("me@example.com", "user-1", 2))
	require.NoError(t, err)

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
			_, err := env.registrations.Cancel(ctx, event.Slug, "user-1")
			switch {
			case err == nil:
				cancelled.Add(1)
			case errors.Is(err, ErrRegistrationNotFound):
				notFound.Add(1)
			default:
				unexpected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), cancelled.Load())
	assert.Equal(t, int32(19), notFound.Load())
	assert.Zero(t, unexpected.Load())

	got, _ := env.store.Events().GetBySlug(ctx, event.Slug)
	assert.Equal(t, 1, got.RegistrationCount)

	profile, err := env.profiles.GetProfile(ctx, testOrganizer)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.TotalAttendees)
}

func TestRegistrationReads(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.withProfile(t, testOrganizer)
	event := env.createEvent(t, eventRequest("Reading Group"))

	_, err := env.registrations.GetMyRegistration(ctx, event.Slug, "user-1")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	reg, err := env.registrations.Register(ctx, event.Slug, registerRequest("me@example.com", "user-1", 1))
	require.NoError(t, err)

	mine, err := env.registrations.GetMyRegistration(ctx, event.Slug, "user-1")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, mine.ID)

	_, err = env.registrations.ListRegistrations(ctx, event.Slug, "user-1")
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := env.registrations.ListRegistrations(ctx, event.Slug, testOrganizer)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Contains(t, env.publisher.Topics(), dto.TopicRegistrationCreated)
}
