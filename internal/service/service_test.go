package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/messaging"
)

const testOrganizer = "organizer-1"

// recordingPublisher keeps every published message for assertions
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, msg messaging.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, msg.Topic())
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type testEnv struct {
	store         *repository.MemoryStore
	events        EventService
	registrations RegistrationService
	profiles      ProfileService
	publisher     *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	log := logger.NewNop()
	pub := &recordingPublisher{}
	counters := NewCounterMaintainer(store.Profiles(), log)

	return &testEnv{
		store: store,
		events: NewEventService(EventServiceDeps{
			Events:        store.Events(),
			Registrations: store.Registrations(),
			Profiles:      store.Profiles(),
			Likes:         store.Likes(),
			Counters:      counters,
			Publisher:     pub,
			Logger:        log,
		}),
		registrations: NewRegistrationService(store.Events(), store.Registrations(), counters, pub, log),
		profiles:      NewProfileService(store.Profiles(), log),
		publisher:     pub,
	}
}

func (env *testEnv) withProfile(t *testing.T, userID string) {
	t.Helper()
	_, err := env.profiles.CreateProfile(context.Background(), userID, &dto.CreateProfileRequest{DisplayName: "Founders Club"})
	require.NoError(t, err)
}

func eventRequest(title string) *dto.CreateEventRequest {
	start := time.Now().Add(48 * time.Hour)
	return &dto.CreateEventRequest{
		Title:     title,
		Location:  "Berlin",
		StartDate: start,
		EndDate:   start.Add(3 * time.Hour),
		Timezone:  "UTC",
	}
}

func (env *testEnv) createEvent(t *testing.T, req *dto.CreateEventRequest) *domain.Event {
	t.Helper()
	e, err := env.events.CreateEvent(context.Background(), testOrganizer, req)
	require.NoError(t, err)
	return e
}

// seedEvent stores a published event directly, bypassing the profile check
func (env *testEnv) seedEvent(t *testing.T, slug, organizerID string) *domain.Event {
	t.Helper()
	now := time.Now()
	e := &domain.Event{
		ID:          uuid.New().String(),
		Slug:        slug,
		OrganizerID: organizerID,
		Title:       slug,
		StartDate:   now.Add(24 * time.Hour),
		EndDate:     now.Add(26 * time.Hour),
		Timezone:    "UTC",
		Status:      domain.EventStatusPublished,
		Visibility:  domain.EventVisibilityPublic,
		Currency:    "USD",
		PublishedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, env.store.Events().Create(context.Background(), e))
	return e
}

func registerRequest(email, userID string, qty int) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     email,
		Quantity:  qty,
		UserID:    userID,
	}
}

func intPtr(v int) *int { return &v }
