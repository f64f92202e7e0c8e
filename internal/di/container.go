package di

import (
	"context"
	"fmt"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/handler"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/service"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/worker"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/database"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/messaging"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/redis"
)

// Container holds all dependencies for the events service
type Container struct {
	// Infrastructure
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher messaging.Publisher

	// Repositories
	EventRepo        repository.EventRepository
	RegistrationRepo repository.RegistrationRepository
	ProfileRepo      repository.ProfileRepository
	LikeRepo         repository.LikeRepository

	// Services
	Counters            *service.CounterMaintainer
	EventService        service.EventService
	RegistrationService service.RegistrationService
	ProfileService      service.ProfileService

	// Workers
	ViewFlushWorker *worker.ViewFlushWorker

	// Handlers
	HealthHandler       *handler.HealthHandler
	EventHandler        *handler.EventHandler
	RegistrationHandler *handler.RegistrationHandler
	ProfileHandler      *handler.ProfileHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	// DB selects the Postgres repositories; nil uses the in-memory store
	DB *database.PostgresDB
	// Redis enables buffered view counting when BufferViews is set
	Redis       *redis.Client
	BufferViews bool
	ViewFlush   *worker.ViewFlushWorkerConfig
	Publisher   messaging.Publisher
	Logger      *logger.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *ContainerConfig) (*Container, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = messaging.NewNoopPublisher()
	}

	c := &Container{
		DB:        cfg.DB,
		Redis:     cfg.Redis,
		Publisher: publisher,
	}

	// Initialize repositories
	if cfg.DB != nil {
		pool := cfg.DB.Pool()
		c.EventRepo = repository.NewPostgresEventRepository(pool)
		c.RegistrationRepo = repository.NewPostgresRegistrationRepository(pool)
		c.ProfileRepo = repository.NewPostgresProfileRepository(pool)
		c.LikeRepo = repository.NewPostgresLikeRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		c.EventRepo = store.Events()
		c.RegistrationRepo = store.Registrations()
		c.ProfileRepo = store.Profiles()
		c.LikeRepo = store.Likes()
	}

	// View counting goes through Redis only when asked to
	var views service.ViewCounter = service.NewDirectViewCounter(c.EventRepo)
	if cfg.BufferViews {
		if cfg.Redis == nil {
			return nil, fmt.Errorf("buffered views require redis")
		}
		buffer, err := service.NewRedisViewBuffer(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("init view buffer: %w", err)
		}
		views = buffer
		c.ViewFlushWorker = worker.NewViewFlushWorker(buffer, c.EventRepo, log, cfg.ViewFlush)
	}

	// Initialize services
	c.Counters = service.NewCounterMaintainer(c.ProfileRepo, log)
	c.EventService = service.NewEventService(service.EventServiceDeps{
		Events:        c.EventRepo,
		Registrations: c.RegistrationRepo,
		Profiles:      c.ProfileRepo,
		Likes:         c.LikeRepo,
		Counters:      c.Counters,
		Views:         views,
		Publisher:     publisher,
		Logger:        log,
	})
	c.RegistrationService = service.NewRegistrationService(c.EventRepo, c.RegistrationRepo, c.Counters, publisher, log)
	c.ProfileService = service.NewProfileService(c.ProfileRepo, log)

	// Initialize handlers
	checks := map[string]handler.HealthCheck{}
	if c.DB != nil {
		checks["postgres"] = c.DB.HealthCheck
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.HealthCheck
	}
	c.HealthHandler = handler.NewHealthHandler(checks)
	c.EventHandler = handler.NewEventHandler(c.EventService)
	c.RegistrationHandler = handler.NewRegistrationHandler(c.RegistrationService)
	c.ProfileHandler = handler.NewProfileHandler(c.ProfileService)

	return c, nil
}

// Start launches background workers
func (c *Container) Start(ctx context.Context) {
	if c.ViewFlushWorker != nil {
		c.ViewFlushWorker.Start(ctx)
	}
}

// Close stops workers and releases the publisher
func (c *Container) Close() error {
	if c.ViewFlushWorker != nil {
		c.ViewFlushWorker.Stop()
	}
	return c.Publisher.Close()
}
