package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/di"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/handler"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/worker"
	"github.com/Xavierhuang/FounderEvents-sub002/migrations"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/config"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/database"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/messaging"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/middleware"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/redis"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Development: cfg.Log.Development,
		OutputPath:  "stdout",
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.ErrorCtx(shutdownCtx, "telemetry shutdown failed", zap.Error(err))
		}
	}()

	var db *database.PostgresDB
	if cfg.Storage.Driver == config.StorageDriverPostgres {
		db, err = database.NewPostgres(ctx, &database.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.ConnMaxLifetime,
			MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
			MaxRetries:      cfg.Database.MaxRetries,
			Tracing:         cfg.OTel.Enabled,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			applied, err := db.Migrate(ctx, migrations.FS)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.InfoCtx(ctx, "migrations applied", zap.Strings("files", applied))
		}
	} else {
		logger.WarnCtx(ctx, "using in-memory storage, data is lost on restart")
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(ctx, &redis.Config{
			Addr:         cfg.Redis.Addr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			Tracing:      cfg.OTel.Enabled,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()
	}

	publisher, err := newPublisher(ctx, &cfg.Messaging)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}

	if cfg.Views.Buffered && !cfg.BufferViews() {
		logger.WarnCtx(ctx, "view buffering needs redis, counting views directly")
	}

	container, err := di.NewContainer(ctx, &di.ContainerConfig{
		DB:          db,
		Redis:       rdb,
		BufferViews: cfg.BufferViews(),
		ViewFlush: &worker.ViewFlushWorkerConfig{
			FlushInterval: cfg.Views.FlushInterval,
			BatchSize:     cfg.Views.BatchSize,
		},
		Publisher: publisher,
		Logger:    log,
	})
	if err != nil {
		_ = publisher.Close()
		return fmt.Errorf("build container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Warn("container close failed", zap.Error(err))
		}
	}()
	container.Start(ctx)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limitCfg := middleware.DefaultRateLimitConfig()
		limitCfg.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limitCfg.Burst = cfg.RateLimit.Burst
		limiter = middleware.NewRateLimiter(limitCfg)
		defer limiter.Stop()
	}

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.Server.AllowedOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-ID")

	router := handler.NewRouter(&handler.RouterConfig{
		Health:       container.HealthHandler,
		Events:       container.EventHandler,
		Registration: container.RegistrationHandler,
		Profiles:     container.ProfileHandler,
		JWT: &middleware.JWTConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
		},
		RegisterLimiter: limiter,
		Middleware: []gin.HandlerFunc{
			telemetry.GinMiddleware(cfg.OTel.ServiceName),
			middleware.RequestID(),
			cors.New(corsCfg),
			middleware.RequestLogger(log),
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("messaging", cfg.Messaging.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func newPublisher(ctx context.Context, cfg *config.MessagingConfig) (messaging.Publisher, error) {
	switch cfg.Driver {
	case config.MessagingDriverKafka:
		return messaging.NewKafkaPublisher(ctx, messaging.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,
			ClientID:    cfg.KafkaClientID,
			TopicPrefix: cfg.TopicPrefix,
		})
	case config.MessagingDriverRabbitMQ:
		return messaging.NewRabbitMQPublisher(messaging.RabbitMQConfig{
			URL:         cfg.RabbitMQURL,
			Exchange:    cfg.RabbitMQExchange,
			TopicPrefix: cfg.TopicPrefix,
		})
	default:
		return messaging.NewNoopPublisher(), nil
	}
}
