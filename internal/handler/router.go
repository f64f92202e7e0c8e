package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Xavierhuang/FounderEvents-sub002/pkg/middleware"
)

// RouterConfig carries the handlers and middleware the API is assembled from
type RouterConfig struct {
	Health       *HealthHandler
	Events       *EventHandler
	Registration *RegistrationHandler
	Profiles     *ProfileHandler

	JWT *middleware.JWTConfig
	// RegisterLimiter throttles sign-ups per client; nil disables it
	RegisterLimiter *middleware.RateLimiter
	// Middleware runs before every route
	Middleware []gin.HandlerFunc
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(cfg *RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cfg.Middleware...)

	RegisterRoutes(r, cfg)
	return r
}

// RegisterRoutes mounts the API on r
func RegisterRoutes(r gin.IRouter, cfg *RouterConfig) {
	if cfg.Health != nil {
		r.GET("/health", cfg.Health.Health)
		r.GET("/ready", cfg.Health.Ready)
	}

	auth := middleware.JWTMiddleware(cfg.JWT)
	optional := middleware.OptionalJWTMiddleware(cfg.JWT)

	register := []gin.HandlerFunc{optional}
	if cfg.RegisterLimiter != nil {
		register = append(register, cfg.RegisterLimiter.Middleware())
	}
	register = append(register, cfg.Registration.Register)

	v1 := r.Group("/api/v1")

	events := v1.Group("/events")
	{
		events.GET("", optional, cfg.Events.List)
		events.POST("", auth, cfg.Events.Create)
		events.GET("/:slug", optional, cfg.Events.GetBySlug)
		events.PATCH("/:slug", auth, cfg.Events.Update)
		events.PUT("/:slug/featured", auth, cfg.Events.SetFeatured)
		events.DELETE("/:slug", auth, cfg.Events.Delete)
		events.POST("/:slug/like", auth, cfg.Events.ToggleLike)

		events.POST("/:slug/register", register...)
		events.DELETE("/:slug/register", auth, cfg.Registration.Cancel)
		events.GET("/:slug/registration", auth, cfg.Registration.GetMine)
		events.GET("/:slug/registrations", auth, cfg.Registration.List)
	}

	organizer := v1.Group("/organizer", auth)
	{
		organizer.GET("/events", cfg.Events.ListMine)
		organizer.POST("/profile", cfg.Profiles.Create)
		organizer.GET("/profile", cfg.Profiles.Get)
	}
}
