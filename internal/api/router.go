package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/kmarchetti/conndock/internal/app"
	iauth "github.com/kmarchetti/conndock/internal/auth"
	"github.com/kmarchetti/conndock/internal/connections"
	"github.com/kmarchetti/conndock/internal/handlers"
	"github.com/kmarchetti/conndock/internal/middleware"
	"github.com/kmarchetti/conndock/internal/realtime"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, store *connections.Store, jwt *iauth.JWTService, hub *realtime.Hub, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if store == nil {
		return nil, fmt.Errorf("connection store must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	r.NoRoute(middleware.NotFoundHandler)

	// Health endpoints (public)
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
		r.GET("/health/live", handlers.Health())
		r.GET("/health/ready", handlers.Ready(db))
	}

	// Prometheus metrics
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// Public token exchange
	authHandler := handlers.NewAuthHandler(cfg.Auth.AdminKey, jwt, cfg.Auth.JWT.TTL)
	r.POST("/api/auth/token", authHandler.Token)

	// Realtime events authenticate via token query parameter inside the handler.
	if cfg.Realtime.Enabled && hub != nil {
		eventsHandler := handlers.NewEventsHandler(hub, jwt, store.Zones()...)
		r.GET("/api/events", eventsHandler.Stream)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	itemHandler := handlers.NewItemHandler(store, hub)
	zone := api.Group("/zones/:zone")
	{
		zone.GET("/items", itemHandler.List)
		zone.GET("/items/tree", itemHandler.Tree)
		zone.GET("/items/:id", itemHandler.Get)
		zone.POST("/items", itemHandler.Create)
		zone.PUT("/items/:id", itemHandler.Update)
		zone.DELETE("/items/:id", itemHandler.Delete)
		zone.GET("/connections", itemHandler.Connections)
	}

	maintenanceHandler := handlers.NewMaintenanceHandler(store, hub)
	api.POST("/maintenance/reconcile", maintenanceHandler.Reconcile)

	return r, nil
}
