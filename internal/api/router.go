package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/dbpool"
	"github.com/oversightlabs/oversight/internal/middleware"
	"github.com/oversightlabs/oversight/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log           *logrus.Logger
	Pool          *dbpool.Pool
	Hub           *ws.Hub
	Requests      RequestService
	Policies      PolicyService
	Audit         AuditService
	Notifications NotificationService
	OrgLookup     middleware.OrgLookup
	CORSOrigins   []string
	Version       string
}

// Router-level limits.
const (
	maxBodySize = 1 << 20 // 1 MB
	rateLimit   = 100     // requests per second per IP
	rateBurst   = 200     // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Hub, log, deps.Version)
	requests := NewRequestHandler(deps.Requests, log)
	policies := NewPolicyHandler(deps.Policies, log)
	audit := NewAuditHandler(deps.Audit, log)
	notifications := NewNotificationHandler(deps.Notifications, log)
	stats := NewStatsHandler(deps.Pool, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// All other API routes require authentication.
	bfGuard := middleware.NewBruteForceGuard(ctx, log)
	api.Use(middleware.BruteForceMiddleware(bfGuard))
	api.Use(middleware.AuthMiddleware(middleware.NewCachedOrgLookup(ctx, deps.OrgLookup), log, bfGuard))

	// Request lifecycle.
	api.POST("/requests", requests.Admit)
	api.GET("/requests", requests.List)
	api.GET("/requests/:id", requests.Get)
	api.POST("/requests/:id/decisions", requests.Decide)
	api.POST("/requests/:id/cancel", requests.Cancel)
	api.GET("/requests/:id/notifications", notifications.History)
	api.GET("/requests/:id/transitions", audit.RequestTrail)

	// Policy administration.
	api.GET("/policies/quorum", policies.ListQuorumConfigs)
	api.POST("/policies/quorum", policies.CreateQuorumConfig)
	api.GET("/policies/auto-approval", policies.ListAutoApprovalRules)
	api.POST("/policies/auto-approval", policies.CreateAutoApprovalRule)
	api.GET("/policies/escalation", policies.ListEscalationRules)
	api.POST("/policies/escalation", policies.CreateEscalationRule)

	// Notification channels.
	api.GET("/notifications/channels", notifications.ListChannels)
	api.POST("/notifications/channels", notifications.CreateChannel)

	// Audit trail.
	api.GET("/audit", audit.Query)
	api.DELETE("/audit", audit.Purge)

	// Stats.
	api.GET("/stats", stats.GetStats)

	// WebSocket endpoint.
	api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins, deps.OrgLookup))
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
