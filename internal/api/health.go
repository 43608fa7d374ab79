// Package api provides HTTP handlers for the oversight engine.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/dbpool"
	"github.com/oversightlabs/oversight/internal/ws"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	pool      *dbpool.Pool
	hub       *ws.Hub
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler with the given dependencies.
func NewHealthHandler(pool *dbpool.Pool, hub *ws.Hub, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		hub:       hub,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// readinessResponse is the JSON payload returned by the readiness endpoint.
type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// healthResponse is the JSON payload returned by the health/liveness endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health. The database probe is best effort:
// a liveness failure restarts the process, which does not fix a database
// outage, so a broken pool only degrades the reported status.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Database:      h.databaseStatus(c.Request.Context()),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.hub != nil {
		resp.WSClients = h.hub.ClientCount()
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) databaseStatus(ctx context.Context) string {
	if h.pool == nil {
		return "not_configured"
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.pool.HealthCheck(ctx); err != nil {
		return "disconnected"
	}

	return "connected"
}

// Readiness handles GET /api/v1/ready. Unlike liveness, a failing check here
// pulls the instance out of rotation, so connectivity and schema must both
// hold before traffic is admitted.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "schema": "ok"}

	if err := h.pool.HealthCheck(ctx); err != nil {
		h.log.WithError(err).Error("readiness: database health check failed")
		checks["database"] = "error"
		// Schema state is unknowable without a connection.
		checks["schema"] = "unknown"
	} else if err := h.checkSchema(ctx); err != nil {
		h.log.WithError(err).Error("readiness: schema check failed")
		checks["schema"] = "error"
	}

	status, statusCode := "ready", http.StatusOK
	if checks["database"] != "ok" || checks["schema"] != "ok" {
		status, statusCode = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(statusCode, readinessResponse{
		Status: status,
		Checks: checks,
	})
}

// checkSchema proves the migrations ran by touching the organizations table.
func (h *HealthHandler) checkSchema(ctx context.Context) error {
	var count int
	if err := h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM organizations").Scan(&count); err != nil {
		return fmt.Errorf("schema check: %w", err)
	}

	return nil
}
