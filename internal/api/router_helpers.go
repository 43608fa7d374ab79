package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/middleware"
	"github.com/oversightlabs/oversight/internal/models"
	"github.com/oversightlabs/oversight/internal/ws"
)

// getOrgID extracts the authenticated organization ID from the Gin context.
// A non-UUID value means the auth layer misbehaved, so the request is
// rejected rather than passed through.
func getOrgID(c *gin.Context) string {
	oid := c.GetString("org_id")
	if _, err := uuid.Parse(oid); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid org id")

		return ""
	}

	return oid
}

// payloadValidationErrors are the model-level sentinel errors that map to a
// 400 validation response rather than a 500.
var payloadValidationErrors = []error{
	models.ErrMissingAgentID,
	models.ErrMissingDescription,
	models.ErrInvalidActionType,
	models.ErrInvalidPriority,
	models.ErrInvalidRiskLevel,
	models.ErrInvalidRiskScore,
	models.ErrNegativeAmount,
	models.ErrMissingReviewerID,
	models.ErrMissingActorID,
	models.ErrInvalidDecision,
	models.ErrInvalidWeight,
	models.ErrReasonRequired,
	models.ErrInvalidTransition,
	models.ErrMissingPolicyName,
	models.ErrEmptyQuorum,
	models.ErrTierWithoutAction,
	models.ErrInvalidTriggerDelay,
	models.ErrMissingEscalationTarget,
	models.ErrMissingChannel,
	models.ErrMissingChannelTarget,
	models.ErrUnknownChannelKind,
}

// isValidationError reports whether err wraps one of the payload validation
// sentinels.
func isValidationError(err error) bool {
	for _, sentinel := range payloadValidationErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}

func wsHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, corsOrigins []string, lookup middleware.OrgLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := getOrgID(c)
		if orgID == "" {
			return
		}

		// CORS origins double as WebSocket origin patterns. The config
		// validator rejects wildcards and glob characters up front.
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       corsOrigins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Error("websocket accept failed")

			return
		}

		// The raw API key is retained for periodic re-validation.
		client := ws.NewClient(hub, conn, lookup, middleware.ExtractBearerToken(c))
		client.OrgID = orgID
		hub.Register(client)

		runPumps(appCtx, c.Request.Context(), client)
	}
}

// runPumps drives the client's read and write loops under a context that
// cancels when either the server shuts down or the HTTP request ends.
func runPumps(appCtx, reqCtx context.Context, client *ws.Client) {
	wsCtx, wsCancel := context.WithCancel(appCtx)
	defer wsCancel()

	go func() {
		select {
		case <-reqCtx.Done():
			wsCancel()
		case <-wsCtx.Done():
		}
	}()

	go client.WritePump(wsCtx)
	client.ReadPump(wsCtx)
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		})
		if rid := c.GetString(middleware.RequestIDKey); rid != "" {
			entry = entry.WithField("request_id", rid)
		}
		if oid := c.GetString("org_id"); oid != "" {
			entry = entry.WithField("org_id", oid)
		}

		entry.Info("request")
	}
}

// Pagination bounds shared by every list endpoint.
const (
	maxPaginationLimit  = 1000
	maxPaginationOffset = 100000
)

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return fallback
	}

	return min(v, maxPaginationLimit)
}

func parseOffset(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}

	return min(v, maxPaginationOffset)
}

// validatePathID checks that a path parameter ID is non-empty and within length limits.
func validatePathID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if len(id) > 255 {
		return fmt.Errorf("id exceeds maximum length of 255")
	}
	return nil
}
