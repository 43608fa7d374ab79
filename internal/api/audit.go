package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/models"
)

// AuditHandler serves state transition audit trail endpoints.
type AuditHandler struct {
	svc AuditService
	log *logrus.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(svc AuditService, log *logrus.Logger) *AuditHandler {
	return &AuditHandler{svc: svc, log: log}
}

// Query handles GET /api/v1/audit.
func (h *AuditHandler) Query(c *gin.Context) {
	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	opts := models.TransitionQueryOpts{
		RequestID: c.Query("request_id"),
		ToStatus:  models.RequestStatus(c.Query("to_status")),
		ActorType: models.ActorType(c.Query("actor_type")),
		Limit:     parseInt(c.Query("limit"), 50),
		Offset:    parseOffset(c.Query("offset")),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid since format, use RFC3339")
			return
		}
		opts.Since = &t
	}

	transitions, hasMore, err := h.svc.QueryTransitions(c.Request.Context(), orgID, opts)
	if err != nil {
		h.log.WithError(err).Error("failed to query audit trail")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to query audit trail")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transitions": transitions,
		"has_more":    hasMore,
	})
}

// RequestTrail handles GET /api/v1/requests/:id/transitions. It returns the
// full audit trail of one request, oldest first.
func (h *AuditHandler) RequestTrail(c *gin.Context) {
	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	requestID := c.Param("id")
	if err := validatePathID(requestID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	opts := models.TransitionQueryOpts{
		RequestID: requestID,
		Limit:     parseInt(c.Query("limit"), 100),
		Offset:    parseOffset(c.Query("offset")),
	}

	transitions, hasMore, err := h.svc.QueryTransitions(c.Request.Context(), orgID, opts)
	if err != nil {
		h.log.WithError(err).Error("failed to query request transitions")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to query request transitions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transitions": transitions,
		"has_more":    hasMore,
	})
}

// Purge handles DELETE /api/v1/audit. Only transitions of resolved requests
// older than the retention window are removed.
func (h *AuditHandler) Purge(c *gin.Context) {
	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	retentionDays := 90
	if rd := c.Query("retention_days"); rd != "" {
		v, err := strconv.Atoi(rd)
		if err != nil || v < 1 {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "retention_days must be a positive integer")
			return
		}
		retentionDays = v
	}

	deleted, err := h.svc.PurgeOldTransitions(c.Request.Context(), orgID, retentionDays)
	if err != nil {
		h.log.WithError(err).Error("failed to purge audit trail")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to purge audit trail")
		return
	}

	h.log.WithFields(logrus.Fields{
		"action":         "audit.purge",
		"org_id":         orgID,
		"deleted":        deleted,
		"retention_days": retentionDays,
	}).Info("audit")

	c.JSON(http.StatusOK, gin.H{
		"deleted":        deleted,
		"retention_days": retentionDays,
	})
}
