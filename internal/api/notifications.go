package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/models"
)

// NotificationHandler serves notification channel and delivery history endpoints.
type NotificationHandler struct {
	svc NotificationService
	log *logrus.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(svc NotificationService, log *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log}
}

// ListChannels handles GET /api/v1/notifications/channels.
func (h *NotificationHandler) ListChannels(c *gin.Context) {
	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	channels, err := h.svc.ListChannels(c.Request.Context(), orgID)
	if err != nil {
		h.log.WithError(err).Error("listing notification channels")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// CreateChannel handles POST /api/v1/notifications/channels.
func (h *NotificationHandler) CreateChannel(c *gin.Context) {
	var ch models.NotificationChannel
	if err := c.ShouldBindJSON(&ch); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := ch.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	created, err := h.svc.CreateChannel(c.Request.Context(), orgID, &ch)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateKey) {
			respondError(c, http.StatusConflict, ErrCodeConflict, "a channel with this name already exists")

			return
		}

		h.log.WithError(err).Error("creating notification channel")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action": "notification.channel.create",
		"org_id": orgID,
		"name":   created.Name,
		"kind":   created.Kind,
	}).Info("audit")

	c.JSON(http.StatusCreated, created)
}

// History handles GET /api/v1/requests/:id/notifications.
func (h *NotificationHandler) History(c *gin.Context) {
	requestID := c.Param("id")
	if err := validatePathID(requestID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	records, err := h.svc.History(c.Request.Context(), orgID, requestID)
	if err != nil {
		h.log.WithError(err).Error("fetching delivery history")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"deliveries": records})
}
