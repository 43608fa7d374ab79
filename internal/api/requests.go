package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/models"
)

// RequestHandler serves oversight request lifecycle endpoints.
type RequestHandler struct {
	svc RequestService
	log *logrus.Logger
}

// NewRequestHandler creates a RequestHandler with the given service and logger.
func NewRequestHandler(svc RequestService, log *logrus.Logger) *RequestHandler {
	return &RequestHandler{svc: svc, log: log}
}

// Admit handles POST /api/v1/requests.
func (h *RequestHandler) Admit(c *gin.Context) {
	var req models.AdmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	r, err := h.svc.Admit(c.Request.Context(), orgID, req)
	if err != nil {
		if errors.Is(err, models.ErrNoPolicyMatch) {
			respondError(c, http.StatusUnprocessableEntity, ErrCodeValidationError, err.Error())

			return
		}

		if isValidationError(err) {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

			return
		}

		h.log.WithError(err).Error("admitting request")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":      "request.admit",
		"org_id":      orgID,
		"request_id":  r.ID,
		"agent_id":    r.AgentID,
		"action_type": r.ActionType,
		"status":      r.Status,
	}).Info("audit")

	c.JSON(http.StatusCreated, r)
}

// Get handles GET /api/v1/requests/:id.
func (h *RequestHandler) Get(c *gin.Context) {
	requestID := c.Param("id")
	if err := validatePathID(requestID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	r, err := h.svc.Get(c.Request.Context(), orgID, requestID)
	if err != nil {
		if errors.Is(err, models.ErrRequestNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "request not found")

			return
		}

		h.log.WithError(err).Error("getting request")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, r)
}

// List handles GET /api/v1/requests.
func (h *RequestHandler) List(c *gin.Context) {
	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	opts := models.ListPendingOpts{
		AgentID:  c.Query("agent_id"),
		Status:   models.RequestStatus(c.Query("status")),
		Priority: models.Priority(c.Query("priority")),
		Limit:    parseInt(c.DefaultQuery("limit", "50"), 50),
		Offset:   parseOffset(c.DefaultQuery("offset", "0")),
	}

	requests, hasMore, err := h.svc.ListPending(c.Request.Context(), orgID, opts)
	if err != nil {
		h.log.WithError(err).Error("listing requests")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests, "has_more": hasMore})
}

// Decide handles POST /api/v1/requests/:id/decisions.
func (h *RequestHandler) Decide(c *gin.Context) {
	requestID := c.Param("id")
	if err := validatePathID(requestID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	var req models.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	r, err := h.svc.Decide(c.Request.Context(), orgID, requestID, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRequestNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case errors.Is(err, models.ErrAlreadyResolved):
			respondError(c, http.StatusConflict, ErrCodeConflict, err.Error())
		case errors.Is(err, models.ErrDuplicateDecision):
			respondError(c, http.StatusConflict, ErrCodeConflict, err.Error())
		case errors.Is(err, models.ErrNotAuthorized):
			respondError(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
		case isValidationError(err):
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		default:
			h.log.WithError(err).Error("recording decision")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		}

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":      "request.decide",
		"org_id":      orgID,
		"request_id":  requestID,
		"reviewer_id": req.ReviewerID,
		"decision":    req.Decision,
		"status":      r.Status,
	}).Info("audit")

	c.JSON(http.StatusOK, r)
}

// Cancel handles POST /api/v1/requests/:id/cancel.
func (h *RequestHandler) Cancel(c *gin.Context) {
	requestID := c.Param("id")
	if err := validatePathID(requestID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())

		return
	}

	var req models.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	r, err := h.svc.Cancel(c.Request.Context(), orgID, requestID, req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRequestNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		case errors.Is(err, models.ErrAlreadyResolved):
			respondError(c, http.StatusConflict, ErrCodeConflict, err.Error())
		case isValidationError(err):
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		default:
			h.log.WithError(err).Error("cancelling request")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		}

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":     "request.cancel",
		"org_id":     orgID,
		"request_id": requestID,
		"actor_id":   req.ActorID,
	}).Info("audit")

	c.JSON(http.StatusOK, r)
}
