package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/models"
)

// PolicyHandler serves approval policy administration endpoints.
type PolicyHandler struct {
	svc PolicyService
	log *logrus.Logger
}

// NewPolicyHandler creates a PolicyHandler with the given service and logger.
func NewPolicyHandler(svc PolicyService, log *logrus.Logger) *PolicyHandler {
	return &PolicyHandler{svc: svc, log: log}
}

// ListQuorumConfigs handles GET /api/v1/policies/quorum.
func (h *PolicyHandler) ListQuorumConfigs(c *gin.Context) {
	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	configs, err := h.svc.ListQuorumConfigs(c.Request.Context(), orgID)
	if err != nil {
		h.log.WithError(err).Error("listing quorum configs")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

// CreateQuorumConfig handles POST /api/v1/policies/quorum.
func (h *PolicyHandler) CreateQuorumConfig(c *gin.Context) {
	var cfg models.QuorumConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	created, err := h.svc.CreateQuorumConfig(c.Request.Context(), orgID, cfg)
	if err != nil {
		h.respondPolicyError(c, err, "creating quorum config")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action": "policy.quorum.create",
		"org_id": orgID,
		"name":   created.Name,
	}).Info("audit")

	c.JSON(http.StatusCreated, created)
}

// ListAutoApprovalRules handles GET /api/v1/policies/auto-approval.
func (h *PolicyHandler) ListAutoApprovalRules(c *gin.Context) {
	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	rules, err := h.svc.ListAutoApprovalRules(c.Request.Context(), orgID)
	if err != nil {
		h.log.WithError(err).Error("listing auto-approval rules")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// CreateAutoApprovalRule handles POST /api/v1/policies/auto-approval.
func (h *PolicyHandler) CreateAutoApprovalRule(c *gin.Context) {
	var rule models.AutoApprovalRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	created, err := h.svc.CreateAutoApprovalRule(c.Request.Context(), orgID, rule)
	if err != nil {
		h.respondPolicyError(c, err, "creating auto-approval rule")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":      "policy.auto_approval.create",
		"org_id":      orgID,
		"rule_id":     created.ID,
		"action_type": created.ActionType,
	}).Info("audit")

	c.JSON(http.StatusCreated, created)
}

// ListEscalationRules handles GET /api/v1/policies/escalation.
func (h *PolicyHandler) ListEscalationRules(c *gin.Context) {
	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	rules, err := h.svc.ListEscalationRules(c.Request.Context(), orgID)
	if err != nil {
		h.log.WithError(err).Error("listing escalation rules")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")

		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// CreateEscalationRule handles POST /api/v1/policies/escalation.
func (h *PolicyHandler) CreateEscalationRule(c *gin.Context) {
	var rule models.EscalationRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	created, err := h.svc.CreateEscalationRule(c.Request.Context(), orgID, rule)
	if err != nil {
		h.respondPolicyError(c, err, "creating escalation rule")

		return
	}

	h.log.WithFields(logrus.Fields{
		"action":  "policy.escalation.create",
		"org_id":  orgID,
		"rule_id": created.ID,
	}).Info("audit")

	c.JSON(http.StatusCreated, created)
}

// respondPolicyError maps policy creation failures to HTTP responses.
func (h *PolicyHandler) respondPolicyError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, models.ErrDuplicateKey):
		respondError(c, http.StatusConflict, ErrCodeConflict, "a policy with this name already exists")
	case isValidationError(err):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	default:
		h.log.WithError(err).Error(logMsg)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
