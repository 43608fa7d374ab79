package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/dbpool"
	"github.com/oversightlabs/oversight/internal/metrics"
)

// StatsHandler serves the workload statistics endpoint.
type StatsHandler struct {
	pool *dbpool.Pool
	log  *logrus.Logger
}

// NewStatsHandler creates a StatsHandler with the given dependencies.
func NewStatsHandler(pool *dbpool.Pool, log *logrus.Logger) *StatsHandler {
	return &StatsHandler{pool: pool, log: log}
}

// statsResponse is the JSON payload returned by the stats endpoint.
type statsResponse struct {
	Pending              int     `json:"pending"`
	InReview             int     `json:"in_review"`
	Escalated            int     `json:"escalated"`
	Approved             int     `json:"approved"`
	Rejected             int     `json:"rejected"`
	Expired              int     `json:"expired"`
	Cancelled            int     `json:"cancelled"`
	AvgResolutionSeconds float64 `json:"avg_resolution_seconds"`
}

// GetStats handles GET /api/v1/stats. Returns per-status request counts and
// the average time from submission to resolution.
func (h *StatsHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	orgID := getOrgID(c)
	if orgID == "" {
		return
	}

	tx, err := h.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		h.log.WithError(err).Error("stats: begin tx")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		return
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only tx, rollback is cleanup.

	// Set org context for RLS.
	if _, err := tx.Exec(ctx, "SELECT set_config('app.org_id', $1, true)", orgID); err != nil {
		h.log.WithError(err).Error("stats: set org")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		return
	}

	var resp statsResponse

	// Single consolidated query for all org-scoped stats.
	if err := tx.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'in_review'),
			COUNT(*) FILTER (WHERE status = 'escalated'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE status = 'expired'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(EXTRACT(EPOCH FROM AVG(resolved_at - created_at) FILTER (WHERE resolved_at IS NOT NULL)), 0)
		 FROM oversight_requests`,
	).Scan(
		&resp.Pending, &resp.InReview, &resp.Escalated,
		&resp.Approved, &resp.Rejected, &resp.Expired, &resp.Cancelled,
		&resp.AvgResolutionSeconds,
	); err != nil {
		h.log.WithError(err).Error("stats: consolidated query")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
		return
	}

	metrics.PendingRequests.Set(float64(resp.Pending + resp.InReview + resp.Escalated))

	c.JSON(http.StatusOK, resp)
}
