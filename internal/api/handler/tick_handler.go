package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casthq/outreach-core/internal/api/dto"
	"github.com/casthq/outreach-core/internal/config"
)

// TickSendQueue handles POST /api/send-queue/tick.
// Admin-only; the endpoint only ever runs dry-run ticks, so an
// explicit dryRun:false is rejected outright.
func (h *Handler) TickSendQueue(c *gin.Context) {
	var req dto.TickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid tick request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "customerId is required",
		})
		return
	}

	if req.DryRun != nil && !*req.DryRun {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "dryRun:false is not allowed on this endpoint",
		})
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = config.DefaultTickLimit
	}
	if limit < 1 || limit > config.MaxTickLimit {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "limit must be between 1 and 100",
		})
		return
	}

	report, err := h.ticker.Tick(c.Request.Context(), req.CustomerID, limit, true)
	if err != nil {
		h.logger.Error("Tick failed",
			slog.String("customer_id", req.CustomerID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "tick failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}
