package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casthq/outreach-core/internal/api/dto"
	"github.com/casthq/outreach-core/internal/leadsync"
)

// CreateLeadSync handles POST /api/lead-syncs.
// Publishes a sync job for the worker service rather than running the
// reconciliation inline; the HTTP request returns as soon as the job is
// on the bus.
func (h *Handler) CreateLeadSync(c *gin.Context) {
	var req dto.CreateSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid sync request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "customerId and a valid sourceUrl are required",
		})
		return
	}

	body, err := json.Marshal(gin.H{
		"customerId": req.CustomerID,
		"sourceUrl":  req.SourceURL,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to encode sync job",
		})
		return
	}

	if err := h.publisher.Publish(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Error("Failed to publish sync job",
			slog.String("customer_id", req.CustomerID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to enqueue sync",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{
			"customerId": req.CustomerID,
			"status":     "enqueued",
		},
	})
}

// GetLeadSyncState handles GET /api/lead-syncs/:customerId
func (h *Handler) GetLeadSyncState(c *gin.Context) {
	customerID := c.Param("customerId")
	if customerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "customerId is required",
		})
		return
	}

	state, err := h.syncState.GetSyncState(c.Request.Context(), customerID)
	if err != nil {
		if errors.Is(err, leadsync.ErrStateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "no sync state for customer",
			})
			return
		}

		h.logger.Error("Failed to get sync state",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get sync state",
		})
		return
	}

	leadCount, err := h.syncState.CountLeads(c.Request.Context(), customerID, state.SourceURL)
	if err != nil {
		h.logger.Warn("Failed to count stored leads",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}

	c.JSON(http.StatusOK, gin.H{
		"data": dto.SyncStateDTO{
			CustomerID:    state.CustomerID,
			SourceURL:     state.SourceURL,
			Running:       state.Running,
			LastAttemptAt: formatTime(state.LastAttemptAt),
			LastSuccessAt: formatTime(state.LastSuccessAt),
			LastError:     state.LastError,
			RowCount:      state.RowCount,
			LeadCount:     leadCount,
		},
	})
}
