package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casthq/outreach-core/internal/api/dto"
	"github.com/casthq/outreach-core/internal/api/middleware"
	"github.com/casthq/outreach-core/internal/sendqueue"
)

// RefreshEnrollmentQueue handles POST /api/enrollments/:enrollmentId/queue/refresh.
// Materializes queue items for the enrollment's recipients, scoped to
// the tenant from the X-Customer-Id header.
func (h *Handler) RefreshEnrollmentQueue(c *gin.Context) {
	customerID := middleware.CustomerID(c)
	enrollmentID := c.Param("enrollmentId")

	if enrollmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "enrollmentId is required",
		})
		return
	}

	created, err := h.queue.RefreshEnrollment(c.Request.Context(), customerID, enrollmentID)
	if err != nil {
		h.logger.Error("Failed to refresh enrollment queue",
			slog.String("customer_id", customerID),
			slog.String("enrollment_id", enrollmentID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to refresh queue",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": dto.RefreshQueueResponse{
			EnrollmentID: enrollmentID,
			Created:      created,
		},
	})
}

// ListEnrollmentQueue handles GET /api/enrollments/:enrollmentId/queue.
// Every returned item belongs to the requesting tenant; the store query
// is scoped by customer id, never by enrollment id alone.
func (h *Handler) ListEnrollmentQueue(c *gin.Context) {
	customerID := middleware.CustomerID(c)
	enrollmentID := c.Param("enrollmentId")

	if enrollmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "enrollmentId is required",
		})
		return
	}

	var req dto.ListQueueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeQueueCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid cursor",
		})
		return
	}

	items, err := h.queue.ListByEnrollment(c.Request.Context(), customerID, enrollmentID, req.PageSize, cursor)
	if err != nil {
		h.logger.Error("Failed to list enrollment queue",
			slog.String("customer_id", customerID),
			slog.String("enrollment_id", enrollmentID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list queue",
		})
		return
	}

	hasMore := len(items) > req.PageSize
	if hasMore {
		items = items[:req.PageSize]
	}

	response := dto.ListQueueResponse{
		Items: make([]dto.QueueItemDTO, len(items)),
	}

	for i, item := range items {
		response.Items[i] = queueItemToDTO(item)
	}

	if hasMore {
		last := items[len(items)-1]
		response.NextCursor = EncodeQueueCursor(&sendqueue.Cursor{
			CreatedAt: last.CreatedAt,
			ItemID:    last.ID,
		})
	}

	c.JSON(http.StatusOK, response)
}

// GetQueueItem handles GET /api/enrollments/:enrollmentId/queue/:itemId.
// The store lookup is scoped by customer id, so a foreign tenant's item
// id resolves to not-found rather than leaking.
func (h *Handler) GetQueueItem(c *gin.Context) {
	customerID := middleware.CustomerID(c)
	itemID := c.Param("itemId")

	item, err := h.queue.GetItem(c.Request.Context(), customerID, itemID)
	if err != nil {
		if errors.Is(err, sendqueue.ErrItemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "queue item not found",
			})
			return
		}

		h.logger.Error("Failed to get queue item",
			slog.String("customer_id", customerID),
			slog.String("item_id", itemID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get queue item",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": queueItemToDTO(*item)})
}

// queueItemToDTO maps a queue item onto its wire shape
func queueItemToDTO(item sendqueue.QueueItem) dto.QueueItemDTO {
	return dto.QueueItemDTO{
		ID:               item.ID,
		CustomerID:       item.CustomerID,
		EnrollmentID:     item.EnrollmentID,
		RecipientID:      item.RecipientID,
		RecipientEmail:   item.RecipientEmail,
		SenderIdentityID: item.SenderIdentityID,
		Status:           item.Status,
		ScheduledFor:     formatTime(item.ScheduledFor),
		AttemptCount:     item.AttemptCount,
		LastError:        item.LastError,
		SentAt:           formatTime(item.SentAt),
		CreatedAt:        item.CreatedAt.Format(timeFormat),
		UpdatedAt:        item.UpdatedAt.Format(timeFormat),
	}
}
