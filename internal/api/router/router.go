package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/casthq/outreach-core/internal/api/handler"
	"github.com/casthq/outreach-core/internal/api/middleware"
)

// Setup configures the gin router with all routes and middleware
func Setup(logger *slog.Logger, deps *handler.Dependencies, adminSecret string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "outreach-api",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handler.New(deps)

	api := r.Group("/api")
	{
		admin := api.Group("")
		admin.Use(middleware.AdminSecret(adminSecret))
		{
			// POST /api/send-queue/tick - run one dry-run tick
			admin.POST("/send-queue/tick", h.TickSendQueue)

			// POST /api/lead-syncs - enqueue a lead sync job
			admin.POST("/lead-syncs", h.CreateLeadSync)

			// GET /api/lead-syncs/:customerId - sync state
			admin.GET("/lead-syncs/:customerId", h.GetLeadSyncState)
		}

		enrollments := api.Group("/enrollments")
		enrollments.Use(middleware.Tenant())
		{
			// POST /api/enrollments/:enrollmentId/queue/refresh
			enrollments.POST("/:enrollmentId/queue/refresh", h.RefreshEnrollmentQueue)

			// GET /api/enrollments/:enrollmentId/queue
			enrollments.GET("/:enrollmentId/queue", h.ListEnrollmentQueue)

			// GET /api/enrollments/:enrollmentId/queue/:itemId
			enrollments.GET("/:enrollmentId/queue/:itemId", h.GetQueueItem)
		}
	}

	return r
}
