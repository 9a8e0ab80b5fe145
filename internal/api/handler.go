package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"order-bench/internal/executor"
	"order-bench/internal/models"
	"order-bench/internal/service"
	"order-bench/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether the store can serve queries
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsReader serves the per-strategy aggregates
type StatsReader interface {
	ListStrategyStats(ctx context.Context) ([]models.StrategyStats, error)
	GetStrategyStats(ctx context.Context, strategy string) (*models.StrategyStats, error)
}

// Handler contains HTTP handlers
type Handler struct {
	queryService *service.OrderQueryService
	store        Pinger
	stats        StatsReader
}

// NewHandler creates a new HTTP handler. stats may be nil when telemetry is
// disabled.
func NewHandler(queryService *service.OrderQueryService, store Pinger, stats StatsReader) *Handler {
	return &Handler{
		queryService: queryService,
		store:        store,
		stats:        stats,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/orders", h.getOrderSummaries)
		api.GET("/workload", h.runWorkload)
		api.GET("/stats", h.getStats)
		api.GET("/stats/:strategy", h.getStrategyStats)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"strategy": h.queryService.Strategy(),
		"time":     time.Now().Unix(),
	})
}

// readinessCheck reports ready once the connection pool answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getOrderSummaries handles GET /api/orders
func (h *Handler) getOrderSummaries(c *gin.Context) {
	var req service.OrderSummaryRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, models.InvalidArgument("api.getOrderSummaries", "%s", err.Error()))
		return
	}

	page, err := h.queryService.GetOrderSummaries(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// runWorkload handles GET /api/workload
func (h *Handler) runWorkload(c *gin.Context) {
	var req service.WorkloadRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, models.InvalidArgument("api.runWorkload", "%s", err.Error()))
		return
	}

	report, err := h.queryService.RunWorkload(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// getStats handles GET /api/stats
func (h *Handler) getStats(c *gin.Context) {
	if !h.statsEnabled(c) {
		return
	}

	stats, err := h.stats.ListStrategyStats(c.Request.Context())
	if err != nil {
		statsUnavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"strategies": stats})
}

// getStrategyStats handles GET /api/stats/:strategy
func (h *Handler) getStrategyStats(c *gin.Context) {
	if !h.statsEnabled(c) {
		return
	}

	strategy, err := executor.ParseStrategy(c.Param("strategy"))
	if err != nil {
		writeError(c, models.InvalidArgument("api.getStrategyStats", "%s", err.Error()))
		return
	}

	stats, err := h.stats.GetStrategyStats(c.Request.Context(), string(strategy))
	if errors.Is(err, models.ErrStatsNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		statsUnavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) statsEnabled(c *gin.Context) bool {
	if h.stats != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   "telemetry_disabled",
		"message": "telemetry is not enabled",
	})
	return false
}

func statsUnavailable(c *gin.Context, err error) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error":   string(models.KindStoreUnavailable),
		"message": err.Error(),
	})
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindInvalidArgument:
		return http.StatusBadRequest
	case models.KindStoreUnavailable, models.KindConnectionExhausted:
		return http.StatusServiceUnavailable
	case models.KindQueryTimeout:
		return http.StatusGatewayTimeout
	case models.KindCanceled:
		// client closed request
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	kind := models.KindOf(err)

	message := err.Error()
	var qe *models.QueryError
	if errors.As(err, &qe) && qe.Err != nil {
		message = qe.Err.Error()
	}

	c.JSON(statusFor(kind), gin.H{
		"error":   string(kind),
		"message": message,
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
