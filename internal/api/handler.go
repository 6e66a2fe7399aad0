package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	reservations *service.ReservationService
	ledger       *service.StockLedger
	alerts       *service.AlertEvaluator
	compensator  *service.Compensator
	sweepBatch   int
}

// NewHandler creates a new HTTP handler
func NewHandler(reservations *service.ReservationService, ledger *service.StockLedger, alerts *service.AlertEvaluator, compensator *service.Compensator, sweepBatch int) *Handler {
	return &Handler{
		reservations: reservations,
		ledger:       ledger,
		alerts:       alerts,
		compensator:  compensator,
		sweepBatch:   sweepBatch,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/reservations", h.createReservation)
		v1.GET("/reservations", h.queryReservations)
		v1.POST("/reservations/cleanup", h.cleanupReservations)
		v1.GET("/reservations/:id", h.getReservation)
		v1.POST("/reservations/:id/confirm", h.confirmReservation)
		v1.POST("/reservations/:id/cancel", h.cancelReservation)

		v1.POST("/inventory/rollback", h.rollbackInventory)
		v1.GET("/inventory/:productId", h.getStock)
		v1.POST("/inventory/:productId/adjust", h.adjustStock)
		v1.PUT("/inventory/:productId/threshold", h.setThreshold)
		v1.GET("/inventory/:productId/changes", h.getChanges)

		v1.GET("/alerts", h.getActiveAlerts)
		v1.POST("/alerts/:id/resolve", h.resolveAlert)
		v1.POST("/alerts/:id/ignore", h.ignoreAlert)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createReservation handles reservation creation
func (h *Handler) createReservation(c *gin.Context) {
	var req service.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	reservation, err := h.reservations.Create(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

// getReservation handles get reservation by ID
func (h *Handler) getReservation(c *gin.Context) {
	reservation, err := h.reservations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// queryReservations handles filtered reservation lookup
func (h *Handler) queryReservations(c *gin.Context) {
	filter := models.ReservationFilter{
		OwnerID:     c.Query("owner_id"),
		OwnerType:   c.Query("owner_type"),
		SessionID:   c.Query("session_id"),
		UserID:      c.Query("user_id"),
		Status:      c.Query("status"),
		ReferenceID: c.Query("reference_id"),
		ProductID:   c.Query("product_id"),
		VariantID:   c.Query("variant_id"),
		Page:        intQuery(c, "page", 1),
		PageSize:    intQuery(c, "page_size", 20),
	}

	reservations, err := h.reservations.Query(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

type confirmRequest struct {
	ReferenceID string `json:"reference_id" binding:"required"`
}

// confirmReservation converts a hold into a permanent decrement
func (h *Handler) confirmReservation(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.reservations.Confirm(c.Request.Context(), c.Param("id"), req.ReferenceID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"confirmed": true})
}

// cancelReservation releases a hold
func (h *Handler) cancelReservation(c *gin.Context) {
	if err := h.reservations.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// cleanupReservations sweeps one batch of expired reservations on demand
func (h *Handler) cleanupReservations(c *gin.Context) {
	count, err := h.reservations.CleanupExpired(c.Request.Context(), h.sweepBatch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": count})
}

type rollbackRequest struct {
	OrderID          string                   `json:"order_id" binding:"required"`
	ReservationID    string                   `json:"reservation_id,omitempty"`
	Items            []models.ReservationItem `json:"items,omitempty"`
	PaymentReference string                   `json:"payment_reference,omitempty"`
	PreviousStatus   string                   `json:"previous_status,omitempty"`
	Amount           int64                    `json:"amount,omitempty"`
	Reason           string                   `json:"reason,omitempty"`
}

// rollbackInventory runs the cancellation compensation for an order
func (h *Handler) rollbackInventory(c *gin.Context) {
	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID:          req.OrderID,
		ReservationID:    req.ReservationID,
		Items:            toCancelledItems(req.Items),
		PaymentReference: req.PaymentReference,
		PreviousStatus:   req.PreviousStatus,
		Amount:           req.Amount,
		Reason:           req.Reason,
	}

	// Best-effort by contract: failures are recorded for reconciliation,
	// the call itself reports acceptance.
	_ = h.compensator.HandleOrderCancelled(c.Request.Context(), event)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// getStock returns the authoritative counters for a product/variant
func (h *Handler) getStock(c *gin.Context) {
	stock, err := h.ledger.GetStock(c.Request.Context(), c.Param("productId"), c.Query("variant_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stock":     stock,
		"available": stock.Available(),
	})
}

type adjustRequest struct {
	VariantID string `json:"variant_id,omitempty"`
	Type      string `json:"type" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Reason    string `json:"reason" binding:"required"`
	UserID    string `json:"user_id,omitempty"`
}

// adjustStock applies a manual increment or decrement
func (h *Handler) adjustStock(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	stock, err := h.ledger.Adjust(c.Request.Context(), req.Type, c.Param("productId"),
		req.VariantID, req.Quantity, req.Reason, "", req.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stock)
}

type thresholdRequest struct {
	VariantID string `json:"variant_id,omitempty"`
	Threshold *int   `json:"threshold" binding:"required"`
}

// setThreshold updates the low stock threshold
func (h *Handler) setThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.ledger.SetThreshold(c.Request.Context(), c.Param("productId"), req.VariantID, *req.Threshold); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// getChanges returns the audit ledger for a product
func (h *Handler) getChanges(c *gin.Context) {
	changes, err := h.ledger.Changes(c.Request.Context(), c.Param("productId"), c.Query("variant_id"),
		intQuery(c, "page", 1), intQuery(c, "page_size", 20))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

// getActiveAlerts lists open inventory alerts
func (h *Handler) getActiveAlerts(c *gin.Context) {
	alerts, err := h.alerts.ActiveAlerts(c.Request.Context(),
		intQuery(c, "page", 1), intQuery(c, "page_size", 20))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

type alertActionRequest struct {
	Actor string `json:"actor" binding:"required"`
	Notes string `json:"notes,omitempty"`
}

// resolveAlert closes an alert as handled
func (h *Handler) resolveAlert(c *gin.Context) {
	var req alertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	alert, err := h.alerts.Resolve(c.Request.Context(), c.Param("id"), req.Actor, req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// ignoreAlert dismisses an alert
func (h *Handler) ignoreAlert(c *gin.Context) {
	var req alertActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	alert, err := h.alerts.Ignore(c.Request.Context(), c.Param("id"), req.Actor, req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// writeError maps the error taxonomy onto HTTP statuses. Internal
// detail stays in the logs and audit trail; clients get the class and a
// correlation id.
func (h *Handler) writeError(c *gin.Context, err error) {
	correlationID := uuid.New().String()

	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "insufficient stock",
			"details": err.Error(),
		})
	case errors.Is(err, apperr.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrDependency):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":          "upstream dependency failed",
			"correlation_id": correlationID,
		})
	default:
		util.GetLogger().Error("Unhandled API error",
			zap.Error(err),
			zap.String("correlation_id", correlationID))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "internal error",
			"correlation_id": correlationID,
		})
	}
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func toCancelledItems(items []models.ReservationItem) []models.CancelledItemData {
	out := make([]models.CancelledItemData, 0, len(items))
	for _, item := range items {
		out = append(out, models.CancelledItemData{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return out
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
