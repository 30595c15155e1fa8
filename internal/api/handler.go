package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"checkout-service/config"
	"checkout-service/internal/models"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AccountStore covers the owner-scoped reads and the admin status write the
// HTTP layer serves directly. Satisfied by store.Store.
type AccountStore interface {
	GetOrdersByOwner(ctx context.Context, ownerKey string) ([]models.Order, error)
	GetAddressesByOwner(ctx context.Context, ownerKey string) ([]models.Address, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// Handler contains HTTP handlers
type Handler struct {
	checkout   *service.CheckoutService
	reconciler *service.Reconciler
	carts      service.CartStore
	accounts   AccountStore
	business   config.BusinessConfig
}

// NewHandler creates a new HTTP handler
func NewHandler(
	checkout *service.CheckoutService,
	reconciler *service.Reconciler,
	carts service.CartStore,
	accounts AccountStore,
	business config.BusinessConfig,
) *Handler {
	return &Handler{
		checkout:   checkout,
		reconciler: reconciler,
		carts:      carts,
		accounts:   accounts,
		business:   business,
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

	// The gateway calls back without a session; no identity middleware here
	router.GET("/api/payment/callback", h.paymentCallback)

	v1 := router.Group("/api/v1")
	v1.Use(identityMiddleware())
	{
		v1.GET("/cart", h.getCart)
		v1.PUT("/cart", h.putCart)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout", h.createOrder)

		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/addresses", h.listAddresses)

		v1.PATCH("/admin/orders/:id/status", h.updateOrderStatus)
	}
}

// identityMiddleware resolves the caller from trusted upstream headers. The
// fronting auth layer owns sessions; this service only sees its verdict.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := models.Identity{
			UserID:  c.GetHeader("X-User-ID"),
			Email:   c.GetHeader("X-User-Email"),
			IsAdmin: c.GetHeader("X-User-Role") == "ADMIN",
		}

		// Cart owner key: the user id when authenticated, otherwise the
		// guest id the browser persists
		identity.Key = identity.UserID
		if identity.Key == "" {
			identity.Key = c.GetHeader("X-Guest-ID")
		}

		c.Set("identity", identity)
		c.Next()
	}
}

func callerIdentity(c *gin.Context) models.Identity {
	val, ok := c.Get("identity")
	if !ok {
		return models.Identity{}
	}
	return val.(models.Identity)
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

// getCart returns the caller's cart
func (h *Handler) getCart(c *gin.Context) {
	identity := callerIdentity(c)
	if identity.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No cart owner key"})
		return
	}

	items, err := h.carts.Get(c.Request.Context(), identity.Key)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cart temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

type putCartRequest struct {
	Items []models.CartItem `json:"items" binding:"required"`
}

// putCart replaces the caller's cart wholesale
func (h *Handler) putCart(c *gin.Context) {
	identity := callerIdentity(c)
	if identity.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No cart owner key"})
		return
	}

	var req putCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.ProductID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item"})
			return
		}
	}

	if err := h.carts.Set(c.Request.Context(), identity.Key, req.Items); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cart temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": req.Items})
}

// clearCart empties the caller's cart
func (h *Handler) clearCart(c *gin.Context) {
	identity := callerIdentity(c)
	if identity.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No cart owner key"})
		return
	}

	if err := h.carts.Clear(c.Request.Context(), identity.Key); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cart temporarily unavailable"})
		return
	}

	c.Status(http.StatusNoContent)
}

// createOrder runs checkout for the caller's cart and returns the gateway
// redirect URL; the client navigates the shopper there.
func (h *Handler) createOrder(c *gin.Context) {
	identity := callerIdentity(c)

	var input service.CheckoutInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	cartItems, err := h.carts.Get(c.Request.Context(), identity.Key)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cart temporarily unavailable"})
		return
	}

	redirectURL, err := h.checkout.CreateOrder(c.Request.Context(), identity, &input, cartItems)
	if err != nil {
		h.renderCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"redirect_url": redirectURL})
}

func (h *Handler) renderCheckoutError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": verr.Fields})
	case errors.Is(err, models.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	case errors.Is(err, models.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
	case errors.Is(err, models.ErrInvalidAddress):
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid address selected"})
	case errors.Is(err, models.ErrPaymentInit):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment initialization failed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
	}
}

// paymentCallback handles the gateway's asynchronous redirect. Every path
// ends in a redirect or an explicit 4xx; reconciliation errors never escape
// as a blank response.
func (h *Handler) paymentCallback(c *gin.Context) {
	reference := c.Query("reference")
	if reference == "" {
		// Legacy alias some gateway versions send
		reference = c.Query("trxref")
	}
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No reference provided"})
		return
	}

	outcome := h.reconciler.Reconcile(c.Request.Context(), reference)

	target := h.business.AppURL + h.business.FailurePath
	if outcome.Succeeded() {
		target = h.business.AppURL + h.business.SuccessPath
	}
	c.Redirect(http.StatusSeeOther, target)
}

// listOrders returns the caller's orders
func (h *Handler) listOrders(c *gin.Context) {
	identity := callerIdentity(c)
	if identity.Key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	orders, err := h.accounts.GetOrdersByOwner(c.Request.Context(), identity.Key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder returns one order with its items, scoped to the owner
func (h *Handler) getOrder(c *gin.Context) {
	identity := callerIdentity(c)

	order, items, err := h.checkout.GetOrder(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

// listAddresses returns the caller's saved addresses
func (h *Handler) listAddresses(c *gin.Context) {
	identity := callerIdentity(c)
	if identity.Key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	addresses, err := h.accounts.GetAddressesByOwner(c.Request.Context(), identity.Key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list addresses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// updateOrderStatus is the explicit administrative status move, including
// the backward transitions the reconciler never performs.
func (h *Handler) updateOrderStatus(c *gin.Context) {
	identity := callerIdentity(c)
	if !identity.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed"})
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	valid := false
	for _, s := range models.OrderStatuses {
		if req.Status == s {
			valid = true
			break
		}
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}

	if err := h.accounts.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
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
