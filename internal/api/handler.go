package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"produce-ledger/internal/auth"
	"produce-ledger/internal/models"
	"produce-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orders         *service.OrderService
	accounts       *service.AccountService
	catalog        *service.Catalog
	sessions       *auth.Sessions
	ready          func(ctx context.Context) error
	requestTimeout time.Duration
	secureCookies  bool
}

// Option configures a Handler
type Option func(*Handler)

// WithReadinessCheck makes /ready report the result of check
func WithReadinessCheck(check func(ctx context.Context) error) Option {
	return func(h *Handler) {
		h.ready = check
	}
}

// WithRequestTimeout bounds the time spent on each API request
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.requestTimeout = d
	}
}

// WithSecureCookies marks the session cookie Secure
func WithSecureCookies(secure bool) Option {
	return func(h *Handler) {
		h.secureCookies = secure
	}
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	accounts *service.AccountService,
	catalog *service.Catalog,
	sessions *auth.Sessions,
	opts ...Option,
) *Handler {
	h := &Handler{
		orders:         orders,
		accounts:       accounts,
		catalog:        catalog,
		sessions:       sessions,
		requestTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", requestTimeout(h.requestTimeout))
	{
		v1.POST("/register", h.register)
		v1.POST("/login", h.login)
		v1.POST("/logout", h.logout)
		v1.GET("/catalog", h.listCatalog)

		authed := v1.Group("", h.requireAuth())
		authed.GET("/me", h.me)
		authed.GET("/orders", h.listOrders)
		authed.POST("/orders", h.createOrder)
		authed.GET("/orders/:id", h.getOrder)
		authed.POST("/orders/:id/edit", h.adjustOrder)
		authed.DELETE("/orders/:id", h.deleteOrder)

		admin := authed.Group("/admin", requireAdmin())
		admin.GET("/report", h.adminReport)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports whether the record store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
		defer cancel()

		if err := h.ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"details": err.Error(),
				"time":    time.Now().Unix(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	customer, err := h.accounts.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, customer)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	customer, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.sessions.Sign(customer.Username, customer.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, int(h.sessions.TTL().Seconds()), "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"customer": customer,
	})
}

func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", h.secureCookies, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, actorFrom(c))
}

func (h *Handler) listCatalog(c *gin.Context) {
	items, err := h.catalog.Items(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, it := range items {
		out = append(out, gin.H{
			"item":       it.Item,
			"unit_price": models.FormatPrice(it.UnitPrice),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// createOrderBody accepts quantity as a JSON number or string. An omitted
// quantity means one unit.
type createOrderBody struct {
	Item           string      `json:"item" binding:"required"`
	Quantity       interface{} `json:"quantity"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
}

const defaultQuantity = "1"

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var body createOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, err)
		return
	}

	req := &service.CreateOrderRequest{
		Username:       actorFrom(c).Username,
		Item:           body.Item,
		Quantity:       quantityText(body.Quantity),
		IdempotencyKey: body.IdempotencyKey,
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, orderView(order))
}

func (h *Handler) listOrders(c *gin.Context) {
	list, err := h.orders.ListOrders(c.Request.Context(), actorFrom(c).Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":       orderViews(list.Orders),
		"total_amount": models.FormatPrice(list.TotalAmount),
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	actor := actorFrom(c)
	if !actor.IsAdmin() && !actor.Owns(order) {
		respondError(c, service.ErrUnauthorized)
		return
	}

	c.JSON(http.StatusOK, orderView(order))
}

type adjustRequest struct {
	Action string `json:"action" binding:"required"`
}

func (h *Handler) adjustOrder(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	order, err := h.orders.AdjustQuantity(c.Request.Context(), c.Param("id"), actorFrom(c), req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, orderView(order))
}

func (h *Handler) deleteOrder(c *gin.Context) {
	if err := h.orders.DeleteOrder(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) adminReport(c *gin.Context) {
	report, err := h.orders.ReportFor(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	totals := make([]gin.H, 0, len(report.Totals))
	for _, t := range report.Totals {
		totals = append(totals, gin.H{
			"username": t.Username,
			"total":    models.FormatPrice(t.Total),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":      orderViews(report.Orders),
		"totals":      totals,
		"grand_total": models.FormatPrice(report.GrandTotal),
	})
}

func orderView(o *models.Order) gin.H {
	return gin.H{
		"order_id":   o.OrderID,
		"username":   o.Username,
		"item":       o.Item,
		"quantity":   o.Quantity,
		"unit_price": models.FormatPrice(o.UnitPrice),
		"line_total": models.FormatPrice(o.LineTotal),
		"created_at": models.FormatTime(o.CreatedAt),
		"updated_at": models.FormatTime(o.UpdatedAt),
	}
}

func orderViews(orders []models.Order) []gin.H {
	out := make([]gin.H, 0, len(orders))
	for i := range orders {
		out = append(out, orderView(&orders[i]))
	}
	return out
}

// quantityText renders the raw quantity field for ParseQuantityInput
func quantityText(v interface{}) string {
	switch q := v.(type) {
	case nil:
		return defaultQuantity
	case string:
		return q
	case float64:
		return strconv.FormatFloat(q, 'f', -1, 64)
	default:
		return ""
	}
}
