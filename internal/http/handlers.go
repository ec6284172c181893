package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/telemetry"
)

// Services зависимости HTTP-слоя
type Services struct {
	Products *service.ProductService
	Coupons  *service.CouponService
	Builder  *service.OrderBuilder
	Orders   *service.OrderService
	Queries  *service.OrderQueryService
	Carts    cart.Store
}

type Server struct {
	engine  *gin.Engine
	svc     Services
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// NewServer собирает gin-движок. gatherer == nil отключает /metrics.
func NewServer(svc Services, metrics *telemetry.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestID(), tracing(), observe(metrics))
	s := &Server{engine: r, svc: svc, metrics: metrics, logger: logger}
	s.registerRoutes(gatherer)
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(telemetry.Handler(gatherer)))
	}

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)
		products.GET("", s.listProducts)

		carts := v1.Group("/cart", requireSession())
		carts.GET("", s.getCart)
		carts.DELETE("", s.clearCart)
		carts.POST("/lines", s.addCartLine)
		carts.PATCH("/lines/:key", s.updateCartLine)
		carts.DELETE("/lines/:key", s.removeCartLine)

		v1.POST("/coupons/validate", s.validateCoupon)

		orders := v1.Group("/orders")
		orders.POST("", requireSession(), s.checkout)
		orders.GET("/mine", s.myOrders)
		orders.GET("/track", s.trackOrder)

		admin := v1.Group("/admin", requireActor())
		admin.POST("/coupons", s.createCoupon)
		admin.GET("/coupons", s.listCoupons)
		admin.PUT("/coupons/:id", s.updateCoupon)
		admin.DELETE("/coupons/:id", s.deleteCoupon)
		admin.GET("/orders", s.listOrders)
		admin.GET("/orders/stats", s.orderStats)
		admin.GET("/orders/:id", s.getOrder)
		admin.GET("/orders/:id/audit-logs", s.orderAuditLogs)
		admin.POST("/orders/:id/verify", s.verifyOrder)
		admin.POST("/orders/:id/reject", s.rejectOrder)
		admin.DELETE("/orders/:id", s.deleteOrder)
	}
}

// Product handlers
type productReq struct {
	Name  string           `json:"name"`
	SKU   string           `json:"sku"`
	Price decimal.Decimal  `json:"price"`
	Stock int64            `json:"stock"`
	Sizes map[string]int64 `json:"sizes"`
}

// stockPolicy: размеры, если заданы, иначе плоский остаток
func (r productReq) stockPolicy() (domain.StockPolicy, error) {
	if len(r.Sizes) > 0 {
		if r.Stock != 0 {
			return domain.StockPolicy{}, service.ErrInvalidInput
		}
		return domain.VariantStock(r.Sizes), nil
	}
	return domain.FlatStock(r.Stock), nil
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product; either stock or sizes"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	stock, err := req.stockPolicy()
	if err != nil {
		s.writeError(c, err)
		return
	}
	p, err := s.svc.Products.Create(c.Request.Context(), domain.Product{Name: req.Name, SKU: req.SKU, Price: req.Price, Stock: stock})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.svc.Products.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body productReq true "Update; sku is ignored"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	stock, err := req.stockPolicy()
	if err != nil {
		s.writeError(c, err)
		return
	}
	p, err := s.svc.Products.Update(c.Request.Context(), domain.Product{ID: id, Name: req.Name, Price: req.Price, Stock: stock})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param id path int true "Product ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.svc.Products.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.svc.Products.List(c.Request.Context(), repository.ProductFilter{NameSubstring: c.Query("q")})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// parseDate принимает YYYY-MM-DD или RFC3339. Для даты без времени
// endOfDay сдвигает к концу суток, чтобы фильтр "по" был включительным.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func mapErrorToStatus(err error) int {
	switch service.KindOf(err) {
	case service.KindUserInput:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает по классу ошибки. Not found всегда обезличен,
// инфраструктурные ошибки логируются и скрываются.
func (s *Server) writeError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	switch status {
	case http.StatusNotFound:
		c.JSON(status, gin.H{"error": "not found"})
	case http.StatusInternalServerError:
		s.logger.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
	default:
		body := gin.H{"error": err.Error()}
		var stockErr *service.InsufficientStockError
		if errors.As(err, &stockErr) {
			body["line"] = stockErr
		}
		c.JSON(status, body)
	}
}
