package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/service"
)

type validateCouponReq struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// @Summary Validate coupon
// @Description Checks a code against a subtotal without consuming it.
// @Tags coupons
// @Accept json
// @Produce json
// @Param input body validateCouponReq true "Code and subtotal"
// @Success 200 {object} service.CouponResult
// @Failure 400 {object} map[string]string
// @Router /coupons/validate [post]
func (s *Server) validateCoupon(c *gin.Context) {
	var req validateCouponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	res, err := s.svc.Coupons.Validate(c.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type checkoutReq struct {
	FullName       string           `json:"full_name"`
	Phone          string           `json:"phone"`
	Email          string           `json:"email"`
	DeliveryMethod string           `json:"delivery_method"`
	DeliveryDate   string           `json:"delivery_date"`
	Address        string           `json:"address"`
	DeliveryNotes  string           `json:"delivery_notes"`
	PaymentMethod  string           `json:"payment_method"`
	TransactionRef string           `json:"transaction_ref"`
	Receipt        *service.Receipt `json:"receipt"`
	CouponCode     string           `json:"coupon_code"`
}

// @Summary Checkout
// @Description Builds an order from the session cart, submits it as pending and clears the cart.
// @Tags orders
// @Accept json
// @Produce json
// @Param X-Cart-Session header string true "Cart session"
// @Param X-User-ID header string false "Buyer id; guest when absent"
// @Param input body checkoutReq true "Buyer, delivery and payment details"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders [post]
func (s *Server) checkout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()
	session := c.GetString(ctxSession)

	crt, err := s.svc.Carts.Load(ctx, session)
	if err != nil {
		s.writeError(c, err)
		return
	}

	creq := service.CheckoutRequest{
		OwnerID:        ownerID(c),
		Lines:          crt.Lines(),
		FullName:       req.FullName,
		Phone:          req.Phone,
		Email:          req.Email,
		DeliveryMethod: domain.DeliveryMethod(strings.ToLower(req.DeliveryMethod)),
		Address:        req.Address,
		DeliveryNotes:  req.DeliveryNotes,
		PaymentMethod:  domain.PaymentMethod(strings.ToLower(req.PaymentMethod)),
		TransactionRef: req.TransactionRef,
		Receipt:        req.Receipt,
		CouponCode:     req.CouponCode,
	}
	if req.DeliveryDate != "" {
		d, err := parseDate(req.DeliveryDate, false)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid delivery_date"})
			return
		}
		creq.DeliveryDate = d
	}

	sub, err := s.svc.Builder.Build(ctx, creq)
	if err != nil {
		s.writeError(c, err)
		return
	}
	actor := creq.OwnerID
	if actor == "" {
		actor = "guest"
	}
	o, err := s.svc.Orders.Submit(ctx, sub, actor)
	if err != nil {
		s.writeError(c, err)
		return
	}
	// заказ уже сохранён; корзина, которую не удалось очистить, не повод для ошибки
	if err := s.svc.Carts.Delete(ctx, session); err != nil {
		s.logger.WarnContext(ctx, "clear cart after checkout failed", "order_code", o.Code, "error", err)
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary My orders
// @Tags orders
// @Produce json
// @Param X-User-ID header string true "Buyer id"
// @Success 200 {array} domain.Order
// @Failure 400 {object} map[string]string
// @Router /orders/mine [get]
func (s *Server) myOrders(c *gin.Context) {
	list, err := s.svc.Queries.ListMine(c.Request.Context(), ownerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Track order
// @Description Guest lookup. Any mismatch answers 404 without telling which part was wrong.
// @Tags orders
// @Produce json
// @Param code query string true "Order code"
// @Param phone query string true "Buyer phone"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Router /orders/track [get]
func (s *Server) trackOrder(c *gin.Context) {
	o, err := s.svc.Queries.Track(c.Request.Context(), c.Query("code"), c.Query("phone"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
