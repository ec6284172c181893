package httpapi

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"
)

type createCouponReq struct {
	Code        string              `json:"code"`
	Type        domain.DiscountType `json:"type"`
	Value       decimal.Decimal     `json:"value"`
	ExpiresAt   time.Time           `json:"expires_at"`
	UsageLimit  int64               `json:"usage_limit"`
	Active      *bool               `json:"active"`
	MinSubtotal decimal.Decimal     `json:"min_subtotal"`
}

// @Summary Create coupon
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Actor-ID header string true "Admin id"
// @Param input body createCouponReq true "Coupon"
// @Success 201 {object} domain.Coupon
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/coupons [post]
func (s *Server) createCoupon(c *gin.Context) {
	var req createCouponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	cp, err := s.svc.Coupons.Create(c.Request.Context(), domain.Coupon{
		Code: req.Code, Type: req.Type, Value: req.Value, ExpiresAt: req.ExpiresAt,
		UsageLimit: req.UsageLimit, Active: active, MinSubtotal: req.MinSubtotal,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cp)
}

// @Summary List coupons
// @Tags admin
// @Produce json
// @Param X-Actor-ID header string true "Admin id"
// @Success 200 {array} domain.Coupon
// @Router /admin/coupons [get]
func (s *Server) listCoupons(c *gin.Context) {
	list, err := s.svc.Coupons.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type updateCouponReq struct {
	Value       *decimal.Decimal `json:"value"`
	ExpiresAt   *time.Time       `json:"expires_at"`
	UsageLimit  *int64           `json:"usage_limit"`
	Active      *bool            `json:"active"`
	MinSubtotal *decimal.Decimal `json:"min_subtotal"`
}

// @Summary Update coupon
// @Description Omitted fields keep their value. The code and used count cannot be changed.
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Actor-ID header string true "Admin id"
// @Param id path int true "Coupon ID"
// @Param input body updateCouponReq true "Fields to change"
// @Success 200 {object} domain.Coupon
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/coupons/{id} [put]
func (s *Server) updateCoupon(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateCouponReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	cp, err := s.svc.Coupons.Update(c.Request.Context(), id, service.CouponUpdate{
		Value: req.Value, ExpiresAt: req.ExpiresAt, UsageLimit: req.UsageLimit,
		Active: req.Active, MinSubtotal: req.MinSubtotal,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// @Summary Delete coupon
// @Description Orders that already used the code keep it as recorded.
// @Tags admin
// @Param X-Actor-ID header string true "Admin id"
// @Param id path int true "Coupon ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /admin/coupons/{id} [delete]
func (s *Server) deleteCoupon(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.svc.Coupons.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List orders
// @Tags admin
// @Produce json
// @Param X-Actor-ID header string true "Admin id"
// @Param status query string false "pending|verified|rejected"
// @Param payment_method query string false "telebirr|cbe|dashen"
// @Param search query string false "Code, buyer name or phone contains"
// @Param from query string false "Created on or after (YYYY-MM-DD or RFC3339)"
// @Param to query string false "Created on or before (YYYY-MM-DD or RFC3339)"
// @Success 200 {array} domain.Order
// @Failure 400 {object} map[string]string
// @Router /admin/orders [get]
func (s *Server) listOrders(c *gin.Context) {
	f := repository.OrderFilter{
		Status:        domain.OrderStatus(c.Query("status")),
		PaymentMethod: domain.PaymentMethod(c.Query("payment_method")),
		Search:        c.Query("search"),
	}
	if v := c.Query("from"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		f.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		f.To = &t
	}
	list, err := s.svc.Queries.ListAll(c.Request.Context(), f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Order statistics
// @Tags admin
// @Produce json
// @Param X-Actor-ID header string true "Admin id"
// @Success 200 {object} service.OrderStats
// @Router /admin/orders/stats [get]
func (s *Server) orderStats(c *gin.Context) {
	st, err := s.svc.Queries.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary Get order by id
// @Tags admin
// @Produce json
// @Param X-Actor-ID header string true "Admin id"
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	o, err := s.svc.Queries.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Order audit log
// @Tags admin
// @Produce json
// @Param X-Actor-ID header string true "Admin id"
// @Param id path int true "Order ID"
// @Success 200 {array} domain.AuditLogEntry
// @Router /admin/orders/{id}/audit-logs [get]
func (s *Server) orderAuditLogs(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	list, err := s.svc.Queries.AuditTrail(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type transitionReq struct {
	Note string `json:"note"`
}

// bindNote тело необязательно
func bindNote(c *gin.Context) (string, bool) {
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return "", false
	}
	return req.Note, true
}

// @Summary Verify order
// @Description Decrements stock for every line atomically; on shortage the order stays pending.
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Actor-ID header string true "Admin id"
// @Param id path int true "Order ID"
// @Param input body transitionReq false "Admin note"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/verify [post]
func (s *Server) verifyOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	note, ok := bindNote(c)
	if !ok {
		return
	}
	o, err := s.svc.Orders.Verify(c.Request.Context(), id, c.GetString(ctxActor), note)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Reject order
// @Tags admin
// @Accept json
// @Produce json
// @Param X-Actor-ID header string true "Admin id"
// @Param id path int true "Order ID"
// @Param input body transitionReq false "Admin note"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/reject [post]
func (s *Server) rejectOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	note, ok := bindNote(c)
	if !ok {
		return
	}
	o, err := s.svc.Orders.Reject(c.Request.Context(), id, c.GetString(ctxActor), note)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Delete order
// @Description Hard delete in any state. Stock is not restored; the audit log is kept.
// @Tags admin
// @Param X-Actor-ID header string true "Admin id"
// @Param id path int true "Order ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /admin/orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.svc.Orders.Delete(c.Request.Context(), id, c.GetString(ctxActor)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
