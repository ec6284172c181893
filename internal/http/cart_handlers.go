package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/repository"
)

// @Summary Get cart
// @Tags cart
// @Produce json
// @Param X-Cart-Session header string true "Cart session"
// @Success 200 {object} cart.Cart
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	crt, err := s.svc.Carts.Load(c.Request.Context(), c.GetString(ctxSession))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, crt)
}

// @Summary Clear cart
// @Tags cart
// @Param X-Cart-Session header string true "Cart session"
// @Success 204
// @Router /cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	if err := s.svc.Carts.Delete(c.Request.Context(), c.GetString(ctxSession)); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addLineReq struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Variant   string `json:"variant"`
}

// @Summary Add product to cart
// @Description Quantity is clamped to the stock currently known for the product or size.
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Cart-Session header string true "Cart session"
// @Param input body addLineReq true "Line"
// @Success 200 {object} cart.Cart
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/lines [post]
func (s *Server) addCartLine(c *gin.Context) {
	var req addLineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()
	p, err := s.svc.Products.GetByID(ctx, req.ProductID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	crt, err := cart.Mutate(ctx, s.svc.Carts, c.GetString(ctxSession), func(crt *cart.Cart) error {
		_, err := crt.AddLine(*p, req.Quantity, req.Variant)
		return err
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, crt)
}

type updateLineReq struct {
	Quantity int64 `json:"quantity"`
}

// @Summary Set line quantity
// @Description Zero or less removes the line; larger values are clamped to current stock.
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Cart-Session header string true "Cart session"
// @Param key path string true "Line key: <product id> or <product id>-<size>"
// @Param input body updateLineReq true "Quantity"
// @Success 200 {object} cart.Cart
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/lines/{key} [patch]
func (s *Server) updateCartLine(c *gin.Context) {
	key, err := cart.ParseLineKey(c.Param("key"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	var req updateLineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ctx := c.Request.Context()

	// товар мог исчезнуть из каталога: тогда доступно 0 и строка удаляется
	var maxStock int64
	p, err := s.svc.Products.GetByID(ctx, key.ProductID)
	switch {
	case err == nil:
		if n, aerr := p.Stock.Available(key.Variant); aerr == nil {
			maxStock = n
		}
	case !errors.Is(err, repository.ErrNotFound):
		s.writeError(c, err)
		return
	}

	crt, err := cart.Mutate(ctx, s.svc.Carts, c.GetString(ctxSession), func(crt *cart.Cart) error {
		return crt.UpdateQuantity(key, req.Quantity, maxStock)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, crt)
}

// @Summary Remove line
// @Tags cart
// @Produce json
// @Param X-Cart-Session header string true "Cart session"
// @Param key path string true "Line key"
// @Success 200 {object} cart.Cart
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/lines/{key} [delete]
func (s *Server) removeCartLine(c *gin.Context) {
	key, err := cart.ParseLineKey(c.Param("key"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	crt, err := cart.Mutate(c.Request.Context(), s.svc.Carts, c.GetString(ctxSession), func(crt *cart.Cart) error {
		return crt.RemoveLine(key)
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, crt)
}
