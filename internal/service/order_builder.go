package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/repository"
)

// MaxReceiptSize предел размера квитанции об оплате
const MaxReceiptSize = 5 << 20

var receiptTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// CatalogReader чтение каталога для проверки остатков
type CatalogReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
}

// CouponValidator повторная проверка купона по пересчитанному подытогу
type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (CouponResult, error)
}

// Receipt ссылка на загруженную квитанцию и её заявленные параметры
type Receipt struct {
	Ref         string `json:"ref"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// CheckoutRequest всё, что покупатель передаёт при оформлении
type CheckoutRequest struct {
	OwnerID        string
	Lines          []cart.Line
	FullName       string
	Phone          string
	Email          string
	DeliveryMethod domain.DeliveryMethod
	DeliveryDate   time.Time
	Address        string
	DeliveryNotes  string
	PaymentMethod  domain.PaymentMethod
	TransactionRef string
	Receipt        *Receipt
	CouponCode     string
}

// Submission проверенный, ещё не сохранённый заказ: без id, кода и статуса
type Submission struct {
	Order domain.Order
}

// OrderBuilder превращает корзину и данные покупателя в Submission.
// Ничего не сохраняет.
type OrderBuilder struct {
	catalog CatalogReader
	coupons CouponValidator
}

func NewOrderBuilder(catalog CatalogReader, coupons CouponValidator) *OrderBuilder {
	return &OrderBuilder{catalog: catalog, coupons: coupons}
}

// Build проверяет запрос в фиксированном порядке и останавливается на первой ошибке:
// корзина, адрес, квитанция, поля покупателя, остатки, купон.
func (b *OrderBuilder) Build(ctx context.Context, req CheckoutRequest) (*Submission, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	if req.DeliveryMethod == domain.DeliveryMethodDelivery && strings.TrimSpace(req.Address) == "" {
		return nil, ErrMissingAddress
	}
	if req.Receipt == nil || strings.TrimSpace(req.Receipt.Ref) == "" {
		return nil, ErrMissingReceipt
	}
	if req.Receipt.Size <= 0 || req.Receipt.Size > MaxReceiptSize || !receiptTypes[strings.ToLower(req.Receipt.ContentType)] {
		return nil, ErrInvalidReceipt
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Phone) == "" ||
		!req.DeliveryMethod.Valid() || !req.PaymentMethod.Valid() ||
		strings.TrimSpace(req.TransactionRef) == "" {
		return nil, ErrInvalidInput
	}

	items := make([]domain.OrderItem, 0, len(req.Lines))
	subtotal := decimal.Zero
	for _, l := range req.Lines {
		if l.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
		if err := b.checkStock(ctx, l); err != nil {
			return nil, err
		}
		it := domain.OrderItem{
			ProductID:   l.ProductID,
			Variant:     l.Variant,
			ProductName: l.Name,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
		}
		items = append(items, it)
		subtotal = subtotal.Add(it.LineTotal())
	}

	discount := decimal.Zero
	code := strings.TrimSpace(req.CouponCode)
	if code != "" {
		res, err := b.coupons.Validate(ctx, code, subtotal)
		if err != nil {
			return nil, err
		}
		discount = res.Discount
		code = res.Code
	}

	return &Submission{Order: domain.Order{
		OwnerID:        req.OwnerID,
		FullName:       strings.TrimSpace(req.FullName),
		Phone:          strings.TrimSpace(req.Phone),
		Email:          strings.TrimSpace(req.Email),
		DeliveryMethod: req.DeliveryMethod,
		DeliveryDate:   req.DeliveryDate,
		Address:        strings.TrimSpace(req.Address),
		DeliveryNotes:  req.DeliveryNotes,
		PaymentMethod:  req.PaymentMethod,
		TransactionRef: strings.TrimSpace(req.TransactionRef),
		ReceiptRef:     req.Receipt.Ref,
		Items:          items,
		Subtotal:       subtotal,
		Discount:       discount,
		DiscountCode:   code,
		Total:          subtotal.Sub(discount),
	}}, nil
}

// checkStock сверяет строку с текущим остатком. Удалённый товар или
// исчезнувший размер считаются нулевым остатком.
func (b *OrderBuilder) checkStock(ctx context.Context, l cart.Line) error {
	p, err := b.catalog.GetByID(ctx, l.ProductID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	var avail int64
	if p != nil {
		if avail, err = p.Stock.Available(l.Variant); err != nil {
			avail = 0
		}
	}
	if avail < l.Quantity {
		return &InsufficientStockError{
			ProductID:   l.ProductID,
			Variant:     l.Variant,
			ProductName: l.Name,
			Requested:   l.Quantity,
			Available:   avail,
		}
	}
	return nil
}
