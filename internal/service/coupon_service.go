package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// CouponResult итог проверки купона для заданного подытога
type CouponResult struct {
	Code        string              `json:"code"`
	Type        domain.DiscountType `json:"coupon_type"`
	Value       decimal.Decimal     `json:"coupon_value"`
	Discount    decimal.Decimal     `json:"discount"`
	FinalAmount decimal.Decimal     `json:"final_amount"`
}

// EvaluateCoupon чистая проверка купона: активность, срок, лимит, минимум.
// Скидка процентная (округление до копеек половиной вверх) или фиксированная,
// в обоих случаях не больше подытога.
func EvaluateCoupon(c *domain.Coupon, subtotal decimal.Decimal, now time.Time) (CouponResult, error) {
	if c == nil || !c.Active {
		return CouponResult{}, ErrCouponInvalidCode
	}
	if now.After(c.ExpiresAt) {
		return CouponResult{}, ErrCouponExpired
	}
	if c.UsedCount >= c.UsageLimit {
		return CouponResult{}, ErrCouponUsageExceeded
	}
	if subtotal.LessThan(c.MinSubtotal) {
		return CouponResult{}, ErrCouponBelowMinimum
	}

	var discount decimal.Decimal
	switch c.Type {
	case domain.DiscountPercentage:
		discount = subtotal.Mul(c.Value).Div(hundred).Round(2)
	case domain.DiscountFixed:
		discount = c.Value
	default:
		return CouponResult{}, ErrCouponInvalidCode
	}
	discount = decimal.Min(discount, subtotal)

	return CouponResult{
		Code:        c.Code,
		Type:        c.Type,
		Value:       c.Value,
		Discount:    discount,
		FinalAmount: subtotal.Sub(discount),
	}, nil
}

// CouponService проверка и администрирование купонов
type CouponService struct {
	repo repository.CouponRepository
	now  func() time.Time
}

func NewCouponService(repo repository.CouponRepository) *CouponService {
	return &CouponService{repo: repo, now: time.Now}
}

// Validate не расходует купон; использование списывается при отправке заказа
func (s *CouponService) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (CouponResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return CouponResult{}, ErrCouponInvalidCode
	}
	if subtotal.IsNegative() {
		return CouponResult{}, ErrInvalidInput
	}
	c, err := s.repo.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return CouponResult{}, ErrCouponInvalidCode
	}
	if err != nil {
		return CouponResult{}, err
	}
	return EvaluateCoupon(c, subtotal, s.now())
}

func validateCoupon(c domain.Coupon) error {
	if c.Code == "" || !c.Value.IsPositive() || c.UsageLimit < 1 || c.MinSubtotal.IsNegative() || c.ExpiresAt.IsZero() {
		return ErrInvalidInput
	}
	switch c.Type {
	case domain.DiscountPercentage:
		if c.Value.GreaterThan(hundred) {
			return ErrInvalidInput
		}
	case domain.DiscountFixed:
	default:
		return ErrInvalidInput
	}
	return nil
}

func (s *CouponService) Create(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if err := validateCoupon(c); err != nil {
		return nil, err
	}
	c.UsedCount = 0
	if err := s.repo.Create(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CouponUpdate изменяемые поля купона; nil оставляет значение как есть.
// Код неизменяем: он уже мог попасть в заказы.
type CouponUpdate struct {
	Value       *decimal.Decimal
	ExpiresAt   *time.Time
	UsageLimit  *int64
	Active      *bool
	MinSubtotal *decimal.Decimal
}

// Update меняет условия купона, например выключает утёкший код до истечения срока.
// Уже оформленные заказы не пересчитываются.
func (s *CouponService) Update(ctx context.Context, id int64, u CouponUpdate) (*domain.Coupon, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Value != nil {
		c.Value = *u.Value
	}
	if u.ExpiresAt != nil {
		c.ExpiresAt = *u.ExpiresAt
	}
	if u.UsageLimit != nil {
		c.UsageLimit = *u.UsageLimit
	}
	if u.Active != nil {
		c.Active = *u.Active
	}
	if u.MinSubtotal != nil {
		c.MinSubtotal = *u.MinSubtotal
	}
	if err := validateCoupon(*c); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CouponService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *CouponService) List(ctx context.Context) ([]domain.Coupon, error) {
	return s.repo.List(ctx)
}
