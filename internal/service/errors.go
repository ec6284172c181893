package service

import (
	"errors"
	"fmt"

	"storefront/internal/cart"
	"storefront/internal/domain"
	"storefront/internal/repository"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrEmptyCart      = errors.New("cart is empty")
	ErrMissingAddress = errors.New("delivery address is required")
	ErrMissingReceipt = errors.New("payment receipt is required")
	ErrInvalidReceipt = errors.New("receipt must be a JPEG or PNG image up to 5 MiB")

	ErrInvalidCoupon       = errors.New("invalid coupon")
	ErrCouponInvalidCode   = fmt.Errorf("%w: unknown code", ErrInvalidCoupon)
	ErrCouponExpired       = fmt.Errorf("%w: expired", ErrInvalidCoupon)
	ErrCouponBelowMinimum  = fmt.Errorf("%w: subtotal below minimum", ErrInvalidCoupon)
	ErrCouponUsageExceeded = fmt.Errorf("%w: usage limit reached", ErrInvalidCoupon)

	ErrAlreadyFinalized = errors.New("order already finalized")

	// алиасы, чтобы вызывающие не импортировали domain/repository ради errors.Is
	ErrInsufficientStock = domain.ErrInsufficientStock
	ErrNotFound          = repository.ErrNotFound
)

// InsufficientStockError описывает строку, для которой не хватает остатка
type InsufficientStockError struct {
	ProductID   int64  `json:"product_id"`
	Variant     string `json:"variant,omitempty"`
	ProductName string `json:"product_name"`
	Requested   int64  `json:"requested"`
	Available   int64  `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if e.Variant != "" {
		name += " (" + e.Variant + ")"
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// Shortfall сколько единиц не хватает
func (e *InsufficientStockError) Shortfall() int64 {
	return e.Requested - e.Available
}

// Kind класс ошибки для транспортного слоя
type Kind int

const (
	KindInfra Kind = iota
	KindUserInput
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUserInput:
		return "user_input"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "infra"
	}
}

// KindOf классифицирует ошибку; всё неизвестное считается инфраструктурным
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, cart.ErrLineNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrAlreadyFinalized),
		errors.Is(err, repository.ErrDuplicate):
		return KindConflict
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrMissingAddress),
		errors.Is(err, ErrMissingReceipt),
		errors.Is(err, ErrInvalidReceipt),
		errors.Is(err, ErrInvalidCoupon),
		errors.Is(err, domain.ErrVariantRequired),
		errors.Is(err, domain.ErrUnknownVariant),
		errors.Is(err, domain.ErrInvalidStock),
		errors.Is(err, cart.ErrNoStock),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidKey):
		return KindUserInput
	}
	return KindInfra
}
