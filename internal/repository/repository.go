package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrDuplicate возвращается при нарушении уникальности (код купона, SKU)
var ErrDuplicate = errors.New("duplicate")

// ErrUsageExhausted купон уже израсходован
var ErrUsageExhausted = errors.New("coupon usage exhausted")

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	NameSubstring string
}

// OrderFilter параметры выборки заказов
type OrderFilter struct {
	OwnerID       string
	Status        domain.OrderStatus
	PaymentMethod domain.PaymentMethod
	Search        string
	From          *time.Time
	To            *time.Time
}

// ProductRepository интерфейс каталога товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	// DecrementStock атомарно проверяет и списывает остаток одной строки.
	// Возвращает domain.ErrInsufficientStock, если остатка не хватает.
	DecrementStock(ctx context.Context, productID int64, variant string, qty int64) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByCode(ctx context.Context, code string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
	// NextSequence выдаёт следующий номер заказа в пределах года; номера не переиспользуются
	NextSequence(ctx context.Context, year int) (int64, error)
}

// AuditLogRepository журнал переходов заказа, только append
type AuditLogRepository interface {
	Append(ctx context.Context, e *domain.AuditLogEntry) error
	ListByOrder(ctx context.Context, orderID int64) ([]domain.AuditLogEntry, error)
}

// CouponRepository хранилище купонов
type CouponRepository interface {
	Create(ctx context.Context, c *domain.Coupon) error
	GetByID(ctx context.Context, id int64) (*domain.Coupon, error)
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	// Update меняет условия купона по id; код и used_count не трогает
	Update(ctx context.Context, c *domain.Coupon) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Coupon, error)
	// IncrementUsage увеличивает used_count, только если лимит не исчерпан
	IncrementUsage(ctx context.Context, code string) error
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// MatchOrder применяет фильтр к заказу; общий для всех реализаций
func MatchOrder(o domain.Order, f OrderFilter) bool {
	if f.OwnerID != "" && o.OwnerID != f.OwnerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.PaymentMethod != "" && o.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.From != nil && o.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.CreatedAt.After(*f.To) {
		return false
	}
	if f.Search != "" {
		if !containsIgnoreCase(o.Code, f.Search) &&
			!containsIgnoreCase(o.FullName, f.Search) &&
			!containsIgnoreCase(o.Phone, f.Search) {
			return false
		}
	}
	return true
}
