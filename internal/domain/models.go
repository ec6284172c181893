package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар каталога
type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Stock StockPolicy     `json:"stock"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusVerified OrderStatus = "verified"
	OrderStatusRejected OrderStatus = "rejected"
)

// Finalized сообщает, что заказ в терминальном состоянии
func (s OrderStatus) Finalized() bool {
	return s == OrderStatusVerified || s == OrderStatusRejected
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusVerified, OrderStatusRejected:
		return true
	}
	return false
}

// DeliveryMethod способ получения заказа
type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

func (m DeliveryMethod) Valid() bool {
	return m == DeliveryMethodDelivery || m == DeliveryMethodPickup
}

// PaymentMethod канал ручной оплаты
type PaymentMethod string

const (
	PaymentMethodTelebirr PaymentMethod = "telebirr"
	PaymentMethodCBE      PaymentMethod = "cbe"
	PaymentMethodDashen   PaymentMethod = "dashen"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodTelebirr, PaymentMethodCBE, PaymentMethodDashen:
		return true
	}
	return false
}

// OrderItem замороженная позиция заказа
type OrderItem struct {
	ProductID   int64           `json:"product_id"`
	Variant     string          `json:"variant,omitempty"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int64           `json:"quantity"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Order сущность заказа
type Order struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	OwnerID        string          `json:"owner_id,omitempty"`
	FullName       string          `json:"full_name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email,omitempty"`
	DeliveryMethod DeliveryMethod  `json:"delivery_method"`
	DeliveryDate   time.Time       `json:"delivery_date"`
	Address        string          `json:"address,omitempty"`
	DeliveryNotes  string          `json:"delivery_notes,omitempty"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	TransactionRef string          `json:"transaction_ref"`
	ReceiptRef     string          `json:"receipt_ref"`
	Items          []OrderItem     `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	DiscountCode   string          `json:"discount_code,omitempty"`
	Total          decimal.Decimal `json:"total"`
	Status         OrderStatus     `json:"status"`
	AdminNote      string          `json:"admin_note,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AuditAction действие в журнале заказа
type AuditAction string

const (
	AuditActionSubmitted AuditAction = "submitted"
	AuditActionVerified  AuditAction = "verified"
	AuditActionRejected  AuditAction = "rejected"
	AuditActionDeleted   AuditAction = "deleted"
)

// AuditLogEntry запись журнала; только добавляется
type AuditLogEntry struct {
	ID             int64       `json:"id"`
	OrderID        int64       `json:"order_id"`
	OrderCode      string      `json:"order_code"`
	Actor          string      `json:"actor"`
	Action         AuditAction `json:"action"`
	PreviousStatus OrderStatus `json:"previous_status,omitempty"`
	NewStatus      OrderStatus `json:"new_status,omitempty"`
	Note           string      `json:"note,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// DiscountType правило скидки купона
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Coupon промокод
type Coupon struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Type        DiscountType    `json:"type"`
	Value       decimal.Decimal `json:"value"`
	ExpiresAt   time.Time       `json:"expires_at"`
	UsageLimit  int64           `json:"usage_limit"`
	UsedCount   int64           `json:"used_count"`
	Active      bool            `json:"active"`
	MinSubtotal decimal.Decimal `json:"min_subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
}
