package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// OrderQueryService чтение заказов для покупателя и администратора
type OrderQueryService struct {
	orders repository.OrderRepository
	audit  repository.AuditLogRepository
}

func NewOrderQueryService(orders repository.OrderRepository, audit repository.AuditLogRepository) *OrderQueryService {
	return &OrderQueryService{orders: orders, audit: audit}
}

// OrderStats сводка для панели администратора
type OrderStats struct {
	Total    int             `json:"total_orders"`
	Pending  int             `json:"pending_orders"`
	Verified int             `json:"verified_orders"`
	Rejected int             `json:"rejected_orders"`
	Revenue  decimal.Decimal `json:"total_revenue"`
}

// ListMine заказы владельца, новые первыми
func (s *OrderQueryService) ListMine(ctx context.Context, ownerID string) ([]domain.Order, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrInvalidInput
	}
	return s.orders.List(ctx, repository.OrderFilter{OwnerID: ownerID})
}

// ListAll все заказы с фильтрами статуса, оплаты, поиска и периода
func (s *OrderQueryService) ListAll(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidInput
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.Valid() {
		return nil, ErrInvalidInput
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, ErrInvalidInput
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.orders.List(ctx, f)
}

func (s *OrderQueryService) Get(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.orders.GetByID(ctx, id)
}

// normalizePhone убирает пробелы и дефисы
func normalizePhone(p string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(p))
}

// Track поиск заказа гостем по коду и телефону. Любое несовпадение
// возвращает ErrNotFound, чтобы не раскрывать существование заказа.
func (s *OrderQueryService) Track(ctx context.Context, code, phone string) (*domain.Order, error) {
	code = strings.TrimSpace(code)
	phone = normalizePhone(phone)
	if code == "" || phone == "" {
		return nil, ErrNotFound
	}
	o, err := s.orders.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if normalizePhone(o.Phone) != phone {
		return nil, ErrNotFound
	}
	return o, nil
}

// AuditTrail журнал заказа, новые записи первыми. Доступен и после удаления заказа.
func (s *OrderQueryService) AuditTrail(ctx context.Context, id int64) ([]domain.AuditLogEntry, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.audit.ListByOrder(ctx, id)
}

func (s *OrderQueryService) Stats(ctx context.Context) (OrderStats, error) {
	list, err := s.orders.List(ctx, repository.OrderFilter{})
	if err != nil {
		return OrderStats{}, err
	}
	st := OrderStats{Total: len(list), Revenue: decimal.Zero}
	for _, o := range list {
		switch o.Status {
		case domain.OrderStatusPending:
			st.Pending++
		case domain.OrderStatusVerified:
			st.Verified++
			st.Revenue = st.Revenue.Add(o.Total)
		case domain.OrderStatusRejected:
			st.Rejected++
		}
	}
	return st, nil
}
