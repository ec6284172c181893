package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repository"
	"storefront/internal/telemetry"
)

// OrderService реализует жизненный цикл заказа: отправка, проверка, отклонение, удаление.
// Остаток списывается только при подтверждении, атомарно для всех строк.
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	audit    repository.AuditLogRepository
	coupons  repository.CouponRepository
	tx       repository.TxManager

	publisher events.Publisher
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*OrderService)

func WithPublisher(p events.Publisher) Option {
	return func(s *OrderService) { s.publisher = p }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *OrderService) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *OrderService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *OrderService) { s.now = now }
}

func NewOrderService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	audit repository.AuditLogRepository,
	coupons repository.CouponRepository,
	tx repository.TxManager,
	opts ...Option,
) *OrderService {
	s := &OrderService{
		products:  products,
		orders:    orders,
		audit:     audit,
		coupons:   coupons,
		tx:        tx,
		publisher: events.NopPublisher{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("storefront/internal/service"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FormatOrderCode ORD-<год>-<номер из 4 цифр>
func FormatOrderCode(year int, seq int64) string {
	return fmt.Sprintf("ORD-%d-%04d", year, seq)
}

func (s *OrderService) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "OrderService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// committed публикует событие и обновляет метрики; ошибки только логируются
func (s *OrderService) committed(ctx context.Context, action domain.AuditAction, o *domain.Order, actor string) {
	s.metrics.Transition(string(action))
	e := events.NewEvent(action, o, actor, s.now())
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WarnContext(ctx, "publish order event failed",
			"event", e.Type, "order_code", o.Code, "error", err)
	}
	s.logger.InfoContext(ctx, "order transition",
		"action", string(action), "order_id", o.ID, "order_code", o.Code, "actor", actor)
}

// Submit сохраняет заказ в статусе pending. В одной транзакции: списание
// использования купона, выдача кода, запись заказа и журнала. Остатки не трогает.
func (s *OrderService) Submit(ctx context.Context, sub *Submission, actor string) (o *domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "Submit")
	defer func() { endSpan(span, err) }()

	if err := checkTotals(sub); err != nil {
		return nil, err
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, ErrInvalidInput
	}

	var created *domain.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		// купон первым: при его отказе ничего ещё не записано
		if sub.Order.DiscountCode != "" {
			if err := s.coupons.IncrementUsage(ctx, sub.Order.DiscountCode); err != nil {
				switch {
				case errors.Is(err, repository.ErrUsageExhausted):
					return ErrCouponUsageExceeded
				case errors.Is(err, repository.ErrNotFound):
					return ErrCouponInvalidCode
				}
				return err
			}
		}

		now := s.now().UTC()
		seq, err := s.orders.NextSequence(ctx, now.Year())
		if err != nil {
			return err
		}
		o := sub.Order
		o.Items = append([]domain.OrderItem(nil), sub.Order.Items...)
		o.ID = 0
		o.Code = FormatOrderCode(now.Year(), seq)
		o.Status = domain.OrderStatusPending
		o.AdminNote = ""
		o.CreatedAt = now
		o.UpdatedAt = now
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		if err := s.audit.Append(ctx, &domain.AuditLogEntry{
			OrderID:   o.ID,
			OrderCode: o.Code,
			Actor:     actor,
			Action:    domain.AuditActionSubmitted,
			NewStatus: domain.OrderStatusPending,
			Timestamp: now,
		}); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.code", created.Code))
	s.committed(ctx, domain.AuditActionSubmitted, created, actor)
	return created, nil
}

// checkTotals сверяет суммы заказа с его строками:
// subtotal = Σ строк, 0 <= discount <= subtotal, total = subtotal - discount.
func checkTotals(sub *Submission) error {
	if sub == nil || len(sub.Order.Items) == 0 {
		return ErrInvalidInput
	}
	o := sub.Order
	subtotal := decimal.Zero
	for _, it := range o.Items {
		if it.Quantity <= 0 || it.UnitPrice.IsNegative() {
			return ErrInvalidInput
		}
		subtotal = subtotal.Add(it.LineTotal())
	}
	if !o.Subtotal.Equal(subtotal) ||
		o.Discount.IsNegative() || o.Discount.GreaterThan(subtotal) ||
		!o.Total.Equal(subtotal.Sub(o.Discount)) {
		return ErrInvalidInput
	}
	return nil
}

type stockKey struct {
	productID int64
	variant   string
}

// Verify подтверждает pending-заказ и списывает остаток. Все строки
// проверяются до первого списания; при нехватке транзакция откатывается
// и заказ остаётся pending.
func (s *OrderService) Verify(ctx context.Context, id int64, actor, note string) (o *domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "Verify", attribute.Int64("order.id", id))
	defer func() { endSpan(span, err) }()

	if id <= 0 || strings.TrimSpace(actor) == "" {
		return nil, ErrInvalidInput
	}

	var updated *domain.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status.Finalized() {
			return ErrAlreadyFinalized
		}

		// одинаковые товар+размер в нескольких строках суммируются
		need := make(map[stockKey]int64)
		names := make(map[stockKey]string)
		var order []stockKey
		for _, it := range o.Items {
			k := stockKey{productID: it.ProductID, variant: it.Variant}
			if _, seen := need[k]; !seen {
				order = append(order, k)
				names[k] = it.ProductName
			}
			need[k] += it.Quantity
		}

		for _, k := range order {
			avail, err := s.available(ctx, k)
			if err != nil {
				return err
			}
			if avail < need[k] {
				return &InsufficientStockError{
					ProductID: k.productID, Variant: k.variant, ProductName: names[k],
					Requested: need[k], Available: avail,
				}
			}
		}
		for _, k := range order {
			if err := s.products.DecrementStock(ctx, k.productID, k.variant, need[k]); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrUnknownVariant) {
					avail, aerr := s.available(ctx, k)
					if aerr != nil {
						return aerr
					}
					return &InsufficientStockError{
						ProductID: k.productID, Variant: k.variant, ProductName: names[k],
						Requested: need[k], Available: avail,
					}
				}
				return err
			}
		}

		prev := o.Status
		o.Status = domain.OrderStatusVerified
		o.AdminNote = note
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		if err := s.audit.Append(ctx, &domain.AuditLogEntry{
			OrderID:        o.ID,
			OrderCode:      o.Code,
			Actor:          actor,
			Action:         domain.AuditActionVerified,
			PreviousStatus: prev,
			NewStatus:      o.Status,
			Note:           note,
			Timestamp:      s.now().UTC(),
		}); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.metrics.StockConflict()
		}
		return nil, err
	}
	s.committed(ctx, domain.AuditActionVerified, updated, actor)
	return updated, nil
}

// available текущий остаток; пропавший товар или размер дают 0
func (s *OrderService) available(ctx context.Context, k stockKey) (int64, error) {
	p, err := s.products.GetByID(ctx, k.productID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	avail, err := p.Stock.Available(k.variant)
	if err != nil {
		return 0, nil
	}
	return avail, nil
}

// Reject отклоняет pending-заказ; остатки не меняются
func (s *OrderService) Reject(ctx context.Context, id int64, actor, note string) (o *domain.Order, err error) {
	ctx, span := s.startSpan(ctx, "Reject", attribute.Int64("order.id", id))
	defer func() { endSpan(span, err) }()

	if id <= 0 || strings.TrimSpace(actor) == "" {
		return nil, ErrInvalidInput
	}

	var updated *domain.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status.Finalized() {
			return ErrAlreadyFinalized
		}
		prev := o.Status
		o.Status = domain.OrderStatusRejected
		o.AdminNote = note
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		if err := s.audit.Append(ctx, &domain.AuditLogEntry{
			OrderID:        o.ID,
			OrderCode:      o.Code,
			Actor:          actor,
			Action:         domain.AuditActionRejected,
			PreviousStatus: prev,
			NewStatus:      o.Status,
			Note:           note,
			Timestamp:      s.now().UTC(),
		}); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.committed(ctx, domain.AuditActionRejected, updated, actor)
	return updated, nil
}

// Delete административное удаление в любом статусе. Остаток не возвращается;
// запись журнала остаётся после удаления заказа.
func (s *OrderService) Delete(ctx context.Context, id int64, actor string) (err error) {
	ctx, span := s.startSpan(ctx, "Delete", attribute.Int64("order.id", id))
	defer func() { endSpan(span, err) }()

	if id <= 0 || strings.TrimSpace(actor) == "" {
		return ErrInvalidInput
	}

	var deleted *domain.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.orders.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.audit.Append(ctx, &domain.AuditLogEntry{
			OrderID:        o.ID,
			OrderCode:      o.Code,
			Actor:          actor,
			Action:         domain.AuditActionDeleted,
			PreviousStatus: o.Status,
			Timestamp:      s.now().UTC(),
		}); err != nil {
			return err
		}
		deleted = o
		return nil
	})
	if err != nil {
		return err
	}
	s.committed(ctx, domain.AuditActionDeleted, deleted, actor)
	return nil
}
