// Package events события жизненного цикла заказа. Публикуются после коммита,
// доставка не гарантируется.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

const (
	TypeOrderSubmitted = "order.submitted"
	TypeOrderVerified  = "order.verified"
	TypeOrderRejected  = "order.rejected"
	TypeOrderDeleted   = "order.deleted"
)

var ErrDisabled = errors.New("events disabled")

// Event конверт события заказа
type Event struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	OrderID    int64              `json:"order_id"`
	OrderCode  string             `json:"order_code"`
	Status     domain.OrderStatus `json:"status"`
	Actor      string             `json:"actor"`
	Total      decimal.Decimal    `json:"total"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// TypeFor сопоставляет действие журнала с типом события
func TypeFor(a domain.AuditAction) string {
	switch a {
	case domain.AuditActionSubmitted:
		return TypeOrderSubmitted
	case domain.AuditActionVerified:
		return TypeOrderVerified
	case domain.AuditActionRejected:
		return TypeOrderRejected
	case domain.AuditActionDeleted:
		return TypeOrderDeleted
	}
	return "order." + string(a)
}

func NewEvent(a domain.AuditAction, o *domain.Order, actor string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       TypeFor(a),
		OrderID:    o.ID,
		OrderCode:  o.Code,
		Status:     o.Status,
		Actor:      actor,
		Total:      o.Total,
		OccurredAt: at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher отбрасывает события (Kafka не настроена)
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// ParseBrokers разбирает список брокеров через запятую
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

const (
	batchTimeout   = 10 * time.Millisecond
	publishTimeout = 2 * time.Second
)

// KafkaPublisher пишет события JSON-сообщениями; ключ = код заказа,
// так что события одного заказа попадают в одну партицию.
// Writer асинхронный: ошибки доставки приходят в Completion и логируются.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrDisabled
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: batchTimeout,
			Async:        true,
			Completion:   completionLogger(logger),
		},
		timeout: publishTimeout,
	}, nil
}

func completionLogger(logger *slog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err == nil {
			return
		}
		for _, m := range msgs {
			logger.Warn("deliver order event failed", "order_code", string(m.Key), "error", err)
		}
	}
}

// Publish ставит событие в очередь writer'а. Синхронно только чтение
// метаданных топика, оно ограничено timeout и не зависит от отмены ctx запроса.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.OrderCode),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
}

// Close дожидается отправки накопленных батчей
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
