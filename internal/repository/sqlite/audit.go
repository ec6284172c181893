package sqlite

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// AuditLogs журнал аудита; строки только добавляются
type AuditLogs struct {
	db *DB
}

var _ repository.AuditLogRepository = (*AuditLogs)(nil)

func (r *AuditLogs) Append(ctx context.Context, e *domain.AuditLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = nowUTC()
	}
	res, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO audit_logs (order_id, order_code, actor, action, previous_status, new_status, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OrderID, e.OrderCode, e.Actor, string(e.Action), string(e.PreviousStatus), string(e.NewStatus),
		e.Note, formatTime(e.Timestamp))
	if err != nil {
		return fmt.Errorf("sqlite: append audit for %q: %w", e.OrderCode, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: audit id: %w", err)
	}
	e.ID = id
	return nil
}

func (r *AuditLogs) ListByOrder(ctx context.Context, orderID int64) ([]domain.AuditLogEntry, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `
		SELECT id, order_id, order_code, actor, action, previous_status, new_status, note, created_at
		FROM audit_logs WHERE order_id = ? ORDER BY id DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: audit of %d: %w", orderID, err)
	}
	defer rows.Close()

	out := make([]domain.AuditLogEntry, 0)
	for rows.Next() {
		var (
			e                      domain.AuditLogEntry
			action, prev, next, ts string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &e.OrderCode, &e.Actor, &action, &prev, &next, &e.Note, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan audit: %w", err)
		}
		e.Action = domain.AuditAction(action)
		e.PreviousStatus = domain.OrderStatus(prev)
		e.NewStatus = domain.OrderStatus(next)
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
