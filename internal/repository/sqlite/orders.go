package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// Orders заказы и их строки
type Orders struct {
	db *DB
}

var _ repository.OrderRepository = (*Orders)(nil)

const orderColumns = `id, code, owner_id, full_name, phone, email, delivery_method, delivery_date,
	address, delivery_notes, payment_method, transaction_ref, receipt_ref,
	subtotal, discount, discount_code, total, status, admin_note, created_at, updated_at`

func (r *Orders) Create(ctx context.Context, o *domain.Order) error {
	return r.db.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		q := r.db.conn(ctx)
		now := o.CreatedAt
		if now.IsZero() {
			now = nowUTC()
		}
		res, err := q.ExecContext(ctx, `
			INSERT INTO orders (code, owner_id, full_name, phone, email, delivery_method, delivery_date,
				address, delivery_notes, payment_method, transaction_ref, receipt_ref,
				subtotal, discount, discount_code, total, status, admin_note, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.Code, o.OwnerID, o.FullName, o.Phone, o.Email, string(o.DeliveryMethod), formatTime(o.DeliveryDate),
			o.Address, o.DeliveryNotes, string(o.PaymentMethod), o.TransactionRef, o.ReceiptRef,
			o.Subtotal, o.Discount, o.DiscountCode, o.Total, string(o.Status), o.AdminNote,
			formatTime(now), formatTime(now))
		if isUnique(err) {
			return repository.ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("sqlite: insert order %q: %w", o.Code, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: order id: %w", err)
		}
		for _, it := range o.Items {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO order_items (order_id, product_id, variant, product_name, unit_price, quantity)
				VALUES (?, ?, ?, ?, ?, ?)`,
				id, it.ProductID, it.Variant, it.ProductName, it.UnitPrice, it.Quantity); err != nil {
				return fmt.Errorf("sqlite: insert item for %q: %w", o.Code, err)
			}
		}
		o.ID = id
		o.CreatedAt = now
		o.UpdatedAt = now
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(s rowScanner) (*domain.Order, error) {
	var (
		o                      domain.Order
		dm, pm, status         string
		date, created, updated string
	)
	if err := s.Scan(&o.ID, &o.Code, &o.OwnerID, &o.FullName, &o.Phone, &o.Email, &dm, &date,
		&o.Address, &o.DeliveryNotes, &pm, &o.TransactionRef, &o.ReceiptRef,
		&o.Subtotal, &o.Discount, &o.DiscountCode, &o.Total, &status, &o.AdminNote, &created, &updated); err != nil {
		return nil, err
	}
	o.DeliveryMethod = domain.DeliveryMethod(dm)
	o.PaymentMethod = domain.PaymentMethod(pm)
	o.Status = domain.OrderStatus(status)
	var err error
	if o.DeliveryDate, err = parseTime(date); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Orders) loadItems(ctx context.Context, q querier, o *domain.Order) error {
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, variant, product_name, unit_price, quantity
		FROM order_items WHERE order_id = ? ORDER BY id`, o.ID)
	if err != nil {
		return fmt.Errorf("sqlite: items of %d: %w", o.ID, err)
	}
	defer rows.Close()
	o.Items = make([]domain.OrderItem, 0)
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Variant, &it.ProductName, &it.UnitPrice, &it.Quantity); err != nil {
			return fmt.Errorf("sqlite: scan item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *Orders) getOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	q := r.db.conn(ctx)
	o, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order: %w", err)
	}
	if err := r.loadItems(ctx, q, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Orders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.getOne(ctx, `id = ?`, id)
}

// GetByCode без учёта регистра (колонка COLLATE NOCASE)
func (r *Orders) GetByCode(ctx context.Context, code string) (*domain.Order, error) {
	return r.getOne(ctx, `code = ?`, strings.TrimSpace(code))
}

// Update сохраняет изменяемую часть заказа: статус и заметку админа.
// Строки и суммы фиксируются при создании.
func (r *Orders) Update(ctx context.Context, o *domain.Order) error {
	now := nowUTC()
	res, err := r.db.conn(ctx).ExecContext(ctx,
		`UPDATE orders SET status = ?, admin_note = ?, updated_at = ? WHERE id = ?`,
		string(o.Status), o.AdminNote, formatTime(now), o.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update order %d: %w", o.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	o.UpdatedAt = now
	return nil
}

func (r *Orders) Delete(ctx context.Context, id int64) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete order %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List: индексируемые условия уходят в SQL, остальное проверяет
// repository.MatchOrder, чтобы поиск совпадал с in-memory.
func (r *Orders) List(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	q := r.db.conn(ctx)
	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.PaymentMethod != "" {
		where = append(where, "payment_method = ?")
		args = append(args, string(f.PaymentMethod))
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders: %w", err)
	}
	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scan order: %w", err)
		}
		if repository.MatchOrder(*o, f) {
			out = append(out, *o)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadItems(ctx, q, &out[i]); err != nil {
			return nil, err
		}
	}
	if out == nil {
		out = make([]domain.Order, 0)
	}
	return out, nil
}

func (r *Orders) NextSequence(ctx context.Context, year int) (int64, error) {
	var last int64
	err := r.db.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO order_sequences (year, last) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET last = last + 1
		RETURNING last`, year).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("sqlite: next sequence %d: %w", year, err)
	}
	return last, nil
}
