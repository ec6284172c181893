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

// Coupons купоны; код хранится в верхнем регистре
type Coupons struct {
	db *DB
}

var _ repository.CouponRepository = (*Coupons)(nil)

const couponColumns = `id, code, type, value, expires_at, usage_limit, used_count, active, min_subtotal, created_at`

func (r *Coupons) Create(ctx context.Context, c *domain.Coupon) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if c.CreatedAt.IsZero() {
		c.CreatedAt = nowUTC()
	}
	res, err := r.db.conn(ctx).ExecContext(ctx, `
		INSERT INTO coupons (code, type, value, expires_at, usage_limit, used_count, active, min_subtotal, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code, string(c.Type), c.Value, formatTime(c.ExpiresAt), c.UsageLimit, c.UsedCount, c.Active,
		c.MinSubtotal, formatTime(c.CreatedAt))
	if isUnique(err) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("sqlite: insert coupon %q: %w", c.Code, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: coupon id: %w", err)
	}
	c.ID = id
	return nil
}

func scanCoupon(s rowScanner) (*domain.Coupon, error) {
	var (
		c                domain.Coupon
		typ, exp, create string
	)
	if err := s.Scan(&c.ID, &c.Code, &typ, &c.Value, &exp, &c.UsageLimit, &c.UsedCount, &c.Active,
		&c.MinSubtotal, &create); err != nil {
		return nil, err
	}
	c.Type = domain.DiscountType(typ)
	var err error
	if c.ExpiresAt, err = parseTime(exp); err != nil {
		return nil, err
	}
	if c.CreatedAt, err = parseTime(create); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Coupons) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = ?`, strings.ToUpper(strings.TrimSpace(code))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get coupon: %w", err)
	}
	return c, nil
}

func (r *Coupons) GetByID(ctx context.Context, id int64) (*domain.Coupon, error) {
	c, err := scanCoupon(r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get coupon %d: %w", id, err)
	}
	return c, nil
}

// Update не пишет used_count: параллельные списания не теряются
func (r *Coupons) Update(ctx context.Context, c *domain.Coupon) error {
	q := r.db.conn(ctx)
	res, err := q.ExecContext(ctx, `
		UPDATE coupons SET type = ?, value = ?, expires_at = ?, usage_limit = ?, active = ?, min_subtotal = ?
		WHERE id = ?`,
		string(c.Type), c.Value, formatTime(c.ExpiresAt), c.UsageLimit, c.Active, c.MinSubtotal, c.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update coupon %d: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	var create string
	if err := q.QueryRowContext(ctx, `SELECT code, used_count, created_at FROM coupons WHERE id = ?`, c.ID).
		Scan(&c.Code, &c.UsedCount, &create); err != nil {
		return fmt.Errorf("sqlite: reload coupon %d: %w", c.ID, err)
	}
	c.CreatedAt, err = parseTime(create)
	return err
}

func (r *Coupons) Delete(ctx context.Context, id int64) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM coupons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete coupon %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Coupons) List(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := r.db.conn(ctx).QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list coupons: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan coupon: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *Coupons) IncrementUsage(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	q := r.db.conn(ctx)
	res, err := q.ExecContext(ctx,
		`UPDATE coupons SET used_count = used_count + 1 WHERE code = ? AND used_count < usage_limit`, code)
	if err != nil {
		return fmt.Errorf("sqlite: use coupon %q: %w", code, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := q.QueryRowContext(ctx, `SELECT 1 FROM coupons WHERE code = ?`, code).Scan(&one); errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return repository.ErrUsageExhausted
}
