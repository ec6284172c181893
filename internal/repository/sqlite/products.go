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

// Products каталог с остатками по размерам
type Products struct {
	db *DB
}

var _ repository.ProductRepository = (*Products)(nil)

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *Products) Create(ctx context.Context, p *domain.Product) error {
	return r.db.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		q := r.db.conn(ctx)
		res, err := q.ExecContext(ctx,
			`INSERT INTO products (name, sku, price, stock_kind, stock) VALUES (?, ?, ?, ?, ?)`,
			p.Name, p.SKU, p.Price, string(p.Stock.Kind), p.Stock.Quantity)
		if isUnique(err) {
			return repository.ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("sqlite: insert product: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: product id: %w", err)
		}
		if err := insertVariants(ctx, q, id, p.Stock); err != nil {
			return err
		}
		p.ID = id
		return nil
	})
}

func insertVariants(ctx context.Context, q querier, productID int64, s domain.StockPolicy) error {
	for _, size := range s.VariantNames() {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO product_variants (product_id, size, stock) VALUES (?, ?, ?)`,
			productID, size, s.Variants[size]); err != nil {
			return fmt.Errorf("sqlite: insert variant %q: %w", size, err)
		}
	}
	return nil
}

func (r *Products) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	q := r.db.conn(ctx)
	var (
		p     domain.Product
		kind  string
		stock int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, sku, price, stock_kind, stock FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.SKU, &p.Price, &kind, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get product %d: %w", id, err)
	}
	if err := loadStock(ctx, q, &p, domain.StockKind(kind), stock); err != nil {
		return nil, err
	}
	return &p, nil
}

func loadStock(ctx context.Context, q querier, p *domain.Product, kind domain.StockKind, stock int64) error {
	switch kind {
	case domain.StockFlat:
		p.Stock = domain.FlatStock(stock)
		return nil
	case domain.StockVariant:
		rows, err := q.QueryContext(ctx, `SELECT size, stock FROM product_variants WHERE product_id = ?`, p.ID)
		if err != nil {
			return fmt.Errorf("sqlite: variants of %d: %w", p.ID, err)
		}
		defer rows.Close()
		sizes := make(map[string]int64)
		for rows.Next() {
			var size string
			var n int64
			if err := rows.Scan(&size, &n); err != nil {
				return fmt.Errorf("sqlite: scan variant: %w", err)
			}
			sizes[size] = n
		}
		if err := rows.Err(); err != nil {
			return err
		}
		p.Stock = domain.StockPolicy{Kind: domain.StockVariant, Variants: sizes}
		return nil
	default:
		return fmt.Errorf("sqlite: product %d: %w: kind %q", p.ID, domain.ErrInvalidStock, kind)
	}
}

func (r *Products) Update(ctx context.Context, p *domain.Product) error {
	return r.db.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		q := r.db.conn(ctx)
		// sku после создания не меняется
		err := q.QueryRowContext(ctx, `SELECT sku FROM products WHERE id = ?`, p.ID).Scan(&p.SKU)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("sqlite: get product %d: %w", p.ID, err)
		}
		if _, err := q.ExecContext(ctx,
			`UPDATE products SET name = ?, price = ?, stock_kind = ?, stock = ? WHERE id = ?`,
			p.Name, p.Price, string(p.Stock.Kind), p.Stock.Quantity, p.ID); err != nil {
			return fmt.Errorf("sqlite: update product %d: %w", p.ID, err)
		}
		if _, err := q.ExecContext(ctx, `DELETE FROM product_variants WHERE product_id = ?`, p.ID); err != nil {
			return fmt.Errorf("sqlite: clear variants %d: %w", p.ID, err)
		}
		return insertVariants(ctx, q, p.ID, p.Stock)
	})
}

func (r *Products) Delete(ctx context.Context, id int64) error {
	res, err := r.db.conn(ctx).ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Products) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	q := r.db.conn(ctx)
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, sku, price, stock_kind, stock FROM products
		 WHERE ? = '' OR instr(lower(name), lower(?)) > 0
		 ORDER BY id`, f.NameSubstring, f.NameSubstring)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	type row struct {
		p     domain.Product
		kind  string
		stock int64
	}
	var buf []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.p.ID, &rw.p.Name, &rw.p.SKU, &rw.p.Price, &rw.kind, &rw.stock); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scan product: %w", err)
		}
		buf = append(buf, rw)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// размеры грузим после закрытия курсора: соединение одно
	out := make([]domain.Product, 0, len(buf))
	for _, rw := range buf {
		p := rw.p
		if err := loadStock(ctx, q, &p, domain.StockKind(rw.kind), rw.stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// DecrementStock условный UPDATE: строка меняется, только если остатка хватает,
// поэтому параллельные вызовы не уводят его в минус.
func (r *Products) DecrementStock(ctx context.Context, productID int64, variant string, qty int64) error {
	if qty <= 0 {
		return domain.ErrInsufficientStock
	}
	q := r.db.conn(ctx)
	var kind string
	err := q.QueryRowContext(ctx, `SELECT stock_kind FROM products WHERE id = ?`, productID).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: stock kind %d: %w", productID, err)
	}

	var res sql.Result
	switch domain.StockKind(kind) {
	case domain.StockFlat:
		if variant != "" {
			return domain.ErrUnknownVariant
		}
		res, err = q.ExecContext(ctx,
			`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`, qty, productID, qty)
	case domain.StockVariant:
		if variant == "" {
			return domain.ErrVariantRequired
		}
		res, err = q.ExecContext(ctx,
			`UPDATE product_variants SET stock = stock - ? WHERE product_id = ? AND size = ? AND stock >= ?`,
			qty, productID, variant, qty)
	default:
		return fmt.Errorf("sqlite: product %d: %w: kind %q", productID, domain.ErrInvalidStock, kind)
	}
	if err != nil {
		return fmt.Errorf("sqlite: decrement %d/%q: %w", productID, variant, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if domain.StockKind(kind) == domain.StockVariant {
			var exists int
			if err := q.QueryRowContext(ctx,
				`SELECT 1 FROM product_variants WHERE product_id = ? AND size = ?`, productID, variant).
				Scan(&exists); errors.Is(err, sql.ErrNoRows) {
				return domain.ErrUnknownVariant
			}
		}
		return domain.ErrInsufficientStock
	}
	return nil
}
