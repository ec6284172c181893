// Package sqlite репозитории поверх SQLite. Все делят один *sql.DB;
// транзакция из Tx.WithTransaction едет в ctx, и вызовы с этим ctx идут внутри неё.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// драйвер без CGO
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT    NOT NULL,
    sku         TEXT    NOT NULL UNIQUE,
    price       TEXT    NOT NULL,
    stock_kind  TEXT    NOT NULL,
    -- flat stock; ignored when stock_kind = 'variant'
    stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0)
);

CREATE TABLE IF NOT EXISTS product_variants (
    product_id  INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
    size        TEXT    NOT NULL,
    stock       INTEGER NOT NULL CHECK (stock >= 0),
    PRIMARY KEY (product_id, size)
);

CREATE TABLE IF NOT EXISTS orders (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    code            TEXT    NOT NULL UNIQUE COLLATE NOCASE,
    owner_id        TEXT    NOT NULL DEFAULT '',
    full_name       TEXT    NOT NULL,
    phone           TEXT    NOT NULL,
    email           TEXT    NOT NULL DEFAULT '',
    delivery_method TEXT    NOT NULL,
    delivery_date   TEXT    NOT NULL,
    address         TEXT    NOT NULL DEFAULT '',
    delivery_notes  TEXT    NOT NULL DEFAULT '',
    payment_method  TEXT    NOT NULL,
    transaction_ref TEXT    NOT NULL,
    receipt_ref     TEXT    NOT NULL,
    subtotal        TEXT    NOT NULL,
    discount        TEXT    NOT NULL,
    discount_code   TEXT    NOT NULL DEFAULT '',
    total           TEXT    NOT NULL,
    status          TEXT    NOT NULL,
    admin_note      TEXT    NOT NULL DEFAULT '',
    created_at      TEXT    NOT NULL,
    updated_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_owner ON orders(owner_id, created_at);

CREATE TABLE IF NOT EXISTS order_items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id     INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    product_id   INTEGER NOT NULL,
    variant      TEXT    NOT NULL DEFAULT '',
    product_name TEXT    NOT NULL,
    unit_price   TEXT    NOT NULL,
    quantity     INTEGER NOT NULL CHECK (quantity > 0)
);

CREATE TABLE IF NOT EXISTS order_sequences (
    year INTEGER PRIMARY KEY,
    last INTEGER NOT NULL
);

-- Append-only. No foreign key: entries outlive a deleted order.
CREATE TABLE IF NOT EXISTS audit_logs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id        INTEGER NOT NULL,
    order_code      TEXT    NOT NULL,
    actor           TEXT    NOT NULL,
    action          TEXT    NOT NULL,
    previous_status TEXT    NOT NULL DEFAULT '',
    new_status      TEXT    NOT NULL DEFAULT '',
    note            TEXT    NOT NULL DEFAULT '',
    created_at      TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_order ON audit_logs(order_id, id);

CREATE TABLE IF NOT EXISTS coupons (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    code         TEXT    NOT NULL UNIQUE,
    type         TEXT    NOT NULL,
    value        TEXT    NOT NULL,
    expires_at   TEXT    NOT NULL,
    usage_limit  INTEGER NOT NULL,
    used_count   INTEGER NOT NULL DEFAULT 0,
    active       INTEGER NOT NULL DEFAULT 1,
    min_subtotal TEXT    NOT NULL,
    created_at   TEXT    NOT NULL
);
`

// DB пул соединений
type DB struct {
	db *sql.DB
}

// Open открывает (или создаёт) базу по path и применяет схему.
//
//	db, err := sqlite.Open("./data/storefront.db")
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// одно соединение: писатели идут по очереди, транзакция держит его до конца
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Products() *Products   { return &Products{db: d} }
func (d *DB) Orders() *Orders       { return &Orders{db: d} }
func (d *DB) AuditLogs() *AuditLogs { return &AuditLogs{db: d} }
func (d *DB) Coupons() *Coupons     { return &Coupons{db: d} }
func (d *DB) Tx() *Tx               { return &Tx{db: d} }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// conn транзакция из ctx или пул
func (d *DB) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return d.db
}

// Tx менеджер транзакций
type Tx struct {
	db *DB
}

func (t *Tx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := t.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// дробная часть фиксированной ширины: сортировка TEXT = сортировка по времени
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime читает время, сохранённое как RFC3339 TEXT
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
