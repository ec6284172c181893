package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	mu           sync.RWMutex
	nextProdID   int64
	nextOrderID  int64
	nextAuditID  int64
	nextCouponID int64
	productsByID map[int64]domain.Product
	ordersByID   map[int64]domain.Order
	orderSeq     map[int]int64
	audit        []domain.AuditLogEntry
	coupons      map[string]domain.Coupon
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:   1,
		nextOrderID:  1,
		nextAuditID:  1,
		nextCouponID: 1,
		productsByID: make(map[int64]domain.Product),
		ordersByID:   make(map[int64]domain.Order),
		orderSeq:     make(map[int]int64),
		coupons:      make(map[string]domain.Coupon),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

func copyProduct(p domain.Product) domain.Product {
	if p.Stock.Kind == domain.StockVariant {
		p.Stock = domain.VariantStock(p.Stock.Variants)
	}
	return p
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	for _, existing := range m.productsByID {
		if p.SKU != "" && existing.SKU == p.SKU {
			return ErrDuplicate
		}
	}
	p.ID = m.nextProdID
	m.nextProdID++
	m.productsByID[p.ID] = copyProduct(*p)
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := copyProduct(p)
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	existing, ok := m.productsByID[p.ID]
	if !ok {
		return ErrNotFound
	}
	// SKU неизменяем после создания
	p.SKU = existing.SKU
	m.productsByID[p.ID] = copyProduct(*p)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if !containsIgnoreCase(p.Name, f.NameSubstring) {
			continue
		}
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DecrementStock проверка и списание под одной блокировкой записи
func (m *MemoryStore) DecrementStock(ctx context.Context, productID int64, variant string, qty int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.productsByID[productID]
	if !ok {
		return ErrNotFound
	}
	next, err := p.Stock.Decrement(variant, qty)
	if err != nil {
		return err
	}
	p.Stock = next
	m.productsByID[productID] = p
	return nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	for _, existing := range mo.store.ordersByID {
		if existing.Code == o.Code {
			return ErrDuplicate
		}
	}
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	mo.store.ordersByID[o.ID] = copyOrder(*o)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) GetByCode(ctx context.Context, code string) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	for _, o := range mo.store.ordersByID {
		if strings.EqualFold(o.Code, code) {
			cp := copyOrder(o)
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = time.Now().UTC()
	mo.store.ordersByID[o.ID] = copyOrder(*o)
	return nil
}

func (mo *MemoryOrders) Delete(ctx context.Context, id int64) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[id]; !ok {
		return ErrNotFound
	}
	delete(mo.store.ordersByID, id)
	return nil
}

func (mo *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if MatchOrder(o, f) {
			out = append(out, copyOrder(o))
		}
	}
	// newest first
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (mo *MemoryOrders) NextSequence(ctx context.Context, year int) (int64, error) {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	mo.store.orderSeq[year]++
	return mo.store.orderSeq[year], nil
}

// MemoryAudit журнал поверх того же хранилища
type MemoryAudit struct{ store *MemoryStore }

func NewMemoryAudit(store *MemoryStore) *MemoryAudit { return &MemoryAudit{store: store} }

var _ AuditLogRepository = (*MemoryAudit)(nil)

func (ma *MemoryAudit) Append(ctx context.Context, e *domain.AuditLogEntry) error {
	ma.store.wlock(ctx)
	defer ma.store.wunlock(ctx)
	e.ID = ma.store.nextAuditID
	ma.store.nextAuditID++
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	ma.store.audit = append(ma.store.audit, *e)
	return nil
}

// ListByOrder новые записи первыми
func (ma *MemoryAudit) ListByOrder(ctx context.Context, orderID int64) ([]domain.AuditLogEntry, error) {
	ma.store.rlock(ctx)
	defer ma.store.runlock(ctx)
	out := make([]domain.AuditLogEntry, 0)
	for i := len(ma.store.audit) - 1; i >= 0; i-- {
		if ma.store.audit[i].OrderID == orderID {
			out = append(out, ma.store.audit[i])
		}
	}
	return out, nil
}

// MemoryCoupons купоны, ключ — код в верхнем регистре
type MemoryCoupons struct{ store *MemoryStore }

func NewMemoryCoupons(store *MemoryStore) *MemoryCoupons { return &MemoryCoupons{store: store} }

var _ CouponRepository = (*MemoryCoupons)(nil)

func (mc *MemoryCoupons) Create(ctx context.Context, c *domain.Coupon) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	key := strings.ToUpper(c.Code)
	if _, ok := mc.store.coupons[key]; ok {
		return ErrDuplicate
	}
	c.ID = mc.store.nextCouponID
	mc.store.nextCouponID++
	c.Code = key
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	mc.store.coupons[key] = *c
	return nil
}

func (mc *MemoryCoupons) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	c, ok := mc.store.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// byID линейный поиск: купонов мало, индекс по коду основной
func (mc *MemoryCoupons) byID(id int64) (string, domain.Coupon, bool) {
	for k, c := range mc.store.coupons {
		if c.ID == id {
			return k, c, true
		}
	}
	return "", domain.Coupon{}, false
}

func (mc *MemoryCoupons) GetByID(ctx context.Context, id int64) (*domain.Coupon, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	_, c, ok := mc.byID(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (mc *MemoryCoupons) Update(ctx context.Context, c *domain.Coupon) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	key, cur, ok := mc.byID(c.ID)
	if !ok {
		return ErrNotFound
	}
	c.Code = cur.Code
	c.UsedCount = cur.UsedCount
	c.CreatedAt = cur.CreatedAt
	mc.store.coupons[key] = *c
	return nil
}

func (mc *MemoryCoupons) Delete(ctx context.Context, id int64) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	key, _, ok := mc.byID(id)
	if !ok {
		return ErrNotFound
	}
	delete(mc.store.coupons, key)
	return nil
}

func (mc *MemoryCoupons) List(ctx context.Context) ([]domain.Coupon, error) {
	mc.store.rlock(ctx)
	defer mc.store.runlock(ctx)
	out := make([]domain.Coupon, 0, len(mc.store.coupons))
	for _, c := range mc.store.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (mc *MemoryCoupons) IncrementUsage(ctx context.Context, code string) error {
	mc.store.wlock(ctx)
	defer mc.store.wunlock(ctx)
	key := strings.ToUpper(code)
	c, ok := mc.store.coupons[key]
	if !ok {
		return ErrNotFound
	}
	if c.UsedCount >= c.UsageLimit {
		return ErrUsageExhausted
	}
	c.UsedCount++
	mc.store.coupons[key] = c
	return nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи.
	// Отката нет: вызывающий код сначала проверяет все условия, потом пишет.
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
