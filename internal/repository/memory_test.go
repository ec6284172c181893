package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Name: "A", SKU: "S1", Price: decimal.NewFromInt(10), Stock: domain.FlatStock(5)}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("no id")
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("get: %v", err)
	}

	p.Price = decimal.NewFromInt(12)
	if err := store.Update(ctx, &p); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, p.ID); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestMemoryStore_VariantCopyIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "Dress", SKU: "D1", Price: decimal.NewFromInt(40), Stock: domain.VariantStock(map[string]int64{"S": 2})}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	got.Stock.Variants["S"] = 100

	again, _ := store.GetByID(ctx, p.ID)
	if again.Stock.Variants["S"] != 2 {
		t.Fatalf("stored variants mutated through a returned copy: %v", again.Stock.Variants)
	}
}

func TestMemoryStore_DecrementStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "Dress", SKU: "D1", Price: decimal.NewFromInt(40), Stock: domain.VariantStock(map[string]int64{"S": 2, "M": 1})}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}
	if err := store.DecrementStock(ctx, p.ID, "S", 2); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := store.DecrementStock(ctx, p.ID, "S", 1); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if err := store.DecrementStock(ctx, 999, "", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.Stock.Variants["S"] != 0 || got.Stock.Variants["M"] != 1 {
		t.Fatalf("unexpected stock %v", got.Stock.Variants)
	}
}

func TestMemoryStore_ConcurrentDecrementNeverOversells(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "A", SKU: "S1", Price: decimal.NewFromInt(1), Stock: domain.FlatStock(10)}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.DecrementStock(ctx, p.ID, "", 1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	got, _ := store.GetByID(ctx, p.ID)
	if ok != 10 || got.Stock.Quantity != 0 {
		t.Fatalf("expected 10 successes and zero stock, got %d and %d", ok, got.Stock.Quantity)
	}
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	// seed product
	p := domain.Product{Name: "A", SKU: "S1", Price: decimal.NewFromInt(10), Stock: domain.FlatStock(5)}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	// emulate atomic verify with stock decrease
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.DecrementStock(ctx, p.ID, "", 3); err != nil {
			return err
		}
		// nested transactions reuse the outer lock
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			o := domain.Order{Code: "ORD-2026-0001", FullName: "John", Items: []domain.OrderItem{{ProductID: p.ID, Quantity: 3}}, Status: domain.OrderStatusVerified}
			return orders.Create(ctx, &o)
		})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	// check stock after
	pp, _ := store.GetByID(context.Background(), p.ID)
	if pp.Stock.Quantity != 2 {
		t.Fatalf("stock expected 2, got %v", pp.Stock.Quantity)
	}
}

func TestMemoryOrders_ListFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	add := func(code, name, phone string, status domain.OrderStatus, pm domain.PaymentMethod, at time.Time) {
		o := domain.Order{Code: code, FullName: name, Phone: phone, Status: status, PaymentMethod: pm, OwnerID: "u1", CreatedAt: at}
		if err := orders.Create(ctx, &o); err != nil {
			t.Fatal(err)
		}
	}
	add("ORD-2026-0001", "Abebe Kebede", "0911000000", domain.OrderStatusPending, domain.PaymentMethodTelebirr, base)
	add("ORD-2026-0002", "Sara Tesfaye", "0922000000", domain.OrderStatusVerified, domain.PaymentMethodCBE, base.Add(time.Hour))
	add("ORD-2026-0003", "Marta", "0911222333", domain.OrderStatusPending, domain.PaymentMethodCBE, base.Add(2*time.Hour))

	list, _ := orders.List(ctx, OrderFilter{})
	if len(list) != 3 || list[0].Code != "ORD-2026-0003" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	list, _ = orders.List(ctx, OrderFilter{Search: "sara"})
	if len(list) != 1 || list[0].Code != "ORD-2026-0002" {
		t.Fatalf("name search failed: %+v", list)
	}
	list, _ = orders.List(ctx, OrderFilter{Search: "0911"})
	if len(list) != 2 {
		t.Fatalf("phone search failed: %+v", list)
	}
	list, _ = orders.List(ctx, OrderFilter{Search: "ord-2026-0001"})
	if len(list) != 1 {
		t.Fatalf("code search failed: %+v", list)
	}
	list, _ = orders.List(ctx, OrderFilter{Status: domain.OrderStatusPending, PaymentMethod: domain.PaymentMethodCBE})
	if len(list) != 1 || list[0].Code != "ORD-2026-0003" {
		t.Fatalf("status/payment filter failed: %+v", list)
	}
	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)
	list, _ = orders.List(ctx, OrderFilter{From: &from, To: &to})
	if len(list) != 1 || list[0].Code != "ORD-2026-0002" {
		t.Fatalf("date filter failed: %+v", list)
	}
}

func TestMemoryOrders_SequenceNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)
	first, _ := orders.NextSequence(ctx, 2026)
	o := domain.Order{Code: "ORD-2026-0001"}
	_ = orders.Create(ctx, &o)
	_ = orders.Delete(ctx, o.ID)
	second, _ := orders.NextSequence(ctx, 2026)
	other, _ := orders.NextSequence(ctx, 2027)
	if first != 1 || second != 2 || other != 1 {
		t.Fatalf("unexpected sequences %d %d %d", first, second, other)
	}
}

func TestMemoryCoupons_IncrementUsage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	coupons := NewMemoryCoupons(store)
	c := domain.Coupon{Code: "save10", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10), UsageLimit: 1, Active: true}
	if err := coupons.Create(ctx, &c); err != nil {
		t.Fatal(err)
	}
	if err := coupons.Create(ctx, &domain.Coupon{Code: "SAVE10"}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if err := coupons.IncrementUsage(ctx, "Save10"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := coupons.IncrementUsage(ctx, "SAVE10"); !errors.Is(err, ErrUsageExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
	got, _ := coupons.GetByCode(ctx, "save10")
	if got.UsedCount != 1 {
		t.Fatalf("used count %d", got.UsedCount)
	}
}

func TestMemoryCoupons_UpdateKeepsCodeAndUsage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	coupons := NewMemoryCoupons(store)
	c := domain.Coupon{Code: "save10", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10), UsageLimit: 3, Active: true}
	if err := coupons.Create(ctx, &c); err != nil {
		t.Fatal(err)
	}
	_ = coupons.IncrementUsage(ctx, "SAVE10")

	upd := c
	upd.Code = "OTHER"
	upd.UsedCount = 0
	upd.Active = false
	if err := coupons.Update(ctx, &upd); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := coupons.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != "SAVE10" || got.UsedCount != 1 || got.Active {
		t.Fatalf("unexpected coupon %+v", got)
	}
	if _, err := coupons.GetByCode(ctx, "OTHER"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("code must not change, got %v", err)
	}
	if err := coupons.Update(ctx, &domain.Coupon{ID: 99}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := coupons.Delete(ctx, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := coupons.Delete(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := coupons.GetByCode(ctx, "SAVE10"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted coupon still visible: %v", err)
	}
}

func TestMemoryAudit_AppendOnlyNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	audit := NewMemoryAudit(store)
	_ = audit.Append(ctx, &domain.AuditLogEntry{OrderID: 1, Action: domain.AuditActionSubmitted})
	_ = audit.Append(ctx, &domain.AuditLogEntry{OrderID: 2, Action: domain.AuditActionSubmitted})
	_ = audit.Append(ctx, &domain.AuditLogEntry{OrderID: 1, Action: domain.AuditActionVerified})
	list, _ := audit.ListByOrder(ctx, 1)
	if len(list) != 2 || list[0].Action != domain.AuditActionVerified {
		t.Fatalf("unexpected audit trail %+v", list)
	}
}

func TestList_Filtering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	add := func(n string) {
		p := domain.Product{Name: n, SKU: n, Price: decimal.NewFromInt(1), Stock: domain.FlatStock(1)}
		if err := store.Create(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}
	add("Scarf")
	add("Habesha Kemis")
	add("Netela")

	// name contains
	list, _ := store.List(ctx, ProductFilter{NameSubstring: "ne"})
	if len(list) != 1 || list[0].Name != "Netela" {
		t.Fatalf("name filter: %+v", list)
	}
	list, _ = store.List(ctx, ProductFilter{})
	if len(list) != 3 {
		t.Fatalf("expected all products, got %d", len(list))
	}
}
