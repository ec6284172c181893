package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestProducts_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	products := db.Products()

	flat := domain.Product{Name: "Scarf", SKU: "SC-1", Price: decimal.RequireFromString("12.50"), Stock: domain.FlatStock(4)}
	require.NoError(t, products.Create(ctx, &flat))
	sized := domain.Product{Name: "Kemis", SKU: "KM-1", Price: decimal.NewFromInt(90), Stock: domain.VariantStock(map[string]int64{"S": 1, "M": 2})}
	require.NoError(t, products.Create(ctx, &sized))

	got, err := products.GetByID(ctx, flat.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, domain.FlatStock(4), got.Stock)

	got, err = products.GetByID(ctx, sized.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"S": 1, "M": 2}, got.Stock.Variants)

	err = products.Create(ctx, &domain.Product{Name: "Dup", SKU: "SC-1", Price: decimal.Zero, Stock: domain.FlatStock(0)})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	sized.Stock = domain.VariantStock(map[string]int64{"L": 7})
	require.NoError(t, products.Update(ctx, &sized))
	got, err = products.GetByID(ctx, sized.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"L": 7}, got.Stock.Variants)

	list, err := products.List(ctx, repository.ProductFilter{NameSubstring: "kem"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Kemis", list[0].Name)

	require.NoError(t, products.Delete(ctx, flat.ID))
	_, err = products.GetByID(ctx, flat.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProducts_DecrementStock(t *testing.T) {
	ctx := context.Background()
	products := openTestDB(t).Products()

	p := domain.Product{Name: "Kemis", SKU: "KM-1", Price: decimal.NewFromInt(90), Stock: domain.VariantStock(map[string]int64{"S": 1})}
	require.NoError(t, products.Create(ctx, &p))

	require.NoError(t, products.DecrementStock(ctx, p.ID, "S", 1))
	assert.ErrorIs(t, products.DecrementStock(ctx, p.ID, "S", 1), domain.ErrInsufficientStock)
	assert.ErrorIs(t, products.DecrementStock(ctx, p.ID, "XL", 1), domain.ErrUnknownVariant)
	assert.ErrorIs(t, products.DecrementStock(ctx, p.ID, "", 1), domain.ErrVariantRequired)
	assert.ErrorIs(t, products.DecrementStock(ctx, 404, "", 1), repository.ErrNotFound)
}

func TestProducts_ConcurrentDecrementNeverOversells(t *testing.T) {
	ctx := context.Background()
	products := openTestDB(t).Products()
	p := domain.Product{Name: "Scarf", SKU: "SC-1", Price: decimal.NewFromInt(1), Stock: domain.FlatStock(5)}
	require.NoError(t, products.Create(ctx, &p))

	var ok atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if products.DecrementStock(ctx, p.ID, "", 1) == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, ok.Load())
	assert.EqualValues(t, 0, got.Stock.Quantity)
}

func TestTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	products := db.Products()
	p := domain.Product{Name: "Scarf", SKU: "SC-1", Price: decimal.NewFromInt(1), Stock: domain.FlatStock(3)}
	require.NoError(t, products.Create(ctx, &p))

	boom := errors.New("boom")
	err := db.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		if err := products.DecrementStock(ctx, p.ID, "", 2); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.Stock.Quantity)
}

func TestOrders_RoundTripAndFilters(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	orders := db.Orders()

	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	o := domain.Order{
		Code: "ORD-2026-0001", OwnerID: "u1", FullName: "Abebe Kebede", Phone: "0911000000",
		DeliveryMethod: domain.DeliveryMethodDelivery, DeliveryDate: date, Address: "Bole",
		PaymentMethod: domain.PaymentMethodTelebirr, TransactionRef: "TX1", ReceiptRef: "receipts/1.png",
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Scarf", UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2},
			{ProductID: 2, Variant: "M", ProductName: "Kemis", UnitPrice: decimal.NewFromInt(90), Quantity: 1},
		},
		Subtotal: decimal.NewFromInt(115), Discount: decimal.NewFromInt(15), DiscountCode: "SAVE",
		Total: decimal.NewFromInt(100), Status: domain.OrderStatusPending,
	}
	require.NoError(t, orders.Create(ctx, &o))
	require.NotZero(t, o.ID)

	got, err := orders.GetByCode(ctx, "ord-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.True(t, got.DeliveryDate.Equal(date))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "M", got.Items[1].Variant)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(100)))

	got.Status = domain.OrderStatusVerified
	got.AdminNote = "ok"
	require.NoError(t, orders.Update(ctx, got))

	second := o
	second.Code = "ORD-2026-0002"
	second.OwnerID = "u2"
	second.FullName = "Sara"
	second.Phone = "0922000000"
	second.PaymentMethod = domain.PaymentMethodCBE
	second.CreatedAt = time.Time{}
	require.NoError(t, orders.Create(ctx, &second))

	list, err := orders.List(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ORD-2026-0002", list[0].Code)

	list, err = orders.List(ctx, repository.OrderFilter{Status: domain.OrderStatusVerified})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "ok", list[0].AdminNote)

	list, err = orders.List(ctx, repository.OrderFilter{Search: "SARA"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = orders.List(ctx, repository.OrderFilter{OwnerID: "u1"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	dup := o
	assert.ErrorIs(t, orders.Create(ctx, &dup), repository.ErrDuplicate)

	require.NoError(t, orders.Delete(ctx, o.ID))
	_, err = orders.GetByID(ctx, o.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrders_NextSequence(t *testing.T) {
	ctx := context.Background()
	orders := openTestDB(t).Orders()
	for want := int64(1); want <= 3; want++ {
		got, err := orders.NextSequence(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := orders.NextSequence(ctx, 2027)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got)
}

func TestAuditLogs_SurviveOrderDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	o := domain.Order{Code: "ORD-2026-0001", FullName: "A", Phone: "1", Status: domain.OrderStatusPending,
		Subtotal: decimal.Zero, Discount: decimal.Zero, Total: decimal.Zero}
	require.NoError(t, db.Orders().Create(ctx, &o))

	audit := db.AuditLogs()
	require.NoError(t, audit.Append(ctx, &domain.AuditLogEntry{OrderID: o.ID, OrderCode: o.Code, Actor: "buyer", Action: domain.AuditActionSubmitted, NewStatus: domain.OrderStatusPending}))
	require.NoError(t, db.Orders().Delete(ctx, o.ID))
	require.NoError(t, audit.Append(ctx, &domain.AuditLogEntry{OrderID: o.ID, OrderCode: o.Code, Actor: "admin", Action: domain.AuditActionDeleted}))

	list, err := audit.ListByOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.AuditActionDeleted, list[0].Action)
	assert.Equal(t, domain.OrderStatusPending, list[1].NewStatus)
}

func TestCoupons_Usage(t *testing.T) {
	ctx := context.Background()
	coupons := openTestDB(t).Coupons()
	c := domain.Coupon{Code: "save10", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10),
		ExpiresAt: time.Now().Add(time.Hour), UsageLimit: 2, Active: true, MinSubtotal: decimal.NewFromInt(100)}
	require.NoError(t, coupons.Create(ctx, &c))
	assert.Equal(t, "SAVE10", c.Code)

	got, err := coupons.GetByCode(ctx, "Save10")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.True(t, got.MinSubtotal.Equal(decimal.NewFromInt(100)))

	require.NoError(t, coupons.IncrementUsage(ctx, "save10"))
	require.NoError(t, coupons.IncrementUsage(ctx, "SAVE10"))
	assert.ErrorIs(t, coupons.IncrementUsage(ctx, "SAVE10"), repository.ErrUsageExhausted)
	assert.ErrorIs(t, coupons.IncrementUsage(ctx, "NOPE"), repository.ErrNotFound)

	list, err := coupons.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.EqualValues(t, 2, list[0].UsedCount)
}

func TestCoupons_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	coupons := openTestDB(t).Coupons()
	c := domain.Coupon{Code: "save10", Type: domain.DiscountPercentage, Value: decimal.NewFromInt(10),
		ExpiresAt: time.Now().Add(time.Hour), UsageLimit: 2, Active: true, MinSubtotal: decimal.Zero}
	require.NoError(t, coupons.Create(ctx, &c))
	require.NoError(t, coupons.IncrementUsage(ctx, "SAVE10"))

	later := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	upd := c
	upd.Active = false
	upd.UsageLimit = 5
	upd.ExpiresAt = later
	upd.UsedCount = 0
	require.NoError(t, coupons.Update(ctx, &upd))
	assert.Equal(t, "SAVE10", upd.Code)
	assert.EqualValues(t, 1, upd.UsedCount)

	got, err := coupons.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.EqualValues(t, 5, got.UsageLimit)
	assert.EqualValues(t, 1, got.UsedCount)
	assert.True(t, got.ExpiresAt.Equal(later))

	assert.ErrorIs(t, coupons.Update(ctx, &domain.Coupon{ID: 99, ExpiresAt: later}), repository.ErrNotFound)
	_, err = coupons.GetByID(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, coupons.Delete(ctx, c.ID))
	assert.ErrorIs(t, coupons.Delete(ctx, c.ID), repository.ErrNotFound)
	_, err = coupons.GetByCode(ctx, "SAVE10")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
