package purchasing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/pricing"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (t testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type capturingOutbox struct {
	events []outbox.DomainEvent
}

func (c *capturingOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type fixture struct {
	db     *gorm.DB
	svc    Service
	outbox *capturingOutbox
	actor  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:purchasing_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// The models declare postgres column types, so the sqlite fixture
	// creates its tables by hand instead of auto-migrating.
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS purchase_orders (
			id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL,
			created_by TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			total_cents INTEGER NOT NULL,
			ordered_at DATETIME NOT NULL,
			received_at DATETIME,
			notes TEXT,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS purchase_order_items (
			id TEXT PRIMARY KEY,
			purchase_order_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			qty_ordered INTEGER NOT NULL,
			qty_received INTEGER NOT NULL DEFAULT 0,
			buying_cost_cents INTEGER NOT NULL,
			selling_price_cents INTEGER NOT NULL DEFAULT 0,
			update_pricing INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS stock_levels (
			product_id TEXT PRIMARY KEY,
			quantity INTEGER NOT NULL DEFAULT 0,
			min_qty INTEGER NOT NULL DEFAULT 0,
			max_qty INTEGER NOT NULL DEFAULT 0,
			reorder_qty INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS unit_prices (
			id TEXT PRIMARY KEY,
			product_id TEXT NOT NULL,
			label TEXT NOT NULL,
			multiplier INTEGER NOT NULL DEFAULT 1,
			buying_cost_cents INTEGER NOT NULL DEFAULT 0,
			selling_price_cents INTEGER NOT NULL,
			is_default INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME
		);`,
	}
	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create tables: %v", err)
		}
	}

	captured := &capturingOutbox{}
	svc, err := NewService(
		testTxRunner{db: db},
		NewRepository(db),
		stock.NewRepository(db),
		pricing.NewRepository(db),
		captured,
	)
	if err != nil {
		t.Fatalf("purchasing service: %v", err)
	}
	return &fixture{db: db, svc: svc, outbox: captured, actor: uuid.New()}
}

func (f *fixture) createOrder(t *testing.T, items []ItemInput) *models.PurchaseOrder {
	t.Helper()
	order, err := f.svc.Create(context.Background(), CreateInput{
		SupplierID: uuid.New(),
		CreatedBy:  f.actor,
		Items:      items,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestCreateComputesTotalAndStartsPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	order := f.createOrder(t, []ItemInput{
		{ProductID: uuid.New(), QtyOrdered: 10, BuyingCostCents: 250},
		{ProductID: uuid.New(), QtyOrdered: 4, BuyingCostCents: 1000},
	})

	if order.Status != enums.PurchaseOrderStatusPending {
		t.Fatalf("expected pending status, got %q", order.Status)
	}
	if order.TotalCents != 6500 {
		t.Fatalf("expected total 6500, got %d", order.TotalCents)
	}
	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventPurchaseOrderCreated {
		t.Fatalf("expected purchase_order_created event, got %+v", f.outbox.events)
	}
}

func TestDecideApprovesPendingOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	order := f.createOrder(t, []ItemInput{
		{ProductID: uuid.New(), QtyOrdered: 5, BuyingCostCents: 100},
	})

	decided, err := f.svc.Decide(context.Background(), order.ID, f.actor, true)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != enums.PurchaseOrderStatusApproved {
		t.Fatalf("expected approved, got %q", decided.Status)
	}
}

func TestDecideRejectsOnlyFromPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	order := f.createOrder(t, []ItemInput{
		{ProductID: uuid.New(), QtyOrdered: 5, BuyingCostCents: 100},
	})

	if _, err := f.svc.Decide(context.Background(), order.ID, f.actor, false); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// a second decision on a terminal order must fail
	_, err := f.svc.Decide(context.Background(), order.ID, f.actor, true)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestReceiveRequiresApprovedOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	order := f.createOrder(t, []ItemInput{
		{ProductID: uuid.New(), QtyOrdered: 5, BuyingCostCents: 100},
	})

	_, err := f.svc.Receive(context.Background(), order.ID, ReceiveInput{
		ActorID: f.actor,
		Lines:   []ReceiveLineInput{{ItemID: order.Items[0].ID, QtyReceived: 5}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for pending order, got %v", err)
	}
}

func TestReceiveCreditsStockAndCompletes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product := uuid.New()
	if err := f.db.Create(&models.StockLevel{ProductID: product, Quantity: 2}).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	order := f.createOrder(t, []ItemInput{
		{ProductID: product, QtyOrdered: 10, BuyingCostCents: 300},
	})
	if _, err := f.svc.Decide(ctx, order.ID, f.actor, true); err != nil {
		t.Fatalf("approve: %v", err)
	}

	received, err := f.svc.Receive(ctx, order.ID, ReceiveInput{
		ActorID: f.actor,
		Lines:   []ReceiveLineInput{{ItemID: order.Items[0].ID, QtyReceived: 10}},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if received.Status != enums.PurchaseOrderStatusCompleted || received.ReceivedAt == nil {
		t.Fatalf("expected completed order with received_at, got %+v", received)
	}

	var level models.StockLevel
	if err := f.db.First(&level, "product_id = ?", product).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if level.Quantity != 12 {
		t.Fatalf("expected stock 12, got %d", level.Quantity)
	}
}

func TestReceivePartialDeliveryStillCompletes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product := uuid.New()

	order := f.createOrder(t, []ItemInput{
		{ProductID: product, QtyOrdered: 10, BuyingCostCents: 300},
	})
	if _, err := f.svc.Decide(ctx, order.ID, f.actor, true); err != nil {
		t.Fatalf("approve: %v", err)
	}

	received, err := f.svc.Receive(ctx, order.ID, ReceiveInput{
		ActorID: f.actor,
		Lines:   []ReceiveLineInput{{ItemID: order.Items[0].ID, QtyReceived: 6}},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if received.Status != enums.PurchaseOrderStatusCompleted {
		t.Fatalf("partial delivery should still complete, got %q", received.Status)
	}
	if received.Items[0].QtyReceived != 6 {
		t.Fatalf("expected qty_received 6, got %d", received.Items[0].QtyReceived)
	}

	var level models.StockLevel
	if err := f.db.First(&level, "product_id = ?", product).Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if level.Quantity != 6 {
		t.Fatalf("expected stock 6, got %d", level.Quantity)
	}
}

func TestReceiveRejectsOverDelivery(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	order := f.createOrder(t, []ItemInput{
		{ProductID: uuid.New(), QtyOrdered: 3, BuyingCostCents: 100},
	})
	if _, err := f.svc.Decide(ctx, order.ID, f.actor, true); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := f.svc.Receive(ctx, order.ID, ReceiveInput{
		ActorID: f.actor,
		Lines:   []ReceiveLineInput{{ItemID: order.Items[0].ID, QtyReceived: 4}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReceiveRefreshesDefaultTierPricing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product := uuid.New()
	if err := f.db.Create(&models.UnitPrice{
		ID:                uuid.New(),
		ProductID:         product,
		Label:             enums.TierLabelSingle,
		Multiplier:        1,
		BuyingCostCents:   200,
		SellingPriceCents: 350,
		IsDefault:         true,
	}).Error; err != nil {
		t.Fatalf("seed tier: %v", err)
	}

	order := f.createOrder(t, []ItemInput{
		{ProductID: product, QtyOrdered: 10, BuyingCostCents: 260, SellingPriceCents: 420, UpdatePricing: true},
	})
	if _, err := f.svc.Decide(ctx, order.ID, f.actor, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.svc.Receive(ctx, order.ID, ReceiveInput{
		ActorID: f.actor,
		Lines:   []ReceiveLineInput{{ItemID: order.Items[0].ID, QtyReceived: 10}},
	}); err != nil {
		t.Fatalf("receive: %v", err)
	}

	var tier models.UnitPrice
	if err := f.db.First(&tier, "product_id = ? AND is_default", product).Error; err != nil {
		t.Fatalf("load tier: %v", err)
	}
	if tier.BuyingCostCents != 260 || tier.SellingPriceCents != 420 {
		t.Fatalf("expected refreshed pricing, got %+v", tier)
	}
}

func TestReceivePricingRefreshRequiresExistingTiers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	product := uuid.New() // no tiers seeded

	order := f.createOrder(t, []ItemInput{
		{ProductID: product, QtyOrdered: 5, BuyingCostCents: 100, SellingPriceCents: 200, UpdatePricing: true},
	})
	if _, err := f.svc.Decide(ctx, order.ID, f.actor, true); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err := f.svc.Receive(ctx, order.ID, ReceiveInput{
		ActorID: f.actor,
		Lines:   []ReceiveLineInput{{ItemID: order.Items[0].ID, QtyReceived: 5}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unpriced product, got %v", err)
	}

	// the failed refresh rolls back the stock credit with it
	var levels int64
	if err := f.db.Model(&models.StockLevel{}).Where("product_id = ?", product).Count(&levels).Error; err != nil {
		t.Fatalf("count stock levels: %v", err)
	}
	if levels != 0 {
		t.Fatalf("expected stock credit rolled back, got %d rows", levels)
	}
}
