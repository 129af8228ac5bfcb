package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reporting_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// The models declare postgres column types, so the sqlite fixture
	// creates its tables by hand instead of auto-migrating.
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			customer_id TEXT,
			cashier_id TEXT NOT NULL,
			total_cents INTEGER NOT NULL,
			points_redeemed INTEGER NOT NULL DEFAULT 0,
			points_discount_cents INTEGER NOT NULL DEFAULT 0,
			payable_cents INTEGER NOT NULL,
			points_earned INTEGER NOT NULL DEFAULT 0,
			payment_method TEXT NOT NULL DEFAULT 'cash',
			payment_status TEXT NOT NULL DEFAULT 'paid',
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			id TEXT PRIMARY KEY,
			sale_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			unit_price_id TEXT,
			product_name TEXT NOT NULL,
			tier_label TEXT NOT NULL,
			multiplier INTEGER NOT NULL DEFAULT 1,
			quantity INTEGER NOT NULL,
			unit_price_cents INTEGER NOT NULL,
			line_total_cents INTEGER NOT NULL,
			created_at DATETIME
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
	return db
}

func seedSale(t *testing.T, db *gorm.DB, totalCents, discountCents, buyingCostCents, qty int) {
	t.Helper()
	productID := uuid.New()
	tier := models.UnitPrice{
		ID:                uuid.New(),
		ProductID:         productID,
		Label:             enums.TierLabelSingle,
		Multiplier:        1,
		BuyingCostCents:   buyingCostCents,
		SellingPriceCents: totalCents / qty,
		IsDefault:         true,
	}
	if err := db.Create(&tier).Error; err != nil {
		t.Fatalf("seed tier: %v", err)
	}
	tierID := tier.ID
	sale := models.Sale{
		ID:                  uuid.New(),
		CashierID:           uuid.New(),
		TotalCents:          totalCents,
		PointsDiscountCents: discountCents,
		PayableCents:        totalCents - discountCents,
		PaymentMethod:       enums.PaymentMethodCash,
		PaymentStatus:       enums.PaymentStatusPaid,
		Items: []models.SaleItem{
			{
				ID:             uuid.New(),
				ProductID:      productID,
				UnitPriceID:    &tierID,
				ProductName:    "Item",
				TierLabel:      enums.TierLabelSingle,
				Multiplier:     1,
				Quantity:       qty,
				UnitPriceCents: totalCents / qty,
				LineTotalCents: totalCents,
			},
		},
	}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}
}

func TestSalesSummaryComputesMarginWithDecimals(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	// 2 sales: 100.00 with 10.00 discount, cost 40.00; 50.00 no discount, cost 20.00
	seedSale(t, db, 10000, 1000, 2000, 2)
	seedSale(t, db, 5000, 0, 2000, 1)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	summary, err := svc.SalesSummary(ctx, from, to)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.SaleCount != 2 {
		t.Fatalf("expected 2 sales, got %d", summary.SaleCount)
	}
	if got := summary.GrossRevenue.StringFixed(2); got != "150.00" {
		t.Fatalf("gross revenue = %s, want 150.00", got)
	}
	if got := summary.NetRevenue.StringFixed(2); got != "140.00" {
		t.Fatalf("net revenue = %s, want 140.00", got)
	}
	if got := summary.CostOfGoods.StringFixed(2); got != "60.00" {
		t.Fatalf("cost of goods = %s, want 60.00", got)
	}
	if got := summary.GrossMargin.StringFixed(2); got != "80.00" {
		t.Fatalf("gross margin = %s, want 80.00", got)
	}
}

func TestSalesSummaryRejectsInvertedPeriod(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newTestDB(t))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	now := time.Now()
	if _, err := svc.SalesSummary(context.Background(), now, now.Add(-time.Hour)); err == nil {
		t.Fatal("expected validation error for inverted period")
	}
}

func TestTopProductsOrdersByRevenue(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()

	seedSale(t, db, 30000, 0, 10000, 3)
	seedSale(t, db, 5000, 0, 2000, 1)

	products, err := svc.TopProducts(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 5)
	if err != nil {
		t.Fatalf("top products: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if got := products[0].Revenue.StringFixed(2); got != "300.00" {
		t.Fatalf("top product revenue = %s, want 300.00", got)
	}
	if products[0].UnitsSold != 3 {
		t.Fatalf("top product units = %d, want 3", products[0].UnitsSold)
	}
}
