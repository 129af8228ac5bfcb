package loyalty

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (t testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:loyalty_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// The models declare postgres column types, so the sqlite fixture
	// creates its tables by hand instead of auto-migrating.
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS loyalty_accounts (
			customer_id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS loyalty_transactions (
			id TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			sale_id TEXT,
			type TEXT NOT NULL,
			delta INTEGER NOT NULL,
			note TEXT,
			created_at DATETIME
		);`,
	}
	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create loyalty tables: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(testTxRunner{db: db}, NewRepository(db), config.LoyaltyConfig{
		EarnDivisorCents:   10000,
		RedeemValueCents:   100,
		ReconcileBatchSize: 200,
	}, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestPointsForTotalRoundsDown(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))

	cases := []struct {
		totalCents int
		want       int
	}{
		{0, 0},
		{9999, 0},
		{10000, 1},
		{19999, 1},
		{250000, 25},
		{-500, 0},
	}
	for _, tc := range cases {
		if got := svc.PointsForTotal(tc.totalCents); got != tc.want {
			t.Errorf("PointsForTotal(%d) = %d, want %d", tc.totalCents, got, tc.want)
		}
	}
}

func TestEarnAppendsLedgerAndUpdatesCache(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customer := uuid.New()
	saleID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Earn(ctx, tx, customer, &saleID, 12)
	})
	if err != nil {
		t.Fatalf("earn: %v", err)
	}

	balance, err := svc.Balance(ctx, customer)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 12 {
		t.Fatalf("expected balance 12, got %d", balance)
	}

	history, err := svc.History(ctx, customer, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Delta != 12 || history[0].SaleID == nil {
		t.Fatalf("unexpected ledger state: %+v", history)
	}
}

func TestRedeemGuardsAgainstOverdraw(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customer := uuid.New()

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Earn(ctx, tx, customer, nil, 5)
	}); err != nil {
		t.Fatalf("earn: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Redeem(ctx, tx, customer, nil, 8)
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientPoints {
		t.Fatalf("expected insufficient points, got %v", err)
	}

	// failed redemption must leave no ledger row behind
	history, err := svc.History(ctx, customer, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected only the earn transaction, got %d", len(history))
	}

	balance, err := svc.Balance(ctx, customer)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 5 {
		t.Fatalf("expected balance 5 after failed redeem, got %d", balance)
	}
}

func TestRedeemToExactlyZero(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customer := uuid.New()

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Earn(ctx, tx, customer, nil, 5)
	}); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Redeem(ctx, tx, customer, nil, 5)
	}); err != nil {
		t.Fatalf("redeem to zero should succeed: %v", err)
	}

	balance, err := svc.Balance(ctx, customer)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestBalanceOfUnknownCustomerIsZero(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))
	balance, err := svc.Balance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected zero balance, got %d", balance)
	}
}

func TestReconcileRepairsDriftedCache(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	customer := uuid.New()

	if err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Earn(ctx, tx, customer, nil, 10)
	}); err != nil {
		t.Fatalf("earn: %v", err)
	}

	// corrupt the cache behind the service's back
	if err := db.Model(&models.LoyaltyAccount{}).
		Where("customer_id = ?", customer).
		Update("balance", 99).Error; err != nil {
		t.Fatalf("corrupt cache: %v", err)
	}

	result, err := svc.Reconcile(ctx, customer)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !result.Repaired || result.CachedBalance != 99 || result.LedgerBalance != 10 {
		t.Fatalf("unexpected reconcile result: %+v", result)
	}

	balance, err := svc.Balance(ctx, customer)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 10 {
		t.Fatalf("expected repaired balance 10, got %d", balance)
	}
}

func TestReconcileAllSweepsActiveCustomers(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()

	for _, customer := range []uuid.UUID{first, second} {
		customer := customer
		if err := db.Transaction(func(tx *gorm.DB) error {
			return svc.Earn(ctx, tx, customer, nil, 3)
		}); err != nil {
			t.Fatalf("earn: %v", err)
		}
	}

	results, err := svc.ReconcileAll(ctx)
	if err != nil {
		t.Fatalf("reconcile all: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Repaired {
			t.Fatalf("expected clean caches, got repair for %s", result.CustomerID)
		}
	}
}
