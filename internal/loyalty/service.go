package loyalty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ReconcileResult reports one customer's cache-versus-ledger comparison.
type ReconcileResult struct {
	CustomerID    uuid.UUID `json:"customer_id"`
	CachedBalance int       `json:"cached_balance"`
	LedgerBalance int       `json:"ledger_balance"`
	Repaired      bool      `json:"repaired"`
}

// Service exposes the loyalty ledger operations.
type Service interface {
	// Earn and Redeem run inside the caller's transaction so loyalty moves
	// commit or roll back with the sale that caused them.
	Earn(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, saleID *uuid.UUID, points int) error
	Redeem(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, saleID *uuid.UUID, points int) error
	Adjust(ctx context.Context, customerID uuid.UUID, delta int, note string) error
	Balance(ctx context.Context, customerID uuid.UUID) (int, error)
	History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error)
	Reconcile(ctx context.Context, customerID uuid.UUID) (*ReconcileResult, error)
	ReconcileAll(ctx context.Context) ([]ReconcileResult, error)
	PointsForTotal(totalCents int) int
	RedeemValueCents(points int) int
}

type service struct {
	tx     txRunner
	repo   Repository
	cfg    config.LoyaltyConfig
	logg   *logger.Logger
	outbox outboxPublisher
}

// NewService wires a loyalty service with the provided dependencies. A nil
// publisher disables adjustment notifications.
func NewService(tx txRunner, repo Repository, cfg config.LoyaltyConfig, logg *logger.Logger, publisher outboxPublisher) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("loyalty repository required")
	}
	if cfg.EarnDivisorCents <= 0 {
		return nil, fmt.Errorf("earn divisor must be positive")
	}
	if cfg.RedeemValueCents <= 0 {
		return nil, fmt.Errorf("redeem value must be positive")
	}
	return &service{tx: tx, repo: repo, cfg: cfg, logg: logg, outbox: publisher}, nil
}

// PointsForTotal converts a sale total into earned points, rounding down.
func (s *service) PointsForTotal(totalCents int) int {
	if totalCents <= 0 {
		return 0
	}
	return totalCents / s.cfg.EarnDivisorCents
}

// RedeemValueCents converts points into their checkout discount value.
func (s *service) RedeemValueCents(points int) int {
	if points <= 0 {
		return 0
	}
	return points * s.cfg.RedeemValueCents
}

func (s *service) Earn(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, saleID *uuid.UUID, points int) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if points <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "earned points must be positive")
	}
	return s.move(ctx, tx, models.LoyaltyTransaction{
		CustomerID: customerID,
		SaleID:     saleID,
		Type:       enums.LoyaltyTransactionTypeEarn,
		Delta:      points,
	})
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, saleID *uuid.UUID, points int) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if points <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "redeemed points must be positive")
	}
	return s.move(ctx, tx, models.LoyaltyTransaction{
		CustomerID: customerID,
		SaleID:     saleID,
		Type:       enums.LoyaltyTransactionTypeRedeem,
		Delta:      -points,
	})
}

func (s *service) Adjust(ctx context.Context, customerID uuid.UUID, delta int, note string) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta cannot be zero")
	}
	txn := models.LoyaltyTransaction{
		CustomerID: customerID,
		Type:       enums.LoyaltyTransactionTypeAdjust,
		Delta:      delta,
	}
	if note != "" {
		txn.Note = &note
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.move(ctx, tx, txn); err != nil {
			return err
		}
		if s.outbox == nil {
			return nil
		}
		account, err := s.repo.WithTx(tx).GetAccount(ctx, customerID)
		if err != nil {
			return err
		}
		balance := 0
		if account != nil {
			balance = account.Balance
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLoyaltyBalanceAdjusted,
			AggregateType: enums.AggregateCustomer,
			AggregateID:   customerID,
			Data: AdjustmentEventPayload{
				CustomerID: customerID,
				Delta:      delta,
				Balance:    balance,
				Note:       note,
			},
			Version: 1,
		})
	})
}

// move applies the cache delta first so an insufficient balance aborts before
// the ledger append; both run on the same transaction handle.
func (s *service) move(ctx context.Context, tx *gorm.DB, txn models.LoyaltyTransaction) error {
	repo := s.repo.WithTx(tx)
	if err := repo.ApplyDelta(ctx, txn.CustomerID, txn.Delta); err != nil {
		return err
	}
	return repo.Append(ctx, &txn)
}

// Balance returns the cached balance. A customer with no loyalty activity
// simply has zero points.
func (s *service) Balance(ctx context.Context, customerID uuid.UUID) (int, error) {
	if customerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	account, err := s.repo.GetAccount(ctx, customerID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.Balance, nil
}

func (s *service) History(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListTransactions(ctx, customerID, limit)
}

// Reconcile recomputes the balance from the transaction ledger and repairs
// the cached projection when the two disagree.
func (s *service) Reconcile(ctx context.Context, customerID uuid.UUID) (*ReconcileResult, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	var result ReconcileResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledgerSum, err := repo.SumDeltas(ctx, customerID)
		if err != nil {
			return err
		}
		account, err := repo.GetAccount(ctx, customerID)
		if err != nil {
			return err
		}
		cached := 0
		if account != nil {
			cached = account.Balance
		}
		result = ReconcileResult{
			CustomerID:    customerID,
			CachedBalance: cached,
			LedgerBalance: ledgerSum,
		}
		if cached == ledgerSum {
			return nil
		}
		result.Repaired = true
		return repo.SetBalance(ctx, customerID, ledgerSum)
	})
	if err != nil {
		return nil, err
	}

	if result.Repaired && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"customer_id":    customerID.String(),
			"cached_balance": result.CachedBalance,
			"ledger_balance": result.LedgerBalance,
		})
		s.logg.Warn(logCtx, "loyalty balance drift repaired")
	}
	return &result, nil
}

// ReconcileAll sweeps every customer with loyalty activity. Per-customer
// failures are collected rather than aborting the sweep.
func (s *service) ReconcileAll(ctx context.Context) ([]ReconcileResult, error) {
	ids, err := s.repo.ListActiveCustomerIDs(ctx, s.cfg.ReconcileBatchSize)
	if err != nil {
		return nil, err
	}

	var results []ReconcileResult
	var errs error
	for _, id := range ids {
		result, rerr := s.Reconcile(ctx, id)
		if rerr != nil {
			errs = multierr.Append(errs, fmt.Errorf("reconcile customer %s: %w", id, rerr))
			continue
		}
		results = append(results, *result)
	}
	return results, errs
}
