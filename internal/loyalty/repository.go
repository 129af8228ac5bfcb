package loyalty

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// Repository manages persistence for the loyalty ledger and its cached
// balance projection.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Append(ctx context.Context, txn *models.LoyaltyTransaction) error
	ApplyDelta(ctx context.Context, customerID uuid.UUID, delta int) error
	GetAccount(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error)
	SetBalance(ctx context.Context, customerID uuid.UUID, balance int) error
	SumDeltas(ctx context.Context, customerID uuid.UUID) (int, error)
	ListTransactions(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error)
	ListActiveCustomerIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a loyalty repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Append(ctx context.Context, txn *models.LoyaltyTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// ApplyDelta moves the cached balance by delta. Negative deltas are guarded
// by a conditional update so the cache can never go below zero even under
// concurrent redemptions.
func (r *repository) ApplyDelta(ctx context.Context, customerID uuid.UUID, delta int) error {
	query := r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("customer_id = ?", customerID)
	if delta < 0 {
		query = query.Where("balance >= ?", -delta)
	}
	result := query.Update("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	account, err := r.GetAccount(ctx, customerID)
	if err != nil {
		return err
	}
	if account == nil {
		if delta < 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient loyalty points").
				WithDetails(map[string]any{
					"customer_id": customerID.String(),
					"requested":   -delta,
					"available":   0,
				})
		}
		return r.db.WithContext(ctx).Create(&models.LoyaltyAccount{
			CustomerID: customerID,
			Balance:    delta,
		}).Error
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient loyalty points").
		WithDetails(map[string]any{
			"customer_id": customerID.String(),
			"requested":   -delta,
			"available":   account.Balance,
		})
}

func (r *repository) GetAccount(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) SetBalance(ctx context.Context, customerID uuid.UUID, balance int) error {
	result := r.db.WithContext(ctx).
		Model(&models.LoyaltyAccount{}).
		Where("customer_id = ?", customerID).
		Update("balance", balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.db.WithContext(ctx).Create(&models.LoyaltyAccount{
			CustomerID: customerID,
			Balance:    balance,
		}).Error
	}
	return nil
}

func (r *repository) SumDeltas(ctx context.Context, customerID uuid.UUID) (int, error) {
	var sum *int
	err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Where("customer_id = ?", customerID).
		Select("SUM(delta)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *repository) ListTransactions(ctx context.Context, customerID uuid.UUID, limit int) ([]models.LoyaltyTransaction, error) {
	var txns []models.LoyaltyTransaction
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListActiveCustomerIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.LoyaltyTransaction{}).
		Distinct("customer_id").
		Limit(limit).
		Pluck("customer_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
