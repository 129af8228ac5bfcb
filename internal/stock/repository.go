package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// Repository manages persistence for stock levels.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	EnsureRow(ctx context.Context, productID uuid.UUID) error
	Get(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error)
	Debit(ctx context.Context, productID uuid.UUID, qty int) error
	Credit(ctx context.Context, productID uuid.UUID, qty int) error
	SetThresholds(ctx context.Context, productID uuid.UUID, minQty, maxQty, reorderQty int) error
	ListBelowMinimum(ctx context.Context) ([]models.StockLevel, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) EnsureRow(ctx context.Context, productID uuid.UUID) error {
	existing, err := r.Get(ctx, productID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.StockLevel{ProductID: productID}).Error
}

func (r *repository) Get(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error) {
	var level models.StockLevel
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

// Debit subtracts qty with a conditional update so two concurrent checkouts
// can never drive the quantity negative. A zero-row update means either the
// row is missing or the remaining quantity was insufficient.
func (r *repository) Debit(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit quantity must be positive")
	}
	result := r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("product_id = ? AND quantity >= ?", productID, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		level, err := r.Get(ctx, productID)
		if err != nil {
			return err
		}
		if level == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no stock record for product")
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": productID.String(),
				"requested":  qty,
				"available":  level.Quantity,
			})
	}
	return nil
}

// Credit adds qty to the on-hand quantity, creating the row when missing.
func (r *repository) Credit(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit quantity must be positive")
	}
	result := r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("product_id = ?", productID).
		Update("quantity", gorm.Expr("quantity + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.db.WithContext(ctx).Create(&models.StockLevel{
			ProductID: productID,
			Quantity:  qty,
		}).Error
	}
	return nil
}

func (r *repository) SetThresholds(ctx context.Context, productID uuid.UUID, minQty, maxQty, reorderQty int) error {
	result := r.db.WithContext(ctx).
		Model(&models.StockLevel{}).
		Where("product_id = ?", productID).
		Updates(map[string]any{
			"min_qty":     minQty,
			"max_qty":     maxQty,
			"reorder_qty": reorderQty,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no stock record for product")
	}
	return nil
}

func (r *repository) ListBelowMinimum(ctx context.Context) ([]models.StockLevel, error) {
	var levels []models.StockLevel
	if err := r.db.WithContext(ctx).
		Where("min_qty > 0 AND quantity < min_qty").
		Order("quantity ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}
