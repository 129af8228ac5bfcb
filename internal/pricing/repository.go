package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// Repository manages persistence for unit price tiers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ReplaceTiers(ctx context.Context, productID uuid.UUID, tiers []models.UnitPrice) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.UnitPrice, error)
	FindByLabel(ctx context.Context, productID uuid.UUID, label enums.TierLabel) (*models.UnitPrice, error)
	FindDefault(ctx context.Context, productID uuid.UUID) (*models.UnitPrice, error)
	ReviseDefaultPricing(ctx context.Context, productID uuid.UUID, buyingCostCents, sellingPriceCents int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pricing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ReplaceTiers swaps the whole tier set for a product in one shot. Callers
// run it inside a transaction so the product is never observed tierless.
func (r *repository) ReplaceTiers(ctx context.Context, productID uuid.UUID, tiers []models.UnitPrice) error {
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.UnitPrice{}).Error; err != nil {
		return err
	}
	for i := range tiers {
		tiers[i].ProductID = productID
		if tiers[i].ID == uuid.Nil {
			tiers[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&tiers).Error
}

func (r *repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.UnitPrice, error) {
	var tiers []models.UnitPrice
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("multiplier ASC").
		Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repository) FindByLabel(ctx context.Context, productID uuid.UUID, label enums.TierLabel) (*models.UnitPrice, error) {
	var tier models.UnitPrice
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND label = ?", productID, label).
		First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

// FindDefault returns the default tier, nil when the product has none, and an
// invariant error when more than one row claims the default flag.
func (r *repository) FindDefault(ctx context.Context, productID uuid.UUID) (*models.UnitPrice, error) {
	var tiers []models.UnitPrice
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_default", productID).
		Limit(2).
		Find(&tiers).Error; err != nil {
		return nil, err
	}
	switch len(tiers) {
	case 0:
		return nil, nil
	case 1:
		return &tiers[0], nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation, "product has multiple default tiers").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
}

// ReviseDefaultPricing rewrites the tier set with refreshed prices on the
// default tier. The whole set goes through ReplaceTiers so the one-default
// invariant is re-checked on every pricing write.
func (r *repository) ReviseDefaultPricing(ctx context.Context, productID uuid.UUID, buyingCostCents, sellingPriceCents int) error {
	tiers, err := r.ListByProduct(ctx, productID)
	if err != nil {
		return err
	}
	if len(tiers) == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product has no price tiers").
			WithDetails(map[string]any{"product_id": productID.String()})
	}
	defaults := 0
	for i := range tiers {
		if tiers[i].IsDefault {
			defaults++
			tiers[i].BuyingCostCents = buyingCostCents
			tiers[i].SellingPriceCents = sellingPriceCents
		}
	}
	if defaults != 1 {
		return pkgerrors.New(pkgerrors.CodeInvariantViolation, "product must carry exactly one default tier").
			WithDetails(map[string]any{
				"product_id":    productID.String(),
				"default_tiers": defaults,
			})
	}
	return r.ReplaceTiers(ctx, productID, tiers)
}
