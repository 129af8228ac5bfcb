package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TierInput describes one tier of the replacement set.
type TierInput struct {
	Label             enums.TierLabel `json:"label" validate:"required"`
	Multiplier        int             `json:"multiplier" validate:"required,gte=1"`
	BuyingCostCents   int             `json:"buying_cost_cents" validate:"gte=0"`
	SellingPriceCents int             `json:"selling_price_cents" validate:"required,gte=0"`
	IsDefault         bool            `json:"is_default"`
}

// Service exposes the unit price registry operations.
type Service interface {
	SetTiers(ctx context.Context, productID uuid.UUID, tiers []TierInput) ([]models.UnitPrice, error)
	ListTiers(ctx context.Context, productID uuid.UUID) ([]models.UnitPrice, error)
	ResolveTier(ctx context.Context, productID uuid.UUID, label enums.TierLabel) (*models.UnitPrice, error)
	GetDefault(ctx context.Context, productID uuid.UUID) (*models.UnitPrice, error)
}

type service struct {
	tx   txRunner
	repo Repository
	logg *logger.Logger
}

// NewService wires a pricing service with the provided dependencies.
func NewService(tx txRunner, repo Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &service{tx: tx, repo: repo, logg: logg}, nil
}

// SetTiers replaces the product's tier set wholesale. The set must carry
// exactly one default tier and no repeated labels; anything else is rejected
// before the write so a half-updated set can never land.
func (s *service) SetTiers(ctx context.Context, productID uuid.UUID, tiers []TierInput) ([]models.UnitPrice, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if len(tiers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one price tier required")
	}

	defaults := 0
	seen := make(map[enums.TierLabel]struct{}, len(tiers))
	rows := make([]models.UnitPrice, len(tiers))
	for i, tier := range tiers {
		if !tier.Label.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tier label %q", tier.Label))
		}
		if _, dup := seen[tier.Label]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate tier label %q", tier.Label))
		}
		seen[tier.Label] = struct{}{}
		if tier.Multiplier < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier multiplier must be at least 1")
		}
		if tier.SellingPriceCents < 0 || tier.BuyingCostCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "tier prices cannot be negative")
		}
		if tier.IsDefault {
			defaults++
		}
		rows[i] = models.UnitPrice{
			Label:             tier.Label,
			Multiplier:        tier.Multiplier,
			BuyingCostCents:   tier.BuyingCostCents,
			SellingPriceCents: tier.SellingPriceCents,
			IsDefault:         tier.IsDefault,
		}
	}
	if defaults != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one tier must be marked default")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceTiers(ctx, productID, rows)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}

func (s *service) ListTiers(ctx context.Context, productID uuid.UUID) ([]models.UnitPrice, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return s.repo.ListByProduct(ctx, productID)
}

// ResolveTier returns the tier for the requested label, falling back to the
// default tier when no label is provided.
func (s *service) ResolveTier(ctx context.Context, productID uuid.UUID, label enums.TierLabel) (*models.UnitPrice, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if label == "" {
		return s.GetDefault(ctx, productID)
	}
	if !label.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tier label %q", label))
	}
	tier, err := s.repo.FindByLabel(ctx, productID, label)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no %q tier for product", label))
	}
	return tier, nil
}

// GetDefault returns the product's default tier. A priced product with no
// default tier is a broken invariant, not a missing resource.
func (s *service) GetDefault(ctx context.Context, productID uuid.UUID) (*models.UnitPrice, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	tier, err := s.repo.FindDefault(ctx, productID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInvariantViolation && s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"product_id": productID.String(),
			})
			s.logg.Error(logCtx, "default tier corrupted", err)
		}
		return nil, err
	}
	if tier != nil {
		return tier, nil
	}
	tiers, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product has no price tiers")
	}
	return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation, "product has tiers but no default tier")
}
