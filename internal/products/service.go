package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/pricing"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateProductInput captures a new catalog entry plus its initial tier set.
type CreateProductInput struct {
	SKU       string              `json:"sku" validate:"required"`
	Name      string              `json:"name" validate:"required"`
	Category  *string             `json:"category"`
	StockUnit enums.StockUnit     `json:"stock_unit"`
	Tiers     []pricing.TierInput `json:"tiers" validate:"required,min=1,dive"`
}

// UpdateProductInput carries mutable catalog fields. Category uses Nullable
// so an explicit null clears it while an absent field leaves it alone.
type UpdateProductInput struct {
	Name     *string                `json:"name"`
	Category types.Nullable[string] `json:"category"`
}

// Service exposes catalog operations.
type Service interface {
	Create(ctx context.Context, input CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params ListParams) ([]models.Product, string, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	tx          txRunner
	repo        Repository
	pricingRepo pricing.Repository
	stockRepo   stock.Repository
}

// NewService wires the catalog service.
func NewService(tx txRunner, repo Repository, pricingRepo pricing.Repository, stockRepo stock.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if pricingRepo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{tx: tx, repo: repo, pricingRepo: pricingRepo, stockRepo: stockRepo}, nil
}

// Create registers the product, its tier set and an empty stock row in one
// transaction so the catalog never holds a product without either.
func (s *service) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	unit := input.StockUnit
	if unit == "" {
		unit = enums.StockUnitPiece
	}
	if !unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stock unit %q", unit))
	}
	tiers, err := validateTiers(input.Tiers)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindBySKU(ctx, input.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %q already exists", input.SKU))
	}

	product := &models.Product{
		SKU:       input.SKU,
		Name:      input.Name,
		Category:  input.Category,
		StockUnit: unit,
		IsActive:  true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return err
		}
		if err := s.pricingRepo.WithTx(tx).ReplaceTiers(ctx, product.ID, tiers); err != nil {
			return err
		}
		return s.stockRepo.WithTx(tx).EnsureRow(ctx, product.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, product.ID)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = *input.Name
	}
	if input.Category.Valid {
		product.Category = input.Category.Value
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Product, string, error) {
	return s.repo.List(ctx, params)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return err
	}
	return nil
}

func validateTiers(inputs []pricing.TierInput) ([]models.UnitPrice, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one price tier required")
	}
	defaults := 0
	seen := make(map[enums.TierLabel]struct{}, len(inputs))
	rows := make([]models.UnitPrice, len(inputs))
	for i, tier := range inputs {
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
	return rows, nil
}
