package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes stock ledger operations.
type Service interface {
	Get(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error)
	Adjust(ctx context.Context, productID uuid.UUID, delta int) (*models.StockLevel, error)
	SetThresholds(ctx context.Context, productID uuid.UUID, minQty, maxQty, reorderQty int) error
	ListBelowMinimum(ctx context.Context) ([]models.StockLevel, error)
}

type service struct {
	tx   txRunner
	repo Repository
}

// NewService wires a stock service with the provided dependencies.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.StockLevel, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	level, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no stock record for product")
	}
	return level, nil
}

// Adjust applies a signed manual correction. Negative deltas go through the
// same conditional debit as checkout, so corrections cannot overdraw either.
func (s *service) Adjust(ctx context.Context, productID uuid.UUID, delta int) (*models.StockLevel, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta cannot be zero")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if delta > 0 {
			return repo.Credit(ctx, productID, delta)
		}
		return repo.Debit(ctx, productID, -delta)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, productID)
}

func (s *service) SetThresholds(ctx context.Context, productID uuid.UUID, minQty, maxQty, reorderQty int) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if minQty < 0 || maxQty < 0 || reorderQty < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "thresholds cannot be negative")
	}
	if maxQty > 0 && minQty > maxQty {
		return pkgerrors.New(pkgerrors.CodeValidation, "min quantity cannot exceed max quantity")
	}
	return s.repo.SetThresholds(ctx, productID, minQty, maxQty, reorderQty)
}

func (s *service) ListBelowMinimum(ctx context.Context) ([]models.StockLevel, error) {
	return s.repo.ListBelowMinimum(ctx)
}
