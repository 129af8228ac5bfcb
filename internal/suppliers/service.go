package suppliers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
	"github.com/tillpoint/tillpoint-backend/pkg/types"
)

// CreateSupplierInput registers a new restock source.
type CreateSupplierInput struct {
	Name          string  `json:"name" validate:"required"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email" validate:"omitempty,email"`
}

// UpdateSupplierInput carries mutable supplier fields. Contact fields use
// Nullable so an explicit null clears them.
type UpdateSupplierInput struct {
	Name          *string                `json:"name"`
	ContactPerson types.Nullable[string] `json:"contact_person"`
	Phone         types.Nullable[string] `json:"phone"`
	Email         types.Nullable[string] `json:"email"`
	IsActive      *bool                  `json:"is_active"`
}

// Service exposes supplier registry operations.
type Service interface {
	Create(ctx context.Context, input CreateSupplierInput) (*models.Supplier, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateSupplierInput) (*models.Supplier, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	List(ctx context.Context, page pagination.Params) ([]models.Supplier, string, error)
}

type service struct {
	repo Repository
}

// NewService wires the supplier service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("supplier repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateSupplierInput) (*models.Supplier, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	supplier := &models.Supplier{
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Phone:         input.Phone,
		Email:         input.Email,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateSupplierInput) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		supplier.Name = *input.Name
	}
	if input.ContactPerson.Valid {
		supplier.ContactPerson = input.ContactPerson.Value
	}
	if input.Phone.Valid {
		supplier.Phone = input.Phone.Value
	}
	if input.Email.Valid {
		if input.Email.Value != nil && !strings.Contains(*input.Email.Value, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
		}
		supplier.Email = input.Email.Value
	}
	if input.IsActive != nil {
		supplier.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return supplier, nil
}

func (s *service) List(ctx context.Context, page pagination.Params) ([]models.Supplier, string, error) {
	return s.repo.List(ctx, page)
}
