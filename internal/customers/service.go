package customers

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

// CreateCustomerInput registers a new shopper.
type CreateCustomerInput struct {
	Name  string  `json:"name" validate:"required"`
	Phone *string `json:"phone"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// UpdateCustomerInput carries mutable customer fields. Phone and email use
// Nullable so an explicit null clears them.
type UpdateCustomerInput struct {
	Name  *string                `json:"name"`
	Phone types.Nullable[string] `json:"phone"`
	Email types.Nullable[string] `json:"email"`
}

// Service exposes customer registry operations.
type Service interface {
	Create(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, page pagination.Params) ([]models.Customer, string, error)
}

type service struct {
	repo Repository
}

// NewService wires the customer service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if input.Phone != nil && *input.Phone != "" {
		existing, err := s.repo.FindByPhone(ctx, *input.Phone)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "phone number already registered")
		}
	}

	customer := &models.Customer{
		Name:     input.Name,
		Phone:    input.Phone,
		Email:    input.Email,
		IsActive: true,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		customer.Name = *input.Name
	}
	if input.Phone.Valid {
		customer.Phone = input.Phone.Value
	}
	if input.Email.Valid {
		if input.Email.Value != nil && !strings.Contains(*input.Email.Value, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email address")
		}
		customer.Email = input.Email.Value
	}
	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return customer, nil
}

func (s *service) List(ctx context.Context, page pagination.Params) ([]models.Customer, string, error) {
	return s.repo.List(ctx, page)
}
