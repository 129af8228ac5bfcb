package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/loyalty"
	"github.com/tillpoint/tillpoint-backend/internal/pricing"
	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
	"github.com/tillpoint/tillpoint-backend/pkg/outbox"
	"github.com/tillpoint/tillpoint-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LineInput is one cart line of a checkout request.
type LineInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	TierLabel enums.TierLabel `json:"tier_label"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
}

// CreateSaleInput carries everything the coordinator needs for one checkout.
type CreateSaleInput struct {
	CustomerID    *uuid.UUID          `json:"customer_id"`
	CashierID     uuid.UUID           `json:"-"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	RedeemPoints  int                 `json:"redeem_points" validate:"gte=0"`
	Items         []LineInput         `json:"items" validate:"required,min=1,dive"`
}

// Service coordinates the checkout transaction.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	List(ctx context.Context, customerID *uuid.UUID, page pagination.Params) ([]models.Sale, string, error)
}

type service struct {
	tx          txRunner
	repo        Repository
	pricingRepo pricing.Repository
	stockRepo   stock.Repository
	loyaltySvc  loyalty.Service
	productRepo products.Repository
	outbox      outboxPublisher
	metrics     *metrics.SaleMetrics
}

// NewService builds the sale coordinator.
func NewService(
	tx txRunner,
	repo Repository,
	pricingRepo pricing.Repository,
	stockRepo stock.Repository,
	loyaltySvc loyalty.Service,
	productRepo products.Repository,
	publisher outboxPublisher,
	saleMetrics *metrics.SaleMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if pricingRepo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if loyaltySvc == nil {
		return nil, fmt.Errorf("loyalty service required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		pricingRepo: pricingRepo,
		stockRepo:   stockRepo,
		loyaltySvc:  loyaltySvc,
		productRepo: productRepo,
		outbox:      publisher,
		metrics:     saleMetrics,
	}, nil
}

// CreateSale prices the cart, debits stock, settles loyalty moves and writes
// the immutable sale record, all inside one transaction. Any failed step
// rolls the whole checkout back.
func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	started := time.Now()
	sale, err := s.createSale(ctx, input)
	if err != nil {
		s.metrics.IncFailure(failureReason(err))
		return nil, err
	}
	s.metrics.ObserveDuration(string(sale.PaymentMethod), time.Since(started))
	s.metrics.IncSuccess(string(sale.PaymentMethod))
	return sale, nil
}

func (s *service) createSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	if input.CashierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cashier id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale contains no items")
	}
	if input.RedeemPoints < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redeem points cannot be negative")
	}
	if input.RedeemPoints > 0 && input.CustomerID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "redeeming points requires a customer")
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCash
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", method))
	}

	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		pricingRepo := s.pricingRepo.WithTx(tx)
		stockRepo := s.stockRepo.WithTx(tx)
		salesRepo := s.repo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		items := make([]models.SaleItem, len(input.Items))
		total := 0
		for i, line := range input.Items {
			if line.Quantity < 1 {
				return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1")
			}
			product, err := productRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", line.ProductID))
			}
			if !product.IsActive {
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("product %s is inactive", product.SKU))
			}

			tier, err := resolveTier(ctx, pricingRepo, line.ProductID, line.TierLabel)
			if err != nil {
				return err
			}

			units := tier.Multiplier * line.Quantity
			if err := stockRepo.Debit(ctx, line.ProductID, units); err != nil {
				return err
			}

			lineTotal := tier.SellingPriceCents * line.Quantity
			total += lineTotal
			tierID := tier.ID
			items[i] = models.SaleItem{
				ProductID:      line.ProductID,
				UnitPriceID:    &tierID,
				ProductName:    product.Name,
				TierLabel:      tier.Label,
				Multiplier:     tier.Multiplier,
				Quantity:       line.Quantity,
				UnitPriceCents: tier.SellingPriceCents,
				LineTotalCents: lineTotal,
			}
		}

		discount := 0
		if input.RedeemPoints > 0 {
			discount = s.loyaltySvc.RedeemValueCents(input.RedeemPoints)
			if discount > total {
				return pkgerrors.New(pkgerrors.CodeValidation, "redeemed points exceed sale total").
					WithDetails(map[string]any{
						"total_cents":    total,
						"discount_cents": discount,
					})
			}
		}

		// Points accrue on what the customer actually pays, after the
		// redemption discount is taken off.
		pointsEarned := 0
		if input.CustomerID != nil {
			pointsEarned = s.loyaltySvc.PointsForTotal(total - discount)
		}

		record := &models.Sale{
			CustomerID:          input.CustomerID,
			CashierID:           input.CashierID,
			TotalCents:          total,
			PointsRedeemed:      input.RedeemPoints,
			PointsDiscountCents: discount,
			PayableCents:        total - discount,
			PointsEarned:        pointsEarned,
			PaymentMethod:       method,
			PaymentStatus:       enums.PaymentStatusPaid,
			Items:               items,
		}
		if err := salesRepo.Create(ctx, record); err != nil {
			return err
		}

		if input.RedeemPoints > 0 {
			if err := s.loyaltySvc.Redeem(ctx, tx, *input.CustomerID, &record.ID, input.RedeemPoints); err != nil {
				return err
			}
		}
		if pointsEarned > 0 {
			if err := s.loyaltySvc.Earn(ctx, tx, *input.CustomerID, &record.ID, pointsEarned); err != nil {
				return err
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleCreated,
			AggregateType: enums.AggregateSale,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{UserID: input.CashierID, Role: "cashier"},
			Data:          newSaleEventPayload(record),
			Version:       1,
		}); err != nil {
			return err
		}

		if err := s.queueLowStockNotices(ctx, tx, stockRepo, input.Items); err != nil {
			return err
		}

		sale = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// queueLowStockNotices emits one stock_below_minimum event per product the
// sale pushed under its minimum threshold. Deduped against pending notices so
// busy products do not flood the dispatch worker.
func (s *service) queueLowStockNotices(ctx context.Context, tx *gorm.DB, stockRepo stock.Repository, lines []LineInput) error {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line.ProductID]; dup {
			continue
		}
		seen[line.ProductID] = struct{}{}

		level, err := stockRepo.Get(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if level == nil || level.MinQty <= 0 || level.Quantity >= level.MinQty {
			continue
		}
		err = s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockBelowMinimum,
			AggregateType: enums.AggregateProduct,
			AggregateID:   line.ProductID,
			Data: StockNoticePayload{
				ProductID: line.ProductID,
				Quantity:  level.Quantity,
				MinQty:    level.MinQty,
			},
			Version: 1,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func resolveTier(ctx context.Context, repo pricing.Repository, productID uuid.UUID, label enums.TierLabel) (*models.UnitPrice, error) {
	if label != "" {
		if !label.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid tier label %q", label))
		}
		tier, err := repo.FindByLabel(ctx, productID, label)
		if err != nil {
			return nil, err
		}
		if tier == nil {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no %q tier for product %s", label, productID))
		}
		return tier, nil
	}
	tier, err := repo.FindDefault(ctx, productID)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s has no default tier", productID))
	}
	return tier, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id required")
	}
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return sale, nil
}

func (s *service) List(ctx context.Context, customerID *uuid.UUID, page pagination.Params) ([]models.Sale, string, error) {
	return s.repo.List(ctx, ListParams{CustomerID: customerID, Pagination: page})
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeInsufficientStock:
			return "insufficient_stock"
		case pkgerrors.CodeInsufficientPoints:
			return "insufficient_points"
		case pkgerrors.CodeValidation:
			return "validation"
		case pkgerrors.CodeNotFound:
			return "not_found"
		}
	}
	return "internal"
}
