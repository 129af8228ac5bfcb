package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tillpoint/tillpoint-backend/internal/pricing"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
	"github.com/tillpoint/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
	"github.com/tillpoint/tillpoint-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// allowedTransitions holds the decision edges of the order lifecycle.
// Receiving is handled separately because it also moves stock.
var allowedTransitions = map[enums.PurchaseOrderStatus][]enums.PurchaseOrderStatus{
	enums.PurchaseOrderStatusPending: {
		enums.PurchaseOrderStatusApproved,
		enums.PurchaseOrderStatusRejected,
	},
	enums.PurchaseOrderStatusApproved: {
		enums.PurchaseOrderStatusCompleted,
	},
}

func transitionAllowed(from, to enums.PurchaseOrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ItemInput is one restock line of a new purchase order.
type ItemInput struct {
	ProductID         uuid.UUID `json:"product_id" validate:"required"`
	QtyOrdered        int       `json:"qty_ordered" validate:"required,gte=1"`
	BuyingCostCents   int       `json:"buying_cost_cents" validate:"gte=0"`
	SellingPriceCents int       `json:"selling_price_cents" validate:"gte=0"`
	UpdatePricing     bool      `json:"update_pricing"`
}

// CreateInput captures a new purchase order.
type CreateInput struct {
	SupplierID uuid.UUID   `json:"supplier_id" validate:"required"`
	CreatedBy  uuid.UUID   `json:"-"`
	Notes      *string     `json:"notes"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// ReceiveLineInput reports how much of one line actually arrived.
type ReceiveLineInput struct {
	ItemID      uuid.UUID `json:"item_id" validate:"required"`
	QtyReceived int       `json:"qty_received" validate:"gte=0"`
}

// ReceiveInput captures the goods-in confirmation for an approved order.
type ReceiveInput struct {
	ActorID uuid.UUID          `json:"-"`
	Lines   []ReceiveLineInput `json:"lines" validate:"required,min=1,dive"`
}

// Service drives the purchase order lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error)
	Decide(ctx context.Context, id uuid.UUID, actorID uuid.UUID, approve bool) (*models.PurchaseOrder, error)
	Receive(ctx context.Context, id uuid.UUID, input ReceiveInput) (*models.PurchaseOrder, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	List(ctx context.Context, params ListParams) ([]models.PurchaseOrder, string, error)
}

type service struct {
	tx          txRunner
	repo        Repository
	stockRepo   stock.Repository
	pricingRepo pricing.Repository
	outbox      outboxPublisher
}

// NewService wires the purchasing service.
func NewService(
	tx txRunner,
	repo Repository,
	stockRepo stock.Repository,
	pricingRepo pricing.Repository,
	publisher outboxPublisher,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("purchasing repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if pricingRepo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		stockRepo:   stockRepo,
		pricingRepo: pricingRepo,
		outbox:      publisher,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PurchaseOrder, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if input.CreatedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order contains no items")
	}

	items := make([]models.PurchaseOrderItem, len(input.Items))
	total := 0
	for i, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line product id required")
		}
		if line.QtyOrdered < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ordered quantity must be at least 1")
		}
		if line.BuyingCostCents < 0 || line.SellingPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line prices cannot be negative")
		}
		if line.UpdatePricing && line.SellingPriceCents == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricing update requires a selling price")
		}
		total += line.BuyingCostCents * line.QtyOrdered
		items[i] = models.PurchaseOrderItem{
			ProductID:         line.ProductID,
			QtyOrdered:        line.QtyOrdered,
			BuyingCostCents:   line.BuyingCostCents,
			SellingPriceCents: line.SellingPriceCents,
			UpdatePricing:     line.UpdatePricing,
		}
	}

	order := &models.PurchaseOrder{
		SupplierID: input.SupplierID,
		CreatedBy:  input.CreatedBy,
		Status:     enums.PurchaseOrderStatusPending,
		TotalCents: total,
		OrderedAt:  time.Now(),
		Notes:      input.Notes,
		Items:      items,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseOrderCreated,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.CreatedBy},
			Data:          newOrderEventPayload(order, ""),
			Version:       1,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Decide approves or rejects a pending order. The conditional status update
// makes the decision first-writer-wins under concurrency.
func (s *service) Decide(ctx context.Context, id uuid.UUID, actorID uuid.UUID, approve bool) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	target := enums.PurchaseOrderStatusApproved
	if !approve {
		target = enums.PurchaseOrderStatusRejected
	}

	var order *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		if !transitionAllowed(found.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "decision not allowed in current state").
				WithDetails(map[string]any{
					"current": string(found.Status),
					"target":  string(target),
				})
		}

		moved, err := repo.UpdateStatusIf(ctx, id, enums.PurchaseOrderStatusPending, target, nil)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase order already decided")
		}

		found.Status = target
		order = found
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseOrderDecided,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actorID},
			Data:          newOrderEventPayload(order, string(target)),
			Version:       1,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Receive books the delivered quantities: stock is credited, revised pricing
// flows into the default tier where requested, and the order completes. A
// partial delivery still completes the order; the shortfall stays visible on
// qty_received.
func (s *service) Receive(ctx context.Context, id uuid.UUID, input ReceiveInput) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receive confirmation contains no lines")
	}

	received := make(map[uuid.UUID]int, len(input.Lines))
	for _, line := range input.Lines {
		if line.ItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item id required")
		}
		if line.QtyReceived < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "received quantity cannot be negative")
		}
		if _, dup := received[line.ItemID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate line item in confirmation")
		}
		received[line.ItemID] = line.QtyReceived
	}

	var order *models.PurchaseOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stockRepo := s.stockRepo.WithTx(tx)
		pricingRepo := s.pricingRepo.WithTx(tx)

		found, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
		}
		if found.Status != enums.PurchaseOrderStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only approved orders can be received").
				WithDetails(map[string]any{"current": string(found.Status)})
		}

		itemsByID := make(map[uuid.UUID]*models.PurchaseOrderItem, len(found.Items))
		for i := range found.Items {
			itemsByID[found.Items[i].ID] = &found.Items[i]
		}
		for itemID := range received {
			if _, ok := itemsByID[itemID]; !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "confirmation references unknown line item")
			}
		}

		for itemID, qty := range received {
			item := itemsByID[itemID]
			if qty > item.QtyOrdered {
				return pkgerrors.New(pkgerrors.CodeValidation, "received quantity exceeds ordered quantity").
					WithDetails(map[string]any{
						"item_id":      itemID.String(),
						"qty_ordered":  item.QtyOrdered,
						"qty_received": qty,
					})
			}
			if qty == 0 {
				continue
			}
			if err := stockRepo.Credit(ctx, item.ProductID, qty); err != nil {
				return err
			}
			if err := repo.SetItemReceived(ctx, itemID, qty); err != nil {
				return err
			}
			item.QtyReceived = qty
			if item.UpdatePricing && item.SellingPriceCents > 0 {
				if err := pricingRepo.ReviseDefaultPricing(ctx, item.ProductID, item.BuyingCostCents, item.SellingPriceCents); err != nil {
					return err
				}
			}
		}

		now := time.Now()
		moved, err := repo.UpdateStatusIf(ctx, id, enums.PurchaseOrderStatusApproved, enums.PurchaseOrderStatusCompleted, &now)
		if err != nil {
			return err
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase order already received")
		}

		found.Status = enums.PurchaseOrderStatusCompleted
		found.ReceivedAt = &now
		order = found
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseOrderReceived,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorID},
			Data:          newOrderEventPayload(order, "received"),
			Version:       1,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.PurchaseOrder, string, error) {
	return s.repo.List(ctx, params)
}
