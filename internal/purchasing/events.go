package purchasing

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
)

// OrderEventLine mirrors one restock line in purchase order event payloads.
type OrderEventLine struct {
	ItemID      uuid.UUID `json:"itemId"`
	ProductID   uuid.UUID `json:"productId"`
	QtyOrdered  int       `json:"qtyOrdered"`
	QtyReceived int       `json:"qtyReceived"`
}

// OrderEventPayload is the outbox payload for purchase order lifecycle events.
type OrderEventPayload struct {
	PurchaseOrderID uuid.UUID        `json:"purchaseOrderId"`
	SupplierID      uuid.UUID        `json:"supplierId"`
	Status          string           `json:"status"`
	Decision        string           `json:"decision,omitempty"`
	TotalCents      int              `json:"totalCents"`
	ReceivedAt      *time.Time       `json:"receivedAt,omitempty"`
	Lines           []OrderEventLine `json:"lines"`
}

func newOrderEventPayload(order *models.PurchaseOrder, decision string) OrderEventPayload {
	lines := make([]OrderEventLine, len(order.Items))
	for i, item := range order.Items {
		lines[i] = OrderEventLine{
			ItemID:      item.ID,
			ProductID:   item.ProductID,
			QtyOrdered:  item.QtyOrdered,
			QtyReceived: item.QtyReceived,
		}
	}
	return OrderEventPayload{
		PurchaseOrderID: order.ID,
		SupplierID:      order.SupplierID,
		Status:          string(order.Status),
		Decision:        decision,
		TotalCents:      order.TotalCents,
		ReceivedAt:      order.ReceivedAt,
		Lines:           lines,
	}
}
