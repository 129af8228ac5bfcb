package models

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseOrderItem is one restock line. QtyReceived stays at or below
// QtyOrdered; the buying/selling prices are the revised pricing proposed for
// this restock and feed the default tier refresh on receive.
type PurchaseOrderItem struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseOrderID   uuid.UUID `gorm:"column:purchase_order_id;type:uuid;not null;index"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	QtyOrdered        int       `gorm:"column:qty_ordered;not null"`
	QtyReceived       int       `gorm:"column:qty_received;not null;default:0"`
	BuyingCostCents   int       `gorm:"column:buying_cost_cents;not null"`
	SellingPriceCents int       `gorm:"column:selling_price_cents;not null;default:0"`
	UpdatePricing     bool      `gorm:"column:update_pricing;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
