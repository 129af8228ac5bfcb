package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// PurchaseOrder is a supplier order moving through
// pending -> approved -> completed (or pending -> rejected).
type PurchaseOrder struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID  uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null;index"`
	CreatedBy   uuid.UUID                 `gorm:"column:created_by;type:uuid;not null"`
	Status      enums.PurchaseOrderStatus `gorm:"column:status;type:purchase_order_status;not null;default:'pending'"`
	TotalCents  int                       `gorm:"column:total_cents;not null"`
	OrderedAt   time.Time                 `gorm:"column:ordered_at;not null"`
	ReceivedAt  *time.Time                `gorm:"column:received_at"`
	Notes       *string                   `gorm:"column:notes"`
	Items       []PurchaseOrderItem       `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
