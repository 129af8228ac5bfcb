package models

import (
	"time"

	"github.com/google/uuid"
)

// StockLevel tracks the on-hand quantity per product. Quantity never goes
// below zero at any committed state; min/max/reorder are advisory thresholds.
type StockLevel struct {
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Quantity   int       `gorm:"column:quantity;not null;default:0"`
	MinQty     int       `gorm:"column:min_qty;not null;default:0"`
	MaxQty     int       `gorm:"column:max_qty;not null;default:0"`
	ReorderQty int       `gorm:"column:reorder_qty;not null;default:0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
