package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// SaleItem snapshots one cart line at the moment of checkout. The tier label,
// multiplier and unit price are copied from the resolved UnitPrice so that
// later pricing edits cannot rewrite historical receipts.
type SaleItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID         uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID      uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	UnitPriceID    *uuid.UUID      `gorm:"column:unit_price_id;type:uuid"`
	ProductName    string          `gorm:"column:product_name;not null"`
	TierLabel      enums.TierLabel `gorm:"column:tier_label;type:tier_label;not null"`
	Multiplier     int             `gorm:"column:multiplier;not null;default:1"`
	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPriceCents int             `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int             `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
