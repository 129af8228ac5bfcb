package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// UnitPrice is one sellable tier of a product (single, dozen, case, ...).
// Exactly one tier per product carries is_default = true; the registry
// replaces tier sets wholesale to keep that invariant unbreakable.
type UnitPrice struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Label             enums.TierLabel `gorm:"column:label;type:tier_label;not null"`
	Multiplier        int             `gorm:"column:multiplier;not null;default:1"`
	BuyingCostCents   int             `gorm:"column:buying_cost_cents;not null;default:0"`
	SellingPriceCents int             `gorm:"column:selling_price_cents;not null"`
	IsDefault         bool            `gorm:"column:is_default;not null;default:false"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}
