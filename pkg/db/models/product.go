package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Product represents a catalog item sellable at the till.
type Product struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU        string          `gorm:"column:sku;not null;uniqueIndex"`
	Name       string          `gorm:"column:name;not null"`
	Category   *string         `gorm:"column:category"`
	StockUnit  enums.StockUnit `gorm:"column:stock_unit;type:stock_unit;not null;default:'piece'"`
	IsActive   bool            `gorm:"column:is_active;not null;default:true"`
	UnitPrices []UnitPrice     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Stock      *StockLevel     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
