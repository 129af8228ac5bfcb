package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a registered shopper eligible for loyalty accrual.
type Customer struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Phone     *string         `gorm:"column:phone;uniqueIndex"`
	Email     *string         `gorm:"column:email"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	Loyalty   *LoyaltyAccount `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
