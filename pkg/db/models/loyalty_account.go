package models

import (
	"time"

	"github.com/google/uuid"
)

// LoyaltyAccount caches the current point balance per customer. The
// transaction ledger is the source of truth; this row is a rebuildable
// projection kept in sync within the same transaction as every append.
type LoyaltyAccount struct {
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;primaryKey"`
	Balance    int       `gorm:"column:balance;not null;default:0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
