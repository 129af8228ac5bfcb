package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// LoyaltyTransaction records one immutable earn/redeem/adjust event.
// Delta is signed: positive for earn, negative for redeem.
type LoyaltyTransaction struct {
	ID         uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID                    `gorm:"column:customer_id;type:uuid;not null;index"`
	SaleID     *uuid.UUID                   `gorm:"column:sale_id;type:uuid"`
	Type       enums.LoyaltyTransactionType `gorm:"column:type;type:loyalty_transaction_type;not null"`
	Delta      int                          `gorm:"column:delta;not null"`
	Note       *string                      `gorm:"column:note"`
	CreatedAt  time.Time                    `gorm:"column:created_at;autoCreateTime"`
}
