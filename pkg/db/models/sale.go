package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/enums"
)

// Sale is an immutable checkout record. Items, totals and the stock debit
// are committed together; price changes after the sale never alter it.
type Sale struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID          *uuid.UUID          `gorm:"column:customer_id;type:uuid;index"`
	CashierID           uuid.UUID           `gorm:"column:cashier_id;type:uuid;not null"`
	TotalCents          int                 `gorm:"column:total_cents;not null"`
	PointsRedeemed      int                 `gorm:"column:points_redeemed;not null;default:0"`
	PointsDiscountCents int                 `gorm:"column:points_discount_cents;not null;default:0"`
	PayableCents        int                 `gorm:"column:payable_cents;not null"`
	PointsEarned        int                 `gorm:"column:points_earned;not null;default:0"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'cash'"`
	PaymentStatus       enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'paid'"`
	Items               []SaleItem          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
}
