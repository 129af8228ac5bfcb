package sales

import (
	"github.com/google/uuid"

	"github.com/tillpoint/tillpoint-backend/pkg/db/models"
)

// SaleEventLine mirrors one receipt line in the sale.created payload.
type SaleEventLine struct {
	ProductID      uuid.UUID `json:"productId"`
	ProductName    string    `json:"productName"`
	TierLabel      string    `json:"tierLabel"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unitPriceCents"`
	LineTotalCents int       `json:"lineTotalCents"`
}

// StockNoticePayload is the outbox payload for a low-stock advisory.
type StockNoticePayload struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	MinQty    int       `json:"minQty"`
}

// SaleEventPayload is the outbox payload consumed by the receipt worker.
type SaleEventPayload struct {
	SaleID              uuid.UUID       `json:"saleId"`
	CustomerID          *uuid.UUID      `json:"customerId,omitempty"`
	CashierID           uuid.UUID       `json:"cashierId"`
	TotalCents          int             `json:"totalCents"`
	PointsRedeemed      int             `json:"pointsRedeemed"`
	PointsDiscountCents int             `json:"pointsDiscountCents"`
	PayableCents        int             `json:"payableCents"`
	PointsEarned        int             `json:"pointsEarned"`
	PaymentMethod       string          `json:"paymentMethod"`
	Lines               []SaleEventLine `json:"lines"`
}

func newSaleEventPayload(sale *models.Sale) SaleEventPayload {
	lines := make([]SaleEventLine, len(sale.Items))
	for i, item := range sale.Items {
		lines[i] = SaleEventLine{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			TierLabel:      string(item.TierLabel),
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.LineTotalCents,
		}
	}
	return SaleEventPayload{
		SaleID:              sale.ID,
		CustomerID:          sale.CustomerID,
		CashierID:           sale.CashierID,
		TotalCents:          sale.TotalCents,
		PointsRedeemed:      sale.PointsRedeemed,
		PointsDiscountCents: sale.PointsDiscountCents,
		PayableCents:        sale.PayableCents,
		PointsEarned:        sale.PointsEarned,
		PaymentMethod:       string(sale.PaymentMethod),
		Lines:               lines,
	}
}
