package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/tillpoint/tillpoint-backend/pkg/errors"
)

// SalesSummary aggregates the till activity for a period. Monetary figures
// are decimal currency units, not cents, since they feed human-facing
// reports rather than transactional math.
type SalesSummary struct {
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	SaleCount         int64           `json:"sale_count"`
	GrossRevenue      decimal.Decimal `json:"gross_revenue"`
	PointsDiscounts   decimal.Decimal `json:"points_discounts"`
	NetRevenue        decimal.Decimal `json:"net_revenue"`
	CostOfGoods       decimal.Decimal `json:"cost_of_goods"`
	GrossMargin       decimal.Decimal `json:"gross_margin"`
	GrossMarginRatio  decimal.Decimal `json:"gross_margin_ratio"`
	PointsEarnedTotal int64           `json:"points_earned_total"`
}

// ProductPerformance ranks one product's contribution over a period.
type ProductPerformance struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitsSold   int64           `json:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// Service computes read-only aggregates for reporting surfaces.
type Service interface {
	SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductPerformance, error)
}

type service struct {
	db *gorm.DB
}

// NewService wires the reporting service.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	return &service{db: db}, nil
}

var centsFactor = decimal.NewFromInt(100)

func fromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(centsFactor)
}

type summaryRow struct {
	SaleCount           int64
	TotalCents          int64
	PointsDiscountCents int64
	PointsEarned        int64
}

type costRow struct {
	CostCents int64
}

func (s *service) SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}

	var row summaryRow
	err := s.db.WithContext(ctx).
		Table("sales").
		Select(
			"COUNT(*) AS sale_count, " +
				"COALESCE(SUM(total_cents), 0) AS total_cents, " +
				"COALESCE(SUM(points_discount_cents), 0) AS points_discount_cents, " +
				"COALESCE(SUM(points_earned), 0) AS points_earned").
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	// cost of goods uses the tier buying cost captured on each line's tier;
	// lines whose tier was later deleted fall out of the join and count zero
	var cost costRow
	err = s.db.WithContext(ctx).
		Table("sale_items").
		Select("COALESCE(SUM(up.buying_cost_cents * sale_items.quantity), 0) AS cost_cents").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("LEFT JOIN unit_prices up ON up.id = sale_items.unit_price_id").
		Where("sales.created_at >= ? AND sales.created_at < ?", from, to).
		Scan(&cost).Error
	if err != nil {
		return nil, err
	}

	gross := fromCents(row.TotalCents)
	discounts := fromCents(row.PointsDiscountCents)
	net := gross.Sub(discounts)
	cogs := fromCents(cost.CostCents)
	margin := net.Sub(cogs)
	ratio := decimal.Zero
	if net.IsPositive() {
		ratio = margin.Div(net).Round(4)
	}

	return &SalesSummary{
		From:              from,
		To:                to,
		SaleCount:         row.SaleCount,
		GrossRevenue:      gross,
		PointsDiscounts:   discounts,
		NetRevenue:        net,
		CostOfGoods:       cogs,
		GrossMargin:       margin,
		GrossMarginRatio:  ratio,
		PointsEarnedTotal: row.PointsEarned,
	}, nil
}

type performanceRow struct {
	ProductID      string
	ProductName    string
	UnitsSold      int64
	LineTotalCents int64
}

func (s *service) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductPerformance, error) {
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var rows []performanceRow
	err := s.db.WithContext(ctx).
		Table("sale_items").
		Select(
			"sale_items.product_id AS product_id, " +
				"sale_items.product_name AS product_name, " +
				"SUM(sale_items.quantity * sale_items.multiplier) AS units_sold, " +
				"SUM(sale_items.line_total_cents) AS line_total_cents").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.created_at >= ? AND sales.created_at < ?", from, to).
		Group("sale_items.product_id, sale_items.product_name").
		Order("line_total_cents DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	results := make([]ProductPerformance, len(rows))
	for i, row := range rows {
		results[i] = ProductPerformance{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			UnitsSold:   row.UnitsSold,
			Revenue:     fromCents(row.LineTotalCents),
		}
	}
	return results, nil
}
