package enums

import "fmt"

// StockUnit is the base counting convention for a product's on-hand quantity.
type StockUnit string

const (
	StockUnitPiece  StockUnit = "piece"
	StockUnitPack   StockUnit = "pack"
	StockUnitKg     StockUnit = "kg"
	StockUnitLitre  StockUnit = "litre"
	StockUnitCarton StockUnit = "carton"
)

var validStockUnits = []StockUnit{
	StockUnitPiece,
	StockUnitPack,
	StockUnitKg,
	StockUnitLitre,
	StockUnitCarton,
}

// String implements fmt.Stringer.
func (u StockUnit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known StockUnit.
func (u StockUnit) IsValid() bool {
	for _, candidate := range validStockUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseStockUnit converts raw input into a StockUnit.
func ParseStockUnit(value string) (StockUnit, error) {
	for _, candidate := range validStockUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock unit %q", value)
}
