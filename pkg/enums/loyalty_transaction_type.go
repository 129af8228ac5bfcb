package enums

import "fmt"

// LoyaltyTransactionType maps to the loyalty_transaction_type enum in Postgres.
type LoyaltyTransactionType string

const (
	LoyaltyTransactionTypeEarn   LoyaltyTransactionType = "earn"
	LoyaltyTransactionTypeRedeem LoyaltyTransactionType = "redeem"
	LoyaltyTransactionTypeAdjust LoyaltyTransactionType = "adjust"
)

var validLoyaltyTransactionTypes = []LoyaltyTransactionType{
	LoyaltyTransactionTypeEarn,
	LoyaltyTransactionTypeRedeem,
	LoyaltyTransactionTypeAdjust,
}

// IsValid reports whether the value matches the canonical loyalty transaction enum.
func (t LoyaltyTransactionType) IsValid() bool {
	for _, candidate := range validLoyaltyTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLoyaltyTransactionType converts raw input into LoyaltyTransactionType.
func ParseLoyaltyTransactionType(value string) (LoyaltyTransactionType, error) {
	for _, candidate := range validLoyaltyTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty transaction type %q", value)
}
