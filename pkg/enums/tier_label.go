package enums

import "fmt"

// TierLabel names a sellable packaging multiple of a product.
type TierLabel string

const (
	TierLabelSingle    TierLabel = "single"
	TierLabelThreePack TierLabel = "three_pack"
	TierLabelHalfDozen TierLabel = "half_dozen"
	TierLabelDozen     TierLabel = "dozen"
	TierLabelCase      TierLabel = "case"
)

var validTierLabels = []TierLabel{
	TierLabelSingle,
	TierLabelThreePack,
	TierLabelHalfDozen,
	TierLabelDozen,
	TierLabelCase,
}

// String implements fmt.Stringer.
func (t TierLabel) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TierLabel.
func (t TierLabel) IsValid() bool {
	for _, candidate := range validTierLabels {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTierLabel converts raw input into a TierLabel.
func ParseTierLabel(value string) (TierLabel, error) {
	for _, candidate := range validTierLabels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tier label %q", value)
}
