package enums

import "fmt"

// PricingModel selects whether B2B minimum-order gating applies at checkout.
type PricingModel string

const (
	PricingModelB2C PricingModel = "b2c"
	PricingModelB2B PricingModel = "b2b"
)

var validPricingModels = []PricingModel{
	PricingModelB2C,
	PricingModelB2B,
}

// String implements fmt.Stringer.
func (m PricingModel) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PricingModel.
func (m PricingModel) IsValid() bool {
	for _, candidate := range validPricingModels {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePricingModel converts raw input into a PricingModel. Empty input means b2c.
func ParsePricingModel(value string) (PricingModel, error) {
	if value == "" {
		return PricingModelB2C, nil
	}
	for _, candidate := range validPricingModels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pricing model %q", value)
}
