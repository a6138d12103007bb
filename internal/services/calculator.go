package services

import (
	"math"

	"shopify-pricing-service/internal/models"
)

// RoundPrice rounds to two decimals. Computation keeps full float64
// precision; rounding happens only where values are persisted or sent
// upstream.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

// ComputeNewPrice applies an adjustment rule to one price. A nil input
// yields nil: items without a value for the targeted field keep it unset.
// Results are floored at zero, a decrease can never produce a negative
// price.
func ComputeNewPrice(current *float64, rule models.AdjustmentRule) *float64 {
	if current == nil {
		return nil
	}

	var delta float64
	switch rule.Type {
	case models.AdjustmentPercentage:
		delta = *current * rule.Magnitude / 100
	default:
		delta = rule.Magnitude
	}

	value := *current
	if rule.Direction == models.DirectionDecrease {
		value -= delta
	} else {
		value += delta
	}
	if value < 0 {
		value = 0
	}
	return &value
}

// ApplyRule computes both target prices for an item under a rule. Fields
// outside the rule's target come back nil, meaning untouched.
func ApplyRule(item *models.InventoryItem, rule models.AdjustmentRule) (newPrice, newCompareAt *float64) {
	if rule.Target == models.TargetPrice || rule.Target == models.TargetBoth {
		newPrice = ComputeNewPrice(item.Price, rule)
	}
	if rule.Target == models.TargetCompareAtPrice || rule.Target == models.TargetBoth {
		newCompareAt = ComputeNewPrice(item.CompareAtPrice, rule)
	}
	return newPrice, newCompareAt
}

// ValidateRule rejects rules the calculator cannot apply
func ValidateRule(rule models.AdjustmentRule) error {
	if rule.Magnitude <= 0 {
		return ErrInvalidCampaign
	}
	switch rule.Type {
	case models.AdjustmentFixed, models.AdjustmentPercentage:
	default:
		return ErrInvalidCampaign
	}
	switch rule.Direction {
	case models.DirectionIncrease, models.DirectionDecrease:
	default:
		return ErrInvalidCampaign
	}
	switch rule.Target {
	case models.TargetPrice, models.TargetCompareAtPrice, models.TargetBoth:
	default:
		return ErrInvalidCampaign
	}
	return nil
}
