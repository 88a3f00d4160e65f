package vault

import (
	"fmt"
	"strings"
)

// Tier names a risk appetite. Each tier bounds the maximum leverage a
// controller may target and the basis-point step a single rebalance may move
// the target by.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// TierPolicy is one row of the static risk table.
type TierPolicy struct {
	// MaxLeverageBps caps target leverage; always above 10000.
	MaxLeverageBps uint64
	// StepBps is the per-rebalance adjustment multiplied by the signal.
	StepBps uint64
}

// BaseLeverageBps is the unlevered floor, 1.00x.
const BaseLeverageBps uint64 = 10_000

var tierTable = map[Tier]TierPolicy{
	TierLow:    {MaxLeverageBps: 11_000, StepBps: 500},
	TierMedium: {MaxLeverageBps: 13_000, StepBps: 1_000},
	TierHigh:   {MaxLeverageBps: 15_000, StepBps: 1_500},
}

// PolicyFor resolves the tier's leverage bounds.
func PolicyFor(tier Tier) (TierPolicy, error) {
	policy, ok := tierTable[tier]
	if !ok {
		return TierPolicy{}, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}
	return policy, nil
}

// ParseTier normalises user input into a known tier.
func ParseTier(raw string) (Tier, error) {
	tier := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := tierTable[tier]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, raw)
	}
	return tier, nil
}
