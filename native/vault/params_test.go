package vault

import (
	"errors"
	"testing"
)

func TestPolicyTable(t *testing.T) {
	cases := []struct {
		tier Tier
		max  uint64
		step uint64
	}{
		{TierLow, 11_000, 500},
		{TierMedium, 13_000, 1_000},
		{TierHigh, 15_000, 1_500},
	}
	for _, tc := range cases {
		policy, err := PolicyFor(tc.tier)
		if err != nil {
			t.Fatalf("%s: %v", tc.tier, err)
		}
		if policy.MaxLeverageBps != tc.max || policy.StepBps != tc.step {
			t.Fatalf("%s: expected %d/%d, got %d/%d", tc.tier, tc.max, tc.step, policy.MaxLeverageBps, policy.StepBps)
		}
	}
	if _, err := PolicyFor(Tier("degen")); !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
}

func TestParseTier(t *testing.T) {
	for _, raw := range []string{"low", "LOW", " Low "} {
		tier, err := ParseTier(raw)
		if err != nil {
			t.Fatalf("%q: %v", raw, err)
		}
		if tier != TierLow {
			t.Fatalf("%q: expected low, got %s", raw, tier)
		}
	}
	if _, err := ParseTier("maximum"); !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
}
