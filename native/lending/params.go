package lending

import "fmt"

// Params captures the pool risk configuration in basis points.
type Params struct {
	// CollateralFactorBps is the fraction of collateral value that may be
	// borrowed against.
	CollateralFactorBps uint64 `toml:"collateralFactorBps"`
	// LiquidationThresholdBps is the fraction of collateral value at which
	// a position becomes unhealthy. Must be at least the collateral factor.
	LiquidationThresholdBps uint64 `toml:"liquidationThresholdBps"`
	// SupplyAPRBps and BorrowAPRBps are the advertised fixed rates.
	SupplyAPRBps uint64 `toml:"supplyAprBps"`
	BorrowAPRBps uint64 `toml:"borrowAprBps"`
}

// DefaultParams returns the stock pool configuration.
func DefaultParams() Params {
	return Params{
		CollateralFactorBps:     7500,
		LiquidationThresholdBps: 8000,
		SupplyAPRBps:            300,
		BorrowAPRBps:            500,
	}
}

// Validate rejects configurations that would let the pool originate loans
// already below their liquidation threshold.
func (p Params) Validate() error {
	if p.CollateralFactorBps == 0 || p.CollateralFactorBps > 10000 {
		return fmt.Errorf("lending params: collateral factor %d out of range (0, 10000]", p.CollateralFactorBps)
	}
	if p.LiquidationThresholdBps > 10000 {
		return fmt.Errorf("lending params: liquidation threshold %d exceeds 10000", p.LiquidationThresholdBps)
	}
	if p.LiquidationThresholdBps < p.CollateralFactorBps {
		return fmt.Errorf("lending params: liquidation threshold %d below collateral factor %d", p.LiquidationThresholdBps, p.CollateralFactorBps)
	}
	return nil
}
