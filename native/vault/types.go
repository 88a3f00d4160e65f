package vault

import (
	"math/big"

	"vaultbtc/crypto"
)

// VaultLedger is the controller's internal bookkeeping, independent of the
// lending pool's own account for the vault. Asset amounts are vBTC smallest
// units; Debt and TotalQuoteSpent are quote currency in 1e8 fixed point.
type VaultLedger struct {
	Owner crypto.Address `json:"owner"`
	Tier  Tier           `json:"tier"`
	// Idle is freely withdrawable balance held at the vault address.
	Idle *big.Int `json:"idle"`
	// Supplied is collateral committed to the lending pool.
	Supplied *big.Int `json:"supplied"`
	// Debt mirrors the vault's outstanding pool borrow.
	Debt *big.Int `json:"debt"`
	// Position is total asset exposure: supplied collateral plus exposure
	// purchased with borrowed quote, valued at purchase time.
	Position *big.Int `json:"position"`
	// TargetBps and CurrentBps are leverage ratios scaled by 10000.
	TargetBps  uint64 `json:"targetBps"`
	CurrentBps uint64 `json:"currentBps"`
	// TotalAssetPurchased and TotalQuoteSpent accumulate every leveraged
	// purchase and never decrease, so their ratio is the weighted average
	// cost basis.
	TotalAssetPurchased *big.Int `json:"totalAssetPurchased"`
	TotalQuoteSpent     *big.Int `json:"totalQuoteSpent"`
	CreatedAt           int64    `json:"createdAt"`
}

// Normalize replaces nil amounts with zero and backfills the leverage floor.
func (l *VaultLedger) Normalize() *VaultLedger {
	if l == nil {
		return nil
	}
	if l.Idle == nil {
		l.Idle = big.NewInt(0)
	}
	if l.Supplied == nil {
		l.Supplied = big.NewInt(0)
	}
	if l.Debt == nil {
		l.Debt = big.NewInt(0)
	}
	if l.Position == nil {
		l.Position = big.NewInt(0)
	}
	if l.TotalAssetPurchased == nil {
		l.TotalAssetPurchased = big.NewInt(0)
	}
	if l.TotalQuoteSpent == nil {
		l.TotalQuoteSpent = big.NewInt(0)
	}
	if l.TargetBps == 0 {
		l.TargetBps = BaseLeverageBps
	}
	if l.CurrentBps == 0 {
		l.CurrentBps = BaseLeverageBps
	}
	return l
}

// Clone returns a deep copy of the ledger.
func (l *VaultLedger) Clone() *VaultLedger {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Idle = cloneBig(l.Idle)
	clone.Supplied = cloneBig(l.Supplied)
	clone.Debt = cloneBig(l.Debt)
	clone.Position = cloneBig(l.Position)
	clone.TotalAssetPurchased = cloneBig(l.TotalAssetPurchased)
	clone.TotalQuoteSpent = cloneBig(l.TotalQuoteSpent)
	return &clone
}

// AverageCost returns the weighted average purchase price in 1e8 fixed
// point, or zero before any leveraged purchase.
func (l *VaultLedger) AverageCost() *big.Int {
	if l == nil || l.TotalAssetPurchased == nil || l.TotalAssetPurchased.Sign() == 0 {
		return big.NewInt(0)
	}
	cost := new(big.Int).Mul(l.TotalQuoteSpent, unitScale)
	return cost.Div(cost, l.TotalAssetPurchased)
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// RebalanceResult summarises one rebalance pass for callers and event
// consumers.
type RebalanceResult struct {
	Signal        int      `json:"signal"`
	TargetBps     uint64   `json:"targetBps"`
	CurrentBps    uint64   `json:"currentBps"`
	BorrowedQuote *big.Int `json:"borrowedQuote"`
	RepaidQuote   *big.Int `json:"repaidQuote"`
	// Clamped reports that the pool's borrow limit capped the requested
	// leverage increase.
	Clamped bool `json:"clamped"`
}
