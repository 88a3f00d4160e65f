package types

import "math/big"

// Account holds the vBTC asset-ledger state for a single address. Balances
// are fixed-point integers with 8 implied decimal places.
type Account struct {
	// BalanceVBTC is the freely transferable vBTC balance in smallest units.
	BalanceVBTC *big.Int `json:"balanceVBTC"`
	// FaucetLastClaim records the unix timestamp of the last faucet drip, or
	// zero when the address never claimed.
	FaucetLastClaim int64 `json:"faucetLastClaim,omitempty"`
}

// Normalize replaces nil balances with zero so callers can do arithmetic
// without nil checks.
func (a *Account) Normalize() *Account {
	if a == nil {
		return &Account{BalanceVBTC: big.NewInt(0)}
	}
	if a.BalanceVBTC == nil {
		a.BalanceVBTC = big.NewInt(0)
	}
	return a
}
