package lending

import "math/big"

// Account maintains the pool position for an individual participant.
// Supplied is vBTC collateral in smallest units; Borrowed and QuoteBalance
// are quote-currency amounts in 1e8 fixed point.
type Account struct {
	// Supplied records the vBTC amount posted as collateral.
	Supplied *big.Int `json:"supplied"`
	// Borrowed tracks the outstanding quote-currency principal.
	Borrowed *big.Int `json:"borrowed"`
	// QuoteBalance holds borrowed proceeds as a spendable balance. Repay
	// debits it together with Borrowed.
	QuoteBalance *big.Int `json:"quoteBalance"`
	// LastBorrowPrice is the 1e8 price supplied with the most recent
	// borrow. AccountData uses it as the last known price; zero before the
	// first borrow.
	LastBorrowPrice *big.Int `json:"lastBorrowPrice,omitempty"`
}

// Normalize replaces nil amounts with zero.
func (a *Account) Normalize() *Account {
	if a == nil {
		a = &Account{}
	}
	if a.Supplied == nil {
		a.Supplied = big.NewInt(0)
	}
	if a.Borrowed == nil {
		a.Borrowed = big.NewInt(0)
	}
	if a.QuoteBalance == nil {
		a.QuoteBalance = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{}
	if a.Supplied != nil {
		clone.Supplied = new(big.Int).Set(a.Supplied)
	}
	if a.Borrowed != nil {
		clone.Borrowed = new(big.Int).Set(a.Borrowed)
	}
	if a.QuoteBalance != nil {
		clone.QuoteBalance = new(big.Int).Set(a.QuoteBalance)
	}
	if a.LastBorrowPrice != nil {
		clone.LastBorrowPrice = new(big.Int).Set(a.LastBorrowPrice)
	}
	return clone
}

// AccountData is the query snapshot exposed for one account.
type AccountData struct {
	Supplied *big.Int `json:"supplied"`
	Borrowed *big.Int `json:"borrowed"`
	// AvailableToBorrow is the remaining headroom at the last known price,
	// floored at zero.
	AvailableToBorrow *big.Int `json:"availableToBorrow"`
	// HealthFactor is scaled by 10000 (10000 = 1.00). Saturates to
	// HealthFactorMax while the account carries no debt.
	HealthFactor *big.Int `json:"healthFactor"`
}
