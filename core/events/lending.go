package events

import (
	"math/big"

	"vaultbtc/core/types"
	"vaultbtc/crypto"
)

const (
	TypeLendingSupplied  = "lending.supplied"
	TypeLendingWithdrawn = "lending.withdrawn"
	TypeLendingBorrowed  = "lending.borrowed"
	TypeLendingRepaid    = "lending.repaid"
)

// LendingSupplied is emitted when collateral enters the pool.
type LendingSupplied struct {
	Account crypto.Address
	Amount  *big.Int
}

func (LendingSupplied) EventType() string { return TypeLendingSupplied }

func (e LendingSupplied) Event() *types.Event {
	return &types.Event{Type: TypeLendingSupplied, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"amount":  formatAmount(e.Amount),
	}}
}

// LendingWithdrawn is emitted when collateral leaves the pool.
type LendingWithdrawn struct {
	Account crypto.Address
	Amount  *big.Int
}

func (LendingWithdrawn) EventType() string { return TypeLendingWithdrawn }

func (e LendingWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeLendingWithdrawn, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"amount":  formatAmount(e.Amount),
	}}
}

// LendingBorrowed is emitted when quote currency is drawn against
// collateral. Price is the 1e8 fixed-point price used for the LTV check.
type LendingBorrowed struct {
	Account crypto.Address
	Amount  *big.Int
	Price   *big.Int
}

func (LendingBorrowed) EventType() string { return TypeLendingBorrowed }

func (e LendingBorrowed) Event() *types.Event {
	return &types.Event{Type: TypeLendingBorrowed, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"amount":  formatAmount(e.Amount),
		"price":   formatAmount(e.Price),
	}}
}

// LendingRepaid is emitted when outstanding debt is reduced.
type LendingRepaid struct {
	Account crypto.Address
	Amount  *big.Int
}

func (LendingRepaid) EventType() string { return TypeLendingRepaid }

func (e LendingRepaid) Event() *types.Event {
	return &types.Event{Type: TypeLendingRepaid, Attributes: map[string]string{
		"account": formatAddress(e.Account),
		"amount":  formatAmount(e.Amount),
	}}
}
