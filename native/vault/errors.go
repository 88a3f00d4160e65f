package vault

import "errors"

var (
	errNilState = errors.New("vault engine: state not configured")
	// ErrInvalidTier is returned when a tier name is not in the risk table.
	ErrInvalidTier = errors.New("vault engine: unknown risk tier")
	// ErrNotFound is returned when no ledger exists for a vault address.
	ErrNotFound = errors.New("vault engine: vault not found")
	// ErrNotOwner is returned when a restricted operation is attempted by
	// anyone other than the vault owner.
	ErrNotOwner = errors.New("vault engine: caller is not the vault owner")
	// ErrInvalidAmount is returned when an amount is nil, zero, negative,
	// or exceeds the balance it draws down.
	ErrInvalidAmount = errors.New("vault engine: invalid amount")
	// ErrInsufficientFreeBalance is returned when idle balance, plus
	// withdrawable collateral where the operation may touch it, cannot
	// fund the request.
	ErrInsufficientFreeBalance = errors.New("vault engine: insufficient free balance")
	// ErrDebtOutstanding is returned when pool collateral is pulled while
	// debt remains open.
	ErrDebtOutstanding = errors.New("vault engine: debt outstanding")
)
