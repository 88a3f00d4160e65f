package token

import "errors"

var (
	errNilState = errors.New("token engine: state not configured")

	// ErrInvalidAmount rejects zero, negative, or nil quantities.
	ErrInvalidAmount = errors.New("token engine: amount must be positive")
	// ErrInsufficientBalance is returned when the debited account cannot
	// fund the movement. Transfers never partially apply.
	ErrInsufficientBalance = errors.New("token engine: insufficient balance")
	// ErrInsufficientAllowance is returned by TransferFrom when the spender
	// allowance does not cover the amount.
	ErrInsufficientAllowance = errors.New("token engine: insufficient allowance")
	// ErrUnauthorized is returned when a caller other than the mint
	// authority attempts to mint.
	ErrUnauthorized = errors.New("token engine: caller not authorized")
	// ErrFaucetCooldown is returned when an address claims the faucet again
	// before its cooldown elapsed.
	ErrFaucetCooldown = errors.New("token engine: faucet cooldown active")
	// ErrFaucetDisabled is returned when no faucet amount is configured.
	ErrFaucetDisabled = errors.New("token engine: faucet not enabled")
)
