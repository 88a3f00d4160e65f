package lending

import "errors"

var (
	errNilState = errors.New("lending engine: state not configured")
	// ErrInvalidAmount is returned when an amount is nil, zero, negative,
	// or exceeds the balance it draws from.
	ErrInvalidAmount = errors.New("lending engine: invalid amount")
	// ErrInvalidInput is returned for malformed auxiliary inputs such as a
	// non-positive price.
	ErrInvalidInput = errors.New("lending engine: invalid input")
	// ErrInsufficientBalance is returned when the caller cannot fund a
	// supply transfer.
	ErrInsufficientBalance = errors.New("lending engine: insufficient balance")
	// ErrNoCollateral is returned when borrowing against an empty position.
	ErrNoCollateral = errors.New("lending engine: no collateral supplied")
	// ErrBorrowLimitExceeded is returned when a borrow would push debt past
	// the collateral factor limit.
	ErrBorrowLimitExceeded = errors.New("lending engine: borrow limit exceeded")
	// ErrUnhealthyPosition is returned when a withdrawal would leave the
	// remaining collateral below the liquidation threshold.
	ErrUnhealthyPosition = errors.New("lending engine: withdrawal would leave position unhealthy")
)
