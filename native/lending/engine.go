package lending

import (
	"errors"
	"math/big"

	"vaultbtc/core/events"
	"vaultbtc/crypto"
	nativecommon "vaultbtc/native/common"
	"vaultbtc/native/token"
)

var (
	unitScale   = big.NewInt(100_000_000)
	basisPoints = big.NewInt(10_000)

	// HealthFactorMax is the sentinel health factor reported while an
	// account carries no debt.
	HealthFactorMax = new(big.Int).SetUint64(^uint64(0))
)

type engineState interface {
	GetLendingAccount(addr crypto.Address) (*Account, error)
	PutLendingAccount(addr crypto.Address, account *Account) error
}

// assetLedger is the slice of the token engine the pool needs to custody
// collateral.
type assetLedger interface {
	Transfer(from, to crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) (*big.Int, error)
}

// Engine implements the fixed-rate lending pool. Collateral is held by a
// module custody account; borrowed quote currency is tracked as an internal
// balance rather than a transferable asset.
type Engine struct {
	state   engineState
	params  Params
	custody crypto.Address
	ledger  assetLedger
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine constructs a pool with the supplied risk parameters. The params
// must already be validated.
func NewEngine(params Params) *Engine {
	return &Engine{
		params:  params,
		custody: crypto.ModuleAddress(nativecommon.ModuleLending),
		emitter: events.NoopEmitter{},
	}
}

// SetState wires the persistence backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the asset ledger that moves collateral.
func (e *Engine) SetLedger(ledger assetLedger) { e.ledger = ledger }

// SetEmitter configures the event emitter. Passing nil restores the no-op
// emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the module pause view consulted before mutations.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// Params returns the pool risk configuration.
func (e *Engine) Params() Params { return e.params }

// Custody returns the module account holding pooled collateral.
func (e *Engine) Custody() crypto.Address { return e.custody }

func (e *Engine) account(addr crypto.Address) (*Account, error) {
	account, err := e.state.GetLendingAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Normalize(), nil
}

// Supply moves collateral from the caller into pool custody and credits the
// account's supplied balance.
func (e *Engine) Supply(from crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleLending); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := e.account(from)
	if err != nil {
		return err
	}
	if err := e.ledger.Transfer(from, e.custody, amount); err != nil {
		if errors.Is(err, token.ErrInsufficientBalance) {
			return ErrInsufficientBalance
		}
		return err
	}
	account.Supplied = new(big.Int).Add(account.Supplied, amount)
	if err := e.state.PutLendingAccount(from, account); err != nil {
		return err
	}
	e.emitter.Emit(events.LendingSupplied{Account: from, Amount: amount})
	return nil
}

// Withdraw returns collateral to the caller. While debt is outstanding the
// remaining collateral must keep the position at or above the liquidation
// threshold; the check is price free, comparing supplied units scaled by the
// threshold against debt scaled by 10000.
func (e *Engine) Withdraw(to crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleLending); err != nil {
		return err
	}
	if e.ledger == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := e.account(to)
	if err != nil {
		return err
	}
	if amount.Cmp(account.Supplied) > 0 {
		return ErrInvalidAmount
	}
	remaining := new(big.Int).Sub(account.Supplied, amount)
	if account.Borrowed.Sign() > 0 {
		lhs := new(big.Int).Mul(remaining, new(big.Int).SetUint64(e.params.LiquidationThresholdBps))
		rhs := new(big.Int).Mul(account.Borrowed, basisPoints)
		if lhs.Cmp(rhs) < 0 {
			return ErrUnhealthyPosition
		}
	}
	if err := e.ledger.Transfer(e.custody, to, amount); err != nil {
		return err
	}
	account.Supplied = remaining
	if err := e.state.PutLendingAccount(to, account); err != nil {
		return err
	}
	e.emitter.Emit(events.LendingWithdrawn{Account: to, Amount: amount})
	return nil
}

// maxBorrow returns the total quote-currency debt the account's collateral
// supports at the given price.
func (e *Engine) maxBorrow(supplied, price *big.Int) *big.Int {
	limit := new(big.Int).Mul(supplied, price)
	limit.Mul(limit, new(big.Int).SetUint64(e.params.CollateralFactorBps))
	limit.Div(limit, basisPoints)
	limit.Div(limit, unitScale)
	return limit
}

// Borrow draws quote currency against supplied collateral valued at the given
// 1e8 price. Proceeds are credited to the account's quote balance.
func (e *Engine) Borrow(borrower crypto.Address, amount, price *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleLending); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidInput
	}
	account, err := e.account(borrower)
	if err != nil {
		return err
	}
	if account.Supplied.Sign() == 0 {
		return ErrNoCollateral
	}
	newDebt := new(big.Int).Add(account.Borrowed, amount)
	if newDebt.Cmp(e.maxBorrow(account.Supplied, price)) > 0 {
		return ErrBorrowLimitExceeded
	}
	account.Borrowed = newDebt
	account.QuoteBalance = new(big.Int).Add(account.QuoteBalance, amount)
	account.LastBorrowPrice = new(big.Int).Set(price)
	if err := e.state.PutLendingAccount(borrower, account); err != nil {
		return err
	}
	e.emitter.Emit(events.LendingBorrowed{Account: borrower, Amount: amount, Price: price})
	return nil
}

// Repay retires debt using the account's quote balance.
func (e *Engine) Repay(borrower crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleLending); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := e.account(borrower)
	if err != nil {
		return err
	}
	if amount.Cmp(account.Borrowed) > 0 || amount.Cmp(account.QuoteBalance) > 0 {
		return ErrInvalidAmount
	}
	account.Borrowed = new(big.Int).Sub(account.Borrowed, amount)
	account.QuoteBalance = new(big.Int).Sub(account.QuoteBalance, amount)
	if err := e.state.PutLendingAccount(borrower, account); err != nil {
		return err
	}
	e.emitter.Emit(events.LendingRepaid{Account: borrower, Amount: amount})
	return nil
}

// Account returns a copy of the raw pool account.
func (e *Engine) Account(addr crypto.Address) (*Account, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

// AvailableToBorrow reports the remaining borrow headroom at the given price,
// floored at zero.
func (e *Engine) AvailableToBorrow(addr crypto.Address, price *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidInput
	}
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	headroom := new(big.Int).Sub(e.maxBorrow(account.Supplied, price), account.Borrowed)
	if headroom.Sign() < 0 {
		headroom.SetInt64(0)
	}
	return headroom, nil
}

// AccountData assembles the query snapshot for an account. Headroom is valued
// at the price recorded by the most recent borrow; before any borrow it is
// zero, matching an unknown price.
func (e *Engine) AccountData(addr crypto.Address) (*AccountData, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	account, err := e.account(addr)
	if err != nil {
		return nil, err
	}
	data := &AccountData{
		Supplied:          new(big.Int).Set(account.Supplied),
		Borrowed:          new(big.Int).Set(account.Borrowed),
		AvailableToBorrow: big.NewInt(0),
		HealthFactor:      new(big.Int).Set(HealthFactorMax),
	}
	if account.LastBorrowPrice != nil && account.LastBorrowPrice.Sign() > 0 {
		headroom := new(big.Int).Sub(e.maxBorrow(account.Supplied, account.LastBorrowPrice), account.Borrowed)
		if headroom.Sign() > 0 {
			data.AvailableToBorrow = headroom
		}
	}
	if account.Borrowed.Sign() > 0 {
		health := new(big.Int).Mul(account.Supplied, new(big.Int).SetUint64(e.params.LiquidationThresholdBps))
		health.Div(health, account.Borrowed)
		data.HealthFactor = health
	}
	return data, nil
}
