package vault

import (
	"math/big"
	"time"

	"vaultbtc/core/events"
	"vaultbtc/crypto"
	nativecommon "vaultbtc/native/common"
	"vaultbtc/native/lending"
	"vaultbtc/native/oracle"
)

type engineState interface {
	GetVault(id crypto.Address) (*VaultLedger, error)
	PutVault(id crypto.Address, ledger *VaultLedger) error
	ListVaultsByOwner(owner crypto.Address) ([]crypto.Address, error)
	AppendVaultToOwner(owner, id crypto.Address) error
	VaultCount() (uint64, error)
	SetVaultCount(count uint64) error
}

// collateralPool is the slice of the lending engine a controller drives. The
// controller is itself one pool account, keyed by the vault address.
type collateralPool interface {
	Supply(from crypto.Address, amount *big.Int) error
	Withdraw(to crypto.Address, amount *big.Int) error
	Borrow(borrower crypto.Address, amount, price *big.Int) error
	Repay(borrower crypto.Address, amount *big.Int) error
	Account(addr crypto.Address) (*lending.Account, error)
	AvailableToBorrow(addr crypto.Address, price *big.Int) (*big.Int, error)
	Params() lending.Params
}

type signalSource interface {
	Read() (*oracle.Series, error)
	Signal() (oracle.Signal, error)
}

type assetLedger interface {
	Transfer(from, to crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) (*big.Int, error)
}

// Engine hosts every leverage controller. Each vault address owns a
// VaultLedger and doubles as the vault's token account and lending pool
// account, so deposits sit at the vault address until committed as
// collateral.
type Engine struct {
	state   engineState
	pool    collateralPool
	oracle  signalSource
	ledger  assetLedger
	emitter events.Emitter
	pauses  nativecommon.PauseView
	// sink receives collateral sold off to fund debt repayment.
	sink crypto.Address
	now  func() time.Time
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		sink:    crypto.ModuleAddress("market"),
		now:     time.Now,
	}
}

// SetState wires the persistence backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPool wires the lending pool the controllers borrow from.
func (e *Engine) SetPool(pool collateralPool) { e.pool = pool }

// SetOracle wires the trend signal source consulted by Rebalance.
func (e *Engine) SetOracle(source signalSource) { e.oracle = source }

// SetLedger wires the asset ledger that moves deposits.
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

// SetClock overrides the time source, used by tests.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil || e.pool == nil || e.oracle == nil || e.ledger == nil {
		return errNilState
	}
	return nativecommon.Guard(e.pauses, nativecommon.ModuleVault)
}

func (e *Engine) vault(id crypto.Address) (*VaultLedger, error) {
	ledger, err := e.state.GetVault(id)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, ErrNotFound
	}
	return ledger.Normalize(), nil
}

func (e *Engine) ownedVault(caller, id crypto.Address) (*VaultLedger, error) {
	ledger, err := e.vault(id)
	if err != nil {
		return nil, err
	}
	if !ledger.Owner.Equal(caller) {
		return nil, ErrNotOwner
	}
	return ledger, nil
}

// refreshLeverage recomputes CurrentBps from position and supplied balance.
// With no capital committed the vault sits at the 1.00x floor.
func refreshLeverage(ledger *VaultLedger) {
	if ledger.Supplied.Sign() <= 0 {
		ledger.CurrentBps = BaseLeverageBps
		return
	}
	ratio := new(big.Int).Mul(ledger.Position, basisPoints)
	ratio.Div(ratio, ledger.Supplied)
	ledger.CurrentBps = ratio.Uint64()
}

// Deposit moves asset from the owner into the vault's idle balance.
func (e *Engine) Deposit(caller, id crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	ledger, err := e.ownedVault(caller, id)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := e.ledger.Transfer(caller, id, amount); err != nil {
		return err
	}
	ledger.Idle = new(big.Int).Add(ledger.Idle, amount)
	if err := e.state.PutVault(id, ledger); err != nil {
		return err
	}
	e.emitter.Emit(events.VaultDeposited{Vault: id, Amount: amount})
	return nil
}

// Withdraw returns idle balance to the owner. Collateral committed to the
// pool is not reachable through this call.
func (e *Engine) Withdraw(caller, id crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	ledger, err := e.ownedVault(caller, id)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(ledger.Idle) > 0 {
		return ErrInsufficientFreeBalance
	}
	if err := e.ledger.Transfer(id, caller, amount); err != nil {
		return err
	}
	ledger.Idle = new(big.Int).Sub(ledger.Idle, amount)
	if err := e.state.PutVault(id, ledger); err != nil {
		return err
	}
	e.emitter.Emit(events.VaultWithdrawn{Vault: id, Amount: amount})
	return nil
}

// SupplyToPool commits idle balance to the lending pool as collateral.
// Collateral counts 1:1 toward position before any leverage is applied.
func (e *Engine) SupplyToPool(caller, id crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	ledger, err := e.ownedVault(caller, id)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(ledger.Idle) > 0 {
		return ErrInsufficientFreeBalance
	}
	if err := e.pool.Supply(id, amount); err != nil {
		return err
	}
	ledger.Idle = new(big.Int).Sub(ledger.Idle, amount)
	ledger.Supplied = new(big.Int).Add(ledger.Supplied, amount)
	ledger.Position = new(big.Int).Add(ledger.Position, amount)
	refreshLeverage(ledger)
	if err := e.state.PutVault(id, ledger); err != nil {
		return err
	}
	e.emitter.Emit(events.VaultSupplied{Vault: id, Amount: amount})
	return nil
}

// WithdrawFromPool pulls collateral back into the idle balance. Refused
// outright while debt is open; the pool's own health check would allow a
// partial pull, but collateral backing open debt stays committed here.
func (e *Engine) WithdrawFromPool(caller, id crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	ledger, err := e.ownedVault(caller, id)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if ledger.Debt.Sign() > 0 {
		return ErrDebtOutstanding
	}
	if amount.Cmp(ledger.Supplied) > 0 {
		return ErrInvalidAmount
	}
	if err := e.pool.Withdraw(id, amount); err != nil {
		return err
	}
	ledger.Supplied = new(big.Int).Sub(ledger.Supplied, amount)
	ledger.Position = new(big.Int).Sub(ledger.Position, amount)
	if ledger.Position.Sign() < 0 {
		ledger.Position.SetInt64(0)
	}
	ledger.Idle = new(big.Int).Add(ledger.Idle, amount)
	refreshLeverage(ledger)
	if err := e.state.PutVault(id, ledger); err != nil {
		return err
	}
	e.emitter.Emit(events.VaultPoolWithdrawn{Vault: id, Amount: amount})
	return nil
}

// RepayDebt retires pool debt at the current oracle price. The asset sold to
// fund the repayment comes from idle balance first, then from pool
// collateral.
func (e *Engine) RepayDebt(caller, id crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	ledger, err := e.ownedVault(caller, id)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 || amount.Cmp(ledger.Debt) > 0 {
		return ErrInvalidAmount
	}
	series, err := e.oracle.Read()
	if err != nil {
		return err
	}
	repaid, sold, err := e.unwind(id, ledger, amount, series.Price, false)
	if err != nil {
		return err
	}
	refreshLeverage(ledger)
	if err := e.state.PutVault(id, ledger); err != nil {
		return err
	}
	e.emitter.Emit(events.VaultUnwound{Vault: id, QuoteRepaid: repaid, AssetSold: sold})
	return nil
}

// maxPoolWithdrawable mirrors the pool's price-free health check: the
// collateral left behind, scaled by the liquidation threshold, must cover
// the remaining debt scaled by 10000.
func maxPoolWithdrawable(supplied, debtAfter *big.Int, liqBps uint64) *big.Int {
	if debtAfter.Sign() <= 0 {
		return new(big.Int).Set(supplied)
	}
	minRemain := new(big.Int).Mul(debtAfter, basisPoints)
	liq := new(big.Int).SetUint64(liqBps)
	minRemain.Add(minRemain, new(big.Int).Sub(liq, big.NewInt(1)))
	minRemain.Div(minRemain, liq)
	headroom := new(big.Int).Sub(supplied, minRemain)
	if headroom.Sign() < 0 {
		headroom.SetInt64(0)
	}
	return headroom
}

// unwind repays up to quote of pool debt and books the matching sale of
// collateral. The repay runs first so the subsequent collateral withdrawal
// passes the pool's health check. With clamp set the sale is capped at what
// idle plus withdrawable collateral can fund instead of failing.
func (e *Engine) unwind(id crypto.Address, ledger *VaultLedger, quote, price *big.Int, clamp bool) (*big.Int, *big.Int, error) {
	repay := new(big.Int).Set(minBig(quote, ledger.Debt))
	if repay.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}
	assetEquiv := quoteToAsset(repay, price)

	poolAcct, err := e.pool.Account(id)
	if err != nil {
		return nil, nil, err
	}
	debtAfter := new(big.Int).Sub(poolAcct.Borrowed, repay)
	capacity := new(big.Int).Add(ledger.Idle, maxPoolWithdrawable(poolAcct.Supplied, debtAfter, e.pool.Params().LiquidationThresholdBps))
	sold := new(big.Int).Set(assetEquiv)
	if sold.Cmp(capacity) > 0 {
		if !clamp {
			return nil, nil, ErrInsufficientFreeBalance
		}
		sold.Set(capacity)
	}

	if err := e.pool.Repay(id, repay); err != nil {
		return nil, nil, err
	}
	fromIdle := new(big.Int).Set(minBig(ledger.Idle, sold))
	fromSupplied := new(big.Int).Sub(sold, fromIdle)
	if fromSupplied.Sign() > 0 {
		if err := e.pool.Withdraw(id, fromSupplied); err != nil {
			return nil, nil, err
		}
	}
	if sold.Sign() > 0 {
		if err := e.ledger.Transfer(id, e.sink, sold); err != nil {
			return nil, nil, err
		}
	}

	notional := new(big.Int).Sub(ledger.Position, ledger.Supplied)
	if notional.Sign() < 0 {
		notional.SetInt64(0)
	}
	notional.Sub(notional, assetEquiv)
	if notional.Sign() < 0 {
		notional.SetInt64(0)
	}
	ledger.Idle = new(big.Int).Sub(ledger.Idle, fromIdle)
	ledger.Supplied = new(big.Int).Sub(ledger.Supplied, fromSupplied)
	ledger.Debt = new(big.Int).Sub(ledger.Debt, repay)
	ledger.Position = new(big.Int).Add(ledger.Supplied, notional)
	return repay, sold, nil
}

// Rebalance moves the vault toward the leverage target implied by the
// current trend signal. Callable by anyone: it only converges the vault on
// its own target and never pays the caller. A pass with nothing to do
// succeeds without touching state.
func (e *Engine) Rebalance(id crypto.Address) (*RebalanceResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	ledger, err := e.vault(id)
	if err != nil {
		return nil, err
	}
	series, err := e.oracle.Read()
	if err != nil {
		return nil, err
	}
	sig, err := e.oracle.Signal()
	if err != nil {
		return nil, err
	}
	policy, err := PolicyFor(ledger.Tier)
	if err != nil {
		return nil, err
	}

	prevTarget := ledger.TargetBps
	prevCurrent := ledger.CurrentBps
	newTarget := clampBps(int64(prevTarget)+int64(sig)*int64(policy.StepBps), BaseLeverageBps, policy.MaxLeverageBps)
	result := &RebalanceResult{
		Signal:        int(sig),
		BorrowedQuote: big.NewInt(0),
		RepaidQuote:   big.NewInt(0),
	}

	unwound := big.NewInt(0)
	soldTotal := big.NewInt(0)
	if ledger.Supplied.Sign() > 0 {
		desired := applyBps(ledger.Supplied, newTarget)
		switch {
		case desired.Cmp(ledger.Position) > 0 && (newTarget > prevTarget || sig > 0):
			deltaQuote := assetToQuote(new(big.Int).Sub(desired, ledger.Position), series.Price)
			headroom, err := e.pool.AvailableToBorrow(id, series.Price)
			if err != nil {
				return nil, err
			}
			borrow := minBig(deltaQuote, headroom)
			if borrow.Cmp(deltaQuote) < 0 {
				result.Clamped = true
			}
			if borrow.Sign() > 0 {
				if err := e.pool.Borrow(id, borrow, series.Price); err != nil {
					return nil, err
				}
				bought := quoteToAsset(borrow, series.Price)
				ledger.Position = new(big.Int).Add(ledger.Position, bought)
				ledger.Debt = new(big.Int).Add(ledger.Debt, borrow)
				ledger.TotalQuoteSpent = new(big.Int).Add(ledger.TotalQuoteSpent, borrow)
				ledger.TotalAssetPurchased = new(big.Int).Add(ledger.TotalAssetPurchased, bought)
				result.BorrowedQuote = borrow
			}
		case desired.Cmp(ledger.Position) < 0 && ledger.Debt.Sign() > 0 && (newTarget < prevTarget || sig < 0):
			unwindQuote := assetToQuote(new(big.Int).Sub(ledger.Position, desired), series.Price)
			repaid, sold, err := e.unwind(id, ledger, unwindQuote, series.Price, true)
			if err != nil {
				return nil, err
			}
			unwound = repaid
			soldTotal = sold
			result.RepaidQuote = repaid
		}
	}

	ledger.TargetBps = newTarget
	refreshLeverage(ledger)
	result.TargetBps = ledger.TargetBps
	result.CurrentBps = ledger.CurrentBps

	changed := newTarget != prevTarget || ledger.CurrentBps != prevCurrent ||
		result.BorrowedQuote.Sign() > 0 || result.RepaidQuote.Sign() > 0
	if !changed {
		return result, nil
	}
	if err := e.state.PutVault(id, ledger); err != nil {
		return nil, err
	}
	if unwound.Sign() > 0 {
		e.emitter.Emit(events.VaultUnwound{Vault: id, QuoteRepaid: unwound, AssetSold: soldTotal})
	}
	e.emitter.Emit(events.VaultRebalanced{
		Vault:         id,
		Signal:        int(sig),
		TargetBps:     ledger.TargetBps,
		CurrentBps:    ledger.CurrentBps,
		BorrowedQuote: result.BorrowedQuote,
		RepaidQuote:   result.RepaidQuote,
	})
	return result, nil
}
