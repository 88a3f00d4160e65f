package token

import (
	"math/big"
	"time"

	"vaultbtc/core/events"
	"vaultbtc/core/types"
	"vaultbtc/crypto"
	nativecommon "vaultbtc/native/common"
)

const moduleName = nativecommon.ModuleToken

type engineState interface {
	GetTokenAccount(addr crypto.Address) (*types.Account, error)
	PutTokenAccount(addr crypto.Address, account *types.Account) error
	GetAllowance(owner, spender crypto.Address) (*big.Int, error)
	PutAllowance(owner, spender crypto.Address, amount *big.Int) error
}

// Engine is the vBTC fungible ledger. It is the asset-ledger collaborator
// the lending pool and vault controllers move collateral through; balances
// are 1e8 fixed-point smallest units and every movement is all-or-nothing.
type Engine struct {
	state          engineState
	authority      crypto.Address
	faucetAmount   *big.Int
	faucetCooldown time.Duration
	emitter        events.Emitter
	pauses         nativecommon.PauseView
	now            func() time.Time
}

// NewEngine constructs a token ledger whose mint calls are restricted to the
// supplied authority address.
func NewEngine(authority crypto.Address) *Engine {
	return &Engine{
		authority: authority,
		emitter:   events.NoopEmitter{},
		now:       time.Now,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter replaces the event sink. Passing nil restores the no-op sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetFaucet enables the faucet, dripping amount per claim with the supplied
// per-address cooldown. A nil or non-positive amount disables it.
func (e *Engine) SetFaucet(amount *big.Int, cooldown time.Duration) {
	if e == nil {
		return
	}
	if amount == nil || amount.Sign() <= 0 {
		e.faucetAmount = nil
		return
	}
	e.faucetAmount = new(big.Int).Set(amount)
	e.faucetCooldown = cooldown
}

// SetClock overrides the time source. Tests use it to step faucet cooldowns.
func (e *Engine) SetClock(now func() time.Time) {
	if e == nil || now == nil {
		return
	}
	e.now = now
}

// BalanceOf reports the spendable vBTC balance for the address.
func (e *Engine) BalanceOf(addr crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	account, err := e.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(account.BalanceVBTC), nil
}

// Mint credits freshly issued vBTC to the recipient. Restricted to the
// configured authority.
func (e *Engine) Mint(caller, to crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !caller.Equal(e.authority) {
		return ErrUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	account.BalanceVBTC = new(big.Int).Add(account.BalanceVBTC, amount)
	if err := e.state.PutTokenAccount(to, account); err != nil {
		return err
	}
	e.emitter.Emit(events.TokenMint{To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Burn destroys vBTC from the caller's own balance.
func (e *Engine) Burn(caller crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := e.loadAccount(caller)
	if err != nil {
		return err
	}
	if account.BalanceVBTC.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	account.BalanceVBTC = new(big.Int).Sub(account.BalanceVBTC, amount)
	return e.state.PutTokenAccount(caller, account)
}

// Transfer moves vBTC between two addresses. Either both balances change or
// neither does.
func (e *Engine) Transfer(from, to crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	sender, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if sender.BalanceVBTC.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from.Equal(to) {
		return nil
	}
	recipient, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	sender.BalanceVBTC = new(big.Int).Sub(sender.BalanceVBTC, amount)
	recipient.BalanceVBTC = new(big.Int).Add(recipient.BalanceVBTC, amount)
	if err := e.state.PutTokenAccount(from, sender); err != nil {
		return err
	}
	if err := e.state.PutTokenAccount(to, recipient); err != nil {
		return err
	}
	e.emitter.Emit(events.TokenTransfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Approve sets the allowance the spender may move out of the owner's
// balance via TransferFrom. The new allowance replaces the previous one.
func (e *Engine) Approve(owner, spender crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return e.state.PutAllowance(owner, spender, new(big.Int).Set(amount))
}

// Allowance reports the remaining amount the spender may draw from owner.
func (e *Engine) Allowance(owner, spender crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	allowance, err := e.state.GetAllowance(owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(allowance), nil
}

// TransferFrom moves vBTC out of the owner's balance on behalf of an
// approved spender, decrementing the allowance.
func (e *Engine) TransferFrom(spender, from, to crypto.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	allowance, err := e.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := e.Transfer(from, to, amount); err != nil {
		return err
	}
	remaining := new(big.Int).Sub(allowance, amount)
	return e.state.PutAllowance(from, spender, remaining)
}

// Faucet drips the configured amount to the recipient, rate limited per
// address by the cooldown.
func (e *Engine) Faucet(to crypto.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.faucetAmount == nil {
		return nil, ErrFaucetDisabled
	}
	account, err := e.loadAccount(to)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if account.FaucetLastClaim > 0 {
		elapsed := now.Unix() - account.FaucetLastClaim
		if elapsed < int64(e.faucetCooldown/time.Second) {
			return nil, ErrFaucetCooldown
		}
	}
	account.BalanceVBTC = new(big.Int).Add(account.BalanceVBTC, e.faucetAmount)
	account.FaucetLastClaim = now.Unix()
	if err := e.state.PutTokenAccount(to, account); err != nil {
		return nil, err
	}
	dripped := new(big.Int).Set(e.faucetAmount)
	e.emitter.Emit(events.TokenFaucet{To: to, Amount: dripped})
	return dripped, nil
}

func (e *Engine) loadAccount(addr crypto.Address) (*types.Account, error) {
	account, err := e.state.GetTokenAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Normalize(), nil
}
