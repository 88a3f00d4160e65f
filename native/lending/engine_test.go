package lending

import (
	"errors"
	"math/big"
	"testing"

	"vaultbtc/crypto"
	nativecommon "vaultbtc/native/common"
	"vaultbtc/native/token"
)

type mockEngineState struct {
	accounts map[string]*Account
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{accounts: make(map[string]*Account)}
}

func (m *mockEngineState) GetLendingAccount(addr crypto.Address) (*Account, error) {
	return m.accounts[addr.String()], nil
}

func (m *mockEngineState) PutLendingAccount(addr crypto.Address, account *Account) error {
	m.accounts[addr.String()] = account
	return nil
}

// mockLedger tracks token balances the way the real ledger does, including
// the insufficient-balance failure mode.
type mockLedger struct {
	balances map[string]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{balances: make(map[string]*big.Int)}
}

func (m *mockLedger) credit(addr crypto.Address, amount int64) {
	m.balances[addr.String()] = big.NewInt(amount)
}

func (m *mockLedger) Transfer(from, to crypto.Address, amount *big.Int) error {
	balance := m.balances[from.String()]
	if balance == nil || balance.Cmp(amount) < 0 {
		return token.ErrInsufficientBalance
	}
	m.balances[from.String()] = new(big.Int).Sub(balance, amount)
	toBalance := m.balances[to.String()]
	if toBalance == nil {
		toBalance = big.NewInt(0)
	}
	m.balances[to.String()] = new(big.Int).Add(toBalance, amount)
	return nil
}

func (m *mockLedger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	balance := m.balances[addr.String()]
	if balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(balance), nil
}

type stubPauseView struct {
	modules map[string]bool
}

func (s stubPauseView) IsPaused(module string) bool {
	if s.modules == nil {
		return false
	}
	return s.modules[module]
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.VBTCPrefix, raw)
}

func fixed(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), big.NewInt(100_000_000))
}

func newTestEngine() (*Engine, *mockEngineState, *mockLedger) {
	engine := NewEngine(DefaultParams())
	state := newMockEngineState()
	ledger := newMockLedger()
	engine.SetState(state)
	engine.SetLedger(ledger)
	return engine, state, ledger
}

func TestSupplyMovesCollateralIntoCustody(t *testing.T) {
	engine, state, ledger := newTestEngine()
	supplier := makeAddress(0x01)
	ledger.credit(supplier, 10*100_000_000)

	if err := engine.Supply(supplier, fixed(5)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	account := state.accounts[supplier.String()]
	if account.Supplied.Cmp(fixed(5)) != 0 {
		t.Fatalf("expected supplied 5 units, got %s", account.Supplied)
	}
	custodyBalance, _ := ledger.BalanceOf(engine.Custody())
	if custodyBalance.Cmp(fixed(5)) != 0 {
		t.Fatalf("expected custody balance 5 units, got %s", custodyBalance)
	}

	if err := engine.Supply(supplier, fixed(100)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := engine.Supply(supplier, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
}

func TestBorrowAgainstCollateralFactor(t *testing.T) {
	engine, state, ledger := newTestEngine()
	borrower := makeAddress(0x02)
	ledger.credit(borrower, 5*100_000_000)
	if err := engine.Supply(borrower, fixed(5)); err != nil {
		t.Fatalf("supply: %v", err)
	}

	price := fixed(60_000)
	// 5 units at 60000 with a 75% collateral factor supports 225000 quote.
	limit := fixed(225_000)

	if err := engine.Borrow(borrower, new(big.Int).Add(limit, big.NewInt(1)), price); !errors.Is(err, ErrBorrowLimitExceeded) {
		t.Fatalf("expected ErrBorrowLimitExceeded, got %v", err)
	}
	if err := engine.Borrow(borrower, limit, price); err != nil {
		t.Fatalf("borrow at limit: %v", err)
	}

	account := state.accounts[borrower.String()]
	if account.Borrowed.Cmp(limit) != 0 {
		t.Fatalf("expected borrowed %s, got %s", limit, account.Borrowed)
	}
	if account.QuoteBalance.Cmp(limit) != 0 {
		t.Fatalf("expected quote balance to mirror debt, got %s", account.QuoteBalance)
	}
	if account.LastBorrowPrice.Cmp(price) != 0 {
		t.Fatalf("expected last borrow price recorded")
	}

	stranger := makeAddress(0x03)
	if err := engine.Borrow(stranger, fixed(1), price); !errors.Is(err, ErrNoCollateral) {
		t.Fatalf("expected ErrNoCollateral, got %v", err)
	}
}

func TestWithdrawKeepsPositionHealthy(t *testing.T) {
	engine, _, ledger := newTestEngine()
	borrower := makeAddress(0x04)
	ledger.credit(borrower, 10*100_000_000)
	if err := engine.Supply(borrower, fixed(10)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if err := engine.Borrow(borrower, fixed(240_000), fixed(60_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	// Remaining collateral must satisfy remaining*liqBps >= debt*10000.
	// With debt 240000 the floor is 240000*10000/8000 = 300000 scaled
	// units, leaving nothing withdrawable at these numbers.
	if err := engine.Withdraw(borrower, fixed(8)); !errors.Is(err, ErrUnhealthyPosition) {
		t.Fatalf("expected ErrUnhealthyPosition, got %v", err)
	}

	if err := engine.Repay(borrower, fixed(240_000)); err != nil {
		t.Fatalf("repay: %v", err)
	}
	if err := engine.Withdraw(borrower, fixed(10)); err != nil {
		t.Fatalf("withdraw after full repay: %v", err)
	}
	balance, _ := ledger.BalanceOf(borrower)
	if balance.Cmp(fixed(10)) != 0 {
		t.Fatalf("expected full collateral returned, got %s", balance)
	}
}

func TestWithdrawRejectsOversized(t *testing.T) {
	engine, _, ledger := newTestEngine()
	supplier := makeAddress(0x05)
	ledger.credit(supplier, 5*100_000_000)
	if err := engine.Supply(supplier, fixed(5)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if err := engine.Withdraw(supplier, fixed(6)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestWithdrawLeavesStateOnTransferFailure(t *testing.T) {
	engine, state, ledger := newTestEngine()
	supplier := makeAddress(0x0B)
	ledger.credit(supplier, 5*100_000_000)
	if err := engine.Supply(supplier, fixed(5)); err != nil {
		t.Fatalf("supply: %v", err)
	}

	// Drain custody so the outgoing transfer fails.
	ledger.balances[engine.Custody().String()] = big.NewInt(0)

	if err := engine.Withdraw(supplier, fixed(5)); !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	account := state.accounts[supplier.String()]
	if account.Supplied.Cmp(fixed(5)) != 0 {
		t.Fatalf("failed withdrawal must leave supplied unchanged, got %s", account.Supplied)
	}
}

func TestRepayBoundedByDebtAndBalance(t *testing.T) {
	engine, state, ledger := newTestEngine()
	borrower := makeAddress(0x06)
	ledger.credit(borrower, 5*100_000_000)
	if err := engine.Supply(borrower, fixed(5)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if err := engine.Borrow(borrower, fixed(1_000), fixed(60_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	if err := engine.Repay(borrower, fixed(2_000)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount repaying more than debt, got %v", err)
	}
	if err := engine.Repay(borrower, fixed(400)); err != nil {
		t.Fatalf("partial repay: %v", err)
	}
	account := state.accounts[borrower.String()]
	if account.Borrowed.Cmp(fixed(600)) != 0 {
		t.Fatalf("expected remaining debt 600, got %s", account.Borrowed)
	}
	if account.QuoteBalance.Cmp(fixed(600)) != 0 {
		t.Fatalf("expected quote balance 600, got %s", account.QuoteBalance)
	}
}

func TestAvailableToBorrowFlooredAtZero(t *testing.T) {
	engine, _, ledger := newTestEngine()
	borrower := makeAddress(0x07)
	ledger.credit(borrower, 5*100_000_000)
	if err := engine.Supply(borrower, fixed(5)); err != nil {
		t.Fatalf("supply: %v", err)
	}
	if err := engine.Borrow(borrower, fixed(225_000), fixed(60_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	headroom, err := engine.AvailableToBorrow(borrower, fixed(60_000))
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if headroom.Sign() != 0 {
		t.Fatalf("expected zero headroom at the limit, got %s", headroom)
	}

	// A lower price drives the limit under the debt and clamps to zero.
	headroom, err = engine.AvailableToBorrow(borrower, fixed(50_000))
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if headroom.Sign() != 0 {
		t.Fatalf("expected clamped zero headroom, got %s", headroom)
	}
}

func TestAccountDataHealthFactor(t *testing.T) {
	engine, _, ledger := newTestEngine()
	borrower := makeAddress(0x08)
	ledger.credit(borrower, 10*100_000_000)
	if err := engine.Supply(borrower, fixed(10)); err != nil {
		t.Fatalf("supply: %v", err)
	}

	data, err := engine.AccountData(borrower)
	if err != nil {
		t.Fatalf("account data: %v", err)
	}
	if data.HealthFactor.Cmp(HealthFactorMax) != 0 {
		t.Fatalf("expected sentinel health with no debt, got %s", data.HealthFactor)
	}
	if data.AvailableToBorrow.Sign() != 0 {
		t.Fatalf("expected zero headroom before any borrow, got %s", data.AvailableToBorrow)
	}

	if err := engine.Borrow(borrower, fixed(100_000), fixed(60_000)); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	data, err = engine.AccountData(borrower)
	if err != nil {
		t.Fatalf("account data: %v", err)
	}
	// supplied * liqBps / borrowed = 10e8 * 8000 / 100000e8 = 0.
	want := new(big.Int).Mul(fixed(10), big.NewInt(8000))
	want.Div(want, fixed(100_000))
	if data.HealthFactor.Cmp(want) != 0 {
		t.Fatalf("expected health %s, got %s", want, data.HealthFactor)
	}
	// Headroom is valued at the recorded borrow price: 225000 - 100000.
	if data.AvailableToBorrow.Cmp(fixed(125_000)) != 0 {
		t.Fatalf("expected headroom 125000, got %s", data.AvailableToBorrow)
	}
}

func TestGuardBlocksMutations(t *testing.T) {
	engine, _, ledger := newTestEngine()
	engine.SetPauses(stubPauseView{modules: map[string]bool{"lending": true}})
	supplier := makeAddress(0x09)
	ledger.credit(supplier, 5*100_000_000)

	if err := engine.Supply(supplier, fixed(1)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
	balance, _ := ledger.BalanceOf(supplier)
	if balance.Cmp(fixed(5)) != 0 {
		t.Fatalf("expected balance unchanged, got %s", balance)
	}
}
