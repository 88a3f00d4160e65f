package token

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"vaultbtc/core/types"
	"vaultbtc/crypto"
	nativecommon "vaultbtc/native/common"
)

type mockEngineState struct {
	accounts   map[string]*types.Account
	allowances map[string]*big.Int
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		accounts:   make(map[string]*types.Account),
		allowances: make(map[string]*big.Int),
	}
}

func (m *mockEngineState) GetTokenAccount(addr crypto.Address) (*types.Account, error) {
	return m.accounts[addr.String()], nil
}

func (m *mockEngineState) PutTokenAccount(addr crypto.Address, account *types.Account) error {
	m.accounts[addr.String()] = account
	return nil
}

func (m *mockEngineState) allowanceKey(owner, spender crypto.Address) string {
	return owner.String() + "/" + spender.String()
}

func (m *mockEngineState) GetAllowance(owner, spender crypto.Address) (*big.Int, error) {
	return m.allowances[m.allowanceKey(owner, spender)], nil
}

func (m *mockEngineState) PutAllowance(owner, spender crypto.Address, amount *big.Int) error {
	m.allowances[m.allowanceKey(owner, spender)] = amount
	return nil
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

func newTestEngine(authority crypto.Address) (*Engine, *mockEngineState) {
	engine := NewEngine(authority)
	state := newMockEngineState()
	engine.SetState(state)
	return engine, state
}

func TestMintRestrictedToAuthority(t *testing.T) {
	authority := makeAddress(0x01)
	recipient := makeAddress(0x02)
	engine, _ := newTestEngine(authority)

	if err := engine.Mint(recipient, recipient, big.NewInt(100)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := engine.Mint(authority, recipient, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := engine.BalanceOf(recipient)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected balance 100, got %s", balance)
	}
}

func TestTransferAllOrNothing(t *testing.T) {
	authority := makeAddress(0x01)
	alice := makeAddress(0x02)
	bob := makeAddress(0x03)
	engine, _ := newTestEngine(authority)
	if err := engine.Mint(authority, alice, big.NewInt(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := engine.Transfer(alice, bob, big.NewInt(80)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	aliceBalance, _ := engine.BalanceOf(alice)
	bobBalance, _ := engine.BalanceOf(bob)
	if aliceBalance.Cmp(big.NewInt(50)) != 0 || bobBalance.Sign() != 0 {
		t.Fatalf("expected balances untouched after failed transfer, got %s/%s", aliceBalance, bobBalance)
	}

	if err := engine.Transfer(alice, bob, big.NewInt(30)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	aliceBalance, _ = engine.BalanceOf(alice)
	bobBalance, _ = engine.BalanceOf(bob)
	if aliceBalance.Cmp(big.NewInt(20)) != 0 || bobBalance.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("expected 20/30, got %s/%s", aliceBalance, bobBalance)
	}

	// Self transfer is a no-op, not an error.
	if err := engine.Transfer(alice, alice, big.NewInt(10)); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	aliceBalance, _ = engine.BalanceOf(alice)
	if aliceBalance.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("expected balance unchanged by self transfer, got %s", aliceBalance)
	}
}

func TestBurnRequiresBalance(t *testing.T) {
	authority := makeAddress(0x01)
	holder := makeAddress(0x02)
	engine, _ := newTestEngine(authority)
	if err := engine.Mint(authority, holder, big.NewInt(40)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := engine.Burn(holder, big.NewInt(41)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := engine.Burn(holder, big.NewInt(15)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	balance, _ := engine.BalanceOf(holder)
	if balance.Cmp(big.NewInt(25)) != 0 {
		t.Fatalf("expected balance 25, got %s", balance)
	}
}

func TestApproveTransferFromDecrementsAllowance(t *testing.T) {
	authority := makeAddress(0x01)
	owner := makeAddress(0x02)
	spender := makeAddress(0x03)
	sinkAddr := makeAddress(0x04)
	engine, _ := newTestEngine(authority)
	if err := engine.Mint(authority, owner, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := engine.TransferFrom(spender, owner, sinkAddr, big.NewInt(10)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}

	if err := engine.Approve(owner, spender, big.NewInt(60)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := engine.TransferFrom(spender, owner, sinkAddr, big.NewInt(45)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	remaining, err := engine.Allowance(owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if remaining.Cmp(big.NewInt(15)) != 0 {
		t.Fatalf("expected allowance 15, got %s", remaining)
	}
	if err := engine.TransferFrom(spender, owner, sinkAddr, big.NewInt(20)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance after drawdown, got %v", err)
	}
}

func TestFaucetCooldown(t *testing.T) {
	authority := makeAddress(0x01)
	claimer := makeAddress(0x02)
	engine, _ := newTestEngine(authority)

	if _, err := engine.Faucet(claimer); !errors.Is(err, ErrFaucetDisabled) {
		t.Fatalf("expected ErrFaucetDisabled, got %v", err)
	}

	current := time.Unix(1_700_000_000, 0)
	engine.SetClock(func() time.Time { return current })
	engine.SetFaucet(big.NewInt(500), time.Hour)

	dripped, err := engine.Faucet(claimer)
	if err != nil {
		t.Fatalf("faucet: %v", err)
	}
	if dripped.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("expected drip 500, got %s", dripped)
	}

	current = current.Add(30 * time.Minute)
	if _, err := engine.Faucet(claimer); !errors.Is(err, ErrFaucetCooldown) {
		t.Fatalf("expected ErrFaucetCooldown, got %v", err)
	}

	current = current.Add(31 * time.Minute)
	if _, err := engine.Faucet(claimer); err != nil {
		t.Fatalf("faucet after cooldown: %v", err)
	}
	balance, _ := engine.BalanceOf(claimer)
	if balance.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected balance 1000, got %s", balance)
	}
}

func TestGuardBlocksMutations(t *testing.T) {
	authority := makeAddress(0x01)
	engine, _ := newTestEngine(authority)
	engine.SetPauses(stubPauseView{modules: map[string]bool{"token": true}})

	if err := engine.Mint(authority, makeAddress(0x02), big.NewInt(1)); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}
