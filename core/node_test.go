package core

import (
	"errors"
	"math/big"
	"testing"

	"vaultbtc/crypto"
	nativecommon "vaultbtc/native/common"
	"vaultbtc/native/oracle"
	"vaultbtc/native/vault"
	"vaultbtc/storage"
)

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.VBTCPrefix, raw)
}

func fixed(units int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(units), big.NewInt(100_000_000))
}

func newTestNode(t *testing.T, cfg Config) *Node {
	t.Helper()
	node, err := NewNode(storage.NewMemDB(), cfg, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func bullishSeries() (price, short, mid, long *big.Int) {
	return fixed(60_000), fixed(59_000), fixed(58_000), fixed(55_000)
}

// bearishSeries keeps the spot price unchanged and lifts the EMAs above it,
// so an unwind retires exactly the debt taken on during the bullish leg.
func bearishSeries() (price, short, mid, long *big.Int) {
	return fixed(60_000), fixed(61_000), fixed(62_000), fixed(63_000)
}

func TestGenesisSeedsOracleAndMints(t *testing.T) {
	maintainer := makeAddress(0x01)
	holder := makeAddress(0x02)
	db := storage.NewMemDB()
	cfg := Config{
		Maintainer: maintainer,
		Authority:  maintainer,
		Genesis: GenesisState{
			Price:    fixed(60_000),
			EMAShort: fixed(60_000),
			EMAMid:   fixed(60_000),
			EMALong:  fixed(60_000),
			Mints:    []GenesisAllocation{{Address: holder, Amount: fixed(100)}},
		},
	}
	node, err := NewNode(db, cfg, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	series, err := node.OracleSeries()
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if series.Price.Cmp(fixed(60_000)) != 0 {
		t.Fatalf("expected seeded price, got %s", series.Price)
	}
	balance, err := node.Balance(holder)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(fixed(100)) != 0 {
		t.Fatalf("expected genesis mint 100, got %s", balance)
	}

	// A restart over the same database must not mint again.
	node, err = NewNode(db, cfg, nil)
	if err != nil {
		t.Fatalf("restart node: %v", err)
	}
	balance, err = node.Balance(holder)
	if err != nil {
		t.Fatalf("balance after restart: %v", err)
	}
	if balance.Cmp(fixed(100)) != 0 {
		t.Fatalf("expected mint applied once, got %s", balance)
	}
}

func TestGenesisPriceRequiresAllEMAs(t *testing.T) {
	maintainer := makeAddress(0x01)
	cfg := Config{
		Maintainer: maintainer,
		Authority:  maintainer,
		Genesis:    GenesisState{Price: fixed(60_000)},
	}
	if _, err := NewNode(storage.NewMemDB(), cfg, nil); err == nil {
		t.Fatalf("expected error for genesis price without emas")
	}
	cfg.Genesis.EMAShort = fixed(60_000)
	cfg.Genesis.EMAMid = fixed(60_000)
	if _, err := NewNode(storage.NewMemDB(), cfg, nil); err == nil {
		t.Fatalf("expected error for genesis series missing long ema")
	}
}

func TestOracleUpdateRestrictedToMaintainer(t *testing.T) {
	maintainer := makeAddress(0x01)
	node := newTestNode(t, Config{Maintainer: maintainer, Authority: maintainer})

	price, short, mid, long := bullishSeries()
	if err := node.UpdateOracle(makeAddress(0x02), price, short, mid, long); !errors.Is(err, oracle.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := node.UpdateOracle(maintainer, price, short, mid, long); err != nil {
		t.Fatalf("update: %v", err)
	}
	sig, err := node.OracleSignal()
	if err != nil {
		t.Fatalf("signal: %v", err)
	}
	if sig != oracle.SignalStrongBullish {
		t.Fatalf("expected strong bullish, got %d", sig)
	}
}

func TestVaultLifecycleEndToEnd(t *testing.T) {
	maintainer := makeAddress(0x01)
	owner := makeAddress(0x02)
	node := newTestNode(t, Config{Maintainer: maintainer, Authority: maintainer})

	if err := node.Mint(maintainer, owner, fixed(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	price, short, mid, long := bullishSeries()
	if err := node.UpdateOracle(maintainer, price, short, mid, long); err != nil {
		t.Fatalf("oracle update: %v", err)
	}

	id, err := node.CreateVault(owner, "medium")
	if err != nil {
		t.Fatalf("create vault: %v", err)
	}
	if _, err := node.CreateVault(owner, "reckless"); !errors.Is(err, vault.ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}

	if err := node.VaultDeposit(owner, id, fixed(10)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := node.VaultSupplyPool(owner, id, fixed(10)); err != nil {
		t.Fatalf("supply pool: %v", err)
	}

	pool, err := node.Pool()
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if pool.TotalCollateral.Cmp(fixed(10)) != 0 {
		t.Fatalf("expected pool collateral 10, got %s", pool.TotalCollateral)
	}

	result, err := node.VaultRebalance(id)
	if err != nil {
		t.Fatalf("rebalance: %v", err)
	}
	if result.TargetBps != 12000 || result.CurrentBps != 12000 {
		t.Fatalf("expected 12000/12000, got %d/%d", result.TargetBps, result.CurrentBps)
	}

	data, err := node.LendingAccount(id)
	if err != nil {
		t.Fatalf("lending account: %v", err)
	}
	if data.Borrowed.Cmp(fixed(120_000)) != 0 {
		t.Fatalf("expected debt 120000, got %s", data.Borrowed)
	}

	// Trend reversal unwinds back toward the floor across passes.
	price, short, mid, long = bearishSeries()
	if err := node.UpdateOracle(maintainer, price, short, mid, long); err != nil {
		t.Fatalf("oracle update: %v", err)
	}
	for i := 0; i < 3; i++ {
		if result, err = node.VaultRebalance(id); err != nil {
			t.Fatalf("unwind pass %d: %v", i, err)
		}
	}
	if result.TargetBps != 10000 {
		t.Fatalf("expected target back at 10000, got %d", result.TargetBps)
	}
	ledger, err := node.Vault(id)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	if ledger.Debt.Sign() != 0 {
		t.Fatalf("expected debt cleared, got %s", ledger.Debt)
	}

	owned, err := node.VaultsByOwner(owner)
	if err != nil {
		t.Fatalf("vaults by owner: %v", err)
	}
	if len(owned) != 1 || !owned[0].Equal(id) {
		t.Fatalf("expected owner index with one vault")
	}
}

func TestPausedModuleRefusesMutations(t *testing.T) {
	maintainer := makeAddress(0x01)
	node := newTestNode(t, Config{
		Maintainer: maintainer,
		Authority:  maintainer,
		Paused:     []string{"token"},
	})

	err := node.Mint(maintainer, makeAddress(0x02), fixed(1))
	if !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected ErrModulePaused, got %v", err)
	}
}

func TestFaucetConfiguredThroughNode(t *testing.T) {
	maintainer := makeAddress(0x01)
	claimer := makeAddress(0x02)
	node := newTestNode(t, Config{
		Maintainer:   maintainer,
		Authority:    maintainer,
		FaucetAmount: fixed(1),
	})

	dripped, err := node.Faucet(claimer)
	if err != nil {
		t.Fatalf("faucet: %v", err)
	}
	if dripped.Cmp(fixed(1)) != 0 {
		t.Fatalf("expected drip 1, got %s", dripped)
	}
	balance, _ := node.Balance(claimer)
	if balance.Cmp(fixed(1)) != 0 {
		t.Fatalf("expected balance 1, got %s", balance)
	}
}
