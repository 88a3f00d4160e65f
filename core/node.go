package core

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"vaultbtc/core/events"
	"vaultbtc/crypto"
	nativecommon "vaultbtc/native/common"
	"vaultbtc/native/lending"
	"vaultbtc/native/oracle"
	"vaultbtc/native/token"
	"vaultbtc/native/vault"
	"vaultbtc/observability/metrics"
	"vaultbtc/state"
	"vaultbtc/storage"
)

var genesisDoneKey = []byte("genesis/done")

// GenesisAllocation credits an address at first boot.
type GenesisAllocation struct {
	Address crypto.Address
	Amount  *big.Int
}

// GenesisState seeds the oracle series and initial balances. The series is
// only written when none exists; allocations run exactly once.
type GenesisState struct {
	Price    *big.Int
	EMAShort *big.Int
	EMAMid   *big.Int
	EMALong  *big.Int
	Mints    []GenesisAllocation
}

// Config carries everything the node needs beyond its database.
type Config struct {
	// Maintainer may overwrite the oracle series; Authority may mint.
	Maintainer crypto.Address
	Authority  crypto.Address

	FaucetAmount   *big.Int
	FaucetCooldown time.Duration

	LendingParams lending.Params
	// Paused lists module names refusing mutations.
	Paused  []string
	Genesis GenesisState
}

// Node is the central controller wiring the engines to shared state. Every
// mutation runs under one lock so invariants are always checked against the
// snapshot they mutate; reads share an RLock and never observe a torn write.
type Node struct {
	mu      sync.RWMutex
	db      storage.Database
	manager *state.Manager
	hub     *events.Hub
	logger  *slog.Logger

	token  *token.Engine
	oracle *oracle.Engine
	pool   *lending.Engine
	vaults *vault.Engine
}

func NewNode(db storage.Database, cfg Config, logger *slog.Logger) (*Node, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.LendingParams.Validate(); err != nil {
		return nil, err
	}

	manager := state.NewManager(db)
	hub := events.NewHub()
	pauses := nativecommon.NewPauses(cfg.Paused...)

	tokenEngine := token.NewEngine(cfg.Authority)
	tokenEngine.SetState(manager)
	tokenEngine.SetEmitter(hub)
	tokenEngine.SetPauses(pauses)
	tokenEngine.SetFaucet(cfg.FaucetAmount, cfg.FaucetCooldown)

	oracleEngine := oracle.NewEngine(cfg.Maintainer)
	oracleEngine.SetState(manager)
	oracleEngine.SetEmitter(hub)
	oracleEngine.SetPauses(pauses)

	poolEngine := lending.NewEngine(cfg.LendingParams)
	poolEngine.SetState(manager)
	poolEngine.SetLedger(tokenEngine)
	poolEngine.SetEmitter(hub)
	poolEngine.SetPauses(pauses)

	vaultEngine := vault.NewEngine()
	vaultEngine.SetState(manager)
	vaultEngine.SetPool(poolEngine)
	vaultEngine.SetOracle(oracleEngine)
	vaultEngine.SetLedger(tokenEngine)
	vaultEngine.SetEmitter(hub)
	vaultEngine.SetPauses(pauses)

	n := &Node{
		db:      db,
		manager: manager,
		hub:     hub,
		logger:  logger.With("component", "node"),
		token:   tokenEngine,
		oracle:  oracleEngine,
		pool:    poolEngine,
		vaults:  vaultEngine,
	}
	if err := n.applyGenesis(cfg); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Node) applyGenesis(cfg Config) error {
	if cfg.Genesis.Price != nil && cfg.Genesis.Price.Sign() > 0 {
		// The oracle series is written atomically, so a seed must carry
		// every band.
		if cfg.Genesis.EMAShort == nil || cfg.Genesis.EMAMid == nil || cfg.Genesis.EMALong == nil {
			return fmt.Errorf("genesis: price requires emaShort, emaMid and emaLong")
		}
		existing, err := n.manager.GetOracleSeries()
		if err != nil {
			return err
		}
		if existing == nil {
			series := &oracle.Series{
				Price:      new(big.Int).Set(cfg.Genesis.Price),
				EMAShort:   new(big.Int).Set(cfg.Genesis.EMAShort),
				EMAMid:     new(big.Int).Set(cfg.Genesis.EMAMid),
				EMALong:    new(big.Int).Set(cfg.Genesis.EMALong),
				LastUpdate: time.Now().Unix(),
			}
			if err := n.manager.PutOracleSeries(series); err != nil {
				return err
			}
			n.logger.Info("seeded genesis oracle series", "price", series.Price.String())
		}
	}
	if len(cfg.Genesis.Mints) == 0 {
		return nil
	}
	done, err := n.db.Has(genesisDoneKey)
	if err != nil {
		return err
	}
	if done {
		return nil
	}
	for _, alloc := range cfg.Genesis.Mints {
		if err := n.token.Mint(cfg.Authority, alloc.Address, alloc.Amount); err != nil {
			return fmt.Errorf("genesis mint for %s: %w", alloc.Address.String(), err)
		}
	}
	return n.db.Put(genesisDoneKey, []byte{1})
}

// Events exposes the hub so RPC streams and metric watchers can subscribe.
func (n *Node) Events() *events.Hub { return n.hub }

// ---- Oracle ----

func (n *Node) UpdateOracle(caller crypto.Address, price, emaShort, emaMid, emaLong *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.oracle.Update(caller, price, emaShort, emaMid, emaLong); err != nil {
		return err
	}
	sig, err := n.oracle.Signal()
	if err != nil {
		return err
	}
	priceFloat, _ := new(big.Float).SetInt(price).Float64()
	metrics.Engine().ObserveOracleUpdate(priceFloat, int(sig))
	n.logger.Info("oracle updated", "price", price.String(), "signal", sig.String())
	return nil
}

func (n *Node) OracleSeries() (*oracle.Series, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.oracle.Read()
}

func (n *Node) OracleSignal() (oracle.Signal, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.oracle.Signal()
}

// ---- Token ----

func (n *Node) Balance(addr crypto.Address) (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.token.BalanceOf(addr)
}

func (n *Node) Transfer(from, to crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token.Transfer(from, to, amount)
}

func (n *Node) Mint(caller, to crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token.Mint(caller, to, amount)
}

func (n *Node) Faucet(to crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token.Faucet(to)
}

// ---- Lending pool ----

func (n *Node) LendingAccount(addr crypto.Address) (*lending.AccountData, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pool.AccountData(addr)
}

// PoolInfo describes the pool configuration and the collateral it holds.
type PoolInfo struct {
	Params          lending.Params `json:"params"`
	TotalCollateral *big.Int       `json:"totalCollateral"`
}

func (n *Node) Pool() (*PoolInfo, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	held, err := n.token.BalanceOf(n.pool.Custody())
	if err != nil {
		return nil, err
	}
	return &PoolInfo{Params: n.pool.Params(), TotalCollateral: held}, nil
}

// ---- Vaults ----

func (n *Node) CreateVault(owner crypto.Address, tier string) (crypto.Address, error) {
	parsed, err := vault.ParseTier(tier)
	if err != nil {
		return crypto.Address{}, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	id, err := n.vaults.CreateVault(owner, parsed)
	if err != nil {
		return crypto.Address{}, err
	}
	metrics.Engine().ObserveVaultCreated()
	n.logger.Info("vault created", "vault", id.String(), "tier", string(parsed))
	return id, nil
}

func (n *Node) VaultDeposit(caller, id crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vaults.Deposit(caller, id, amount)
}

func (n *Node) VaultWithdraw(caller, id crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vaults.Withdraw(caller, id, amount)
}

func (n *Node) VaultSupplyPool(caller, id crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.vaults.SupplyToPool(caller, id, amount); err != nil {
		return err
	}
	n.observePoolCollateral()
	return nil
}

func (n *Node) VaultWithdrawPool(caller, id crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.vaults.WithdrawFromPool(caller, id, amount); err != nil {
		return err
	}
	n.observePoolCollateral()
	return nil
}

func (n *Node) VaultRepay(caller, id crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.vaults.RepayDebt(caller, id, amount); err != nil {
		return err
	}
	n.observePoolCollateral()
	return nil
}

// observePoolCollateral refreshes the custody gauge. Callers hold the node
// lock.
func (n *Node) observePoolCollateral() {
	held, err := n.token.BalanceOf(n.pool.Custody())
	if err != nil {
		return
	}
	heldFloat, _ := new(big.Float).SetInt(held).Float64()
	metrics.Engine().SetPoolCollateral(heldFloat)
}

func (n *Node) VaultRebalance(id crypto.Address) (*vault.RebalanceResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	result, err := n.vaults.Rebalance(id)
	if err != nil {
		return nil, err
	}
	direction := "none"
	switch {
	case result.BorrowedQuote.Sign() > 0:
		direction = "up"
	case result.RepaidQuote.Sign() > 0:
		direction = "down"
	}
	metrics.Engine().ObserveRebalance(direction, result.Clamped)
	metrics.Engine().SetVaultLeverage(id.String(), result.CurrentBps)
	borrowedFloat, _ := new(big.Float).SetInt(result.BorrowedQuote).Float64()
	repaidFloat, _ := new(big.Float).SetInt(result.RepaidQuote).Float64()
	metrics.Engine().ObserveQuoteFlow(borrowedFloat, repaidFloat)
	n.observePoolCollateral()
	n.logger.Debug("vault rebalanced",
		"vault", id.String(),
		"signal", result.Signal,
		"targetBps", result.TargetBps,
		"currentBps", result.CurrentBps,
	)
	return result, nil
}

func (n *Node) Vault(id crypto.Address) (*vault.VaultLedger, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.vaults.Vault(id)
}

func (n *Node) VaultsByOwner(owner crypto.Address) ([]crypto.Address, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.vaults.VaultsByOwner(owner)
}

func (n *Node) TotalVaults() (uint64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.vaults.TotalVaults()
}
