package events

import (
	"math/big"

	"vaultbtc/core/types"
	"vaultbtc/crypto"
)

const (
	TypeVaultCreated       = "vault.created"
	TypeVaultDeposited     = "vault.deposited"
	TypeVaultWithdrawn     = "vault.withdrawn"
	TypeVaultSupplied      = "vault.supplied"
	TypeVaultPoolWithdrawn = "vault.pool_withdrawn"
	TypeVaultUnwound       = "vault.unwound"
	TypeVaultRebalanced    = "vault.rebalanced"
)

// VaultCreated is emitted by the registry when a new controller is
// instantiated for an owner and risk tier.
type VaultCreated struct {
	Owner crypto.Address
	Vault crypto.Address
	Tier  string
}

func (VaultCreated) EventType() string { return TypeVaultCreated }

func (e VaultCreated) Event() *types.Event {
	return &types.Event{Type: TypeVaultCreated, Attributes: map[string]string{
		"owner": formatAddress(e.Owner),
		"vault": formatAddress(e.Vault),
		"tier":  e.Tier,
	}}
}

// VaultDeposited is emitted when the owner adds idle balance.
type VaultDeposited struct {
	Vault  crypto.Address
	Amount *big.Int
}

func (VaultDeposited) EventType() string { return TypeVaultDeposited }

func (e VaultDeposited) Event() *types.Event {
	return &types.Event{Type: TypeVaultDeposited, Attributes: map[string]string{
		"vault":  formatAddress(e.Vault),
		"amount": formatAmount(e.Amount),
	}}
}

// VaultWithdrawn is emitted when the owner pulls idle balance out.
type VaultWithdrawn struct {
	Vault  crypto.Address
	Amount *big.Int
}

func (VaultWithdrawn) EventType() string { return TypeVaultWithdrawn }

func (e VaultWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeVaultWithdrawn, Attributes: map[string]string{
		"vault":  formatAddress(e.Vault),
		"amount": formatAmount(e.Amount),
	}}
}

// VaultSupplied is emitted when idle balance moves into the pool as
// collateral.
type VaultSupplied struct {
	Vault  crypto.Address
	Amount *big.Int
}

func (VaultSupplied) EventType() string { return TypeVaultSupplied }

func (e VaultSupplied) Event() *types.Event {
	return &types.Event{Type: TypeVaultSupplied, Attributes: map[string]string{
		"vault":  formatAddress(e.Vault),
		"amount": formatAmount(e.Amount),
	}}
}

// VaultPoolWithdrawn is emitted when collateral moves from the pool back to
// the idle balance.
type VaultPoolWithdrawn struct {
	Vault  crypto.Address
	Amount *big.Int
}

func (VaultPoolWithdrawn) EventType() string { return TypeVaultPoolWithdrawn }

func (e VaultPoolWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeVaultPoolWithdrawn, Attributes: map[string]string{
		"vault":  formatAddress(e.Vault),
		"amount": formatAmount(e.Amount),
	}}
}

// VaultUnwound is emitted when debt is repaid and the synthetic position
// shrinks, whether through RepayDebt or a deleveraging rebalance.
type VaultUnwound struct {
	Vault       crypto.Address
	QuoteRepaid *big.Int
	AssetSold   *big.Int
}

func (VaultUnwound) EventType() string { return TypeVaultUnwound }

func (e VaultUnwound) Event() *types.Event {
	return &types.Event{Type: TypeVaultUnwound, Attributes: map[string]string{
		"vault":       formatAddress(e.Vault),
		"quoteRepaid": formatAmount(e.QuoteRepaid),
		"assetSold":   formatAmount(e.AssetSold),
	}}
}

// VaultRebalanced summarises one rebalance pass.
type VaultRebalanced struct {
	Vault         crypto.Address
	Signal        int
	TargetBps     uint64
	CurrentBps    uint64
	BorrowedQuote *big.Int
	RepaidQuote   *big.Int
}

func (VaultRebalanced) EventType() string { return TypeVaultRebalanced }

func (e VaultRebalanced) Event() *types.Event {
	return &types.Event{Type: TypeVaultRebalanced, Attributes: map[string]string{
		"vault":         formatAddress(e.Vault),
		"signal":        formatInt(int64(e.Signal)),
		"targetBps":     formatBps(e.TargetBps),
		"currentBps":    formatBps(e.CurrentBps),
		"borrowedQuote": formatAmount(e.BorrowedQuote),
		"repaidQuote":   formatAmount(e.RepaidQuote),
	}}
}
