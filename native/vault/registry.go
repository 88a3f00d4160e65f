package vault

import (
	"encoding/binary"
	"errors"

	"vaultbtc/core/events"
	"vaultbtc/crypto"
)

// ErrVaultExists is returned when address derivation collides with a vault
// already on record.
var ErrVaultExists = errors.New("vault engine: vault already exists")

// CreateVault instantiates an empty controller for the owner at the given
// risk tier and returns its address. The address is derived from the owner,
// tier, and a global counter, so creation order is reproducible from state.
func (e *Engine) CreateVault(owner crypto.Address, tier Tier) (crypto.Address, error) {
	if err := e.ready(); err != nil {
		return crypto.Address{}, err
	}
	if owner.IsZero() {
		return crypto.Address{}, ErrNotOwner
	}
	if _, err := PolicyFor(tier); err != nil {
		return crypto.Address{}, err
	}
	count, err := e.state.VaultCount()
	if err != nil {
		return crypto.Address{}, err
	}
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], count)
	id := crypto.DeriveAddress("vaultbtc/vault", owner.Bytes(), []byte(tier), seq[:])
	if existing, err := e.state.GetVault(id); err != nil {
		return crypto.Address{}, err
	} else if existing != nil {
		return crypto.Address{}, ErrVaultExists
	}
	ledger := (&VaultLedger{
		Owner:     owner,
		Tier:      tier,
		CreatedAt: e.now().Unix(),
	}).Normalize()
	if err := e.state.PutVault(id, ledger); err != nil {
		return crypto.Address{}, err
	}
	if err := e.state.AppendVaultToOwner(owner, id); err != nil {
		return crypto.Address{}, err
	}
	if err := e.state.SetVaultCount(count + 1); err != nil {
		return crypto.Address{}, err
	}
	e.emitter.Emit(events.VaultCreated{Owner: owner, Vault: id, Tier: string(tier)})
	return id, nil
}

// Vault returns a copy of the ledger for one controller.
func (e *Engine) Vault(id crypto.Address) (*VaultLedger, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ledger, err := e.vault(id)
	if err != nil {
		return nil, err
	}
	return ledger.Clone(), nil
}

// VaultsByOwner lists every controller address created for the owner, in
// creation order.
func (e *Engine) VaultsByOwner(owner crypto.Address) ([]crypto.Address, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.ListVaultsByOwner(owner)
}

// TotalVaults reports how many controllers have ever been created.
func (e *Engine) TotalVaults() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.VaultCount()
}
