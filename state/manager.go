// Package state maps the engines' narrow persistence interfaces onto a
// single key-value database. Values are JSON encoded; keys are namespaced
// per module so a LevelDB snapshot can be inspected with standard tooling.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"vaultbtc/core/types"
	"vaultbtc/crypto"
	"vaultbtc/native/lending"
	"vaultbtc/native/oracle"
	"vaultbtc/native/vault"
	"vaultbtc/storage"
)

const (
	tokenAccountPrefix = "token/acct/"
	allowancePrefix    = "token/allow/"
	oracleSeriesKey    = "oracle/series"
	lendingPrefix      = "lend/acct/"
	vaultLedgerPrefix  = "vault/ledger/"
	vaultOwnerPrefix   = "vault/owner/"
	vaultCountKey      = "vault/count"
)

// Manager satisfies every engine's state interface over one database.
type Manager struct {
	db storage.Database
}

func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// get unmarshals the value under key into out, reporting false when the key
// does not exist.
func (m *Manager) get(key string, out interface{}) (bool, error) {
	raw, err := m.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %s: %w", key, err)
	}
	return true, nil
}

func (m *Manager) put(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s: %w", key, err)
	}
	return m.db.Put([]byte(key), raw)
}

// GetTokenAccount loads the balance record for an address, or nil when the
// address has never been touched.
func (m *Manager) GetTokenAccount(addr crypto.Address) (*types.Account, error) {
	account := new(types.Account)
	ok, err := m.get(tokenAccountPrefix+addr.String(), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return account, nil
}

func (m *Manager) PutTokenAccount(addr crypto.Address, account *types.Account) error {
	return m.put(tokenAccountPrefix+addr.String(), account.Normalize())
}

func (m *Manager) GetAllowance(owner, spender crypto.Address) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.get(allowancePrefix+owner.String()+"/"+spender.String(), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return amount, nil
}

func (m *Manager) PutAllowance(owner, spender crypto.Address, amount *big.Int) error {
	return m.put(allowancePrefix+owner.String()+"/"+spender.String(), amount)
}

func (m *Manager) GetOracleSeries() (*oracle.Series, error) {
	series := new(oracle.Series)
	ok, err := m.get(oracleSeriesKey, series)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return series, nil
}

func (m *Manager) PutOracleSeries(series *oracle.Series) error {
	return m.put(oracleSeriesKey, series)
}

func (m *Manager) GetLendingAccount(addr crypto.Address) (*lending.Account, error) {
	account := new(lending.Account)
	ok, err := m.get(lendingPrefix+addr.String(), account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return account, nil
}

func (m *Manager) PutLendingAccount(addr crypto.Address, account *lending.Account) error {
	return m.put(lendingPrefix+addr.String(), account.Normalize())
}

func (m *Manager) GetVault(id crypto.Address) (*vault.VaultLedger, error) {
	ledger := new(vault.VaultLedger)
	ok, err := m.get(vaultLedgerPrefix+id.String(), ledger)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return ledger, nil
}

func (m *Manager) PutVault(id crypto.Address, ledger *vault.VaultLedger) error {
	return m.put(vaultLedgerPrefix+id.String(), ledger)
}

func (m *Manager) ListVaultsByOwner(owner crypto.Address) ([]crypto.Address, error) {
	var list []crypto.Address
	if _, err := m.get(vaultOwnerPrefix+owner.String(), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (m *Manager) AppendVaultToOwner(owner, id crypto.Address) error {
	list, err := m.ListVaultsByOwner(owner)
	if err != nil {
		return err
	}
	return m.put(vaultOwnerPrefix+owner.String(), append(list, id))
}

func (m *Manager) VaultCount() (uint64, error) {
	var count uint64
	if _, err := m.get(vaultCountKey, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (m *Manager) SetVaultCount(count uint64) error {
	return m.put(vaultCountKey, count)
}
