package rpc

import (
	"math/big"
	"net/http"

	"vaultbtc/crypto"
)

type vaultCreateParams struct {
	Owner string `json:"owner"`
	Tier  string `json:"tier"`
}

type vaultCreateResult struct {
	Vault string `json:"vault"`
	Tier  string `json:"tier"`
}

type vaultAmountParams struct {
	Caller string `json:"caller"`
	Vault  string `json:"vault"`
	Amount string `json:"amount"`
}

type vaultIDParams struct {
	Vault string `json:"vault"`
}

type vaultOwnerParams struct {
	Owner string `json:"owner"`
}

type vaultListResult struct {
	Owner  string   `json:"owner"`
	Vaults []string `json:"vaults"`
}

type vaultCountResult struct {
	Total uint64 `json:"total"`
}

func (s *Server) handleVaultCreate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params vaultCreateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	owner, err := parseAddressParam(params.Owner, "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := s.node.CreateVault(owner, params.Tier)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, vaultCreateResult{Vault: id.String(), Tier: params.Tier})
}

// vaultMutation factors the shared decode-then-dispatch shape of the four
// owner-gated amount operations.
func (s *Server) vaultMutation(w http.ResponseWriter, req *RPCRequest, op func(caller, id crypto.Address, amount *big.Int) error) {
	var params vaultAmountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Caller, "caller")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAddressParam(params.Vault, "vault")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmountParam(params.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := op(caller, id, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

func (s *Server) handleVaultDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.vaultMutation(w, req, s.node.VaultDeposit)
}

func (s *Server) handleVaultWithdraw(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.vaultMutation(w, req, s.node.VaultWithdraw)
}

func (s *Server) handleVaultSupplyPool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.vaultMutation(w, req, s.node.VaultSupplyPool)
}

func (s *Server) handleVaultWithdrawPool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.vaultMutation(w, req, s.node.VaultWithdrawPool)
}

func (s *Server) handleVaultRepay(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	s.vaultMutation(w, req, s.node.VaultRepay)
}

func (s *Server) handleVaultRebalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params vaultIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	id, err := parseAddressParam(params.Vault, "vault")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.node.VaultRebalance(id)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleVaultGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params vaultIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	id, err := parseAddressParam(params.Vault, "vault")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ledger, err := s.node.Vault(id)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ledger)
}

func (s *Server) handleVaultListByOwner(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params vaultOwnerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	owner, err := parseAddressParam(params.Owner, "owner")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ids, err := s.node.VaultsByOwner(owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	list := make([]string, 0, len(ids))
	for _, id := range ids {
		list = append(list, id.String())
	}
	writeResult(w, req.ID, vaultListResult{Owner: owner.String(), Vaults: list})
}

func (s *Server) handleVaultCount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	total, err := s.node.TotalVaults()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, vaultCountResult{Total: total})
}
