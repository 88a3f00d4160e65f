package rpc

import "net/http"

type lendingAccountParams struct {
	Address string `json:"address"`
}

func (s *Server) handleLendingGetAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params lendingAccountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	addr, err := parseAddressParam(params.Address, "address")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	data, err := s.node.LendingAccount(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, data)
}

func (s *Server) handleLendingGetPool(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	info, err := s.node.Pool()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, info)
}
