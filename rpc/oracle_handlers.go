package rpc

import (
	"net/http"
)

type oracleUpdateParams struct {
	Maintainer string `json:"maintainer"`
	Price      string `json:"price"`
	EMAShort   string `json:"emaShort"`
	EMAMid     string `json:"emaMid"`
	EMALong    string `json:"emaLong"`
}

type oracleSignalResult struct {
	Signal int    `json:"signal"`
	Label  string `json:"label"`
}

func (s *Server) handleOracleUpdate(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params oracleUpdateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return
	}
	caller, err := parseAddressParam(params.Maintainer, "maintainer")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	price, err := parseAmountParam(params.Price, "price")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	emaShort, err := parseAmountParam(params.EMAShort, "emaShort")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	emaMid, err := parseAmountParam(params.EMAMid, "emaMid")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	emaLong, err := parseAmountParam(params.EMALong, "emaLong")
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.node.UpdateOracle(caller, price, emaShort, emaMid, emaLong); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	series, err := s.node.OracleSeries()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, series)
}

func (s *Server) handleOracleGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	series, err := s.node.OracleSeries()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, series)
}

func (s *Server) handleOracleSignal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	sig, err := s.node.OracleSignal()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, oracleSignalResult{Signal: int(sig), Label: sig.String()})
}
