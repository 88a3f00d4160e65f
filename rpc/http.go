package rpc

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"vaultbtc/core"
	"vaultbtc/crypto"
	nativecommon "vaultbtc/native/common"
	"vaultbtc/native/lending"
	"vaultbtc/native/oracle"
	"vaultbtc/native/token"
	"vaultbtc/native/vault"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	requestIDHeader = "X-Request-Id"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Options tune the server surface. Zero values fall back to sane defaults.
type Options struct {
	// AuthToken is the bearer token gating privileged methods. Privileged
	// methods are rejected outright while it is empty.
	AuthToken string
	// MutationsPerMinute caps state-changing calls per client source.
	MutationsPerMinute int
	Logger             *slog.Logger
}

type Server struct {
	node *core.Node

	mu            sync.Mutex
	rateLimiters  map[string]*rate.Limiter
	mutationRate  rate.Limit
	mutationBurst int
	authToken     string
	logger        *slog.Logger
}

func NewServer(node *core.Node, opts Options) *Server {
	perMinute := opts.MutationsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		node:          node,
		rateLimiters:  make(map[string]*rate.Limiter),
		mutationRate:  rate.Every(time.Minute / time.Duration(perMinute)),
		mutationBurst: perMinute,
		authToken:     strings.TrimSpace(opts.AuthToken),
		logger:        logger.With("component", "rpc"),
	}
}

// Router assembles the HTTP surface: the JSON-RPC endpoint at the root,
// a liveness probe, and the Prometheus scrape endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handle)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError translates typed engine failures into JSON-RPC error
// codes so clients can branch without string matching.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	code := codeServerError
	status := http.StatusOK
	switch {
	case errors.Is(err, token.ErrUnauthorized),
		errors.Is(err, oracle.ErrUnauthorized),
		errors.Is(err, vault.ErrNotOwner):
		code = codeUnauthorized
		status = http.StatusForbidden
	case errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, lending.ErrInvalidAmount),
		errors.Is(err, lending.ErrInvalidInput),
		errors.Is(err, oracle.ErrInvalidInput),
		errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, vault.ErrInvalidTier):
		code = codeInvalidParams
	case errors.Is(err, nativecommon.ErrModulePaused):
		code = codeServerError
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, id, code, err.Error(), nil)
}

// handle is the main request handler that routes to method handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")
	requestID := uuid.NewString()
	w.Header().Set(requestIDHeader, requestID)

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	s.logger.Debug("rpc request", "method", req.Method, "requestId", requestID)

	if isMutation(req.Method) && !s.allowSource(clientSource(r)) {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	switch req.Method {
	case "oracle_update":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleOracleUpdate(w, r, req)
	case "oracle_get":
		s.handleOracleGet(w, r, req)
	case "oracle_signal":
		s.handleOracleSignal(w, r, req)
	case "token_balance":
		s.handleTokenBalance(w, r, req)
	case "token_transfer":
		s.handleTokenTransfer(w, r, req)
	case "token_mint":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleTokenMint(w, r, req)
	case "token_faucet":
		s.handleTokenFaucet(w, r, req)
	case "lending_getAccount":
		s.handleLendingGetAccount(w, r, req)
	case "lending_getPool":
		s.handleLendingGetPool(w, r, req)
	case "vault_create":
		s.handleVaultCreate(w, r, req)
	case "vault_deposit":
		s.handleVaultDeposit(w, r, req)
	case "vault_withdraw":
		s.handleVaultWithdraw(w, r, req)
	case "vault_supplyPool":
		s.handleVaultSupplyPool(w, r, req)
	case "vault_withdrawPool":
		s.handleVaultWithdrawPool(w, r, req)
	case "vault_repay":
		s.handleVaultRepay(w, r, req)
	case "vault_rebalance":
		s.handleVaultRebalance(w, r, req)
	case "vault_get":
		s.handleVaultGet(w, r, req)
	case "vault_listByOwner":
		s.handleVaultListByOwner(w, r, req)
	case "vault_count":
		s.handleVaultCount(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %s not found", req.Method), nil)
	}
}

var mutationMethods = map[string]struct{}{
	"oracle_update":      {},
	"token_transfer":     {},
	"token_mint":         {},
	"token_faucet":       {},
	"vault_create":       {},
	"vault_deposit":      {},
	"vault_withdraw":     {},
	"vault_supplyPool":   {},
	"vault_withdrawPool": {},
	"vault_repay":        {},
	"vault_rebalance":    {},
}

func isMutation(method string) bool {
	_, ok := mutationMethods[method]
	return ok
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tok == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(tok), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string) bool {
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	limiter, ok := s.rateLimiters[source]
	if !ok {
		limiter = rate.NewLimiter(s.mutationRate, s.mutationBurst)
		s.rateLimiters[source] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow()
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- Shared parameter helpers ---

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected a single parameter object")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddressParam(raw, field string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid %s: %w", field, err)
	}
	return addr, nil
}

func parseAmountParam(raw, field string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%s is required", field)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q is not a decimal integer", field, raw)
	}
	return amount, nil
}
