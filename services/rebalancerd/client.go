package rebalancerd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"
)

// Client is a minimal JSON-RPC 2.0 client for the vault daemon.
type Client struct {
	url       string
	authToken string
	http      *http.Client
	nextID    atomic.Int64
}

func NewClient(url, authToken string) *Client {
	return &Client{
		url:       url,
		authToken: authToken,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Call invokes method with a single parameter object, decoding the result
// into out when out is non-nil.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		ID:      c.nextID.Add(1),
	}
	if params != nil {
		reqBody.Params = []interface{}{params}
	}
	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// seriesResult mirrors the oracle_get response.
type seriesResult struct {
	Price    *big.Int `json:"price"`
	EMAShort *big.Int `json:"emaShort"`
	EMAMid   *big.Int `json:"emaMid"`
	EMALong  *big.Int `json:"emaLong"`
}

type rebalanceResult struct {
	Signal        int      `json:"signal"`
	TargetBps     uint64   `json:"targetBps"`
	CurrentBps    uint64   `json:"currentBps"`
	BorrowedQuote *big.Int `json:"borrowedQuote"`
	RepaidQuote   *big.Int `json:"repaidQuote"`
	Clamped       bool     `json:"clamped"`
}

type vaultListResult struct {
	Vaults []string `json:"vaults"`
}

func (c *Client) OracleGet(ctx context.Context) (*seriesResult, error) {
	var series seriesResult
	if err := c.Call(ctx, "oracle_get", nil, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

func (c *Client) OracleUpdate(ctx context.Context, maintainer string, price, emaShort, emaMid, emaLong *big.Int) error {
	params := map[string]string{
		"maintainer": maintainer,
		"price":      price.String(),
		"emaShort":   emaShort.String(),
		"emaMid":     emaMid.String(),
		"emaLong":    emaLong.String(),
	}
	return c.Call(ctx, "oracle_update", params, nil)
}

func (c *Client) VaultsByOwner(ctx context.Context, owner string) ([]string, error) {
	var result vaultListResult
	if err := c.Call(ctx, "vault_listByOwner", map[string]string{"owner": owner}, &result); err != nil {
		return nil, err
	}
	return result.Vaults, nil
}

func (c *Client) Rebalance(ctx context.Context, vault string) (*rebalanceResult, error) {
	var result rebalanceResult
	if err := c.Call(ctx, "vault_rebalance", map[string]string{"vault": vault}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
