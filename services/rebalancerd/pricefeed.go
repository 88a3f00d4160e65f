package rebalancerd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// PriceSource yields the current asset spot price as a 1e8 fixed-point
// integer in quote units.
type PriceSource interface {
	FetchPrice(ctx context.Context) (*big.Int, error)
}

// HTTPPriceSource fetches a JSON document and reads a decimal price from a
// configurable field. The field may be a number or a numeric string and is
// scaled to 1e8 fixed point.
type HTTPPriceSource struct {
	url    string
	field  string
	client *http.Client
}

func NewHTTPPriceSource(cfg PriceFeedConfig) *HTTPPriceSource {
	return &HTTPPriceSource{
		url:    cfg.URL,
		field:  cfg.Field,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

func (s *HTTPPriceSource) FetchPrice(ctx context.Context) (*big.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch price: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch price: unexpected status %d", resp.StatusCode)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode price payload: %w", err)
	}
	raw, ok := payload[s.field]
	if !ok {
		return nil, fmt.Errorf("price payload missing field %q", s.field)
	}
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	price, err := parseFixedPoint(text)
	if err != nil {
		return nil, fmt.Errorf("parse price field %q: %w", s.field, err)
	}
	return price, nil
}

// parseFixedPoint converts a decimal string such as "60450.12" into a 1e8
// fixed-point integer. Fractional digits beyond eight are truncated.
func parseFixedPoint(text string) (*big.Int, error) {
	if text == "" {
		return nil, fmt.Errorf("empty value")
	}
	whole := text
	frac := ""
	if idx := strings.IndexByte(text, '.'); idx >= 0 {
		whole = text[:idx]
		frac = text[idx+1:]
	}
	if len(frac) > 8 {
		frac = frac[:8]
	}
	frac += strings.Repeat("0", 8-len(frac))
	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal %q", text)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}
	return value, nil
}
