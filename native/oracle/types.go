package oracle

import "math/big"

// Series is the stored price band set: the spot price and three externally
// computed EMA reference levels, all strictly positive 1e8 fixed-point
// values. The four values are only ever replaced together.
type Series struct {
	Price      *big.Int `json:"price"`
	EMAShort   *big.Int `json:"emaShort"`
	EMAMid     *big.Int `json:"emaMid"`
	EMALong    *big.Int `json:"emaLong"`
	LastUpdate int64    `json:"lastUpdate"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (s *Series) Clone() *Series {
	if s == nil {
		return nil
	}
	clone := &Series{LastUpdate: s.LastUpdate}
	if s.Price != nil {
		clone.Price = new(big.Int).Set(s.Price)
	}
	if s.EMAShort != nil {
		clone.EMAShort = new(big.Int).Set(s.EMAShort)
	}
	if s.EMAMid != nil {
		clone.EMAMid = new(big.Int).Set(s.EMAMid)
	}
	if s.EMALong != nil {
		clone.EMALong = new(big.Int).Set(s.EMALong)
	}
	return clone
}

// Signal is the discrete five-level trend classification.
type Signal int

const (
	SignalStrongBearish Signal = -2
	SignalBearish       Signal = -1
	SignalNeutral       Signal = 0
	SignalBullish       Signal = 1
	SignalStrongBullish Signal = 2
)

func (s Signal) String() string {
	switch s {
	case SignalStrongBearish:
		return "strong-bearish"
	case SignalBearish:
		return "bearish"
	case SignalBullish:
		return "bullish"
	case SignalStrongBullish:
		return "strong-bullish"
	default:
		return "neutral"
	}
}
