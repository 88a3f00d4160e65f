package vault

import "math/big"

var (
	unitScale   = big.NewInt(100_000_000)
	basisPoints = big.NewInt(10_000)
)

// assetToQuote values an asset amount at the given 1e8 price. Conversions
// always take the price as a parameter so no stale price can leak into a
// rebalance.
func assetToQuote(asset, price *big.Int) *big.Int {
	quote := new(big.Int).Mul(asset, price)
	return quote.Div(quote, unitScale)
}

// quoteToAsset converts a quote amount into asset units at the given price.
func quoteToAsset(quote, price *big.Int) *big.Int {
	asset := new(big.Int).Mul(quote, unitScale)
	return asset.Div(asset, price)
}

// applyBps scales an amount by a basis-point ratio.
func applyBps(amount *big.Int, bps uint64) *big.Int {
	scaled := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return scaled.Div(scaled, basisPoints)
}

// clampBps bounds a signed basis-point value to [lo, hi].
func clampBps(v int64, lo, hi uint64) uint64 {
	if v < int64(lo) {
		return lo
	}
	if v > int64(hi) {
		return hi
	}
	return uint64(v)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
