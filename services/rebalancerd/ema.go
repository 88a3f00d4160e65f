package rebalancerd

import "math/big"

// EMA periods for the short, mid, and long reference bands.
const (
	periodShort = 20
	periodMid   = 50
	periodLong  = 200
)

// EMATracker maintains the three exponential moving averages published
// alongside each spot price. All values are 1e8 fixed-point integers.
type EMATracker struct {
	short *big.Int
	mid   *big.Int
	long  *big.Int
}

// NewEMATracker returns an unseeded tracker. The first call to Seed or
// Update establishes the initial averages.
func NewEMATracker() *EMATracker {
	return &EMATracker{}
}

// Seeded reports whether the tracker holds initial averages.
func (t *EMATracker) Seeded() bool {
	return t.short != nil && t.mid != nil && t.long != nil
}

// Seed initialises the averages from previously published values, letting a
// restarted keeper continue the series instead of resetting it.
func (t *EMATracker) Seed(short, mid, long *big.Int) {
	if short == nil || mid == nil || long == nil {
		return
	}
	t.short = new(big.Int).Set(short)
	t.mid = new(big.Int).Set(mid)
	t.long = new(big.Int).Set(long)
}

// Update folds a new spot price into the averages and returns the updated
// short, mid, and long values. An unseeded tracker adopts the price as the
// starting point for all three.
func (t *EMATracker) Update(price *big.Int) (short, mid, long *big.Int) {
	if price == nil {
		return t.Short(), t.Mid(), t.Long()
	}
	if !t.Seeded() {
		t.Seed(price, price, price)
		return t.Short(), t.Mid(), t.Long()
	}
	t.short = emaStep(t.short, price, periodShort)
	t.mid = emaStep(t.mid, price, periodMid)
	t.long = emaStep(t.long, price, periodLong)
	return t.Short(), t.Mid(), t.Long()
}

// Short returns a copy of the short average, or nil when unseeded.
func (t *EMATracker) Short() *big.Int { return copyBig(t.short) }

// Mid returns a copy of the mid average, or nil when unseeded.
func (t *EMATracker) Mid() *big.Int { return copyBig(t.mid) }

// Long returns a copy of the long average, or nil when unseeded.
func (t *EMATracker) Long() *big.Int { return copyBig(t.long) }

// emaStep applies one smoothing step with multiplier 2/(period+1):
// ema' = ema + (price - ema) * 2 / (period + 1).
func emaStep(prev, price *big.Int, period int64) *big.Int {
	delta := new(big.Int).Sub(price, prev)
	delta.Mul(delta, big.NewInt(2))
	delta.Quo(delta, big.NewInt(period+1))
	return new(big.Int).Add(prev, delta)
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
