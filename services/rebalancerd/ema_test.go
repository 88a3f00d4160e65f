package rebalancerd

import (
	"math/big"
	"testing"
)

func TestEMATrackerAdoptsFirstPrice(t *testing.T) {
	tracker := NewEMATracker()
	if tracker.Seeded() {
		t.Fatalf("expected fresh tracker to be unseeded")
	}

	price := big.NewInt(6_000_000_000_000)
	short, mid, long := tracker.Update(price)
	if short.Cmp(price) != 0 || mid.Cmp(price) != 0 || long.Cmp(price) != 0 {
		t.Fatalf("expected first price adopted, got %s/%s/%s", short, mid, long)
	}
	if !tracker.Seeded() {
		t.Fatalf("expected tracker seeded after first update")
	}
}

func TestEMATrackerSmoothingStep(t *testing.T) {
	tracker := NewEMATracker()
	base := big.NewInt(6_000_000_000_000)
	tracker.Seed(base, base, base)

	next := big.NewInt(6_210_000_000_000)
	short, mid, long := tracker.Update(next)

	// delta = 210000000000; short moves by delta*2/21, mid by delta*2/51,
	// long by delta*2/201.
	wantShort := new(big.Int).Add(base, big.NewInt(20_000_000_000))
	wantMid := new(big.Int).Add(base, big.NewInt(8_235_294_117))
	wantLong := new(big.Int).Add(base, big.NewInt(2_089_552_238))
	if short.Cmp(wantShort) != 0 {
		t.Fatalf("short: expected %s, got %s", wantShort, short)
	}
	if mid.Cmp(wantMid) != 0 {
		t.Fatalf("mid: expected %s, got %s", wantMid, mid)
	}
	if long.Cmp(wantLong) != 0 {
		t.Fatalf("long: expected %s, got %s", wantLong, long)
	}
}

func TestEMATrackerConvergesTowardConstantPrice(t *testing.T) {
	tracker := NewEMATracker()
	tracker.Seed(big.NewInt(5_000_000_000_000), big.NewInt(5_000_000_000_000), big.NewInt(5_000_000_000_000))

	target := big.NewInt(6_000_000_000_000)
	var short, mid, long *big.Int
	for i := 0; i < 500; i++ {
		short, mid, long = tracker.Update(target)
	}

	tolerance := big.NewInt(100_000_000_000)
	for name, value := range map[string]*big.Int{"short": short, "mid": mid, "long": long} {
		diff := new(big.Int).Sub(target, value)
		diff.Abs(diff)
		if diff.Cmp(tolerance) > 0 {
			t.Fatalf("%s did not converge: %s away from target", name, diff)
		}
	}
}

func TestEMATrackerShortReactsFastest(t *testing.T) {
	tracker := NewEMATracker()
	base := big.NewInt(5_000_000_000_000)
	tracker.Seed(base, base, base)

	short, mid, long := tracker.Update(big.NewInt(6_000_000_000_000))
	if short.Cmp(mid) <= 0 || mid.Cmp(long) <= 0 {
		t.Fatalf("expected short > mid > long after an up move, got %s/%s/%s", short, mid, long)
	}
}

func TestEMATrackerNilPriceKeepsState(t *testing.T) {
	tracker := NewEMATracker()
	base := big.NewInt(5_000_000_000_000)
	tracker.Seed(base, base, base)

	short, _, _ := tracker.Update(nil)
	if short.Cmp(base) != 0 {
		t.Fatalf("expected state unchanged on nil price, got %s", short)
	}
}
