package oracle

import (
	"math/big"
	"time"

	"vaultbtc/core/events"
	"vaultbtc/crypto"
	nativecommon "vaultbtc/native/common"
)

const moduleName = nativecommon.ModuleOracle

type engineState interface {
	GetOracleSeries() (*Series, error)
	PutOracleSeries(series *Series) error
}

// Engine maintains the price series and derives the trend signal the vault
// controllers rebalance against. Only the maintainer may overwrite the
// series; reads and signal classification are open to everyone.
type Engine struct {
	state      engineState
	maintainer crypto.Address
	emitter    events.Emitter
	pauses     nativecommon.PauseView
	now        func() time.Time
}

// NewEngine constructs an oracle whose Update calls are restricted to the
// maintainer address.
func NewEngine(maintainer crypto.Address) *Engine {
	return &Engine{
		maintainer: maintainer,
		emitter:    events.NoopEmitter{},
		now:        time.Now,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter replaces the event sink. Passing nil restores the no-op sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetClock overrides the time source used for LastUpdate stamps.
func (e *Engine) SetClock(now func() time.Time) {
	if e == nil || now == nil {
		return
	}
	e.now = now
}

// Maintainer returns the address permitted to call Update.
func (e *Engine) Maintainer() crypto.Address {
	if e == nil {
		return crypto.Address{}
	}
	return e.maintainer
}

// Update atomically overwrites the full price series. Every value must be
// strictly positive; a rejected update leaves the stored series untouched.
func (e *Engine) Update(caller crypto.Address, price, emaShort, emaMid, emaLong *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if !caller.Equal(e.maintainer) {
		return ErrUnauthorized
	}
	for _, v := range []*big.Int{price, emaShort, emaMid, emaLong} {
		if v == nil || v.Sign() <= 0 {
			return ErrInvalidInput
		}
	}
	series := &Series{
		Price:      new(big.Int).Set(price),
		EMAShort:   new(big.Int).Set(emaShort),
		EMAMid:     new(big.Int).Set(emaMid),
		EMALong:    new(big.Int).Set(emaLong),
		LastUpdate: e.now().Unix(),
	}
	if err := e.state.PutOracleSeries(series); err != nil {
		return err
	}
	e.emitter.Emit(events.OracleUpdated{
		Price:     new(big.Int).Set(series.Price),
		EMAShort:  new(big.Int).Set(series.EMAShort),
		EMAMid:    new(big.Int).Set(series.EMAMid),
		EMALong:   new(big.Int).Set(series.EMALong),
		Signal:    int(classify(series)),
		Timestamp: series.LastUpdate,
	})
	return nil
}

// Read returns a copy of the stored series.
func (e *Engine) Read() (*Series, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	series, err := e.state.GetOracleSeries()
	if err != nil {
		return nil, err
	}
	if series == nil || series.Price == nil {
		return nil, ErrNotInitialized
	}
	return series.Clone(), nil
}

// Signal classifies the current trend into five discrete levels. All
// comparisons are strict: equality never counts as above or below, so an
// all-equal series is neutral.
func (e *Engine) Signal() (Signal, error) {
	series, err := e.Read()
	if err != nil {
		return SignalNeutral, err
	}
	return classify(series), nil
}

// IsBullish reports whether price sits strictly above both the short and
// mid EMAs. At a neutral signal both IsBullish and IsBearish are false.
func (e *Engine) IsBullish() (bool, error) {
	series, err := e.Read()
	if err != nil {
		return false, err
	}
	return aboveShortMid(series), nil
}

// IsBearish reports whether price sits strictly below both the short and
// mid EMAs.
func (e *Engine) IsBearish() (bool, error) {
	series, err := e.Read()
	if err != nil {
		return false, err
	}
	return belowShortMid(series), nil
}

func aboveShortMid(s *Series) bool {
	return s.Price.Cmp(s.EMAShort) > 0 && s.Price.Cmp(s.EMAMid) > 0
}

func belowShortMid(s *Series) bool {
	return s.Price.Cmp(s.EMAShort) < 0 && s.Price.Cmp(s.EMAMid) < 0
}

func classify(s *Series) Signal {
	switch {
	case aboveShortMid(s) && s.Price.Cmp(s.EMALong) > 0:
		return SignalStrongBullish
	case aboveShortMid(s):
		return SignalBullish
	case belowShortMid(s) && s.Price.Cmp(s.EMALong) < 0:
		return SignalStrongBearish
	case belowShortMid(s):
		return SignalBearish
	default:
		return SignalNeutral
	}
}
