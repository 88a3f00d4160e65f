package events

import (
	"math/big"

	"vaultbtc/core/types"
)

const (
	// TypeOracleUpdated is emitted whenever the maintainer overwrites the
	// price series.
	TypeOracleUpdated = "oracle.updated"
)

// OracleUpdated carries the full post-update price series along with the
// update timestamp so observers never see a partial band set.
type OracleUpdated struct {
	Price     *big.Int
	EMAShort  *big.Int
	EMAMid    *big.Int
	EMALong   *big.Int
	Signal    int
	Timestamp int64
}

func (OracleUpdated) EventType() string { return TypeOracleUpdated }

func (e OracleUpdated) Event() *types.Event {
	return &types.Event{Type: TypeOracleUpdated, Attributes: map[string]string{
		"price":     formatAmount(e.Price),
		"emaShort":  formatAmount(e.EMAShort),
		"emaMid":    formatAmount(e.EMAMid),
		"emaLong":   formatAmount(e.EMALong),
		"signal":    formatInt(int64(e.Signal)),
		"timestamp": formatInt(e.Timestamp),
	}}
}
