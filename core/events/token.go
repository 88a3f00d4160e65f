package events

import (
	"math/big"

	"vaultbtc/core/types"
	"vaultbtc/crypto"
)

const (
	// TypeTokenTransfer is emitted for vBTC balance movements.
	TypeTokenTransfer = "token.transfer"
	TypeTokenMint     = "token.mint"
	TypeTokenFaucet   = "token.faucet"
)

type TokenTransfer struct {
	From   crypto.Address
	To     crypto.Address
	Amount *big.Int
}

func (TokenTransfer) EventType() string { return TypeTokenTransfer }

func (e TokenTransfer) Event() *types.Event {
	return &types.Event{Type: TypeTokenTransfer, Attributes: map[string]string{
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}}
}

type TokenMint struct {
	To     crypto.Address
	Amount *big.Int
}

func (TokenMint) EventType() string { return TypeTokenMint }

func (e TokenMint) Event() *types.Event {
	return &types.Event{Type: TypeTokenMint, Attributes: map[string]string{
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}}
}

type TokenFaucet struct {
	To     crypto.Address
	Amount *big.Int
}

func (TokenFaucet) EventType() string { return TypeTokenFaucet }

func (e TokenFaucet) Event() *types.Event {
	return &types.Event{Type: TypeTokenFaucet, Attributes: map[string]string{
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}}
}
