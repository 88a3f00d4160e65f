package events

import (
	"math/big"
	"strconv"

	"vaultbtc/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(addr crypto.Address) string {
	if addr.IsZero() {
		return ""
	}
	return addr.String()
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatBps(v uint64) string {
	return strconv.FormatUint(v, 10)
}
