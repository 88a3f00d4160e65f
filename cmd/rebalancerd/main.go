package main

import (
	"log"

	"vaultbtc/services/rebalancerd"
)

func main() {
	if err := rebalancerd.Main(); err != nil {
		log.Fatalf("rebalancerd: %v", err)
	}
}
