package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type EngineMetrics struct {
	oracleUpdates  prometheus.Counter
	lastSignal     prometheus.Gauge
	lastPrice      prometheus.Gauge
	vaultsCreated  prometheus.Counter
	rebalances     *prometheus.CounterVec
	clampedBorrows prometheus.Counter
	vaultLeverage  *prometheus.GaugeVec
	poolCollateral prometheus.Gauge
	quoteBorrowed  prometheus.Counter
	quoteRepaid    prometheus.Counter
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the process-wide metrics registry for the leverage engine.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			oracleUpdates: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultbtc_oracle_updates_total",
				Help: "Count of accepted oracle series updates.",
			}),
			lastSignal: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vaultbtc_oracle_signal",
				Help: "Most recent trend signal, from -2 to 2.",
			}),
			lastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vaultbtc_oracle_price",
				Help: "Most recent oracle price in 1e8 fixed point.",
			}),
			vaultsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultbtc_vaults_created_total",
				Help: "Count of controllers instantiated by the registry.",
			}),
			rebalances: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vaultbtc_rebalances_total",
				Help: "Count of rebalance passes by direction.",
			}, []string{"direction"}),
			clampedBorrows: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultbtc_clamped_borrows_total",
				Help: "Count of rebalances capped by the pool borrow limit.",
			}),
			vaultLeverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "vaultbtc_vault_leverage_bps",
				Help: "Current leverage per vault in basis points.",
			}, []string{"vault"}),
			poolCollateral: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vaultbtc_pool_collateral",
				Help: "vBTC held in pool custody in smallest units.",
			}),
			quoteBorrowed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultbtc_pool_quote_borrowed_total",
				Help: "Cumulative quote currency drawn by rebalances.",
			}),
			quoteRepaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "vaultbtc_pool_quote_repaid_total",
				Help: "Cumulative quote currency retired by rebalances.",
			}),
		}
		prometheus.MustRegister(
			engineRegistry.oracleUpdates,
			engineRegistry.lastSignal,
			engineRegistry.lastPrice,
			engineRegistry.vaultsCreated,
			engineRegistry.rebalances,
			engineRegistry.clampedBorrows,
			engineRegistry.vaultLeverage,
			engineRegistry.poolCollateral,
			engineRegistry.quoteBorrowed,
			engineRegistry.quoteRepaid,
		)
	})
	return engineRegistry
}

func (m *EngineMetrics) ObserveOracleUpdate(price float64, signal int) {
	if m == nil {
		return
	}
	m.oracleUpdates.Inc()
	m.lastSignal.Set(float64(signal))
	m.lastPrice.Set(price)
}

func (m *EngineMetrics) ObserveVaultCreated() {
	if m == nil {
		return
	}
	m.vaultsCreated.Inc()
}

func (m *EngineMetrics) ObserveRebalance(direction string, clamped bool) {
	if m == nil {
		return
	}
	if direction == "" {
		direction = "none"
	}
	m.rebalances.WithLabelValues(direction).Inc()
	if clamped {
		m.clampedBorrows.Inc()
	}
}

func (m *EngineMetrics) SetVaultLeverage(vault string, bps uint64) {
	if m == nil {
		return
	}
	m.vaultLeverage.WithLabelValues(vault).Set(float64(bps))
}

// SetPoolCollateral publishes the vBTC balance of the pool custody account.
func (m *EngineMetrics) SetPoolCollateral(units float64) {
	if m == nil {
		return
	}
	m.poolCollateral.Set(units)
}

// ObserveQuoteFlow records the borrow and repay legs of one rebalance pass.
func (m *EngineMetrics) ObserveQuoteFlow(borrowed, repaid float64) {
	if m == nil {
		return
	}
	if borrowed > 0 {
		m.quoteBorrowed.Add(borrowed)
	}
	if repaid > 0 {
		m.quoteRepaid.Add(repaid)
	}
}
