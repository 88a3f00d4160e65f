// Package observability bridges engine events into Prometheus counters so a
// dashboard can follow vault activity without scraping the RPC surface.
package observability

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"vaultbtc/core/events"
)

type eventMetrics struct {
	emitted *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured engine events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "vaultbtc",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of engine events segmented by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(eventRegistry.emitted)
	})
	return eventRegistry
}

// Observe records one emitted event.
func (m *eventMetrics) Observe(eventType string) {
	if m == nil {
		return
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		eventType = "unknown"
	}
	m.emitted.WithLabelValues(eventType).Inc()
}

// Watch drains a hub subscription until the channel closes, counting every
// event and logging its attribute record at debug level. Run it in its own
// goroutine.
func Watch(ch <-chan events.Event, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	registry := Events()
	for evt := range ch {
		if evt == nil {
			continue
		}
		registry.Observe(evt.EventType())
		detailed, ok := evt.(events.Detailed)
		if !ok {
			continue
		}
		record := detailed.Event()
		if record == nil {
			continue
		}
		args := make([]any, 0, 2+len(record.Attributes)*2)
		args = append(args, "type", record.Type)
		keys := make([]string, 0, len(record.Attributes))
		for key := range record.Attributes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			args = append(args, key, record.Attributes[key])
		}
		logger.Debug("engine event", args...)
	}
}
