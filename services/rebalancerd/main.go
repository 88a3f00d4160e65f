package rebalancerd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"vaultbtc/observability/logging"
)

// Main runs the rebalancer keeper daemon using the provided command line
// flags. Each pass fetches a spot price, folds it into the EMA bands,
// publishes the refreshed series, and triggers a rebalance on every tracked
// vault.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/rebalancerd/config.yaml", "path to rebalancerd config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("VAULTBTC_ENV"))
	logging.Setup("rebalancerd", env)

	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client := NewClient(cfg.NodeURL, cfg.AuthToken)
	feed := NewHTTPPriceSource(cfg.PriceFeed)
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	tracker := NewEMATracker()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seedEMAs(ctx, client, tracker)

	slog.Info("rebalancerd started",
		"node", cfg.NodeURL,
		"interval", cfg.Interval().String(),
		"owners", len(cfg.Owners),
		"vaults", len(cfg.Vaults),
		logging.MaskField("priceFeed", cfg.PriceFeed.URL),
		logging.MaskField("authToken", cfg.AuthToken))

	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()

	runPass(ctx, cfg, client, feed, tracker, limiter)
	for {
		select {
		case <-ctx.Done():
			slog.Info("rebalancerd stopping")
			return nil
		case <-ticker.C:
			runPass(ctx, cfg, client, feed, tracker, limiter)
		}
	}
}

// seedEMAs resumes the EMA series from the last published values when the
// node already holds a series. A fresh node leaves the tracker unseeded and
// the first fetched price becomes the starting point.
func seedEMAs(ctx context.Context, client *Client, tracker *EMATracker) {
	series, err := client.OracleGet(ctx)
	if err != nil {
		slog.Warn("seed from published series failed", "error", err)
		return
	}
	tracker.Seed(series.EMAShort, series.EMAMid, series.EMALong)
	if tracker.Seeded() {
		slog.Info("resumed EMA series from node",
			"emaShort", series.EMAShort.String(),
			"emaMid", series.EMAMid.String(),
			"emaLong", series.EMALong.String())
	}
}

func runPass(ctx context.Context, cfg *Config, client *Client, feed PriceSource, tracker *EMATracker, limiter *rate.Limiter) {
	if ctx.Err() != nil {
		return
	}
	price, err := feed.FetchPrice(ctx)
	if err != nil {
		slog.Error("price fetch failed", "error", err)
		return
	}
	short, mid, long := tracker.Update(price)

	if err := limiter.Wait(ctx); err != nil {
		return
	}
	if err := client.OracleUpdate(ctx, cfg.MaintainerAddress, price, short, mid, long); err != nil {
		slog.Error("oracle update failed", "error", err)
		return
	}
	slog.Info("published price series",
		"price", price.String(),
		"emaShort", short.String(),
		"emaMid", mid.String(),
		"emaLong", long.String())

	for _, vault := range trackedVaults(ctx, cfg, client, limiter) {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		result, err := client.Rebalance(ctx, vault)
		if err != nil {
			slog.Error("rebalance failed", "vault", vault, "error", err)
			continue
		}
		slog.Info("rebalanced vault",
			"vault", vault,
			"signal", result.Signal,
			"targetBps", result.TargetBps,
			"currentBps", result.CurrentBps,
			"clamped", result.Clamped)
	}
}

// trackedVaults merges the statically pinned vaults with every vault owned
// by the configured owners, deduplicated and in stable order.
func trackedVaults(ctx context.Context, cfg *Config, client *Client, limiter *rate.Limiter) []string {
	seen := make(map[string]struct{})
	ordered := make([]string, 0, len(cfg.Vaults))
	add := func(vault string) {
		if vault == "" {
			return
		}
		if _, ok := seen[vault]; ok {
			return
		}
		seen[vault] = struct{}{}
		ordered = append(ordered, vault)
	}
	for _, vault := range cfg.Vaults {
		add(vault)
	}
	for _, owner := range cfg.Owners {
		if err := limiter.Wait(ctx); err != nil {
			return ordered
		}
		vaults, err := client.VaultsByOwner(ctx, owner)
		if err != nil {
			slog.Error("list vaults failed", "owner", owner, "error", err)
			continue
		}
		for _, vault := range vaults {
			add(vault)
		}
	}
	return ordered
}
