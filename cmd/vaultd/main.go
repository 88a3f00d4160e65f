package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"vaultbtc/config"
	"vaultbtc/core"
	"vaultbtc/crypto"
	"vaultbtc/observability"
	"vaultbtc/observability/logging"
	"vaultbtc/rpc"
	"vaultbtc/storage"
)

const maintainerPassEnv = "VAULTBTC_MAINTAINER_PASS"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vaultd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "./config.toml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.SetupWithOptions("vaultd", cfg.Environment, logging.Options{
		Level:      logging.ParseLevel(cfg.LogLevel),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	maintainerKey, err := crypto.LoadFromKeystore(cfg.MaintainerKeystorePath, os.Getenv(maintainerPassEnv))
	if err != nil {
		return fmt.Errorf("load maintainer key: %w", err)
	}
	maintainer := maintainerKey.PubKey().Address()

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	nodeCfg, err := buildNodeConfig(cfg, maintainer)
	if err != nil {
		return err
	}
	node, err := core.NewNode(db, nodeCfg, logger)
	if err != nil {
		return fmt.Errorf("build node: %w", err)
	}

	go observability.Watch(node.Events().Subscribe(128), logger)

	logger.Info("vaultd starting",
		"network", cfg.NetworkName,
		"maintainer", maintainer.String(),
		"rpc", cfg.RPCAddress,
		logging.MaskField("keystore", cfg.MaintainerKeystorePath),
		logging.MaskField("authToken", cfg.RPCAuthToken))

	server := rpc.NewServer(node, rpc.Options{
		AuthToken: cfg.RPCAuthToken,
		Logger:    logger,
	})
	return server.Start(cfg.RPCAddress)
}

func buildNodeConfig(cfg *config.Config, maintainer crypto.Address) (core.Config, error) {
	nodeCfg := core.Config{
		Maintainer:    maintainer,
		Authority:     maintainer,
		LendingParams: cfg.Lending,
		Paused:        cfg.Paused,
	}

	if cfg.Faucet.Enabled {
		amount, err := config.ParseAmount(cfg.Faucet.Amount)
		if err != nil {
			return core.Config{}, fmt.Errorf("faucet amount: %w", err)
		}
		nodeCfg.FaucetAmount = amount
		nodeCfg.FaucetCooldown = time.Duration(cfg.Faucet.CooldownSeconds) * time.Second
	}

	genesis, err := buildGenesis(cfg.Genesis)
	if err != nil {
		return core.Config{}, err
	}
	nodeCfg.Genesis = genesis
	return nodeCfg, nil
}

func buildGenesis(cfg config.GenesisConfig) (core.GenesisState, error) {
	genesis := core.GenesisState{}
	parse := func(label, raw string) (*big.Int, error) {
		if strings.TrimSpace(raw) == "" {
			return nil, nil
		}
		value, err := config.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("genesis %s: %w", label, err)
		}
		return value, nil
	}
	var err error
	if genesis.Price, err = parse("price", cfg.Price); err != nil {
		return core.GenesisState{}, err
	}
	if genesis.EMAShort, err = parse("emaShort", cfg.EMAShort); err != nil {
		return core.GenesisState{}, err
	}
	if genesis.EMAMid, err = parse("emaMid", cfg.EMAMid); err != nil {
		return core.GenesisState{}, err
	}
	if genesis.EMALong, err = parse("emaLong", cfg.EMALong); err != nil {
		return core.GenesisState{}, err
	}
	for _, mint := range cfg.Mints {
		addr, err := crypto.DecodeAddress(mint.Address)
		if err != nil {
			return core.GenesisState{}, fmt.Errorf("genesis mint address %q: %w", mint.Address, err)
		}
		amount, err := config.ParseAmount(mint.Amount)
		if err != nil {
			return core.GenesisState{}, fmt.Errorf("genesis mint amount for %s: %w", mint.Address, err)
		}
		genesis.Mints = append(genesis.Mints, core.GenesisAllocation{Address: addr, Amount: amount})
	}
	return genesis, nil
}
