package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"stablevault/config"
	"stablevault/core"
	"stablevault/native/oracle"
	"stablevault/native/vault"
	"stablevault/observability/logging"
	"stablevault/rpc"
	"stablevault/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./config.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("stablevaultd", cfg.Env)

	var db storage.Database
	if cfg.DataDir != "" {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open database", "dataDir", cfg.DataDir, "error", err)
			os.Exit(1)
		}
		defer ldb.Close()
		db = ldb
	} else {
		logger.Warn("no DataDir configured, state will not survive restarts")
		db = storage.NewMemDB()
	}

	collateralPrice, err := cfg.CollateralPriceValue()
	if err != nil {
		logger.Error("invalid collateral price", "error", err)
		os.Exit(1)
	}
	syntheticPrice, err := cfg.SyntheticPriceValue()
	if err != nil {
		logger.Error("invalid synthetic price", "error", err)
		os.Exit(1)
	}

	node, err := core.NewNode(core.NodeConfig{
		DB:              db,
		Params:          vault.Params{MinimumCollateralPercentage: cfg.MinimumCollateralPercentage},
		TokenName:       cfg.TokenName,
		TokenSymbol:     cfg.TokenSymbol,
		CollateralPrice: collateralPrice,
		SyntheticPrice:  syntheticPrice,
		Logger:          logger,
	})
	if err != nil {
		logger.Error("failed to initialise node", "error", err)
		os.Exit(1)
	}

	logger.Info("ledger ready",
		"minimumCollateralPercentage", cfg.MinimumCollateralPercentage,
		"token", cfg.TokenSymbol,
		"vaults", mustCount(node),
	)

	startFeed(node, logger, core.AssetCollateral, cfg.CollateralFeedURL, cfg.OracleAPIKey, cfg.OracleRefreshSeconds)
	startFeed(node, logger, core.AssetSynthetic, cfg.SyntheticFeedURL, cfg.OracleAPIKey, cfg.OracleRefreshSeconds)

	server := rpc.NewServer(node, logger, cfg.RPCRequestsPerMinute, cfg.RPCBurst)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", "error", err)
		os.Exit(1)
	}
}

// startFeed polls an external quote endpoint and pushes each fresh price into
// the ledger. A failed poll keeps the last good price in place.
func startFeed(node *core.Node, logger *slog.Logger, asset, endpoint, apiKey string, refreshSeconds int) {
	if endpoint == "" {
		return
	}
	feed := oracle.NewFeedSource(nil, endpoint, apiKey)
	interval := time.Duration(refreshSeconds) * time.Second
	logger.Info("oracle feed enabled", "asset", asset, "endpoint", endpoint, "interval", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			price, err := feed.Fetch(ctx)
			cancel()
			if err != nil {
				logger.Warn("oracle feed poll failed", "asset", asset, "error", err)
				continue
			}
			if err := node.SetPrice(asset, price); err != nil {
				logger.Warn("oracle price update rejected", "asset", asset, "error", err)
			}
		}
	}()
}

func mustCount(node *core.Node) uint64 {
	count, err := node.VaultCount()
	if err != nil {
		return 0
	}
	return count
}
