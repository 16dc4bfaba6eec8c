package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hot-swap-bot-go/internal/chain"
	"hot-swap-bot-go/internal/config"
	"hot-swap-bot-go/internal/database"
	"hot-swap-bot-go/internal/logger"
	"hot-swap-bot-go/internal/marketdata"
	"hot-swap-bot-go/internal/price"
	"hot-swap-bot-go/internal/trader"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := database.NewWalletStore(db)
	log.Info("Database connection successful and schema migrated.")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	// Connect to the chain; the store provides the signing keys.
	dialCtx, dialCancel := context.WithTimeout(ctx, cfg.Market.Timeout())
	client, err := chain.NewClient(dialCtx, &cfg.Chain, store, log)
	dialCancel()
	if err != nil {
		log.Fatal("Failed to connect to chain", zap.Error(err))
	}
	defer client.Close()

	// Price resolution: router quote, then DexScreener, then the cache.
	cache := price.NewCache(cfg.Pricing.FreshnessWindow())
	resolver := price.NewResolver(log,
		price.NewOnChainSource(client),
		marketdata.NewDexScreener(&cfg.Market, cfg.Chain.WrappedNativeAddress, log),
		cache,
		price.ResolverOptions{
			SecondaryAttempts: cfg.Pricing.SecondaryAttempts,
			BackoffBase:       cfg.Pricing.BackoffBase(),
		})
	native := price.NewNativePricer(log, marketdata.NewCoinGecko(&cfg.Market, log), cache)

	engine := trader.NewEngine(log, store, store, client, resolver, trader.EngineOptions{
		SwapDeadline: cfg.Trading.SwapDeadline(),
	})
	scheduler := trader.NewScheduler(log, store, engine, trader.SchedulerOptions{
		MinInterval:     cfg.Scheduler.MinInterval(),
		DefaultInterval: cfg.Scheduler.DefaultInterval(),
		ShutdownGrace:   cfg.Scheduler.ShutdownGrace(),
	})

	if err := scheduler.StartAll(ctx); err != nil {
		for _, e := range multierr.Errors(err) {
			log.Error("Wallet could not be scheduled", zap.Error(e))
		}
	}

	api := trader.NewAPIServer(cfg.Server.Port, store, scheduler, engine, resolver, native, log)
	api.Start()

	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Scheduler.ShutdownGrace()+5*time.Second)
	defer shutdownCancel()

	if err := api.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}
	if err := scheduler.ShutdownAll(shutdownCtx); err != nil {
		log.Warn("Scheduler shutdown incomplete", zap.Error(err))
	}

	log.Info("Bot has been shut down.")
}
