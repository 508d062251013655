package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentiment-observer/src/config"
	datasource "sentiment-observer/src/data_source"
	"sentiment-observer/src/interfaces"
	"sentiment-observer/src/loader"
	"sentiment-observer/src/logger"
	"sentiment-observer/src/merge"
	"sentiment-observer/src/network"
	"sentiment-observer/src/resolution"
	"sentiment-observer/src/server"
	"sentiment-observer/src/storage"
	"sentiment-observer/src/stream"
	"sentiment-observer/src/view"

	"github.com/joho/godotenv"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Optional .env file feeding the SO_* overrides
	godotenv.Load()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 2. Resolution registry
	resolutions := cfg.Resolutions
	if len(resolutions) == 0 {
		resolutions = resolution.Defaults()
	}
	registry, err := resolution.NewRegistry(resolutions)
	if err != nil {
		appLogger.Critical("Invalid resolution set: %v", err)
	}

	// 3. Durable cache
	var cache interfaces.IBucketCache

	switch cfg.Storage.Backend {
	case "postgres":
		cache, err = storage.NewPostgresCache(cfg.MConfig, registry, appLogger)
	case "redis":
		cache, err = storage.NewRedisCache(cfg.MConfig, registry, appLogger)
	default:
		// Default to SQLite
		cache, err = storage.NewSQLiteCache(cfg.MConfig, registry, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init cache: %v", err)
	}
	if err := cache.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate cache: %v", err)
	}
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background sweep of expired rows
	sweeper := storage.NewSweeper(cache,
		time.Duration(cfg.Storage.SweepIntervalSeconds)*time.Second, appLogger)
	go sweeper.Run(ctx)

	// 4. Data sources
	netManager := network.NewAsyncNetworkManager(cfg.MConfig, appLogger)
	var source interfaces.IBucketSource = datasource.NewQuerySource(cfg.MConfig, netManager, appLogger)

	var streamClient interfaces.IStreamSource = stream.NewStreamClient(cfg.MConfig, appLogger)
	defer streamClient.Close()

	// 5. Gateway + view plumbing
	gateway := server.NewDashboardServer(cfg.MConfig, registry, appLogger)

	viewState := view.NewViewState(cfg.View.MaxSeriesPoints)
	controller := view.NewSwitchController(cfg.MConfig, registry, cache, source,
		streamClient, gateway, viewState, appLogger)
	batchLoader := loader.NewBatchLoader(cache, source, appLogger)
	mergeEngine := merge.NewEngine(viewState, cache, gateway, appLogger)

	gateway.RequestSwitch = controller.RequestSwitch
	gateway.LoadBatch = batchLoader.LoadBatch
	gateway.CacheStats = cache.Stats
	gateway.SwitchStats = controller.Metrics
	gateway.LatencyStats = mergeEngine.LatencyStats

	// 6. Start Server
	go func() {
		if err := gateway.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 7. Merge loop (Push Model)
	go mergeEngine.Run(ctx, streamClient.Events())

	// 8. Restore the last persisted view, defaults when none exists
	subject := cfg.View.DefaultSubject
	res := cfg.View.DefaultResolution
	if prefs, err := config.LoadPreferences(cfg.View.PreferencesPath); err != nil {
		appLogger.Warning("Failed to load view preferences: %v", err)
	} else if prefs != nil {
		if _, err := registry.ByKey(prefs.Resolution); err == nil {
			subject = prefs.Subject
			res = prefs.Resolution
		} else {
			appLogger.Warning("Persisted resolution %q no longer configured, using default", prefs.Resolution)
		}
	}
	controller.RequestSwitch(subject, res)

	appLogger.Info("Initialization complete.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	gateway.Stop()
}
