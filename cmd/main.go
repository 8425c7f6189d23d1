package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ambient/internal/api"
	"ambient/internal/clock"
	"ambient/internal/config"
	"ambient/internal/engine"
	"ambient/internal/geo"
	"ambient/internal/prefs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "./configs"
	}

	loader := config.NewLoader(configDir, logger)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	store, err := prefs.Open(cfg.Storage.DBPath, cfg.ParsedHemisphere(), logger)
	if err != nil {
		logger.Fatal("Failed to open preference store", zap.Error(err))
	}
	defer store.Close()

	logger.Info("Starting Ambient Environment Engine",
		zap.String("config_dir", configDir),
		zap.String("db_path", cfg.Storage.DBPath),
		zap.Bool("geolocate", cfg.Location.Geolocate))

	eng := engine.New(clock.NewRealClock(), logger, engine.Config{
		Coordinate:   startupCoordinate(cfg, store, logger),
		Hemisphere:   store,
		TickInterval: cfg.TickInterval,
		Debug:        startupDebug(cfg, store, logger),
	})

	eng.OnLocationChange(func(coord geo.Coordinate) {
		if err := store.SaveLocation(coord); err != nil {
			logger.Error("Failed to save location", zap.Error(err))
		}
	})

	if err := eng.Start(); err != nil {
		logger.Fatal("Failed to start environment engine", zap.Error(err))
	}
	defer eng.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := locationSource(cfg, logger)
	eng.RequestLocation(ctx, src)

	server := api.NewServer(eng, store, logger, cfg.API.Port)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start API server", zap.Error(err))
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Error("Failed to stop API server", zap.Error(err))
		}
	}()

	// Reload daily: a moved config coordinate or a new IP location applies on the next day
	if err := loader.StartAutoReload(func(reloaded *config.EnvironmentConfig) {
		eng.RequestLocation(ctx, locationSource(reloaded, logger))
	}); err != nil {
		logger.Error("Failed to start config auto-reload", zap.Error(err))
	}
	defer loader.Stop()

	state := eng.State()
	logger.Info("Environment ready",
		zap.Stringer("time_of_day", state.TimeOfDay),
		zap.Stringer("season", state.Season),
		zap.Bool("is_daytime", state.IsDaytime),
		zap.Bool("debug", state.Debug.Enabled))

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Application running. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-sigChan

	logger.Info("Shutting down gracefully...")
}

// startupCoordinate prefers the last applied location over the configured fallback
func startupCoordinate(cfg *config.EnvironmentConfig, store *prefs.Store, logger *zap.Logger) geo.Coordinate {
	last, ok, err := store.LastLocation()
	if err != nil {
		logger.Warn("Failed to load last location", zap.Error(err))
	}
	if ok {
		logger.Info("Using last known location", zap.String("coordinate", last.String()))
		return last
	}
	return cfg.Location.Coordinate
}

// startupDebug restores the saved debug override unless the config forces one on
func startupDebug(cfg *config.EnvironmentConfig, store *prefs.Store, logger *zap.Logger) engine.DebugState {
	configured := engine.DebugState{Enabled: cfg.Debug.Enabled, Period: cfg.ParsedDebugPeriod()}
	if configured.Enabled {
		return configured
	}

	saved, ok, err := store.LoadDebug()
	if err != nil {
		logger.Warn("Failed to load saved debug override", zap.Error(err))
	}
	if ok {
		return saved
	}
	return configured
}

func locationSource(cfg *config.EnvironmentConfig, logger *zap.Logger) geo.Source {
	if !cfg.Location.Geolocate {
		return geo.StaticSource{Coordinate: cfg.Location.Coordinate}
	}
	return geo.NewIPSource(cfg.Location.LookupURL, &http.Client{Timeout: 10 * time.Second}, logger)
}
