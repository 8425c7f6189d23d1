package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"ambient/internal/dayphase"
	"ambient/internal/geo"
	"ambient/internal/season"

	"github.com/go-co-op/gocron"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file read from the config directory
const FileName = "environment.yaml"

// Environment variable overrides, applied after the file is parsed
const (
	EnvLatitude    = "ENV_LATITUDE"
	EnvLongitude   = "ENV_LONGITUDE"
	EnvHemisphere  = "ENV_HEMISPHERE"
	EnvAPIPort     = "ENV_API_PORT"
	EnvDebug       = "ENV_DEBUG"
	EnvDebugPeriod = "ENV_DEBUG_PERIOD"
	EnvDBPath      = "ENV_DB_PATH"
)

var validate = validator.New()

// LocationConfig is the fallback observer location and how to look up a better one
type LocationConfig struct {
	geo.Coordinate `yaml:",inline"`
	Geolocate      bool   `yaml:"geolocate"`
	LookupURL      string `yaml:"lookup_url" validate:"omitempty,url"`
}

// DebugConfig is the debug override applied at startup
type DebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Period  string `yaml:"period" validate:"omitempty,oneof=sunrise day afternoon sunset evening midnight"`
}

// APIConfig configures the HTTP server
type APIConfig struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`
}

// StorageConfig configures the preference store
type StorageConfig struct {
	DBPath string `yaml:"db_path" validate:"required"`
}

// EnvironmentConfig represents the environment.yaml structure
type EnvironmentConfig struct {
	Location     LocationConfig `yaml:"location"`
	Hemisphere   string         `yaml:"hemisphere" validate:"omitempty,oneof=northern southern north south n s"`
	TickInterval time.Duration  `yaml:"tick_interval" validate:"gte=0"`
	Debug        DebugConfig    `yaml:"debug"`
	API          APIConfig      `yaml:"api"`
	Storage      StorageConfig  `yaml:"storage"`
}

// Default returns the configuration used when no file is present
func Default() EnvironmentConfig {
	return EnvironmentConfig{
		Location: LocationConfig{
			Coordinate: geo.Default,
			Geolocate:  true,
			LookupURL:  geo.DefaultIPLookupURL,
		},
		Hemisphere:   season.Northern.String(),
		TickInterval: time.Minute,
		Debug:        DebugConfig{Period: dayphase.Midnight.String()},
		API:          APIConfig{Port: 8080},
		Storage:      StorageConfig{DBPath: "data/ambient.db"},
	}
}

// ParsedHemisphere returns the configured hemisphere, or the one implied by
// the configured latitude when none is set
func (c EnvironmentConfig) ParsedHemisphere() season.Hemisphere {
	if h, err := season.ParseHemisphere(c.Hemisphere); err == nil {
		return h
	}
	return season.HemisphereFor(c.Location.Latitude)
}

// ParsedDebugPeriod returns the configured debug period, Midnight when unset
func (c EnvironmentConfig) ParsedDebugPeriod() dayphase.TimePeriod {
	if p, err := dayphase.ParseTimePeriod(c.Debug.Period); err == nil {
		return p
	}
	return dayphase.Midnight
}

// Loader manages configuration file loading and reloading
type Loader struct {
	configDir string
	logger    *zap.Logger

	mu     sync.RWMutex
	config *EnvironmentConfig

	scheduler *gocron.Scheduler
}

// NewLoader creates a new configuration loader
func NewLoader(configDir string, logger *zap.Logger) *Loader {
	return &Loader{
		configDir: configDir,
		logger:    logger.Named("config"),
	}
}

// Load reads environment.yaml, applies environment overrides and validates the result.
// A missing file is not an error; defaults and overrides are used instead.
func (l *Loader) Load() (*EnvironmentConfig, error) {
	path := filepath.Join(l.configDir, FileName)
	l.logger.Debug("Loading environment config", zap.String("path", path))

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		l.logger.Warn("No environment config found, using defaults", zap.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("failed to read environment config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse environment config: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment config: %w", err)
	}

	l.mu.Lock()
	l.config = &cfg
	l.mu.Unlock()

	l.logger.Info("Environment config loaded successfully",
		zap.String("coordinate", cfg.Location.Coordinate.String()),
		zap.String("hemisphere", cfg.Hemisphere),
		zap.Duration("tick_interval", cfg.TickInterval),
		zap.Bool("debug", cfg.Debug.Enabled))
	return &cfg, nil
}

// Get returns the most recently loaded configuration, nil before the first Load
func (l *Loader) Get() *EnvironmentConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

func applyEnvOverrides(cfg *EnvironmentConfig) error {
	if v := os.Getenv(EnvLatitude); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLatitude, err)
		}
		cfg.Location.Latitude = lat
	}
	if v := os.Getenv(EnvLongitude); v != "" {
		lon, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLongitude, err)
		}
		cfg.Location.Longitude = lon
	}
	if v := os.Getenv(EnvHemisphere); v != "" {
		cfg.Hemisphere = v
	}
	if v := os.Getenv(EnvAPIPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAPIPort, err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv(EnvDebug); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		cfg.Debug.Enabled = enabled
	}
	if v := os.Getenv(EnvDebugPeriod); v != "" {
		cfg.Debug.Period = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.Storage.DBPath = v
	}
	return nil
}

// StartAutoReload reloads the configuration daily at 00:01 and passes every
// successfully loaded config to onReload
func (l *Loader) StartAutoReload(onReload func(*EnvironmentConfig)) error {
	l.logger.Info("Starting auto-reload scheduler (daily at 00:01)")

	s := gocron.NewScheduler(time.Local)
	_, err := s.Every(1).Day().At("00:01").Do(func() {
		l.logger.Info("Auto-reloading environment config")
		cfg, err := l.Load()
		if err != nil {
			l.logger.Error("Failed to auto-reload environment config", zap.Error(err))
			return
		}
		if onReload != nil {
			onReload(cfg)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule config reload: %w", err)
	}

	s.StartAsync()

	l.mu.Lock()
	l.scheduler = s
	l.mu.Unlock()
	return nil
}

// Stop stops the auto-reload scheduler
func (l *Loader) Stop() {
	l.mu.Lock()
	s := l.scheduler
	l.scheduler = nil
	l.mu.Unlock()

	if s != nil {
		l.logger.Info("Stopping auto-reload scheduler")
		s.Stop()
	}
}
