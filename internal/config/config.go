package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort            = 8080
	defaultCatalogPath     = "data/estaciones_siar.json"
	defaultAuthTimeout     = 30 * time.Second
	defaultDataTimeout     = 60 * time.Second
	defaultRequestDeadline = 120 * time.Second
	defaultMaxFallbacks    = 6
)

// Config holds environment-driven settings for the service.
type Config struct {
	Port            int
	SIARBaseURL     string
	SIARUser        string
	SIARPass        string
	CatalogPath     string
	CatalogDBURL    string
	AuthTimeout     time.Duration
	DataTimeout     time.Duration
	RequestDeadline time.Duration
	MaxFallbacks    int
}

// Load reads configuration from environment variables (optionally .env).
// SIAR credentials are deliberately not required here: the liveness routes
// must work without them, and the data path checks for them before any
// network call.
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:            defaultPort,
		CatalogPath:     defaultCatalogPath,
		AuthTimeout:     defaultAuthTimeout,
		DataTimeout:     defaultDataTimeout,
		RequestDeadline: defaultRequestDeadline,
		MaxFallbacks:    defaultMaxFallbacks,
	}

	cfg.SIARBaseURL = strings.TrimSpace(os.Getenv("SIAR_BASE_URL"))
	if cfg.SIARBaseURL == "" {
		return cfg, errors.New("SIAR_BASE_URL is required")
	}

	cfg.SIARUser = strings.TrimSpace(os.Getenv("SIAR_USER"))
	cfg.SIARPass = strings.TrimSpace(os.Getenv("SIAR_PASS"))

	if path := strings.TrimSpace(os.Getenv("CATALOG_PATH")); path != "" {
		cfg.CatalogPath = path
	}
	cfg.CatalogDBURL = strings.TrimSpace(os.Getenv("CATALOG_DATABASE_URL"))

	if portStr := strings.TrimSpace(os.Getenv("PORT")); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
		cfg.Port = port
	}

	var err error
	if cfg.AuthTimeout, err = durationEnv("SIAR_AUTH_TIMEOUT", cfg.AuthTimeout); err != nil {
		return cfg, err
	}
	if cfg.DataTimeout, err = durationEnv("SIAR_DATA_TIMEOUT", cfg.DataTimeout); err != nil {
		return cfg, err
	}
	if cfg.RequestDeadline, err = durationEnv("REQUEST_DEADLINE", cfg.RequestDeadline); err != nil {
		return cfg, err
	}

	if v := strings.TrimSpace(os.Getenv("MAX_FALLBACKS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("invalid MAX_FALLBACKS: %s", v)
		}
		cfg.MaxFallbacks = n
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
