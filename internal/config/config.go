package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type APIConfig struct {
	Addr              string
	DatabaseURL       string
	SupabaseURL       string
	SupabaseAnonKey   string
	StartingBudget    float64
	StartupSeedVenues bool
	VenueTarget       int

	// DevEndpoints exposes the /v1/dev economy routes. Never enable in
	// production; they mint money.
	DevEndpoints bool
}

type WorkerConfig struct {
	DatabaseURL      string
	JobPollEvery     time.Duration
	SweepEvery       time.Duration
	EnergyRegenEvery time.Duration
	PoolCheckEvery   time.Duration
	VenueTarget      int
	RunOnce          bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("ENCORE_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:              addr,
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SupabaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey:   strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		StartingBudget:    envFloatDefault("ENCORE_STARTING_BUDGET", 10_000),
		StartupSeedVenues: envBoolDefault("ENCORE_STARTUP_SEED_VENUES", true),
		VenueTarget:       envIntDefault("ENCORE_VENUE_TARGET", 25),
		DevEndpoints:      envBoolDefault("ENCORE_DEV_ENDPOINTS", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	_ = godotenv.Load()

	cfg := WorkerConfig{
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JobPollEvery:     envDurationDefault("ENCORE_JOB_POLL_EVERY", 5*time.Second),
		SweepEvery:       envDurationDefault("ENCORE_SWEEP_EVERY", time.Minute),
		EnergyRegenEvery: envDurationDefault("ENCORE_ENERGY_REGEN_EVERY", 5*time.Minute),
		PoolCheckEvery:   envDurationDefault("ENCORE_POOL_CHECK_EVERY", 10*time.Minute),
		VenueTarget:      envIntDefault("ENCORE_VENUE_TARGET", 25),
		RunOnce:          envBoolDefault("ENCORE_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("ENC_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envFloatDefault(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
