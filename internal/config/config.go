package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration. Every game parameter that looks like
// a magic number (edges, caps, phase durations) is tunable from the
// environment; the defaults are the values the platform runs with.
type Config struct {
	Env  string
	Port string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	// Wallet
	MinBetCents          int64
	MaxBetCents          int64
	StartingBalanceCents int64

	// Crash
	CrashHouseEdge     float64
	CrashMaxMultiplier float64
	CrashSpeedBase     float64
	CrashAccelMs       float64
	BettingPhase       time.Duration
	CrashCooldown      time.Duration
	TickInterval       time.Duration
	CrashHistorySize   int64

	// Mines
	MinesHouseEdge     float64
	MinesMaxMultiplier float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASSWORD", ""),
		RedisDB:   getInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", ""),

		MinBetCents:          getInt64("MIN_BET_CENTS", 1000),     // KES 10.00
		MaxBetCents:          getInt64("MAX_BET_CENTS", 10000000), // KES 100,000.00
		StartingBalanceCents: getInt64("STARTING_BALANCE_CENTS", 0),

		CrashHouseEdge:     getFloat("CRASH_HOUSE_EDGE", 0.04),
		CrashMaxMultiplier: getFloat("CRASH_MAX_MULTIPLIER", 100.0),
		CrashSpeedBase:     getFloat("CRASH_SPEED_BASE", 0.3),
		CrashAccelMs:       getFloat("CRASH_ACCEL_MS", 30000.0),
		BettingPhase:       getDuration("BETTING_PHASE", 5*time.Second),
		CrashCooldown:      getDuration("CRASH_COOLDOWN", 3*time.Second),
		TickInterval:       getDuration("TICK_INTERVAL", 100*time.Millisecond),
		CrashHistorySize:   getInt64("CRASH_HISTORY_SIZE", 10),

		MinesHouseEdge:     getFloat("MINES_HOUSE_EDGE", 0.03),
		MinesMaxMultiplier: getFloat("MINES_MAX_MULTIPLIER", 25.0),
	}

	if cfg.Env == "production" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
	}
	if cfg.MinBetCents <= 0 || cfg.MaxBetCents < cfg.MinBetCents {
		return nil, fmt.Errorf("invalid bet limits: min=%d max=%d", cfg.MinBetCents, cfg.MaxBetCents)
	}
	if cfg.CrashHouseEdge <= 0 || cfg.CrashHouseEdge >= 1 {
		return nil, fmt.Errorf("crash house edge must be in (0,1), got %f", cfg.CrashHouseEdge)
	}
	if cfg.MinesHouseEdge <= 0 || cfg.MinesHouseEdge >= 1 {
		return nil, fmt.Errorf("mines house edge must be in (0,1), got %f", cfg.MinesHouseEdge)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
