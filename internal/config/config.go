package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/efreitasn/marketmatch/internal/matching"
)

// Config holds all runtime configuration for the market.
type Config struct {
	Port     int
	LogLevel string
	// ClearingInterval is the period of the clearing scheduler. Zero turns
	// the scheduler off; sessions then run only on demand.
	ClearingInterval       time.Duration
	MatchingAlgorithm      string
	RationingAlgorithm     string
	RationingInhomogeneity float64
	RandomSeed             int64
	WebhookTimeout         time.Duration
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	IdleTimeout            time.Duration
	ShutdownTimeout        time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	clearingInterval, err := getDuration("CLEARING_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid CLEARING_INTERVAL: %w", err)
	}
	if clearingInterval < 0 {
		return nil, fmt.Errorf("invalid CLEARING_INTERVAL: %v, must not be negative", clearingInterval)
	}

	algorithm := getStr("MATCHING_ALGORITHM", matching.AlgorithmCallAuction)
	if !matching.IsAlgorithm(algorithm) {
		return nil, fmt.Errorf("invalid MATCHING_ALGORITHM: %q, must be one of: call_auction, forager", algorithm)
	}

	rationing := getStr("RATIONING_ALGORITHM", matching.RationingHomogeneous)
	if !matching.IsRationing(rationing) {
		return nil, fmt.Errorf("invalid RATIONING_ALGORITHM: %q, must be one of: homogeneous, random_deny, worst_proposition", rationing)
	}

	inhomogeneity, err := getFloat("RATIONING_INHOMOGENEITY", matching.DefaultInhomogeneity)
	if err != nil {
		return nil, fmt.Errorf("invalid RATIONING_INHOMOGENEITY: %w", err)
	}
	if math.IsNaN(inhomogeneity) || inhomogeneity < 0 || inhomogeneity > 1 {
		return nil, fmt.Errorf("invalid RATIONING_INHOMOGENEITY: %v, must be between 0 and 1", inhomogeneity)
	}

	seed, err := getInt64("RANDOM_SEED", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid RANDOM_SEED: %w", err)
	}

	webhookTimeout, err := getDuration("WEBHOOK_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_TIMEOUT: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                   port,
		LogLevel:               logLevel,
		ClearingInterval:       clearingInterval,
		MatchingAlgorithm:      algorithm,
		RationingAlgorithm:     rationing,
		RationingInhomogeneity: inhomogeneity,
		RandomSeed:             seed,
		WebhookTimeout:         webhookTimeout,
		ReadTimeout:            readTimeout,
		WriteTimeout:           writeTimeout,
		IdleTimeout:            idleTimeout,
		ShutdownTimeout:        shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
