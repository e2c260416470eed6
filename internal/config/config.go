package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string

	// NASA POWER data source.
	PowerBaseURL string
	PowerTimeout time.Duration

	// Historical span requested from the data source.
	StartYear int
	EndYear   int

	// Minimum usable samples before analysis proceeds.
	MinStatYears  int
	MinTrainYears int

	// Forecast horizon policy.
	DefaultForecastDays int
	MaxForecastDays     int

	// Trained model cache.
	GridResolution float64
	ModelCacheTTL  time.Duration
	ModelCachePath string
	TrainTimeout   time.Duration

	// Cache maintenance job.
	SweepInterval time.Duration

	// Model-assisted recommendations.
	OpenRouterAPIKey string
	GenAIModel       string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.PowerBaseURL = os.Getenv("POWER_BASE_URL")

	var err error
	if cfg.PowerTimeout, err = getenvDuration("POWER_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	cfg.StartYear = getenvInt("HISTORY_START_YEAR", 1995)
	cfg.EndYear = getenvInt("HISTORY_END_YEAR", 2023)
	if cfg.StartYear >= cfg.EndYear {
		return nil, fmt.Errorf("HISTORY_START_YEAR must be before HISTORY_END_YEAR")
	}

	cfg.MinStatYears = getenvInt("MIN_STAT_YEARS", 5)
	cfg.MinTrainYears = getenvInt("MIN_TRAIN_YEARS", 2)

	cfg.DefaultForecastDays = getenvInt("FORECAST_DEFAULT_DAYS", 7)
	cfg.MaxForecastDays = getenvInt("FORECAST_MAX_DAYS", 30)

	cfg.GridResolution = getenvFloat("MODEL_GRID_RESOLUTION", 0.5)
	cfg.ModelCachePath = getenvDefault("MODEL_CACHE_PATH", "data/models.db")
	if cfg.ModelCacheTTL, err = getenvDuration("MODEL_CACHE_TTL", "6h"); err != nil {
		return nil, err
	}
	if cfg.TrainTimeout, err = getenvDuration("TRAIN_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getenvDuration("CACHE_SWEEP_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	cfg.OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	cfg.GenAIModel = os.Getenv("GENAI_MODEL_NAME")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
