package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface of the service.
type Config struct {
	Port            int
	DatabaseURL     string // empty selects the flat-file store
	DataDir         string
	DefaultCategory string
	SuggesterURL    string // empty disables the remote category suggester
	SuggesterKey    string
	ForecastWindow  int
	ForecastWeights []float64
}

// Load reads the environment, optionally seeded from a .env file. Missing
// .env files are fine; configuration may come from the environment directly.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:            8080,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DataDir:         getenvWithDefault("DATA_DIR", "data"),
		DefaultCategory: getenvWithDefault("DEFAULT_CATEGORY", "general"),
		SuggesterURL:    os.Getenv("SUGGESTER_URL"),
		SuggesterKey:    os.Getenv("SUGGESTER_API_KEY"),
	}

	if raw := strings.TrimSpace(os.Getenv("PORT")); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 {
			return Config{}, fmt.Errorf("invalid PORT: %q", raw)
		}
		cfg.Port = port
	}

	weights, err := parseWeights(os.Getenv("FORECAST_WEIGHTS"))
	if err != nil {
		return Config{}, err
	}
	cfg.ForecastWeights = weights
	cfg.ForecastWindow = len(weights)

	return cfg, nil
}

// parseWeights reads a comma-separated weight vector, oldest month first.
// The default matches the six-month window the forecaster ships with.
func parseWeights(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []float64{0.02, 0.02, 0.10, 0.20, 0.30, 0.40}, nil
	}
	parts := strings.Split(raw, ",")
	weights := make([]float64, 0, len(parts))
	for _, part := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FORECAST_WEIGHTS entry %q", part)
		}
		if w < 0 {
			return nil, fmt.Errorf("FORECAST_WEIGHTS entries must not be negative")
		}
		weights = append(weights, w)
	}
	return weights, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
