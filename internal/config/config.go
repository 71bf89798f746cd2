package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"uxreview/internal/utils"
)

const (
	EnvDBPath          = "UXREVIEW_DB_PATH"
	EnvModel           = "UXREVIEW_MODEL"
	EnvAnalysisTimeout = "UXREVIEW_ANALYSIS_TIMEOUT"
	EnvFetchTimeout    = "UXREVIEW_FETCH_TIMEOUT"
	EnvMaxFetches      = "UXREVIEW_MAX_FETCHES"
	EnvDebug           = "UXREVIEW_DEBUG"
)

// MaxImageBytes caps a single screen payload (the upload limit of the setup flow).
const MaxImageBytes = 5 * 1024 * 1024

// APIKeyEnv maps provider ids to the environment variable holding their key.
var APIKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

type Config struct {
	DBPath string
	// ModelKey overrides the model chosen in the app settings.
	ModelKey string
	// AnalysisTimeout bounds one analysis run; zero means no timeout.
	AnalysisTimeout time.Duration
	FetchTimeout    time.Duration
	MaxFetches      int
	Debug           bool
}

func Default() Config {
	return Config{
		FetchTimeout: 20 * time.Second,
		MaxFetches:   4,
	}
}

// Load reads .env (if any) and the process environment.
func Load() (Config, error) {
	if err := utils.LoadEnv(); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	cfg.DBPath = strings.TrimSpace(getenv(EnvDBPath))
	cfg.ModelKey = strings.TrimSpace(getenv(EnvModel))

	var err error
	if cfg.AnalysisTimeout, err = durationVar(getenv, EnvAnalysisTimeout, cfg.AnalysisTimeout); err != nil {
		return Config{}, err
	}
	if cfg.FetchTimeout, err = durationVar(getenv, EnvFetchTimeout, cfg.FetchTimeout); err != nil {
		return Config{}, err
	}
	if raw := strings.TrimSpace(getenv(EnvMaxFetches)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", EnvMaxFetches, raw)
		}
		cfg.MaxFetches = n
	}
	if raw := strings.TrimSpace(getenv(EnvDebug)); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be a boolean, got %q", EnvDebug, raw)
		}
		cfg.Debug = b
	}
	return cfg, nil
}

func durationVar(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s must be a non-negative duration, got %q", key, raw)
	}
	return d, nil
}
