package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"telelingo/internal/domain"
)

const (
	ProviderOpenAI         = "openai"
	ProviderLibreTranslate = "libretranslate"
	ProviderNone           = "none"
)

type Config struct {
	Token        string  `env:"TOKEN,required,notEmpty"`
	AllowedUsers []int64 `env:"ALLOWED_USERS"`

	Provider             string `env:"PROVIDER"               envDefault:"openai"`
	OpenAIAPIKey         string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL        string `env:"OPENAI_BASE_URL"`
	OpenAIModel          string `env:"OPENAI_MODEL"`
	LibreTranslateURL    string `env:"LIBRETRANSLATE_URL"`
	LibreTranslateAPIKey string `env:"LIBRETRANSLATE_API_KEY"`

	SessionCacheSize int           `env:"SESSION_CACHE_SIZE" envDefault:"1"`
	SessionIdleTTL   time.Duration `env:"SESSION_IDLE_TTL"   envDefault:"30m"`

	DefaultTargetLanguage string `env:"DEFAULT_TARGET_LANGUAGE" envDefault:"es"`

	MetricsAddr    string     `env:"METRICS_ADDR"     envDefault:":9090"`
	HealthGRPCAddr string     `env:"HEALTH_GRPC_ADDR"`
	LogLevel       slog.Level `env:"LOG_LEVEL"        envDefault:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

// LoadFrom parses environment, ignoring the process environment.
func LoadFrom(environment map[string]string) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Environment: environment})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for openai provider"))
		}
	case ProviderLibreTranslate, ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("PROVIDER must be one of %s, %s, %s: got %q",
			ProviderOpenAI, ProviderLibreTranslate, ProviderNone, c.Provider))
	}

	if c.SessionCacheSize < 1 {
		errs = append(errs, fmt.Errorf("SESSION_CACHE_SIZE must be positive: got %d", c.SessionCacheSize))
	}

	if c.SessionIdleTTL < 0 {
		errs = append(errs, fmt.Errorf("SESSION_IDLE_TTL must not be negative: got %s", c.SessionIdleTTL))
	}

	if _, ok := domain.LookupTargetLanguage(c.DefaultTargetLanguage); !ok {
		errs = append(errs, fmt.Errorf("DEFAULT_TARGET_LANGUAGE is not supported: got %q", c.DefaultTargetLanguage))
	}

	return errors.Join(errs...)
}
