package config_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"telelingo/internal/config"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"TOKEN":          "token",
		"OPENAI_API_KEY": "key",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != config.ProviderOpenAI {
		t.Errorf("Expected openai provider, got %q", cfg.Provider)
	}
	if cfg.SessionCacheSize != 1 {
		t.Errorf("Expected cache size 1, got %d", cfg.SessionCacheSize)
	}
	if cfg.SessionIdleTTL != 30*time.Minute {
		t.Errorf("Expected 30m idle TTL, got %s", cfg.SessionIdleTTL)
	}
	if cfg.DefaultTargetLanguage != "es" {
		t.Errorf("Expected es, got %q", cfg.DefaultTargetLanguage)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("Expected :9090, got %q", cfg.MetricsAddr)
	}
	if cfg.HealthGRPCAddr != "" {
		t.Errorf("Expected health server to be disabled, got %q", cfg.HealthGRPCAddr)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("Expected info level, got %v", cfg.LogLevel)
	}
}

func TestLoadFromValues(t *testing.T) {
	cfg, err := config.LoadFrom(map[string]string{
		"TOKEN":              "token",
		"ALLOWED_USERS":      "1,-2,3",
		"PROVIDER":           "libretranslate",
		"LIBRETRANSLATE_URL": "http://localhost:5000",
		"SESSION_CACHE_SIZE": "4",
		"SESSION_IDLE_TTL":   "90s",
		"LOG_LEVEL":          "debug",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.AllowedUsers) != 3 || cfg.AllowedUsers[1] != -2 {
		t.Errorf("unexpected allowed users: %v", cfg.AllowedUsers)
	}
	if cfg.SessionCacheSize != 4 || cfg.SessionIdleTTL != 90*time.Second {
		t.Errorf("unexpected session settings: %d %s", cfg.SessionCacheSize, cfg.SessionIdleTTL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v", cfg.LogLevel)
	}
}

func TestLoadFromErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			"Missing token",
			map[string]string{"PROVIDER": "none"},
			"TOKEN",
		},
		{
			"Missing OpenAI key",
			map[string]string{"TOKEN": "token"},
			"OPENAI_API_KEY",
		},
		{
			"Unknown provider",
			map[string]string{"TOKEN": "token", "PROVIDER": "deepl"},
			"PROVIDER",
		},
		{
			"Zero cache size",
			map[string]string{"TOKEN": "token", "PROVIDER": "none", "SESSION_CACHE_SIZE": "0"},
			"SESSION_CACHE_SIZE",
		},
		{
			"Unsupported target",
			map[string]string{"TOKEN": "token", "PROVIDER": "none", "DEFAULT_TARGET_LANGUAGE": "de"},
			"DEFAULT_TARGET_LANGUAGE",
		},
		{
			"Invalid allowed users",
			map[string]string{"TOKEN": "token", "PROVIDER": "none", "ALLOWED_USERS": "1,abc"},
			"abc",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := config.LoadFrom(test.env)
			if err == nil {
				t.Fatalf("expected error")
			}

			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Expected error mentioning %s, got %v", test.wantErr, err)
			}
		})
	}
}
