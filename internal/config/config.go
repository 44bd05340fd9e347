// Package config loads service configuration from the environment, with
// .env file support for local runs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/denniheim/notemaker/internal/sandbox"
)

// Models selectable by default when OPENAI_MODELS is not set.
var defaultModels = []string{
	"gpt-5",
	"gpt-5.1",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-5-mini",
}

type Config struct {
	Port string

	// Generative model
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Models        []string
	DefaultModel  string

	DefaultLanguage string

	// Host-mounted roots
	InputDir  string
	OutputDir string
	CopyDir   string

	ModelTimeout time.Duration
	RetryBackoff time.Duration

	MaxUploadBytes int64
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first, without overriding real env vars.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8000"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		Models:        envList("OPENAI_MODELS", defaultModels),
		DefaultModel:  envOr("OPENAI_MODEL", "gpt-5.1"),

		DefaultLanguage: envOr("DEFAULT_LANGUAGE", "nynorsk"),

		InputDir:  os.Getenv("HOST_INPUT_DIR"),
		OutputDir: os.Getenv("HOST_OUTPUT_DIR"),
		CopyDir:   os.Getenv("HOST_COPY_DIR"),

		ModelTimeout: envDuration("MODEL_TIMEOUT", 5*time.Minute),
		RetryBackoff: envDuration("RETRY_BACKOFF", 2*time.Second),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB
	}

	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = 5 * time.Minute
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 2 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.CopyDir == "" {
		cfg.CopyDir = cfg.OutputDir
	}

	return cfg
}

func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("HOST_OUTPUT_DIR is required")
	}
	if !contains(c.Models, c.DefaultModel) {
		return fmt.Errorf("OPENAI_MODEL %q is not in the model list", c.DefaultModel)
	}
	return nil
}

// Roots maps the configured directories onto sandbox roots, leaving
// unconfigured roots out.
func (c Config) Roots() map[sandbox.Root]string {
	roots := make(map[sandbox.Root]string, 3)
	if c.InputDir != "" {
		roots[sandbox.RootInput] = c.InputDir
	}
	if c.OutputDir != "" {
		roots[sandbox.RootOutput] = c.OutputDir
	}
	if c.CopyDir != "" {
		roots[sandbox.RootCopy] = c.CopyDir
	}
	return roots
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
