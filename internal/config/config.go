// Package config reads process settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
}

type Config struct {
	RiotAPIKey      string `env:"RIOT_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL"`

	Store         string        `env:"REWIND_STORE" envDefault:"sqlite"`
	DB            string        `env:"REWIND_DB"`
	CheckpointTTL time.Duration `env:"CHECKPOINT_TTL" envDefault:"72h"`
	ResultTTL     time.Duration `env:"RESULT_TTL" envDefault:"168h"`

	BatchSize       int   `env:"BATCH_SIZE" envDefault:"100"`
	SampleThreshold int   `env:"SAMPLE_THRESHOLD" envDefault:"300"`
	FetchWorkers    int   `env:"FETCH_WORKERS" envDefault:"10"`
	Since           int64 `env:"SINCE"`

	RiotRPS        int           `env:"RIOT_RPS" envDefault:"15"`
	RiotPer2Min    int           `env:"RIOT_PER_2MIN" envDefault:"90"`
	RequestTimeout time.Duration `env:"RIOT_TIMEOUT" envDefault:"10s"`

	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxDelay  time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`

	NarrativeDelay  time.Duration `env:"NARRATIVE_DELAY" envDefault:"3s"`
	GenerateTimeout time.Duration `env:"GENERATE_TIMEOUT" envDefault:"30s"`

	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":8080"`
	JobWorkers int    `env:"JOB_WORKERS" envDefault:"2"`
	QueueDepth int    `env:"QUEUE_DEPTH" envDefault:"64"`

	Log LogConfig
}

// Load reads .env (if present) and then the environment. A missing
// RIOT_API_KEY falls back to ~/.rewind/riot_api_key.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.DB == "" && (cfg.Store == "sqlite" || cfg.Store == "bolt") {
		cfg.DB = DefaultDBPath(cfg.Store)
	}
	if cfg.RiotAPIKey == "" {
		cfg.RiotAPIKey = readKeyFile("riot_api_key")
	}
	return cfg, nil
}

// Dir is the per-user state directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".rewind")
}

// DefaultDBPath is the file used by the file-backed stores.
func DefaultDBPath(store string) string {
	if store == "bolt" {
		return filepath.Join(Dir(), "rewind.bolt")
	}
	return filepath.Join(Dir(), "rewind.db")
}

func readKeyFile(name string) string {
	data, err := os.ReadFile(filepath.Join(Dir(), name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// RequireRiotKey reports a usable error when no gameplay API key is set.
func (c Config) RequireRiotKey() error {
	if c.RiotAPIKey == "" {
		return fmt.Errorf("Riot API key not found: set RIOT_API_KEY or create %s", filepath.Join(Dir(), "riot_api_key"))
	}
	return nil
}

// SinceTime converts SINCE to a time; zero means no lower bound.
func (c Config) SinceTime() time.Time {
	if c.Since <= 0 {
		return time.Time{}
	}
	return time.Unix(c.Since, 0).UTC()
}
