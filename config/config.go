package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Dmitrij-bot/storefront/internal/grpc"
	"github.com/Dmitrij-bot/storefront/pkg/httpclient"
	"github.com/Dmitrij-bot/storefront/pkg/kafkaSender"
	"github.com/Dmitrij-bot/storefront/pkg/metrics"
	"github.com/Dmitrij-bot/storefront/pkg/postgres"
	"github.com/Dmitrij-bot/storefront/pkg/redis"
)

const defaultAPIURL = "http://localhost:3333"

type Log struct {
	Level       string `json:"level" env:"STOREFRONT_LOG_LEVEL"`
	Development bool   `json:"development" env:"STOREFRONT_LOG_DEVELOPMENT"`
}

type Config struct {
	API       httpclient.Config  `json:"api"`
	Log       Log                `json:"log"`
	GRPC      grpc.Config        `json:"grpc"`
	Metrics   metrics.Config     `json:"metrics"`
	Postgres  postgres.Config    `json:"postgres"`
	Redis     redis.Config       `json:"redis"`
	Kafka     kafkaSender.Config `json:"kafka"`
	KeyPrefix string             `json:"key_prefix" env:"STOREFRONT_KEY_PREFIX"`
}

// Load reads the optional JSON file, then a .env file from the working
// directory, then the STOREFRONT_* environment, each overriding the last.
func Load(filepath string) (cfg Config, err error) {
	cfg = Config{
		API: httpclient.Config{BaseURL: defaultAPIURL},
		Log: Log{Level: "info"},
	}

	if filepath != "" {
		file, err := os.Open(filepath)
		if err != nil {
			return cfg, err
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to decode %s: %w", filepath, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.API.BaseURL == "" {
		return cfg, errors.New("api base url is required")
	}

	return cfg, nil
}

func NewLogger(cfg Log) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		parsed, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	return zcfg.Build()
}
