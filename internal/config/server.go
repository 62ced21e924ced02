package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/repowatch/repowatch/internal/archive"
)

// ServerConfig configures `repowatch serve`.
type ServerConfig struct {
	Addr     string // REPOWATCH_ADDR
	Store    string // REPOWATCH_STORE: memory|jsonl|bolt|redis|postgres
	StoreDSN string // REPOWATCH_STORE_DSN
	LogLevel string // REPOWATCH_LOG_LEVEL
	LogJSON  bool   // REPOWATCH_LOG_JSON
}

// LoadServer reads the server settings from the environment after loading
// envFile (if it exists) and validates them. Variables already set in the
// environment win over the file.
func LoadServer(envFile string) (ServerConfig, error) {
	cfg, err := ReadServer(envFile)
	if err != nil {
		return ServerConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// ReadServer is LoadServer without validation, for callers that layer flags
// on top before validating.
func ReadServer(envFile string) (ServerConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ServerConfig{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return ServerConfig{
		Addr:     getEnv("REPOWATCH_ADDR", ":8080"),
		Store:    getEnv("REPOWATCH_STORE", "memory"),
		StoreDSN: getEnv("REPOWATCH_STORE_DSN", ""),
		LogLevel: getEnv("REPOWATCH_LOG_LEVEL", "info"),
		LogJSON:  getEnvAsBool("REPOWATCH_LOG_JSON", false),
	}, nil
}

func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("REPOWATCH_ADDR is required")
	}
	if !slices.Contains(archive.Kinds(), c.Store) {
		return fmt.Errorf("REPOWATCH_STORE must be one of %v, got %q", archive.Kinds(), c.Store)
	}
	if c.Store != "memory" && c.Store != "redis" && c.StoreDSN == "" {
		return fmt.Errorf("REPOWATCH_STORE_DSN is required for the %s store", c.Store)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
