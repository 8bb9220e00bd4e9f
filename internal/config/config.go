// Package config loads the settings for the demonstration driver.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	. "orderstore/internal/common"
)

var (
	ErrInvalidWorkers = errors.New("workers must be at least 1")
	ErrInvalidReaders = errors.New("readers must not be negative")
)

// SymbolOrder is an order to place on a specific symbol.
type SymbolOrder struct {
	Symbol string `yaml:"symbol"`
	Order  `yaml:",inline"`
}

type Config struct {
	LogLevel string `yaml:"log_level"`
	Pretty   bool   `yaml:"pretty"`   // Human readable console logs
	Workers  uint   `yaml:"workers"`  // Goroutines seeding the store
	Readers  int    `yaml:"readers"`  // Goroutines taking snapshots while seeding

	Symbols []string      `yaml:"symbols"`
	Default Order         `yaml:"default"` // Order every symbol is seeded with
	Extra   []SymbolOrder `yaml:"extra"`   // Placed after seeding
	Remove  []string      `yaml:"remove"`  // Removed in order after the first display
}

func Default() *Config {
	return &Config{
		LogLevel: zerolog.LevelInfoValue,
		Pretty:   true,
		Workers:  4,
		Readers:  2,
		Symbols: []string{
			"NESTLEIND", "HDFCBANK", "RELIANCE", "TCS", "INFY",
			"SBIN", "ICICIBANK", "LT", "BAJFINANCE", "HINDUNILVR",
		},
		Default: DefaultOrder(),
		Extra: []SymbolOrder{
			{Symbol: "NESTLEIND", Order: NewOrder(20, 3)},
			{Symbol: "HDFCBANK", Order: NewOrder(15, 4)},
		},
		Remove: []string{"NESTLEIND", "NONEXISTENT"},
	}
}

// Load reads path over the defaults. An empty path, or one that does not
// exist, yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Workers < 1 {
		return ErrInvalidWorkers
	}
	if cfg.Readers < 0 {
		return ErrInvalidReaders
	}
	if _, err := cfg.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel. An empty level means info.
func (cfg *Config) Level() (zerolog.Level, error) {
	if cfg.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return level, nil
}
