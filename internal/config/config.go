package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/insightdelivered/upi-statement-extractor/internal/parser"
)

// EnvPrefix is prepended to every environment override, e.g. UPIQ_SERVER_ADDR.
const EnvPrefix = "UPIQ"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Engine EngineConfig `mapstructure:"engine"`
	Batch  BatchConfig  `mapstructure:"batch"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	BodyLimitMB int    `mapstructure:"body_limit_mb"`
}

// EngineConfig holds the sanity range as strings so amounts stay exact.
type EngineConfig struct {
	MinAmount string `mapstructure:"min_amount"`
	MaxAmount string `mapstructure:"max_amount"`
	Timezone  string `mapstructure:"timezone"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.body_limit_mb", 50)
	v.SetDefault("engine.min_amount", "1")
	v.SetDefault("engine.max_amount", "1000000")
	v.SetDefault("engine.timezone", "UTC")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load reads defaults, then the optional config file at path, then UPIQ_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the amount range, worker count and timezone.
func (c *Config) Validate() error {
	minAmount, maxAmount, err := c.Engine.amounts()
	if err != nil {
		return err
	}
	if !minAmount.LessThan(maxAmount) {
		return fmt.Errorf("engine.min_amount %s must be below engine.max_amount %s", minAmount, maxAmount)
	}
	if c.Batch.Workers < 1 {
		return errors.New("batch.workers must be at least 1")
	}
	if c.Server.BodyLimitMB < 1 {
		return errors.New("server.body_limit_mb must be at least 1")
	}
	if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
		return fmt.Errorf("engine.timezone: %w", err)
	}
	return nil
}

// Rules builds the parser rule table for the configured range and timezone.
func (c *Config) Rules() (*parser.Rules, error) {
	minAmount, maxAmount, err := c.Engine.amounts()
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone: %w", err)
	}
	return parser.NewRules(minAmount, maxAmount, loc)
}

func (e EngineConfig) amounts() (decimal.Decimal, decimal.Decimal, error) {
	minAmount, err := decimal.NewFromString(strings.TrimSpace(e.MinAmount))
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("engine.min_amount %q: %w", e.MinAmount, err)
	}
	maxAmount, err := decimal.NewFromString(strings.TrimSpace(e.MaxAmount))
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("engine.max_amount %q: %w", e.MaxAmount, err)
	}
	return minAmount, maxAmount, nil
}
