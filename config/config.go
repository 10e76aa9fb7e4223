// Package config loads the service configuration from defaults, an
// optional YAML file, a .env file and DEMAND_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DEMAND_SERVER_PORT.
const EnvPrefix = "DEMAND"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Source   SourceConfig   `mapstructure:"source"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Ranking  RankingConfig  `mapstructure:"ranking"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SourceConfig describes the relational sales database.
type SourceConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite3 or pgx
	DSN             string        `mapstructure:"dsn"`
	LoadOnStart     bool          `mapstructure:"load_on_start"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // 0 disables
}

type ForecastConfig struct {
	Horizon        int `mapstructure:"horizon"`
	SeasonalPeriod int `mapstructure:"seasonal_period"`
	Workers        int `mapstructure:"workers"`
}

type RankingConfig struct {
	DefaultTop int `mapstructure:"default_top"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("source.driver", "sqlite3")
	v.SetDefault("source.dsn", "sales.db")
	v.SetDefault("source.load_on_start", true)
	v.SetDefault("source.refresh_interval", time.Duration(0))
	v.SetDefault("forecast.horizon", 30)
	v.SetDefault("forecast.seasonal_period", 2)
	v.SetDefault("forecast.workers", runtime.NumCPU())
	v.SetDefault("ranking.default_top", 10)
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout: must be positive"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Source.Driver {
	case "sqlite3", "pgx":
	default:
		errs = append(errs, fmt.Errorf("source.driver: %q is not sqlite3 or pgx", c.Source.Driver))
	}
	if c.Source.RefreshInterval < 0 {
		errs = append(errs, errors.New("source.refresh_interval: must not be negative"))
	}
	if c.Forecast.Horizon < 1 {
		errs = append(errs, errors.New("forecast.horizon: must be positive"))
	}
	if c.Forecast.SeasonalPeriod < 1 {
		errs = append(errs, errors.New("forecast.seasonal_period: must be positive"))
	}
	if c.Forecast.Workers < 1 {
		errs = append(errs, errors.New("forecast.workers: must be positive"))
	}
	if c.Ranking.DefaultTop < 1 {
		errs = append(errs, errors.New("ranking.default_top: must be positive"))
	}
	return errors.Join(errs...)
}

// Logger builds the root logger at the configured level.
func (c *Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
