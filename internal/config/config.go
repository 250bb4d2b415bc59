package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/walkforward/pkg/bars"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Data        DataConfig        `mapstructure:"data"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Backtest    BacktestConfig    `mapstructure:"backtest"`
	Optimizer   OptimizerConfig   `mapstructure:"optimizer"`
	WalkForward WalkForwardConfig `mapstructure:"walkforward"`
	Strategy    StrategyConfig    `mapstructure:"strategy"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name      string `mapstructure:"name"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "json" or "console"
}

// DataConfig selects and parameterizes the bar provider
type DataConfig struct {
	Source        string `mapstructure:"source"`    // "file" or "postgres"
	Timeframe     string `mapstructure:"timeframe"` // bar granularity the strategy trades on, e.g. "1h"
	Dir           string `mapstructure:"dir"`
	PersistMerged bool   `mapstructure:"persist_merged"`
}

// DatabaseConfig contains PostgreSQL settings for the database-backed
// provider
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// DSN renders the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode, d.PoolSize)
}

// BacktestConfig contains execution settings
type BacktestConfig struct {
	InitialCash     float64 `mapstructure:"initial_cash"`
	CalibrationCash float64 `mapstructure:"calibration_cash"`
	CommissionRate  float64 `mapstructure:"commission_rate"`
	Leverage        float64 `mapstructure:"leverage"`
	FillPolicy      string  `mapstructure:"fill_policy"` // "next_open" or "same_close"
}

// OptimizerConfig contains search settings
type OptimizerConfig struct {
	Algorithm string `mapstructure:"algorithm"` // random, hillclimb, swarm, genetic
	Budget    int    `mapstructure:"budget"`
	Seed      int64  `mapstructure:"seed"`
	Patience  int    `mapstructure:"patience"` // 0 disables early convergence stop
}

// WalkForwardConfig contains window settings
type WalkForwardConfig struct {
	TrainDays int `mapstructure:"train_days"`
	TestDays  int `mapstructure:"test_days"`
}

// StrategyConfig selects the signal function
type StrategyConfig struct {
	Name string `mapstructure:"name"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("WALKFORWARD")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and environment variables apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "walkforward")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")

	v.SetDefault("data.source", "file")
	v.SetDefault("data.timeframe", "1m")
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.persist_merged", true)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "walkforward")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	v.SetDefault("backtest.initial_cash", 1000.0)
	v.SetDefault("backtest.calibration_cash", 1000.0)
	v.SetDefault("backtest.commission_rate", 0.0004)
	v.SetDefault("backtest.leverage", 1.0)
	v.SetDefault("backtest.fill_policy", "next_open")

	v.SetDefault("optimizer.algorithm", "random")
	v.SetDefault("optimizer.budget", 200)
	v.SetDefault("optimizer.seed", 42)
	v.SetDefault("optimizer.patience", 0)

	v.SetDefault("walkforward.train_days", 6)
	v.SetDefault("walkforward.test_days", 7)

	v.SetDefault("strategy.name", "dualma")
}

// Validate checks configuration invariants before anything runs
func (c *Config) Validate() error {
	switch c.Data.Source {
	case "file", "postgres":
	default:
		return fmt.Errorf("data.source must be file or postgres, got %q", c.Data.Source)
	}
	if c.Data.Source == "file" && c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required for the file source")
	}
	if _, ok := bars.ParseTimeframe(c.Data.Timeframe); !ok {
		return fmt.Errorf("data.timeframe must be one of the supported intervals, got %q", c.Data.Timeframe)
	}

	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("backtest.initial_cash must be positive, got %v", c.Backtest.InitialCash)
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionRate >= 1 {
		return fmt.Errorf("backtest.commission_rate must be in [0, 1), got %v", c.Backtest.CommissionRate)
	}
	if c.Backtest.Leverage <= 0 {
		return fmt.Errorf("backtest.leverage must be positive, got %v", c.Backtest.Leverage)
	}
	switch c.Backtest.FillPolicy {
	case "next_open", "same_close":
	default:
		return fmt.Errorf("backtest.fill_policy must be next_open or same_close, got %q", c.Backtest.FillPolicy)
	}

	if c.Optimizer.Budget < 1 {
		return fmt.Errorf("optimizer.budget must be positive, got %d", c.Optimizer.Budget)
	}
	if c.WalkForward.TrainDays < 1 || c.WalkForward.TestDays < 1 {
		return fmt.Errorf("walkforward window lengths must be positive, got train=%d test=%d",
			c.WalkForward.TrainDays, c.WalkForward.TestDays)
	}
	return nil
}
