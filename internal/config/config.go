package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	// Env is development or production. Error responses include diagnostic
	// detail only outside production.
	Env       string          `yaml:"env"`
	Port      string          `yaml:"port"`
	Database  DatabaseConfig  `yaml:"database"`
	Quote     QuoteConfig     `yaml:"quote"`
	Collector CollectorConfig `yaml:"collector"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"` // sqlite
	URL      string `yaml:"url"`  // postgres
	MaxConns int    `yaml:"max_conns"`
}

type QuoteConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Symbol   string        `yaml:"symbol"`
	Timeout  time.Duration `yaml:"timeout"`
}

type CollectorConfig struct {
	Interval    time.Duration `yaml:"interval"`
	TickTimeout time.Duration `yaml:"tick_timeout"`
}

// RedisConfig enables the latest-price cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Env:  EnvProduction,
		Port: "3000",
		Database: DatabaseConfig{
			Path:     "prices.db",
			MaxConns: 10,
		},
		Quote: QuoteConfig{
			Endpoint: "https://api.binance.com/api/v3/ticker/price",
			Symbol:   "BTCUSDT",
			Timeout:  10 * time.Second,
		},
		Collector: CollectorConfig{
			Interval:    5 * time.Minute,
			TickTimeout: time.Minute,
		},
		Redis: RedisConfig{
			TTL: 15 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from, in increasing precedence: defaults,
// the YAML file named by CONFIG_FILE, and environment variables. A .env file
// (or the file named by ENV_FILE) is loaded first without overriding
// variables that are already set.
func Load() (Config, error) {
	loadDotenv()

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
		if cfg.Database.URL != "" {
			cfg.Database.Driver = DriverPostgres
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProduction() bool { return c.Env == EnvProduction }

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("env must be %s or %s, got %q", EnvDevelopment, EnvProduction, c.Env))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %s or %s, got %q", DriverSQLite, DriverPostgres, c.Database.Driver))
	}
	if c.Quote.Endpoint == "" {
		errs = append(errs, errors.New("quote.endpoint is required"))
	}
	if c.Quote.Symbol == "" {
		errs = append(errs, errors.New("quote.symbol is required"))
	}
	if c.Quote.Timeout <= 0 {
		errs = append(errs, errors.New("quote.timeout must be positive"))
	}
	if c.Collector.Interval <= 0 {
		errs = append(errs, errors.New("collector.interval must be positive"))
	}
	if c.Collector.TickTimeout <= 0 {
		errs = append(errs, errors.New("collector.tick_timeout must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel parses Level (debug, info, warn, error).
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

func loadDotenv() {
	if path := os.Getenv("ENV_FILE"); path != "" {
		_ = godotenv.Load(path)
		return
	}
	_ = godotenv.Load()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	setString(&cfg.Env, "APP_ENV")
	setString(&cfg.Port, "PORT")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Path, "DB_PATH")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Quote.Endpoint, "QUOTE_ENDPOINT")
	setString(&cfg.Quote.Symbol, "QUOTE_SYMBOL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	errs = append(errs,
		setInt(&cfg.Database.MaxConns, "DB_MAX_CONNS"),
		setInt(&cfg.Redis.DB, "REDIS_DB"),
		setDuration(&cfg.Quote.Timeout, "FETCH_TIMEOUT"),
		setDuration(&cfg.Collector.Interval, "COLLECT_INTERVAL"),
		setDuration(&cfg.Collector.TickTimeout, "TICK_TIMEOUT"),
		setDuration(&cfg.Redis.TTL, "LATEST_TTL"),
	)

	cfg.Env = strings.ToLower(cfg.Env)
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	cfg.Quote.Symbol = strings.ToUpper(cfg.Quote.Symbol)

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
