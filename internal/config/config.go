// Package config provides configuration management using viper.
// It supports loading from YAML files, an optional .env file, and
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Game     GameConfig     `mapstructure:"game"`
	Photo    PhotoConfig    `mapstructure:"photo"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// GameConfig holds leaderboard settings.
type GameConfig struct {
	LeaderboardLimit int `mapstructure:"leaderboard_limit"`
	WeeklyDays       int `mapstructure:"weekly_days"`
	MonthlyDays      int `mapstructure:"monthly_days"`
}

// PhotoConfig holds upload settings.
type PhotoConfig struct {
	MaxBytes      int64  `mapstructure:"max_bytes"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// LogConfig holds zerolog settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN returns the PostgreSQL connection string.
// Credentials are escaped, so any password is safe to use.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// WeeklyWindow returns the trailing duration of the weekly leaderboard.
func (g *GameConfig) WeeklyWindow() time.Duration {
	return time.Duration(g.WeeklyDays) * 24 * time.Hour
}

// MonthlyWindow returns the trailing duration of the monthly leaderboard.
func (g *GameConfig) MonthlyWindow() time.Duration {
	return time.Duration(g.MonthlyDays) * 24 * time.Hour
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, "." and "./config".
func Load(configPath string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. DATABASE_HOST, AUTH_JWT_SECRET, SERVER_ALLOWED_ORIGINS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
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

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Game.LeaderboardLimit <= 0 {
		return fmt.Errorf("game.leaderboard_limit must be positive, got %d", c.Game.LeaderboardLimit)
	}
	if c.Game.WeeklyDays <= 0 || c.Game.MonthlyDays <= 0 {
		return errors.New("game.weekly_days and game.monthly_days must be positive")
	}
	if c.Photo.MaxBytes <= 0 {
		return fmt.Errorf("photo.max_bytes must be positive, got %d", c.Photo.MaxBytes)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fingle")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "fingle")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("game.leaderboard_limit", 50)
	v.SetDefault("game.weekly_days", 7)
	v.SetDefault("game.monthly_days", 30)

	v.SetDefault("photo.max_bytes", 10<<20)
	v.SetDefault("photo.public_base_url", "http://localhost:3001")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
