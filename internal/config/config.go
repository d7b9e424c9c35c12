package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

var validEnvs = map[string]bool{
	"local": true,
	"alpha": true,
	"beta":  true,
	"prod":  true,
}

// envKeys lists the environment variables read by Load.
var envKeys = map[string]bool{
	"CONNECTION_STRING": true,
	"DB_DRIVER":         true,
	"APP_ENV":           true,
	"LOG_LEVEL":         true,
}

// DefaultDB is the local database used when CONNECTION_STRING is not set.
var DefaultDB = DBConfig{
	Host:     "localhost",
	Port:     "5432",
	User:     "app",
	Password: "app",
	Name:     "appdb",
	SSLMode:  "disable",
}

type Config struct {
	ConnectionString string `koanf:"connection_string"`
	Driver           string `koanf:"db_driver"`
	AppEnv           string `koanf:"app_env"`
	LogLevel         string `koanf:"log_level"`
}

func (c Config) ParseLogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if !validEnvs[c.AppEnv] {
		return fmt.Errorf("invalid APP_ENV %q: must be one of local, alpha, beta, prod", c.AppEnv)
	}
	if c.Driver != "" && !validDrivers[c.Driver] {
		return fmt.Errorf("invalid DB_DRIVER %q: must be one of postgres, pgx, sqlite", c.Driver)
	}
	conn, err := c.Connection()
	if err != nil {
		return err
	}
	if conn.Driver == DriverSQLite && c.AppEnv != "local" {
		return fmt.Errorf("sqlite connection must not be used in %s environment", c.AppEnv)
	}
	return nil
}

// Connection resolves the connection string and the optional DB_DRIVER
// override into a driver name and DSN.
func (c Config) Connection() (Connection, error) {
	conn, err := ParseConnectionString(c.ConnectionString)
	if err != nil {
		return Connection{}, err
	}
	if c.Driver == "" || c.Driver == conn.Driver {
		return conn, nil
	}
	if c.Driver == DriverSQLite || conn.Driver == DriverSQLite {
		return Connection{}, fmt.Errorf("DB_DRIVER %q does not match %s connection string", c.Driver, conn.DisplayName())
	}
	conn.Driver = c.Driver
	return conn, nil
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     d.Name,
		RawQuery: fmt.Sprintf("sslmode=%s", url.QueryEscape(d.SSLMode)),
	}
	return u.String()
}

// Load reads the configuration from the environment. Empty variables fall
// back to their defaults.
func Load() (Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider("", ".", func(s string) string {
		if !envKeys[s] {
			return ""
		}
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.ConnectionString = orDefault(strings.TrimSpace(cfg.ConnectionString), DefaultDB.DSN())
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	cfg.AppEnv = orDefault(cfg.AppEnv, "local")
	cfg.LogLevel = orDefault(cfg.LogLevel, "info")

	return cfg, nil
}

func orDefault(v, defaultVal string) string {
	if v != "" {
		return v
	}
	return defaultVal
}
