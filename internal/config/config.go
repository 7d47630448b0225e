// Package config loads the timetable server configuration.
//
// Values are resolved in this order, later sources winning:
//   - built-in defaults
//   - a YAML file named by --config or the TIMETABLE_CONFIG environment variable
//   - environment variables
//   - command line flags (applied by the caller)
//
// Environment variables: PORT, BIND, ALLOW_SUBNET, DB_DRIVER, DATABASE_URL,
// DB_PATH (sqlite file), DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD,
// DB_QUERY_TIMEOUT, DB_OPTIMIZE_SCHEDULE, LOG_LEVEL, LOG_FILE and LOG_COMPRESS.
//
// The remaining settings are read from the YAML file only: database sslmode,
// max_open_conns, max_idle_conns and conn_max_lifetime, the server timeouts and
// the log rotation limits.
//
// There is no automatic config file discovery.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/komronbek/timetable/internal/database"
)

// ConfigEnvVar names the environment variable holding the config file path
const ConfigEnvVar = "TIMETABLE_CONFIG"

const (
	DefaultBind       = "0.0.0.0"
	DefaultPort       = 8000
	DefaultSQLitePath = "./timetable.db"
	DefaultLogLevel   = "info"

	DefaultOptimizeSchedule = "@daily"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Bind is the IP address to listen on. Empty means all interfaces.
	Bind string `yaml:"bind"`

	Port int `yaml:"port"`

	// AllowSubnet restricts connections to a CIDR range, e.g. 192.168.1.0/24.
	AllowSubnet string `yaml:"allow_subnet"`

	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// DatabaseConfig configures the timetable database connection.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver"`

	// DSN is passed to the driver verbatim. When empty and the driver is
	// postgres, it is built from the fields below.
	DSN string `yaml:"dsn"`

	// Path is the sqlite database file. It takes precedence over DSN when the
	// driver is sqlite and is ignored otherwise.
	Path string `yaml:"path"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// QueryTimeout bounds each timetable lookup.
	QueryTimeout time.Duration `yaml:"query_timeout"`

	// OptimizeSchedule is a cron expression for refreshing planner statistics.
	// Empty disables the scheduled run.
	OptimizeSchedule string `yaml:"optimize_schedule"`
}

// LogConfig configures console and file logging.
type LogConfig struct {
	// Level is one of info, debug or trace.
	Level string `yaml:"level"`

	// File is the rotating log file path. Empty disables file logging.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:     DefaultBind,
			Port:     DefaultPort,
			Timeouts: DefaultTimeoutConfig(),
		},
		Database: DatabaseConfig{
			Driver:           database.DriverSQLite,
			Host:             "localhost",
			Port:             5432,
			SSLMode:          "disable",
			MaxOpenConns:     10,
			MaxIdleConns:     5,
			ConnMaxLifetime:  30 * time.Minute,
			QueryTimeout:     5 * time.Second,
			OptimizeSchedule: DefaultOptimizeSchedule,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// Load builds a Config from defaults, the optional YAML file at path and the
// process environment. An empty path falls back to TIMETABLE_CONFIG.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplySettings(EnvSettings{})
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplySettings overrides fields from well-known setting keys.
func (c *Config) ApplySettings(src SettingsGetter) {
	l := NewLoader(src)

	c.Server.Port = l.Int("PORT", c.Server.Port)
	c.Server.Bind = l.String("BIND", c.Server.Bind)
	c.Server.AllowSubnet = l.String("ALLOW_SUBNET", c.Server.AllowSubnet)

	c.Database.Driver = l.String("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = l.String("DATABASE_URL", c.Database.DSN)
	c.Database.Path = l.String("DB_PATH", c.Database.Path)
	c.Database.Host = l.String("DB_HOST", c.Database.Host)
	c.Database.Port = l.Int("DB_PORT", c.Database.Port)
	c.Database.Name = l.String("DB_NAME", c.Database.Name)
	c.Database.User = l.String("DB_USER", c.Database.User)
	c.Database.Password = l.String("DB_PASSWORD", c.Database.Password)
	c.Database.QueryTimeout = l.Duration("DB_QUERY_TIMEOUT", c.Database.QueryTimeout)
	c.Database.OptimizeSchedule = l.String("DB_OPTIMIZE_SCHEDULE", c.Database.OptimizeSchedule)

	c.Log.Level = l.String("LOG_LEVEL", c.Log.Level)
	c.Log.File = l.String("LOG_FILE", c.Log.File)
	c.Log.Compress = l.Bool("LOG_COMPRESS", c.Log.Compress)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Server.Port)
	}
	if c.Server.Bind != "" && net.ParseIP(c.Server.Bind) == nil {
		return fmt.Errorf("invalid bind address: %s", c.Server.Bind)
	}
	if _, err := c.Server.AllowedNet(); err != nil {
		return err
	}
	if c.Server.Timeouts.Request <= 0 || c.Server.Timeouts.Shutdown <= 0 {
		return fmt.Errorf("invalid server timeouts: request and shutdown must be positive")
	}
	if !database.IsSupportedDriver(c.Database.Driver) {
		return fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, c.Database.Driver)
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("invalid query timeout %s: must be positive", c.Database.QueryTimeout)
	}
	if c.Database.OptimizeSchedule != "" {
		if _, err := cron.ParseStandard(c.Database.OptimizeSchedule); err != nil {
			return fmt.Errorf("invalid optimize schedule %q: %w", c.Database.OptimizeSchedule, err)
		}
	}
	switch c.Log.Level {
	case "info", "debug", "trace":
	default:
		return fmt.Errorf("invalid log level %q: expected info, debug or trace", c.Log.Level)
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// AllowedNet parses AllowSubnet. A nil network means no restriction.
func (s ServerConfig) AllowedNet() (*net.IPNet, error) {
	if s.AllowSubnet == "" {
		return nil, nil
	}
	_, n, err := net.ParseCIDR(s.AllowSubnet)
	if err != nil {
		return nil, fmt.Errorf("invalid allow-subnet CIDR: %s", s.AllowSubnet)
	}
	return n, nil
}

// ConnString returns the DSN handed to the driver. It is resolved from the
// final driver, so overriding the driver after loading never pairs a sqlite
// path with postgres.
func (d DatabaseConfig) ConnString() string {
	if d.Driver != database.DriverPostgres {
		switch {
		case d.Path != "":
			return d.Path
		case d.DSN != "":
			return d.DSN
		}
		return DefaultSQLitePath
	}
	if d.DSN != "" {
		return d.DSN
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// Options converts the database section into connection options.
func (d DatabaseConfig) Options() database.Options {
	return database.Options{
		Driver:          d.Driver,
		DSN:             d.ConnString(),
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
	}
}
