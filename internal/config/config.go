// Package config loads the daoctl configuration from a YAML file and
// DAOCTL_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/viper"

	"github.com/syssam/sqldao/dialect"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. DAOCTL_DSN.
	EnvPrefix  = "DAOCTL"
	configName = "daoctl"
	configType = "yaml"
)

// Config is the daoctl configuration.
type Config struct {
	Driver    string            `mapstructure:"driver" yaml:"driver"`
	DSN       string            `mapstructure:"dsn" yaml:"dsn,omitempty"`
	Host      string            `mapstructure:"host" yaml:"host,omitempty"`
	Port      int               `mapstructure:"port" yaml:"port,omitempty"`
	Database  string            `mapstructure:"database" yaml:"database,omitempty"`
	User      string            `mapstructure:"user" yaml:"user,omitempty"`
	Password  string            `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode   string            `mapstructure:"sslmode" yaml:"sslmode,omitempty"`
	Params    map[string]string `mapstructure:"params" yaml:"params,omitempty"`
	Schema    string            `mapstructure:"schema" yaml:"schema,omitempty"`
	Queries   string            `mapstructure:"queries" yaml:"queries,omitempty"`
	PageSize  int               `mapstructure:"page_size" yaml:"page_size"`
	SlowQuery time.Duration     `mapstructure:"slow_query" yaml:"slow_query"`
	LogLevel  string            `mapstructure:"log_level" yaml:"log_level"`
	Gen       Gen               `mapstructure:"gen" yaml:"gen"`
}

// Gen configures code generation.
type Gen struct {
	Output  string   `mapstructure:"output" yaml:"output,omitempty"`
	Workers int      `mapstructure:"workers" yaml:"workers,omitempty"`
	Types   []string `mapstructure:"types" yaml:"types,omitempty"`
	Tags    []string `mapstructure:"tags" yaml:"tags,omitempty"`
}

// New returns a viper instance with the daoctl defaults and environment
// binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("driver", "")
	v.SetDefault("dsn", "")
	v.SetDefault("host", "")
	v.SetDefault("port", 0)
	v.SetDefault("database", "")
	v.SetDefault("user", "")
	v.SetDefault("password", "")
	v.SetDefault("sslmode", "")
	v.SetDefault("schema", "")
	v.SetDefault("queries", "")
	v.SetDefault("page_size", 25)
	v.SetDefault("slow_query", 200*time.Millisecond)
	v.SetDefault("log_level", "info")
	v.SetDefault("gen.output", "")
	v.SetDefault("gen.workers", 0)
	return v
}

// Load reads the configuration. An explicit path must exist; otherwise
// daoctl.yaml is looked up in the working directory and may be absent.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("config: page_size must be positive, got %d", cfg.PageSize)
	}
	return cfg, nil
}

// Dialect returns the dialect name of the configured driver.
func (c *Config) Dialect() string { return dialect.Normalize(c.Driver) }

// DriverName returns the database/sql driver name to open.
func (c *Config) DriverName() string {
	if c.Dialect() == dialect.SQLite {
		return "sqlite"
	}
	return c.Driver
}

// DataSource returns the data source name, either the configured DSN or
// one built from the connection fields.
func (c *Config) DataSource() (string, error) {
	if c.Driver == "" {
		return "", errors.New("config: driver is not set")
	}
	switch c.Dialect() {
	case dialect.Postgres:
		dsn := c.DSN
		if dsn == "" {
			dsn = c.postgresURL()
		}
		if _, err := pgx.ParseConfig(dsn); err != nil {
			return "", fmt.Errorf("config: postgres dsn: %w", err)
		}
		return dsn, nil
	case dialect.MySQL:
		if c.DSN != "" {
			if _, err := mysql.ParseDSN(c.DSN); err != nil {
				return "", fmt.Errorf("config: mysql dsn: %w", err)
			}
			return c.DSN, nil
		}
		return c.mysqlDSN(), nil
	case dialect.SQLite:
		if c.DSN != "" {
			return c.DSN, nil
		}
		if c.Database == "" {
			return "", errors.New("config: sqlite requires a database file")
		}
		return c.Database, nil
	case dialect.SQLServer:
		if c.DSN != "" {
			return c.DSN, nil
		}
		return c.sqlserverURL(), nil
	default:
		return "", fmt.Errorf("config: unsupported driver %q", c.Driver)
	}
}

func (c *Config) hostPort(port int) string {
	if c.Port > 0 {
		port = c.Port
	}
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *Config) userinfo() *url.Userinfo {
	switch {
	case c.User == "":
		return nil
	case c.Password == "":
		return url.User(c.User)
	default:
		return url.UserPassword(c.User, c.Password)
	}
}

func (c *Config) query(extra map[string]string) string {
	q := url.Values{}
	for k, v := range c.Params {
		q.Set(k, v)
	}
	for k, v := range extra {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q.Encode()
}

func (c *Config) postgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     c.userinfo(),
		Host:     c.hostPort(5432),
		Path:     "/" + c.Database,
		RawQuery: c.query(map[string]string{"sslmode": c.SSLMode}),
	}
	return u.String()
}

func (c *Config) sqlserverURL() string {
	u := url.URL{
		Scheme:   "sqlserver",
		User:     c.userinfo(),
		Host:     c.hostPort(1433),
		RawQuery: c.query(map[string]string{"database": c.Database}),
	}
	return u.String()
}

func (c *Config) mysqlDSN() string {
	m := mysql.NewConfig()
	m.User = c.User
	m.Passwd = c.Password
	m.Net = "tcp"
	m.Addr = c.hostPort(3306)
	m.DBName = c.Database
	m.ParseTime = true
	if len(c.Params) > 0 {
		m.Params = c.Params
	}
	return m.FormatDSN()
}
