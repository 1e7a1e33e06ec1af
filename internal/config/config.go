package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	SiteTitle    string `mapstructure:"siteTitle"`
	OutputDir    string `mapstructure:"outputDir"`
	BaseURL      string `mapstructure:"baseURL"`
	StaticDir    string `mapstructure:"staticDir"`
	LayoutsDir   string `mapstructure:"layoutsDir"`
	ContentDir   string `mapstructure:"contentDir"`
	DefaultsFile string `mapstructure:"defaultsFile"`

	Server ServerConfig `mapstructure:"server"`
	Remote RemoteConfig `mapstructure:"remote"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Admin  AdminConfig  `mapstructure:"admin"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// RemoteConfig points at the hosted content table. An empty DSN leaves the
// site running from the local cache or bundled defaults.
type RemoteConfig struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	EnsureSchema bool   `mapstructure:"ensureSchema"`
}

type CacheConfig struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type AdminConfig struct {
	SessionSecret string        `mapstructure:"sessionSecret"`
	SessionTTL    time.Duration `mapstructure:"sessionTTL"`
	Users         []AdminUser   `mapstructure:"users"`
}

// AdminUser is one row of the fixed credential table.
type AdminUser struct {
	Username     string `mapstructure:"username"`
	Name         string `mapstructure:"name"`
	PasswordHash string `mapstructure:"passwordHash"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// EnvPrefix prefixes environment overrides, e.g. SITE_REMOTE_DSN.
const EnvPrefix = "SITE"

// NewViper returns a viper instance carrying defaults and environment overrides.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Unmarshal decodes and validates the settings held by v.
func Unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults registers a default for every key so that environment
// variables can override keys that never appear in a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("siteTitle", "Praktisi Mengajar")
	v.SetDefault("outputDir", "public")
	v.SetDefault("baseURL", "")
	v.SetDefault("staticDir", "static")
	v.SetDefault("layoutsDir", "")
	v.SetDefault("contentDir", "content")
	v.SetDefault("defaultsFile", "")

	v.SetDefault("server.addr", ":1313")
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)

	v.SetDefault("remote.driver", DriverPostgres)
	v.SetDefault("remote.dsn", "")
	v.SetDefault("remote.ensureSchema", true)

	v.SetDefault("cache.backend", CacheFile)
	v.SetDefault("cache.path", ".cache/content.json")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key", "site:content")

	v.SetDefault("admin.sessionSecret", "")
	v.SetDefault("admin.sessionTTL", 12*time.Hour)
	v.SetDefault("admin.users", []map[string]any{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Validate checks enumerated settings and normalizes their case.
func (c *Config) Validate() error {
	var errs []error

	c.Remote.Driver = strings.ToLower(strings.TrimSpace(c.Remote.Driver))
	switch c.Remote.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("remote.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Remote.Driver))
	}

	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	switch c.Cache.Backend {
	case CacheFile:
		if strings.TrimSpace(c.Cache.Path) == "" {
			errs = append(errs, errors.New("cache.path is required for the file cache"))
		}
	case CacheRedis:
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis cache"))
		}
	case CacheNone:
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be one of file, redis, none, got %q", c.Cache.Backend))
	}

	if c.Admin.SessionTTL <= 0 {
		errs = append(errs, errors.New("admin.sessionTTL must be positive"))
	}
	seen := make(map[string]bool, len(c.Admin.Users))
	for i, u := range c.Admin.Users {
		name := strings.TrimSpace(u.Username)
		if name == "" {
			errs = append(errs, fmt.Errorf("admin.users[%d]: username is required", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("admin.users[%d]: duplicate username %q", i, name))
		}
		seen[name] = true
		if strings.TrimSpace(u.PasswordHash) == "" {
			errs = append(errs, fmt.Errorf("admin.users[%d]: passwordHash is required", i))
		}
	}
	return errors.Join(errs...)
}

// RemoteEnabled reports whether a hosted database is configured.
func (c *Config) RemoteEnabled() bool {
	return strings.TrimSpace(c.Remote.DSN) != ""
}
