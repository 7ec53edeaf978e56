// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

// Package config loads the natours server configuration. Values are layered
// as built-in defaults, then an optional YAML file, then command-line flags.
// Secrets left empty after layering are read from the environment.
package config

import (
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/internal/mail"
)

// Environments accepted in server.environment.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers accepted in store.driver.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Environment variables consulted for secrets.
const (
	EnvJWTSecret   = "NATOURS_JWT_SECRET"
	EnvDatabaseURL = "DATABASE_URL"
	EnvMongoURI    = "MONGODB_URI"
)

// Config is the complete server configuration. It is built once at startup
// and not mutated afterwards.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Auth    AuthConfig    `koanf:"auth"`
	Store   StoreConfig   `koanf:"store"`
	Mail    mail.Config   `koanf:"mail"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	Environment     string        `koanf:"environment"`
	PublicURL       string        `koanf:"public_url"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	BodyLimit       int64         `koanf:"body_limit"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit"`
	RateWindow      time.Duration `koanf:"rate_window"`
	TrustedProxies  []string      `koanf:"trusted_proxies"`
}

// AuthConfig configures tokens, cookies, lockout and password hashing.
type AuthConfig struct {
	JWTSecret          string        `koanf:"jwt_secret"`
	TokenTTL           time.Duration `koanf:"token_ttl"`
	CookieDays         int           `koanf:"cookie_days"`
	LockoutThreshold   int           `koanf:"lockout_threshold"`
	LockoutDuration    time.Duration `koanf:"lockout_duration"`
	ResetTokenTTL      time.Duration `koanf:"reset_token_ttl"`
	WelcomeMailTimeout time.Duration `koanf:"welcome_mail_timeout"`
	Argon2             Argon2Config  `koanf:"argon2"`
}

// Argon2Config holds the argon2id cost parameters.
type Argon2Config struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
}

// StoreConfig selects the account store.
type StoreConfig struct {
	Driver         string        `koanf:"driver"`
	DatabaseURL    string        `koanf:"database_url"`
	MongoURI       string        `koanf:"mongo_uri"`
	MongoDatabase  string        `koanf:"mongo_database"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	ConnectBackoff time.Duration `koanf:"connect_backoff"`
	AutoMigrate    bool          `koanf:"auto_migrate"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the metrics and health endpoint.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `koanf:"addr"`
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]any {
	hash := auth.DefaultHashParams()
	return map[string]any{
		"server.addr":             ":3000",
		"server.environment":      EnvDevelopment,
		"server.public_url":       "",
		"server.read_timeout":     15 * time.Second,
		"server.write_timeout":    30 * time.Second,
		"server.idle_timeout":     60 * time.Second,
		"server.shutdown_timeout": 10 * time.Second,
		"server.body_limit":       int64(10 * 1024),
		"server.cors_origins":     []string{"*"},
		"server.rate_limit":       80,
		"server.rate_window":      time.Hour,
		"server.trusted_proxies":  []string{},

		"auth.token_ttl":            auth.DefaultTokenTTL,
		"auth.cookie_days":          90,
		"auth.lockout_threshold":    auth.DefaultLockoutThreshold,
		"auth.lockout_duration":     auth.DefaultLockoutDuration,
		"auth.reset_token_ttl":      auth.ResetTokenExpiry,
		"auth.welcome_mail_timeout": auth.DefaultWelcomeMailTimeout,
		"auth.argon2.time":          hash.Time,
		"auth.argon2.memory_kib":    hash.Memory,
		"auth.argon2.threads":       hash.Threads,

		"store.driver":          DriverPostgres,
		"store.mongo_database":  "natours",
		"store.connect_retries": uint64(5),
		"store.connect_backoff": 500 * time.Millisecond,
		"store.auto_migrate":    false,

		"mail.provider":  mail.ProviderLog,
		"mail.from":      "hello@natours.dev",
		"mail.from_name": "Natours",

		"log.format": "json",
		"log.level":  "info",

		"metrics.addr": "127.0.0.1:9100",
	}
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"env":          "server.environment",
	"public-url":   "server.public_url",
	"store":        "store.driver",
	"auto-migrate": "store.auto_migrate",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"metrics-addr": "metrics.addr",
}

// RegisterFlags adds the flags that override configuration keys to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("addr", d["server.addr"].(string), "HTTP listen address")
	fs.String("env", d["server.environment"].(string), "environment (development or production)")
	fs.String("public-url", "", "public base URL used in emailed links (default: derived from the request)")
	fs.String("store", d["store.driver"].(string), "account store (postgres, mongo or memory)")
	fs.Bool("auto-migrate", false, "apply pending migrations on startup (postgres only)")
	fs.String("log-format", d["log.format"].(string), "log format (json or text)")
	fs.String("log-level", d["log.level"].(string), "log level (debug, info, warn, error)")
	fs.String("metrics-addr", d["metrics.addr"].(string), "metrics/health HTTP address (empty = disabled)")
}

// Scope selects which configuration sections Load validates.
type Scope int

const (
	// ScopeServer validates everything the HTTP server needs.
	ScopeServer Scope = iota
	// ScopeStore validates the store, logging and password hashing only.
	ScopeStore
)

// Options controls where Load reads from.
type Options struct {
	// Path is an optional YAML file.
	Path string
	// Flags overrides file values for flags the user set.
	Flags *pflag.FlagSet
	// Getenv looks up secrets. Defaults to os.Getenv.
	Getenv func(string) string
	// Scope limits validation. The zero value validates everything.
	Scope Scope
}

// Load builds a Config from defaults, the YAML file and flags, fills empty
// secrets from the environment, and validates the result.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", opts.Path).
				Wrapf(err, "read config file")
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "read flags")
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrapf(err, "decode config")
	}

	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.applyEnv(getenv)

	if err := cfg.ValidateScope(opts.Scope); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = getenv(name)
		}
	}
	fill(&c.Auth.JWTSecret, EnvJWTSecret)
	fill(&c.Store.DatabaseURL, EnvDatabaseURL)
	fill(&c.Store.MongoURI, EnvMongoURI)
}

// IsProduction reports whether the server runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// Validate checks the configuration for values the server cannot start with.
func (c *Config) Validate() error {
	return c.ValidateScope(ScopeServer)
}

// ValidateScope checks the sections the given scope needs.
func (c *Config) ValidateScope(scope Scope) error {
	checks := []func() error{c.validateStore, c.validateLog, c.validateHashing}
	if scope == ScopeServer {
		checks = append(checks, c.validateServer, c.validateAuth, c.Mail.Validate)
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if !slices.Contains([]string{EnvDevelopment, EnvProduction}, c.Server.Environment) {
		return invalid("server.environment", "must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Server.Environment)
	}
	if c.Server.Addr == "" {
		return invalid("server.addr", "is required")
	}
	if c.Server.BodyLimit <= 0 {
		return invalid("server.body_limit", "must be positive")
	}
	if c.Server.RateLimit <= 0 || c.Server.RateWindow <= 0 {
		return invalid("server.rate_limit", "rate_limit and rate_window must be positive")
	}
	if c.Server.PublicURL != "" && !strings.HasPrefix(c.Server.PublicURL, "http://") && !strings.HasPrefix(c.Server.PublicURL, "https://") {
		return invalid("server.public_url", "must be an http(s) URL")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if len(c.Auth.JWTSecret) < auth.MinSecretLength {
		return invalid("auth.jwt_secret", "must be at least %d bytes (set %s)", auth.MinSecretLength, EnvJWTSecret)
	}
	if c.Auth.TokenTTL <= 0 {
		return invalid("auth.token_ttl", "must be positive")
	}
	if c.Auth.CookieDays <= 0 {
		return invalid("auth.cookie_days", "must be positive")
	}
	if c.Auth.LockoutThreshold <= 0 {
		return invalid("auth.lockout_threshold", "must be positive")
	}
	if c.Auth.LockoutDuration <= 0 || c.Auth.ResetTokenTTL <= 0 {
		return invalid("auth", "lockout_duration and reset_token_ttl must be positive")
	}
	return nil
}

func (c *Config) validateHashing() error {
	if c.Auth.Argon2.Time == 0 || c.Auth.Argon2.MemoryKiB == 0 || c.Auth.Argon2.Threads == 0 {
		return invalid("auth.argon2", "time, memory_kib and threads must be positive")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return invalid("store.database_url", "is required for the postgres store (set %s)", EnvDatabaseURL)
		}
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return invalid("store.mongo_uri", "is required for the mongo store (set %s)", EnvMongoURI)
		}
		if c.Store.MongoDatabase == "" {
			return invalid("store.mongo_database", "is required for the mongo store")
		}
	case DriverMemory:
	default:
		return invalid("store.driver", "unknown store %q", c.Store.Driver)
	}
	return nil
}

func (c *Config) validateLog() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "must be 'json' or 'text', got %q", c.Log.Format)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return invalid("log.level", "unknown level %q", c.Log.Level)
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(key+" "+format, args...)
}

// CookieTTL is the lifetime of the auth cookie.
func (c AuthConfig) CookieTTL() time.Duration {
	return time.Duration(c.CookieDays) * 24 * time.Hour
}

// Lockout returns the configured lockout policy.
func (c AuthConfig) Lockout() auth.LockoutPolicy {
	return auth.LockoutPolicy{Threshold: c.LockoutThreshold, Duration: c.LockoutDuration}
}

// HashParams returns the argon2id parameters with default salt and key lengths.
func (c AuthConfig) HashParams() auth.HashParams {
	p := auth.DefaultHashParams()
	p.Time = c.Argon2.Time
	p.Memory = c.Argon2.MemoryKiB
	p.Threads = c.Argon2.Threads
	return p
}

// SlogLevel returns the parsed log level. Validate guarantees it parses.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Level))
	return level
}
