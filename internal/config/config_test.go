// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natours/natours/internal/auth"
	"github.com/natours/natours/internal/config"
	"github.com/natours/natours/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "natours.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(config.Options{Getenv: env(map[string]string{
		config.EnvJWTSecret:   testSecret,
		config.EnvDatabaseURL: "postgres://natours@localhost/natours",
	})})
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, int64(10*1024), cfg.Server.BodyLimit)
	assert.Equal(t, 80, cfg.Server.RateLimit)
	assert.Equal(t, time.Hour, cfg.Server.RateWindow)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	assert.Equal(t, 90*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.Auth.CookieTTL())
	assert.Equal(t, auth.DefaultLockoutPolicy(), cfg.Auth.Lockout())
	assert.Equal(t, 10*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, auth.DefaultHashParams(), cfg.Auth.HashParams())

	assert.Equal(t, config.DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://natours@localhost/natours", cfg.Store.DatabaseURL)
	assert.Equal(t, "log", cfg.Mail.Provider)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FileThenFlags(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
  environment: production
  cors_origins:
    - "https://*.natours.dev"
  rate_window: 30m
auth:
  jwt_secret: "`+testSecret+`"
  token_ttl: 24h
  lockout_threshold: 5
store:
  driver: mongo
  mongo_uri: "mongodb://localhost:27017"
mail:
  provider: sendgrid
  from: "noreply@natours.dev"
  sendgrid:
    api_key: "SG.key"
log:
  format: text
  level: debug
`)

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", ":9090", "--log-level", "warn"}))

	cfg, err := config.Load(config.Options{Path: path, Flags: fs, Getenv: env(nil)})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr, "changed flag overrides file")
	assert.Equal(t, "warn", cfg.Log.Level, "changed flag overrides file")
	assert.Equal(t, "text", cfg.Log.Format, "unchanged flag keeps the file value")
	assert.Equal(t, config.DriverMongo, cfg.Store.Driver, "unchanged flag keeps the file value")
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://*.natours.dev"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Minute, cfg.Server.RateWindow)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5, cfg.Auth.LockoutThreshold)
	assert.Equal(t, "natours", cfg.Store.MongoDatabase)
	assert.Equal(t, "SG.key", cfg.Mail.SendGrid.APIKey)
	assert.Equal(t, slog.LevelWarn, cfg.Log.SlogLevel())
}

func TestLoad_FileSecretBeatsEnvironment(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: \""+testSecret+"\"\nstore:\n  driver: memory\n")

	cfg, err := config.Load(config.Options{Path: path, Getenv: env(map[string]string{
		config.EnvJWTSecret: strings.Repeat("x", 40),
	})})
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(config.Options{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		key  string
	}{
		{"short secret", "auth:\n  jwt_secret: short\nstore:\n  driver: memory\n", "auth.jwt_secret"},
		{"missing database url", "auth:\n  jwt_secret: " + testSecret + "\n", "store.database_url"},
		{"mongo without uri", "auth:\n  jwt_secret: " + testSecret + "\nstore:\n  driver: mongo\n", "store.mongo_uri"},
		{"unknown store", "auth:\n  jwt_secret: " + testSecret + "\nstore:\n  driver: redis\n", "store.driver"},
		{"bad environment", "server:\n  environment: staging\nauth:\n  jwt_secret: " + testSecret + "\nstore:\n  driver: memory\n", "server.environment"},
		{"bad log format", "log:\n  format: xml\nauth:\n  jwt_secret: " + testSecret + "\nstore:\n  driver: memory\n", "log.format"},
		{"bad log level", "log:\n  level: loud\nauth:\n  jwt_secret: " + testSecret + "\nstore:\n  driver: memory\n", "log.level"},
		{"zero lockout threshold", "auth:\n  jwt_secret: " + testSecret + "\n  lockout_threshold: 0\nstore:\n  driver: memory\n", "auth.lockout_threshold"},
		{"bad public url", "server:\n  public_url: natours.dev\nauth:\n  jwt_secret: " + testSecret + "\nstore:\n  driver: memory\n", "server.public_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(config.Options{Path: writeConfig(t, tt.yaml), Getenv: env(nil)})
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}
}

func TestLoad_InvalidMailConfig(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: "+testSecret+"\nstore:\n  driver: memory\nmail:\n  provider: smtp\n")
	_, err := config.Load(config.Options{Path: path, Getenv: env(nil)})
	errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
}

func TestLoad_StoreScopeSkipsServerSections(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: postgres\n  database_url: postgres://localhost/natours\nmail:\n  provider: smtp\n")

	_, err := config.Load(config.Options{Path: path, Getenv: env(nil)})
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")

	cfg, err := config.Load(config.Options{Path: path, Getenv: env(nil), Scope: config.ScopeStore})
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/natours", cfg.Store.DatabaseURL)

	_, err = config.Load(config.Options{Getenv: env(nil), Scope: config.ScopeStore})
	errutil.AssertErrorContext(t, err, "key", "store.database_url")
}
