package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  domain: tenant.example.com
  audience: https://api.example.com
database:
  host: localhost
  user: scorer
  dbname: scorer
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.JWKSRefreshInterval)
	assert.Equal(t, time.Minute, cfg.Redis.LeaderboardTTL)
	assert.Equal(t, "users", cfg.DynamoDB.UsersTable)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "host=localhost port=5432 user=scorer password= dbname=scorer sslmode=disable", cfg.Database.DSN())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
auth:
  domain: file.example.com
  audience: file-audience
database:
  host: localhost
`)
	t.Setenv("PORT", "8081")
	t.Setenv("AUTH0_DOMAIN", "env.example.com")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/scorer")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	t.Setenv("LEADERBOARD_CACHE_TTL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "env.example.com", cfg.Auth.Domain)
	assert.Equal(t, "file-audience", cfg.Auth.Audience)
	assert.Equal(t, "postgres://u:p@db:5432/scorer", cfg.Database.DSN())
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, 30*time.Second, cfg.Redis.LeaderboardTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("AUTH0_DOMAIN", "tenant.example.com")
	t.Setenv("AUTH0_AUDIENCE", "aud")
	t.Setenv("STORE_DRIVER", "dynamodb")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreDriverDynamoDB, cfg.Store.Driver)
	assert.Equal(t, "eu-west-1", cfg.DynamoDB.Region)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory needs nothing", mutate: func(c *Config) { c.Store.Driver = StoreDriverMemory; c.Database.Host = "" }},
		{name: "missing domain", mutate: func(c *Config) { c.Auth.Domain = "" }, wantErr: "auth.domain is required"},
		{name: "missing audience", mutate: func(c *Config) { c.Auth.Audience = "" }, wantErr: "auth.audience is required"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "out of range"},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mongo" }, wantErr: `unknown store.driver "mongo"`},
		{name: "postgres without target", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: "database.url or database.host"},
		{name: "dynamodb without region", mutate: func(c *Config) { c.Store.Driver = StoreDriverDynamoDB }, wantErr: "dynamodb.region is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Auth:     AuthConfig{Domain: "tenant.example.com", Audience: "aud"},
				Database: DatabaseConfig{Host: "localhost"},
			}
			cfg.applyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
