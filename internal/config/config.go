package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverDynamoDB = "dynamodb"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Auth     AuthConfig     `yaml:"auth"`
	Redis    RedisConfig    `yaml:"redis"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int           `yaml:"port" env:"PORT"`
	Host           string        `yaml:"host" env:"HOST"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER"`
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE"`
}

// DynamoDBConfig holds DynamoDB configuration
type DynamoDBConfig struct {
	Region       string `yaml:"region" env:"AWS_REGION"`
	Endpoint     string `yaml:"endpoint" env:"DYNAMODB_ENDPOINT"`
	AccessKey    string `yaml:"access_key" env:"AWS_ACCESS_KEY_ID"`
	SecretKey    string `yaml:"secret_key" env:"AWS_SECRET_ACCESS_KEY"`
	UsersTable   string `yaml:"users_table" env:"DYNAMODB_USERS_TABLE"`
	MatchesTable string `yaml:"matches_table" env:"DYNAMODB_MATCHES_TABLE"`
}

// AuthConfig holds identity provider configuration
type AuthConfig struct {
	Domain              string        `yaml:"domain" env:"AUTH0_DOMAIN"`
	Audience            string        `yaml:"audience" env:"AUTH0_AUDIENCE"`
	JWKSRefreshInterval time.Duration `yaml:"jwks_refresh_interval" env:"AUTH0_JWKS_REFRESH_INTERVAL"`
}

// RedisConfig holds leaderboard cache configuration. An empty URL disables
// the cache.
type RedisConfig struct {
	URL            string        `yaml:"url" env:"REDIS_URL"`
	LeaderboardTTL time.Duration `yaml:"leaderboard_ttl" env:"LEADERBOARD_CACHE_TTL"`
}

// CORSConfig holds allowed origins for browser clients
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
}

// Load reads configuration from a YAML file, then applies environment
// overrides and defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverPostgres
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.DynamoDB.UsersTable == "" {
		c.DynamoDB.UsersTable = "users"
	}
	if c.DynamoDB.MatchesTable == "" {
		c.DynamoDB.MatchesTable = "matches"
	}
	if c.Auth.JWKSRefreshInterval == 0 {
		c.Auth.JWKSRefreshInterval = time.Hour
	}
	if c.Redis.LeaderboardTTL == 0 {
		c.Redis.LeaderboardTTL = time.Minute
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports missing or inconsistent settings
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Auth.Domain == "" {
		errs = append(errs, errors.New("auth.domain is required"))
	}
	if c.Auth.Audience == "" {
		errs = append(errs, errors.New("auth.audience is required"))
	}
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			errs = append(errs, errors.New("database.url or database.host is required"))
		}
	case StoreDriverDynamoDB:
		if c.DynamoDB.Region == "" {
			errs = append(errs, errors.New("dynamodb.region is required"))
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
