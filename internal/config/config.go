package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/planillas/internal/auth"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendMemory   = "memory"
)

// Auth modes, as accepted by auth.New.
const (
	AuthDirectory = auth.ModeDirectory
	AuthFixed     = auth.ModeFixed
)

// Config holds runtime settings for one planillas tab.
type Config struct {
	Backend     string
	SQLiteFile  string
	PostgresDSN string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3RootUser     string
	S3RootPassword string
	S3Prefix       string

	AuthMode      string
	SyncInterval  time.Duration
	LoginDelay    time.Duration
	RegisterDelay time.Duration

	LogLevel  string
	LogFormat string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Backend = BackendSQLite
	c.SQLiteFile = ".planillas/scope.db"
	c.S3Region = "us-east-1"
	c.S3Prefix = "planillas"
	c.AuthMode = AuthDirectory
	c.SyncInterval = time.Second
	c.LoginDelay = 350 * time.Millisecond
	c.RegisterDelay = 400 * time.Millisecond
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate reports settings the client cannot start with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLiteFile == "" {
			return fmt.Errorf("sqlite backend needs a file")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres backend needs a DSN")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 backend needs a bucket")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.AuthMode != AuthDirectory && c.AuthMode != AuthFixed {
		return fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", c.SyncInterval)
	}
	if c.LoginDelay < 0 || c.RegisterDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	args := os.Args[1:]

	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := parseJSON(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
