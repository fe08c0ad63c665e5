package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// seams for tests
var (
	dotEnvPath = ".env"
	lookupEnv  = os.LookupEnv
)

// parseEnv loads dotEnvPath into the process environment (a missing file is
// fine) and overlays every PLANILLAS_* variable that is set.
func parseEnv(cfg *Config) error {
	if err := godotenv.Load(dotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotEnvPath, err)
	}

	strs := map[string]*string{
		"PLANILLAS_BACKEND":          &cfg.Backend,
		"PLANILLAS_SQLITE_FILE":      &cfg.SQLiteFile,
		"PLANILLAS_DATABASE_DSN":     &cfg.PostgresDSN,
		"PLANILLAS_S3_BUCKET":        &cfg.S3Bucket,
		"PLANILLAS_S3_REGION":        &cfg.S3Region,
		"PLANILLAS_S3_ENDPOINT":      &cfg.S3BaseEndpoint,
		"PLANILLAS_S3_ROOT_USER":     &cfg.S3RootUser,
		"PLANILLAS_S3_ROOT_PASSWORD": &cfg.S3RootPassword,
		"PLANILLAS_S3_PREFIX":        &cfg.S3Prefix,
		"PLANILLAS_AUTH_MODE":        &cfg.AuthMode,
		"PLANILLAS_LOG_LEVEL":        &cfg.LogLevel,
		"PLANILLAS_LOG_FORMAT":       &cfg.LogFormat,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"PLANILLAS_SYNC_INTERVAL":  &cfg.SyncInterval,
		"PLANILLAS_LOGIN_DELAY":    &cfg.LoginDelay,
		"PLANILLAS_REGISTER_DELAY": &cfg.RegisterDelay,
	}
	for name, dst := range durations {
		v, ok := lookupEnv(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
	}
	return nil
}
