package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/planillas/internal/flagx"
	"github.com/dmitrijs2005/planillas/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell a missing key apart from an explicit zero, so "login_delay": 0
// turns the delay off.
type JsonConfig struct {
	Backend     *string `json:"backend"`
	SQLiteFile  *string `json:"sqlite_file"`
	PostgresDSN *string `json:"database_dsn"`

	S3Bucket       *string `json:"s3_bucket"`
	S3Region       *string `json:"s3_region"`
	S3BaseEndpoint *string `json:"s3_endpoint"`
	S3RootUser     *string `json:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password"`
	S3Prefix       *string `json:"s3_prefix"`

	AuthMode      *string         `json:"auth_mode"`
	SyncInterval  *timex.Duration `json:"sync_interval"`
	LoginDelay    *timex.Duration `json:"login_delay"`
	RegisterDelay *timex.Duration `json:"register_delay"`

	LogLevel  *string `json:"log_level"`
	LogFormat *string `json:"log_format"`
}

// parseJSON overlays cfg with the JSON file named by -c/-config in args. No
// flag means nothing to load.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	setString(&cfg.Backend, jc.Backend)
	setString(&cfg.SQLiteFile, jc.SQLiteFile)
	setString(&cfg.PostgresDSN, jc.PostgresDSN)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3RootUser, jc.S3RootUser)
	setString(&cfg.S3RootPassword, jc.S3RootPassword)
	setString(&cfg.S3Prefix, jc.S3Prefix)
	setString(&cfg.AuthMode, jc.AuthMode)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	if jc.LoginDelay != nil {
		cfg.LoginDelay = jc.LoginDelay.Duration
	}
	if jc.RegisterDelay != nil {
		cfg.RegisterDelay = jc.RegisterDelay.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
