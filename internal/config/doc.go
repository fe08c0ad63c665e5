// Package config loads runtime configuration for the planillas client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory, if there is one, and PLANILLAS_*
//     environment variables (see parseEnv). Variables already set in the
//     environment win over the .env file.
//  3. Optional JSON file (see parseJSON) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-b string   storage backend: sqlite, postgres, s3 or memory
//	-f string   SQLite file shared by every tab of the profile
//	-d string   PostgreSQL DSN
//	-m string   auth mode: directory or fixed
//	-i int      cross-tab sync interval (seconds)
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "1s"
// or integer nanoseconds. Missing keys keep the earlier value:
//
//	{
//	  "backend": "s3",
//	  "s3_bucket": "planillas",
//	  "s3_endpoint": "http://127.0.0.1:9000",
//	  "sync_interval": "1s",
//	  "login_delay": "350ms"
//	}
package config
