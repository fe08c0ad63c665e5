package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/planillas/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags handled here are picked out of args, so -c/-config and
// anything meant for other components is ignored.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.Filter(args, "-b", "-f", "-d", "-m", "-i", "-l")

	fs := flag.NewFlagSet("planillas", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "storage backend (sqlite, postgres, s3, memory)")
	fs.StringVar(&cfg.SQLiteFile, "f", cfg.SQLiteFile, "sqlite file shared by the profile's tabs")
	fs.StringVar(&cfg.PostgresDSN, "d", cfg.PostgresDSN, "postgres DSN")
	fs.StringVar(&cfg.AuthMode, "m", cfg.AuthMode, "auth mode (directory, fixed)")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "cross-tab sync interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
		}
	})
	return nil
}
