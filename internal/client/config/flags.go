package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/ace/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the backend API
//	-s string   path of the shared storage file
//	-l string   log level
//	-i int      online check interval in seconds
//	-w int      storage watch interval in milliseconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-l", "-i", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the backend API")
	fs.StringVar(&cfg.StoragePath, "s", cfg.StoragePath, "path of the shared storage file")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	watchInterval := fs.Int("w", int(cfg.WatchInterval.Milliseconds()), "storage watch interval (in milliseconds)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}

	// Intervals from env or JSON may be finer than the flag units, so only
	// flags actually given replace them.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
		case "w":
			cfg.WatchInterval = time.Duration(*watchInterval) * time.Millisecond
		}
	})
	return nil
}
