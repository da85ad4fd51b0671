package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// dotenvFile is loaded, when present, before the environment is read.
// Variables already set in the process environment win.
var dotenvFile = ".env"

// parseEnv overlays cfg with ACE_* environment variables. Unset variables
// leave the current value alone.
func parseEnv(cfg *Config) error {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", dotenvFile, err)
	}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}
