package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/ace/internal/flagx"
	"github.com/dmitrijs2005/ace/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. Only keys present in the file
// override the current Config.
type JsonConfig struct {
	APIBaseURL          string         `json:"api_base_url"`
	StoragePath         string         `json:"storage_path"`
	LogLevel            string         `json:"log_level"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	WatchInterval       timex.Duration `json:"watch_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from -c/-config or ACE_CONFIG (flagx.JsonConfigFlags).
// Without a path nothing happens.
func parseJson(cfg *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", jsonConfigFile, err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.StoragePath != "" {
		cfg.StoragePath = jc.StoragePath
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.WatchInterval.Duration != 0 {
		cfg.WatchInterval = jc.WatchInterval.Duration
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	return nil
}
