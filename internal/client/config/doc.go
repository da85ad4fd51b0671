// Package config loads runtime configuration for the ace client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables ACE_*, optionally read from a .env file.
//  3. Optional JSON file selected via -c/-config or ACE_CONFIG.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend API
//	-s string   shared storage file
//	-l string   log level
//	-i int      online status check interval (seconds)
//	-w int      storage watch interval (milliseconds)
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "api_base_url": "http://127.0.0.1:8000",
//	  "storage_path": "ace.db",
//	  "log_level": "info",
//	  "online_check_interval": "3s",
//	  "watch_interval": "500ms",
//	  "request_timeout": "30s"
//	}
package config
