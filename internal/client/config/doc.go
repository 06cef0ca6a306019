// Package config loads runtime configuration for the CipherSafe CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend HTTP API
//	-t int      request timeout (seconds)
//	-d string   path of the local preferences database
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "20s"
// or integer nanoseconds:
//
//	{
//	  "server_base_url": "http://localhost:8000",
//	  "request_timeout": "15s",
//	  "otp_initial_cooldown": "20s",
//	  "otp_resend_cooldown": "60s",
//	  "database_path": "ciphersafe.db",
//	  "log_level": "info"
//	}
//
// Fields missing from the JSON file keep their defaults.
package config
