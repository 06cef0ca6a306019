package config

import "time"

// Config holds runtime settings for the CipherSafe CLI.
//
// Fields:
//   - ServerBaseURL: base URL of the backend HTTP API.
//   - RequestTimeout: upper bound for a single backend call.
//   - OTPInitialCooldown: resend cooldown right after entering the OTP step.
//   - OTPResendCooldown: resend cooldown after a successful resend.
//   - DatabasePath: local SQLite file for non-secret preferences.
//   - LogLevel: slog level name (debug, info, warn, error).
type Config struct {
	ServerBaseURL      string
	RequestTimeout     time.Duration
	OTPInitialCooldown time.Duration
	OTPResendCooldown  time.Duration
	DatabasePath       string
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:8000"
	c.RequestTimeout = 15 * time.Second
	c.OTPInitialCooldown = 20 * time.Second
	c.OTPResendCooldown = 60 * time.Second
	c.DatabasePath = "ciphersafe.db"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
