package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/ciphersafe/internal/flagx"
	"github.com/dmitrijs2005/ciphersafe/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "zero" so absent keys keep defaults.
type JsonConfig struct {
	ServerBaseURL      *string         `json:"server_base_url"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	OTPInitialCooldown *timex.Duration `json:"otp_initial_cooldown"`
	OTPResendCooldown  *timex.Duration `json:"otp_resend_cooldown"`
	DatabasePath       *string         `json:"database_path"`
	LogLevel           *string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config. Without such a flag it does nothing. Read or decode failures
// panic; the CLI entry point is expected to fail fast on a broken file.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc JsonConfig) apply(cfg *Config) {
	if jc.ServerBaseURL != nil {
		cfg.ServerBaseURL = *jc.ServerBaseURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OTPInitialCooldown != nil {
		cfg.OTPInitialCooldown = jc.OTPInitialCooldown.Duration
	}
	if jc.OTPResendCooldown != nil {
		cfg.OTPResendCooldown = jc.OTPResendCooldown.Duration
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
}
