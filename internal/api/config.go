package api

import (
	"time"

	"vtop-backend/internal/vtop"
)

type Config struct {
	Port              int         `json:"port"`
	Vtop              vtop.Config `json:"vtop"`
	SessionDb         string      `json:"session_db"`
	SessionTtlMinutes int         `json:"session_ttl_minutes"`
	LoginRetries      int         `json:"login_retries"`
	LoginRetryDelayMs int         `json:"login_retry_delay_ms"`
	RequestsPerMinute int         `json:"requests_per_minute"`
	// DebugDir receives the pages of failed logins when set.
	DebugDir string `json:"debug_dir"`
}

func DefaultConfig() Config {
	return Config{
		Port:              3001,
		Vtop:              vtop.DefaultConfig(),
		SessionDb:         "sessions.db",
		SessionTtlMinutes: 30,
		LoginRetries:      3,
		LoginRetryDelayMs: 1000,
		RequestsPerMinute: 30,
	}
}

func (c Config) sessionTtl() time.Duration {
	return time.Duration(c.SessionTtlMinutes) * time.Minute
}

func (c Config) loginRetryDelay() time.Duration {
	return time.Duration(c.LoginRetryDelayMs) * time.Millisecond
}
