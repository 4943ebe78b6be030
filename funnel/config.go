// ABOUTME: Engine configuration with XDG file storage and environment overrides
// ABOUTME: Covers CRM endpoint, retry policy, throttling, and local data paths
package funnel

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/oklog/ulid/v2"
)

// Config stores CRM endpoint and synchronization policy settings.
type Config struct {
	CRMBaseURL             string `json:"crm_base_url"`
	LeadType               string `json:"lead_type"`
	RequestTimeoutSeconds  int    `json:"request_timeout_seconds"`
	MaxAttempts            int    `json:"max_attempts"`
	ContactFormMaxAttempts int    `json:"contact_form_max_attempts"`
	TypingThrottleMS       int    `json:"typing_throttle_ms"`
	JournalDB              string `json:"journal_db"`
	SessionFile            string `json:"session_file"`
	SessionID              string `json:"session_id,omitempty"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		LeadType:               "cash_offer",
		RequestTimeoutSeconds:  12,
		MaxAttempts:            3,
		ContactFormMaxAttempts: 10,
		TypingThrottleMS:       500,
	}
}

// ConfigDir returns the XDG-compliant directory for engine configuration.
func ConfigDir() string {
	return filepath.Join(xdg.DataHome, "leadsync")
}

// ConfigPath returns the XDG-compliant path for the engine config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// RequestTimeout converts the configured seconds to a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// TypingThrottle converts the configured milliseconds to a duration.
func (c *Config) TypingThrottle() time.Duration {
	return time.Duration(c.TypingThrottleMS) * time.Millisecond
}

// LoadConfig loads engine configuration from the XDG data directory.
// Returns defaults if the file is missing. Environment variables
// override file values:
// - LEADSYNC_CRM_URL
// - LEADSYNC_LEAD_TYPE
// - LEADSYNC_MAX_ATTEMPTS
// - LEADSYNC_CONTACT_FORM_MAX_ATTEMPTS
// - LEADSYNC_JOURNAL_DB
// - LEADSYNC_SESSION_FILE.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LEADSYNC_CRM_URL"); v != "" {
		cfg.CRMBaseURL = v
	}
	if v := os.Getenv("LEADSYNC_LEAD_TYPE"); v != "" {
		cfg.LeadType = v
	}
	if v := os.Getenv("LEADSYNC_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxAttempts = n
		}
	}
	if v := os.Getenv("LEADSYNC_CONTACT_FORM_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ContactFormMaxAttempts = n
		}
	}
	if v := os.Getenv("LEADSYNC_JOURNAL_DB"); v != "" {
		cfg.JournalDB = v
	}
	if v := os.Getenv("LEADSYNC_SESSION_FILE"); v != "" {
		cfg.SessionFile = v
	}
}

// SaveConfig writes engine configuration to the XDG data directory.
func SaveConfig(cfg *Config) error {
	path := ConfigPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// GenerateSessionID returns a new ULID identifying one engine session.
func GenerateSessionID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
