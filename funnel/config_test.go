// ABOUTME: Tests for engine configuration loading and persistence
// ABOUTME: Covers XDG path handling, env overrides, and save/load round trips
package funnel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPath(t *testing.T) {
	path := ConfigPath()

	expectedBase := filepath.Join(xdg.DataHome, "leadsync")
	assert.True(t, strings.HasPrefix(path, expectedBase), "path should be under XDG data home")
	assert.Equal(t, "config.json", filepath.Base(path))
}

func TestLoadConfigNotFound(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	cfg, err := LoadConfig()
	require.NoError(t, err, "missing config file should fall back to defaults")
	require.NotNil(t, cfg)

	assert.Equal(t, "cash_offer", cfg.LeadType)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10, cfg.ContactFormMaxAttempts)
	assert.Equal(t, 12*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.TypingThrottle())
}

func TestSaveAndLoadConfig(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	original := DefaultConfig()
	original.CRMBaseURL = "https://crm.example.com"
	original.LeadType = "foreclosure"
	original.MaxAttempts = 5
	original.SessionID = GenerateSessionID()

	require.NoError(t, SaveConfig(original))

	info, err := os.Stat(ConfigPath())
	require.NoError(t, err, "config file should exist")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, original.CRMBaseURL, loaded.CRMBaseURL)
	assert.Equal(t, original.LeadType, loaded.LeadType)
	assert.Equal(t, original.MaxAttempts, loaded.MaxAttempts)
	assert.Equal(t, original.SessionID, loaded.SessionID)
}

func TestEnvOverrides(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	t.Setenv("LEADSYNC_CRM_URL", "https://env.example.com")
	t.Setenv("LEADSYNC_LEAD_TYPE", "env_type")
	t.Setenv("LEADSYNC_MAX_ATTEMPTS", "7")
	t.Setenv("LEADSYNC_CONTACT_FORM_MAX_ATTEMPTS", "20")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.CRMBaseURL)
	assert.Equal(t, "env_type", cfg.LeadType)
	assert.Equal(t, 7, cfg.MaxAttempts)
	assert.Equal(t, 20, cfg.ContactFormMaxAttempts)
}

func TestEnvOverrideIgnoresBadNumbers(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	t.Setenv("LEADSYNC_MAX_ATTEMPTS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxAttempts, "invalid override should keep the default")
}

func TestGenerateSessionID(t *testing.T) {
	id := GenerateSessionID()

	parsed, err := ulid.Parse(id)
	require.NoError(t, err, "session ID should be a valid ULID")
	assert.NotEqual(t, ulid.ULID{}, parsed)

	other := GenerateSessionID()
	assert.NotEqual(t, id, other, "session IDs should be unique")
}
