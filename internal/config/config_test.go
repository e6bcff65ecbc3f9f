package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_LISTEN_ADDR", "")
	t.Setenv("APP_DATABASE_URL", "")
	t.Setenv("APP_STATE_NAMESPACE", "")
	t.Setenv("APP_USERS", "")
	t.Setenv("APP_MIN_PASSWORD_LENGTH", "")
	t.Setenv("APP_AUTOSAVE_MS", "")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "ocd-app-data", cfg.StateNamespace)
	assert.Equal(t, []string{"Alexei", "Harry", "Pantelis"}, cfg.Users)
	assert.Equal(t, 4, cfg.MinPasswordLength)
	assert.Equal(t, 800*time.Millisecond, cfg.AutosaveWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_LISTEN_ADDR", ":9999")
	t.Setenv("APP_STATE_NAMESPACE", "other-ns")
	t.Setenv("APP_USERS", " Ann , Ben ,,")
	t.Setenv("APP_MIN_PASSWORD_LENGTH", "8")
	t.Setenv("APP_AUTOSAVE_MS", "250")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "other-ns", cfg.StateNamespace)
	assert.Equal(t, []string{"Ann", "Ben"}, cfg.Users)
	assert.Equal(t, 8, cfg.MinPasswordLength)
	assert.Equal(t, 250*time.Millisecond, cfg.AutosaveWindow)
}

func TestLoadIgnoresBadNumbers(t *testing.T) {
	t.Setenv("APP_MIN_PASSWORD_LENGTH", "zero")
	t.Setenv("APP_AUTOSAVE_MS", "-5")

	cfg := Load()
	assert.Equal(t, 4, cfg.MinPasswordLength)
	assert.Equal(t, 800*time.Millisecond, cfg.AutosaveWindow)
}
