package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the core runtime configuration for the dashboard.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	ListenAddr string

	DatabaseURL string

	// StateNamespace is the key under which the single application-state
	// blob is stored. Changing it effectively starts with a fresh state.
	StateNamespace string

	// Users is the fixed roster of selectable usernames. The app never
	// invents usernames itself; records are only created for these.
	Users []string

	// MinPasswordLength is the minimum length accepted when a user sets
	// a password. The upstream rule (4) is placeholder policy, kept
	// configurable rather than hardcoded.
	MinPasswordLength int

	// AutosaveWindow is the quiescence window for the debounced
	// per-user state write. Rapid changes (e.g. drag-reorder) coalesce
	// into a single write once this window elapses.
	AutosaveWindow time.Duration
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		ListenAddr:        getenv("APP_LISTEN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("APP_DATABASE_URL"),
		StateNamespace:    getenv("APP_STATE_NAMESPACE", "ocd-app-data"),
		MinPasswordLength: 4,
		AutosaveWindow:    800 * time.Millisecond,
	}

	roster := getenv("APP_USERS", "Alexei,Harry,Pantelis")
	for _, name := range strings.Split(roster, ",") {
		if name = strings.TrimSpace(name); name != "" {
			cfg.Users = append(cfg.Users, name)
		}
	}

	if v := os.Getenv("APP_MIN_PASSWORD_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MinPasswordLength = n
		}
	}

	if v := os.Getenv("APP_AUTOSAVE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.AutosaveWindow = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
