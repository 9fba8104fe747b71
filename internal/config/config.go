// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Storage backends accepted in SSHVAULT_BACKEND.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	VaultPath   string
	Backend     string
	DBPath      string
	EncryptKey  string
	PadSecrets  bool
	LoginHelper string
	KeyDir      string
	LogLevel    slog.Level
}

// HasEncryptKey returns true when a key was configured. Without one the CLI
// asks for it interactively.
func (c *Config) HasEncryptKey() bool {
	return c.EncryptKey != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional. Defaults: SSHVAULT_VAULT_PATH
// ($HOME/.sshvault/ssh-accounts), SSHVAULT_BACKEND (file), SSHVAULT_DB_PATH
// ($HOME/.sshvault/vault.db), SSHVAULT_PAD_SECRETS (true), SSHVAULT_LOGIN_HELPER
// (ssh), SSHVAULT_KEY_DIR ($HOME/.ssh), SSHVAULT_LOG_LEVEL (warn).
// SSHVAULT_ENCRYPT_KEY has no default.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home dir: %w", err)
	}

	cfg := &Config{
		VaultPath:   filepath.Join(home, ".sshvault", "ssh-accounts"),
		Backend:     BackendFile,
		DBPath:      filepath.Join(home, ".sshvault", "vault.db"),
		EncryptKey:  os.Getenv("SSHVAULT_ENCRYPT_KEY"),
		PadSecrets:  true,
		LoginHelper: "ssh",
		KeyDir:      filepath.Join(home, ".ssh"),
		LogLevel:    slog.LevelWarn,
	}

	if v, ok := lookupNonEmpty("SSHVAULT_VAULT_PATH"); ok {
		cfg.VaultPath = expandHome(v, home)
	}
	if v, ok := lookupNonEmpty("SSHVAULT_DB_PATH"); ok {
		cfg.DBPath = expandHome(v, home)
	}
	if v, ok := lookupNonEmpty("SSHVAULT_KEY_DIR"); ok {
		cfg.KeyDir = expandHome(v, home)
	}
	if v, ok := lookupNonEmpty("SSHVAULT_LOGIN_HELPER"); ok {
		cfg.LoginHelper = v
	}

	if v, ok := lookupNonEmpty("SSHVAULT_BACKEND"); ok {
		switch backend := strings.ToLower(v); backend {
		case BackendFile, BackendSQLite:
			cfg.Backend = backend
		default:
			return nil, fmt.Errorf("SSHVAULT_BACKEND has invalid value %q: want %q or %q", v, BackendFile, BackendSQLite)
		}
	}

	if v, ok := lookupNonEmpty("SSHVAULT_PAD_SECRETS"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SSHVAULT_PAD_SECRETS has invalid boolean %q: %w", v, err)
		}
		cfg.PadSecrets = parsed
	}

	if v, ok := lookupNonEmpty("SSHVAULT_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("SSHVAULT_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	return cfg, nil
}

func lookupNonEmpty(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
