// Package settings reads and writes the user-editable runtime settings kept
// in the key-value store.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/twil3akine/gurobilab/internal/store"
)

// Persisted keys.
const (
	KeyAPIKey            = "gemini_api_key"
	KeyModel             = "gemini_model"
	KeyCommandPrefix     = "command_prefix"
	KeySystemInstruction = "system_instruction"
)

// APIKeyEnv is consulted when no API key has been stored.
const APIKeyEnv = "GEMINI_API_KEY"

// ErrUnknownKey is returned for keys that are not user settings.
var ErrUnknownKey = errors.New("unknown setting")

// Keys lists every user-editable key.
var Keys = []string{KeyAPIKey, KeyModel, KeyCommandPrefix, KeySystemInstruction}

// Settings is a resolved view of the runtime settings.
type Settings struct {
	APIKey            string `json:"api_key,omitempty"`
	Model             string `json:"model"`
	CommandPrefix     string `json:"command_prefix"`
	SystemInstruction string `json:"system_instruction,omitempty"`
}

// Masked returns a copy safe to display, with the API key shortened.
func (s Settings) Masked() Settings {
	s.APIKey = Mask(s.APIKey)
	return s
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// Manager resolves settings from the store, falling back to defaults.
type Manager struct {
	kv       store.Store
	defaults Settings
	logger   *slog.Logger
}

// NewManager returns a Manager. defaults fills any key the store lacks.
func NewManager(kv store.Store, defaults Settings, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{kv: kv, defaults: defaults, logger: logger}
}

// Current returns the settings in effect right now. Read failures are logged
// and treated as absent values.
func (m *Manager) Current() Settings {
	s := m.defaults
	if v, ok := m.lookup(KeyModel); ok && v != "" {
		s.Model = v
	}
	if v, ok := m.lookup(KeyCommandPrefix); ok && strings.TrimSpace(v) != "" {
		s.CommandPrefix = v
	}
	if v, ok := m.lookup(KeySystemInstruction); ok {
		s.SystemInstruction = v
	}
	if v, ok := m.lookup(KeyAPIKey); ok && v != "" {
		s.APIKey = v
	} else if env := os.Getenv(APIKeyEnv); env != "" {
		s.APIKey = env
	}
	return s
}

func (m *Manager) lookup(key string) (string, bool) {
	v, err := m.kv.Get(key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.Warn("failed to read setting", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

// Get returns the stored value of a single key.
func (m *Manager) Get(key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	v, ok := m.lookup(key)
	return v, ok, nil
}

// Set stores a setting.
func (m *Manager) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if key == KeyCommandPrefix && strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be blank", key)
	}
	if err := m.kv.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	m.logger.Info("setting updated", "key", key)
	return nil
}

// Remove deletes a setting so the default applies again.
func (m *Manager) Remove(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := m.kv.Remove(key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	m.logger.Info("setting removed", "key", key)
	return nil
}

func validateKey(key string) error {
	for _, k := range Keys {
		if k == key {
			return nil
		}
	}
	known := append([]string(nil), Keys...)
	sort.Strings(known)
	return fmt.Errorf("%w: %q (known: %s)", ErrUnknownKey, key, strings.Join(known, ", "))
}
