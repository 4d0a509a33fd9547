package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SupportedDrivers lists all available store drivers.
var SupportedDrivers = []string{"bbolt", "json", "memory"}

// NewStore creates a new Store instance based on the specified driver.
// Supported drivers:
//   - "bbolt": BoltDB-backed persistent storage (default)
//   - "json": a single JSON file, easy to inspect by hand
//   - "memory": nothing is persisted; path is ignored
//
// The parent directory of path is created when missing.
func NewStore(driver, path string) (Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))

	if driver == "memory" {
		return NewMemoryStore(), nil
	}

	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	switch driver {
	case "bbolt":
		return NewBoltStore(path)
	case "json":
		return NewJSONStore(path)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s (supported: %v)", driver, SupportedDrivers)
	}
}
