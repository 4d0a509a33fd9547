package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

// testStoreContract runs the behaviour every driver must share.
func testStoreContract(t *testing.T, store Store) {
	t.Helper()

	if _, err := store.Get("gemini_model"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	if err := store.Set("gemini_model", "gemini-2.5-flash"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := store.Get("gemini_model")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "gemini-2.5-flash" {
		t.Errorf("Get() = %q, want %q", got, "gemini-2.5-flash")
	}

	if err := store.Set("gemini_model", "gemini-2.5-pro"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if got, _ := store.Get("gemini_model"); got != "gemini-2.5-pro" {
		t.Errorf("Get() after overwrite = %q, want %q", got, "gemini-2.5-pro")
	}

	if err := store.Set("system_instruction", "Answer in English."); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if want := []string{"gemini_model", "system_instruction"}; !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}

	if err := store.Remove("gemini_model"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := store.Get("gemini_model"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Remove error = %v, want ErrNotFound", err)
	}
	if err := store.Remove("never-set"); err != nil {
		t.Errorf("Remove() missing key error = %v", err)
	}

	if err := store.Set("", "x"); err == nil {
		t.Error("Set() with empty key should fail")
	}
	if _, err := store.Get(""); err == nil {
		t.Error("Get() with empty key should fail")
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore())
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		path    string
		wantErr bool
	}{
		{name: "bbolt", driver: "bbolt", path: "settings.db"},
		{name: "json", driver: "json", path: "settings.json"},
		{name: "mixed case driver", driver: " BBolt ", path: "case.db"},
		{name: "memory ignores path", driver: "memory", path: ""},
		{name: "nested directory created", driver: "json", path: filepath.Join("a", "b", "settings.json")},
		{name: "missing path", driver: "bbolt", path: "", wantErr: true},
		{name: "unknown driver", driver: "sqlite", path: "x.db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path != "" {
				path = filepath.Join(t.TempDir(), path)
			}

			store, err := NewStore(tt.driver, path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStore(%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer store.Close()

			if err := store.Set("k", "v"); err != nil {
				t.Errorf("Set() error = %v", err)
			}
		})
	}
}
