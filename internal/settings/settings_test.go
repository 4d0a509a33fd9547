package settings

import (
	"errors"
	"testing"

	"github.com/twil3akine/gurobilab/internal/store"
)

var testDefaults = Settings{
	Model:         "gemini-2.5-flash",
	CommandPrefix: "uv run python -u",
}

func TestManager_CurrentDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	m := NewManager(store.NewMemoryStore(), testDefaults, nil)

	got := m.Current()
	if got != testDefaults {
		t.Errorf("Current() = %+v, want %+v", got, testDefaults)
	}
}

func TestManager_CurrentOverrides(t *testing.T) {
	t.Setenv(APIKeyEnv, "from-env")
	kv := store.NewMemoryStore()
	m := NewManager(kv, testDefaults, nil)

	if got := m.Current().APIKey; got != "from-env" {
		t.Errorf("APIKey from env = %q, want %q", got, "from-env")
	}

	for key, value := range map[string]string{
		KeyAPIKey:            "stored-key",
		KeyModel:             "gemini-2.5-pro",
		KeyCommandPrefix:     "python3 -u",
		KeySystemInstruction: "Reply in Japanese.",
	} {
		if err := m.Set(key, value); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	want := Settings{
		APIKey:            "stored-key",
		Model:             "gemini-2.5-pro",
		CommandPrefix:     "python3 -u",
		SystemInstruction: "Reply in Japanese.",
	}
	if got := m.Current(); got != want {
		t.Errorf("Current() = %+v, want %+v", got, want)
	}

	if err := m.Remove(KeyModel); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if got := m.Current().Model; got != testDefaults.Model {
		t.Errorf("Model after Remove = %q, want default %q", got, testDefaults.Model)
	}
}

func TestManager_Validation(t *testing.T) {
	m := NewManager(store.NewMemoryStore(), testDefaults, nil)

	if err := m.Set("gurobi_history", "[]"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Set(gurobi_history) error = %v, want ErrUnknownKey", err)
	}
	if _, _, err := m.Get("nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Get(nope) error = %v, want ErrUnknownKey", err)
	}
	if err := m.Set(KeyCommandPrefix, "   "); err == nil {
		t.Error("Set() with blank command prefix should fail")
	}
}

func TestManager_Get(t *testing.T) {
	m := NewManager(store.NewMemoryStore(), testDefaults, nil)

	if _, ok, err := m.Get(KeyModel); err != nil || ok {
		t.Errorf("Get() unset = ok %v, err %v; want false, nil", ok, err)
	}
	if err := m.Set(KeyModel, "gemini-2.0-flash"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := m.Get(KeyModel)
	if err != nil || !ok || v != "gemini-2.0-flash" {
		t.Errorf("Get() = %q, %v, %v", v, ok, err)
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "****"},
		{"AIzaSyExample1234", "****1234"},
	}
	for _, tt := range tests {
		if got := Mask(tt.in); got != tt.want {
			t.Errorf("Mask(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	s := Settings{APIKey: "AIzaSyExample1234", Model: "m"}.Masked()
	if s.APIKey != "****1234" || s.Model != "m" {
		t.Errorf("Masked() = %+v", s)
	}
}
