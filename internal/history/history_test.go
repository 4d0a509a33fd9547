package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/twil3akine/gurobilab/internal/store"
)

func newRecord(i int) Record {
	return Record{
		ID:        fmt.Sprintf("run-%d", i),
		Timestamp: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		Script:    fmt.Sprintf("model%d.py", i),
		Args:      "--time-limit 60",
		Log:       fmt.Sprintf("gap %d%%", i),
		Analysis:  fmt.Sprintf("## Run %d", i),
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	s := New(store.NewMemoryStore(), nil)

	got := s.Load()
	if got == nil || len(got) != 0 {
		t.Errorf("Load() = %#v, want empty non-nil slice", got)
	}
}

func TestStore_AppendNewestFirst(t *testing.T) {
	s := New(store.NewMemoryStore(), nil)

	for i := 1; i <= 3; i++ {
		if _, err := s.Append(newRecord(i)); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	got := s.Load()
	if len(got) != 3 {
		t.Fatalf("Load() returned %d records, want 3", len(got))
	}
	for i, wantID := range []string{"run-3", "run-2", "run-1"} {
		if got[i].ID != wantID {
			t.Errorf("Load()[%d].ID = %q, want %q", i, got[i].ID, wantID)
		}
	}
}

func TestStore_AppendBounded(t *testing.T) {
	s := New(store.NewMemoryStore(), nil)

	var last []Record
	for i := 1; i <= 25; i++ {
		var err error
		last, err = s.Append(newRecord(i))
		if err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	if len(last) != MaxEntries {
		t.Fatalf("Append() returned %d records, want %d", len(last), MaxEntries)
	}

	got := s.Load()
	if len(got) != MaxEntries {
		t.Fatalf("Load() returned %d records, want %d", len(got), MaxEntries)
	}
	if got[0].ID != "run-25" {
		t.Errorf("newest = %q, want run-25", got[0].ID)
	}
	// 20 kept out of 25: the oldest survivor is the 6th append.
	if got[MaxEntries-1].ID != "run-6" {
		t.Errorf("oldest = %q, want run-6", got[MaxEntries-1].ID)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	kv := store.NewMemoryStore()
	rec := newRecord(7)
	rec.Log = "Set parameter TimeLimit\nゴール: gap 0.5%\n"
	rec.Analysis = "# Report\n\n- \"quoted\" <tags> & more"

	if _, err := New(kv, nil).Append(rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got := New(kv, nil).Load()
	if len(got) != 1 {
		t.Fatalf("Load() returned %d records, want 1", len(got))
	}
	r := got[0]
	if r.ID != rec.ID || r.Script != rec.Script || r.Args != rec.Args || r.Log != rec.Log || r.Analysis != rec.Analysis {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", r, rec)
	}
	if !r.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", r.Timestamp, rec.Timestamp)
	}
}

func TestStore_LoadCorruptPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "definitely not json"},
		{name: "wrong shape", payload: `{"script":"x"}`},
		{name: "null", payload: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := store.NewMemoryStore()
			if err := kv.Set(Key, tt.payload); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got := New(kv, nil).Load()
			if len(got) != 0 {
				t.Errorf("Load() = %+v, want empty", got)
			}
		})
	}
}

func TestStore_AppendAfterCorruptPayload(t *testing.T) {
	kv := store.NewMemoryStore()
	if err := kv.Set(Key, "garbage"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := New(kv, nil).Append(newRecord(1))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "run-1" {
		t.Errorf("Append() = %+v, want single run-1", got)
	}
}

func TestStore_Clear(t *testing.T) {
	kv := store.NewMemoryStore()
	s := New(kv, nil)
	if _, err := s.Append(newRecord(1)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := kv.Get(Key); err == nil {
		t.Error("Clear() left the payload in the store")
	}
	if got := s.Load(); len(got) != 0 {
		t.Errorf("Load() after Clear = %d records, want 0", len(got))
	}
}

func TestStore_GetAndFind(t *testing.T) {
	s := New(store.NewMemoryStore(), nil)
	for i := 1; i <= 3; i++ {
		if _, err := s.Append(newRecord(i)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if r, ok := s.Get(0); !ok || r.ID != "run-3" {
		t.Errorf("Get(0) = %q, %v; want run-3", r.ID, ok)
	}
	if _, ok := s.Get(3); ok {
		t.Error("Get(3) out of range should report false")
	}
	if _, ok := s.Get(-1); ok {
		t.Error("Get(-1) should report false")
	}
	if r, ok := s.Find("run-2"); !ok || r.Script != "model2.py" {
		t.Errorf("Find(run-2) = %+v, %v", r, ok)
	}
	if _, ok := s.Find(""); ok {
		t.Error("Find(\"\") should report false")
	}
}

func TestRestore(t *testing.T) {
	rec := newRecord(4)
	log, analysis := Restore(rec)
	if log != rec.Log || analysis != rec.Analysis {
		t.Errorf("Restore() = %q, %q; want %q, %q", log, analysis, rec.Log, rec.Analysis)
	}
}
