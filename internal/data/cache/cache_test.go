package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "summaries.db")
	store, err := Open(path, 16)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestPutGetRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)

	entry := Entry{
		UnitID:    "internal/engine/walker",
		ContentFP: "abc123",
		ConfigFP:  "cfg456",
		Headline:  "Filesystem traversal with glob filtering.",
		Body:      "Walks the repository root and applies include and exclude rules.",
		Strategy:  "heuristic",
	}
	if err := store.Put(entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := store.Get(entry.UnitID, entry.ContentFP, entry.ConfigFP)
	if !ok {
		t.Fatal("expected cache hit after Put")
	}
	if got.Headline != entry.Headline || got.Body != entry.Body || got.Strategy != entry.Strategy {
		t.Errorf("round trip mismatch: got %+v", got)
	}
	if got.CreatedAtUTC.IsZero() {
		t.Error("expected CreatedAtUTC to be populated")
	}
}

func TestMissOnAnyKeyComponentChange(t *testing.T) {
	store, _ := openTestStore(t)

	base := Entry{UnitID: "u", ContentFP: "c", ConfigFP: "g", Headline: "h", Strategy: "heuristic"}
	if err := store.Put(base); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	cases := [][3]string{
		{"other", "c", "g"},
		{"u", "other", "g"},
		{"u", "c", "other"},
	}
	for _, c := range cases {
		if _, ok := store.Get(c[0], c[1], c[2]); ok {
			t.Errorf("Get(%v) = hit, want miss", c)
		}
	}
	if _, ok := store.Get("u", "c", "g"); !ok {
		t.Error("exact key should still hit")
	}
}

func TestLastWriterWins(t *testing.T) {
	store, _ := openTestStore(t)

	first := Entry{UnitID: "u", ContentFP: "c", ConfigFP: "g", Headline: "first", Strategy: "heuristic"}
	second := Entry{UnitID: "u", ContentFP: "c", ConfigFP: "g", Headline: "second", Strategy: "heuristic"}
	if err := store.Put(first); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(second); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := store.Get("u", "c", "g")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Headline != "second" {
		t.Errorf("Headline = %q, want %q", got.Headline, "second")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.db")

	store, err := Open(path, 16)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	entry := Entry{
		UnitID:       "u",
		ContentFP:    "c",
		ConfigFP:     "g",
		Headline:     "persisted",
		Body:         "survives process restart",
		Strategy:     "generative",
		CreatedAtUTC: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Put(entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path, 16)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("u", "c", "g")
	if !ok {
		t.Fatal("expected hit after reopen")
	}
	if got.Headline != "persisted" || got.Strategy != "generative" {
		t.Errorf("reopened entry mismatch: %+v", got)
	}
	if !got.CreatedAtUTC.Equal(entry.CreatedAtUTC) {
		t.Errorf("CreatedAtUTC = %v, want %v", got.CreatedAtUTC, entry.CreatedAtUTC)
	}
}

func TestNilStoreDegradesToMiss(t *testing.T) {
	var store *Store

	if _, ok := store.Get("u", "c", "g"); ok {
		t.Error("nil store should always miss")
	}
	if err := store.Put(Entry{UnitID: "u"}); err != nil {
		t.Errorf("nil store Put should be a no-op, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("nil store Close should be a no-op, got %v", err)
	}
}

func TestOpenRejectsDirectoryPath(t *testing.T) {
	dir := t.TempDir()
	if _, err := Open(dir, 16); err == nil {
		t.Fatal("expected error opening cache at a directory path")
	}
}

func TestLen(t *testing.T) {
	store, _ := openTestStore(t)

	for _, unit := range []string{"a", "b", "c"} {
		if err := store.Put(Entry{UnitID: unit, ContentFP: "c", ConfigFP: "g", Headline: unit, Strategy: "heuristic"}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	n, err := store.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}
}
