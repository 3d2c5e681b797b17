package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

func TestFileStore_LoadMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "layers.json"))
	prefs, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prefs) != 0 {
		t.Errorf("prefs = %v, want empty", prefs)
	}
}

func TestFileStore_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "layers.json")
	s := NewFileStore(path)
	want := domain.LayerPreferences{domain.LayerSubtes: true, domain.LayerEcobici: false}

	if err := s.Save(context.Background(), want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || !got[domain.LayerSubtes] || got[domain.LayerEcobici] {
		t.Errorf("got %v, want %v", got, want)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}
