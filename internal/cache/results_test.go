package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/repowatch/repowatch/internal/types"
)

func TestSaveLoadResults(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	root := t.TempDir()

	if _, err := LoadResults(root); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist before first save, got %v", err)
	}

	fs := []types.Finding{{Rule: "env_file", Path: filepath.Join(root, ".env"), Category: types.CatSecrets, Severity: types.SevCritical}}
	if err := SaveResults(root, fs, 7); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadResults(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Count != 1 || got.FilesScanned != 7 || got.Findings[0] != fs[0] {
		t.Fatalf("unexpected results: %+v", got)
	}

	// nothing is written into the scanned tree
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Fatalf("cache leaked into root: %v", entries)
	}
}

func TestResultsKeyedByRoot(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	a, b := t.TempDir(), t.TempDir()
	if err := SaveResults(a, nil, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadResults(b); err == nil {
		t.Fatal("results of one root must not be visible for another")
	}
	got, err := LoadResults(a)
	if err != nil {
		t.Fatal(err)
	}
	if got.Findings == nil || got.Count != 0 {
		t.Fatalf("empty scan should round-trip as empty list: %+v", got)
	}
}
