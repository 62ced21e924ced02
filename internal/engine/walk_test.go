package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
)

func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func walkRel(t *testing.T, cfg Config) []string {
	t.Helper()
	var got []string
	err := Walk(context.Background(), cfg, func(p string) error {
		rel, err := filepath.Rel(cfg.Root, p)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	return got
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestWalk_PrunesExcludedDirs(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"src/app.js":             "x",
		"node_modules/lib/a.js":  "x",
		".git/config":            "x",
		"dist/bundle.js":         "x",
		"src/dist/nested.js":     "x",
		"src/node_modules.txt":   "x",
		"docs/.github/README.md": "x",
	})
	got := walkRel(t, Config{Root: dir})
	want := []string{"docs/.github/README.md", "src/app.js", "src/node_modules.txt"}
	if !equalStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestWalk_RootNamedLikeExcludedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dist")
	writeTree(t, dir, map[string]string{"main.js": "x"})
	got := walkRel(t, Config{Root: dir})
	if !equalStrings(got, []string{"main.js"}) {
		t.Fatalf("root itself must not be pruned, got %v", got)
	}
}

func TestWalk_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "single.txt")
	writeTree(t, dir, map[string]string{"single.txt": "x"})
	var got []string
	if err := Walk(context.Background(), Config{Root: p}, func(path string) error {
		got = append(got, path)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != p {
		t.Fatalf("got %v", got)
	}
}

func TestWalk_RootIsFileWithIgnorePathBelowIt(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env.local")
	writeTree(t, dir, map[string]string{".env.local": "X=1"})
	cfg := Config{Root: p, IgnoreFile: filepath.Join(p, ".repowatchignore")}
	fs, err := Scan(context.Background(), cfg)
	if err != nil {
		t.Fatalf("file root must scan directly: %v", err)
	}
	if len(fs) != 1 || fs[0].Rule != "env_file" {
		t.Fatalf("got %+v", fs)
	}
}

func TestWalk_RootMissing(t *testing.T) {
	err := Walk(context.Background(), Config{Root: filepath.Join(t.TempDir(), "nope")}, func(string) error { return nil })
	if !errors.Is(err, ErrRootNotFound) {
		t.Fatalf("expected ErrRootNotFound, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWalk_DanglingSymlinkSkipped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"ok.txt": "x"})
	if err := os.Symlink(filepath.Join(dir, "missing"), filepath.Join(dir, "broken")); err != nil {
		t.Fatal(err)
	}
	got := walkRel(t, Config{Root: dir})
	if !equalStrings(got, []string{"ok.txt"}) {
		t.Fatalf("got %v", got)
	}
}

func TestWalk_SymlinkCycleTerminates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a/file.txt": "x"})
	if err := os.Symlink(dir, filepath.Join(dir, "a", "loop")); err != nil {
		t.Fatal(err)
	}
	n := 0
	err := Walk(context.Background(), Config{Root: dir, MaxDepth: 6}, func(string) error {
		n++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	// a/file.txt, a/loop/a/file.txt, a/loop/a/loop/a/file.txt at depths 2, 4, 6
	if n != 3 {
		t.Fatalf("expected 3 visits bounded by depth, got %d", n)
	}
}

func TestWalk_IncludeExcludeGlobs(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.txt":     "hello",
		"b.go":      "package main\n",
		"docs/c.md": "doc",
		"pkg/d.go":  "package pkg\n",
	})
	got := walkRel(t, Config{Root: dir, IncludeGlobs: "**/*.go"})
	if !equalStrings(got, []string{"b.go", "pkg/d.go"}) {
		t.Fatalf("include globs failed, got %v", got)
	}
	got = walkRel(t, Config{Root: dir, ExcludeGlobs: "**/*.md, docs"})
	if !equalStrings(got, []string{"a.txt", "b.go", "pkg/d.go"}) {
		t.Fatalf("exclude globs failed, got %v", got)
	}
}

func TestWalk_IgnoreFile(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		".repowatchignore": "ignored.txt\nvendor/\n",
		"ignored.txt":      "secret",
		"kept.txt":         "x",
		"vendor/lib.go":    "x",
	})
	got := walkRel(t, Config{Root: dir, IgnoreFile: filepath.Join(dir, ".repowatchignore")})
	want := []string{".repowatchignore", "kept.txt"}
	if !equalStrings(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestWalk_HandleErrorStops(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "x", "b.txt": "x"})
	stop := errors.New("stop")
	n := 0
	err := Walk(context.Background(), Config{Root: dir}, func(string) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("err=%v n=%d", err, n)
	}
}

func TestWalk_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"a.txt": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Walk(ctx, Config{Root: dir}, func(string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCountTargets(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"a.txt":             "ok",
		"node_modules/x.js": "x",
		"ignored.txt":       "x",
		".repowatchignore":  "ignored.txt\n",
	})
	n, err := CountTargets(context.Background(), Config{Root: dir, IgnoreFile: filepath.Join(dir, ".repowatchignore")})
	if err != nil {
		t.Fatal(err)
	}
	// a.txt and the ignore file itself
	if n != 2 {
		t.Fatalf("expected 2 targets, got %d", n)
	}
}
