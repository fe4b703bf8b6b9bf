// Package testutil provides shared fixtures and file helpers for tests.
package testutil

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

//go:embed fixtures/*
var fixtures embed.FS

// WriteFile writes content to a file in the real filesystem.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error: %v", path, err)
	}
	return string(data)
}

// TempDir returns a fresh temporary directory in canonical (symlink free)
// form, so paths built from it compare equal to resolver output.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks error: %v", err)
	}
	return dir
}

// CreateFileTree creates multiple files from a map of path -> content.
func CreateFileTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(name)), content)
	}
}

// Touch sets a file's modification time.
func Touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("Chtimes(%s) error: %v", path, err)
	}
}

// FixtureNames lists the bundled fixture files.
func FixtureNames() []string {
	entries, _ := fs.ReadDir(fixtures, "fixtures")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// FixtureSource returns the contents of a bundled fixture.
func FixtureSource(t *testing.T, name string) string {
	t.Helper()
	data, err := fixtures.ReadFile("fixtures/" + name)
	if err != nil {
		t.Fatalf("fixture %s: %v", name, err)
	}
	return string(data)
}

// Fixture copies a bundled fixture into a temporary directory and
// returns its path.
func Fixture(t *testing.T, name string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(TempDir(t), name), FixtureSource(t, name))
}

// FixtureDir copies every bundled fixture into one temporary directory
// and returns the directory.
func FixtureDir(t *testing.T) string {
	t.Helper()
	dir := TempDir(t)
	for _, name := range FixtureNames() {
		WriteFile(t, filepath.Join(dir, name), FixtureSource(t, name))
	}
	return dir
}
