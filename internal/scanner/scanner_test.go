package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/tsmcp/pkg/config"
	"github.com/panbanda/tsmcp/pkg/parser"
)

// setupTree creates files under a fresh temp directory and returns the
// directory in canonical form.
func setupTree(t *testing.T, files map[string]string) string {
	t.Helper()
	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks() error: %v", err)
	}
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}
	return tmpDir
}

var resolverTree = map[string]string{
	"file1.cpp":                  "class A {};",
	"file2.hpp":                  "class B {};",
	"file3.h":                    "class C {};",
	"readme.txt":                 "Not a C++ file",
	"subdir/nested1.cpp":         "class D {};",
	"subdir/nested2.cc":          "class E {};",
	"subdir/deep/deep_file.cxx":  "class F {};",
	"subdir/deep/script.py":      "class G: pass",
	"subdir/deep/notes.cpp.orig": "stale",
}

func relNames(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatalf("Rel() error: %v", err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
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

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil, nil)
	if s == nil {
		t.Fatal("NewScanner(nil, nil) returned nil")
	}
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}
	if s.logger == nil {
		t.Error("scanner.logger should default to slog.Default()")
	}

	cfg := config.DefaultConfig()
	s = NewScanner(cfg, nil)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestResolveSingleFile(t *testing.T) {
	root := setupTree(t, resolverTree)
	file := filepath.Join(root, "file1.cpp")

	got := Resolve([]string{file}, true, nil)
	if len(got) != 1 || got[0] != file {
		t.Errorf("Resolve() = %v, want [%s]", got, file)
	}
}

func TestResolveFileNotMatchingPattern(t *testing.T) {
	root := setupTree(t, resolverTree)
	got := Resolve([]string{filepath.Join(root, "readme.txt")}, true, nil)
	if len(got) != 0 {
		t.Errorf("Resolve() = %v, want empty", got)
	}
}

func TestResolveDirectoryNonRecursive(t *testing.T) {
	root := setupTree(t, resolverTree)

	got := relNames(t, root, Resolve([]string{root}, false, nil))
	want := []string{"file1.cpp", "file2.hpp", "file3.h"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveDirectoryRecursive(t *testing.T) {
	root := setupTree(t, resolverTree)

	got := relNames(t, root, Resolve([]string{root}, true, nil))
	want := []string{
		"file1.cpp",
		"file2.hpp",
		"file3.h",
		"subdir/deep/deep_file.cxx",
		"subdir/nested1.cpp",
		"subdir/nested2.cc",
	}
	if !equalStrings(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveMultiplePaths(t *testing.T) {
	root := setupTree(t, resolverTree)

	got := Resolve([]string{
		filepath.Join(root, "file1.cpp"),
		filepath.Join(root, "file2.hpp"),
		filepath.Join(root, "subdir"),
	}, false, nil)

	want := []string{"file1.cpp", "file2.hpp", "subdir/nested1.cpp", "subdir/nested2.cc"}
	if names := relNames(t, root, got); !equalStrings(names, want) {
		t.Errorf("Resolve() = %v, want %v", names, want)
	}
}

func TestResolveFilePatternFilter(t *testing.T) {
	root := setupTree(t, resolverTree)

	got := relNames(t, root, Resolve([]string{root}, true, []string{"*.cpp"}))
	want := []string{"file1.cpp", "subdir/nested1.cpp"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}

	got = relNames(t, root, Resolve([]string{root}, true, []string{"*.py", "file?.h"}))
	want = []string{"file3.h", "subdir/deep/script.py"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveNonexistentPathSkipped(t *testing.T) {
	root := setupTree(t, resolverTree)

	got := Resolve([]string{
		filepath.Join(root, "nonexistent.cpp"),
		filepath.Join(root, "file1.cpp"),
	}, true, nil)
	if len(got) != 1 {
		t.Errorf("Resolve() = %v, want only file1.cpp", got)
	}
}

func TestResolveEmptyDirectory(t *testing.T) {
	root := setupTree(t, nil)
	empty := filepath.Join(root, "empty")
	if err := os.MkdirAll(empty, 0755); err != nil {
		t.Fatal(err)
	}
	if got := Resolve([]string{empty}, true, nil); len(got) != 0 {
		t.Errorf("Resolve() = %v, want empty", got)
	}
}

func TestResolveDeterministic(t *testing.T) {
	root := setupTree(t, resolverTree)
	inputs := []string{filepath.Join(root, "subdir"), root}

	first := Resolve(inputs, true, nil)
	second := Resolve(inputs, true, nil)
	if !equalStrings(first, second) {
		t.Errorf("Resolve() not deterministic: %v vs %v", first, second)
	}
	if len(first) != 6 {
		t.Errorf("Resolve() returned %d files, want 6 after dedup", len(first))
	}
	for i := 1; i < len(first); i++ {
		if first[i-1] >= first[i] {
			t.Errorf("Resolve() not strictly sorted at %d: %v", i, first)
		}
	}
}

func TestResolveRelativeAndAbsoluteCollapse(t *testing.T) {
	root := setupTree(t, resolverTree)
	t.Chdir(root)

	got := Resolve([]string{
		"file1.cpp",
		"./subdir/../file1.cpp",
		root,
	}, false, nil)

	want := []string{"file1.cpp", "file2.hpp", "file3.h"}
	if names := relNames(t, root, got); !equalStrings(names, want) {
		t.Errorf("Resolve() = %v, want %v", names, want)
	}
}

func TestResolveSymlinkCollapses(t *testing.T) {
	root := setupTree(t, resolverTree)
	link := filepath.Join(root, "link.cpp")
	if err := os.Symlink(filepath.Join(root, "file1.cpp"), link); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	got := Resolve([]string{link, root}, false, nil)
	want := []string{"file1.cpp", "file2.hpp", "file3.h"}
	if names := relNames(t, root, got); !equalStrings(names, want) {
		t.Errorf("Resolve() = %v, want %v", names, want)
	}
}

func TestResolveSymlinkedDirectoryInput(t *testing.T) {
	root := setupTree(t, resolverTree)
	outside := setupTree(t, nil)
	link := filepath.Join(outside, "alias")
	if err := os.Symlink(filepath.Join(root, "subdir"), link); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	got := Resolve([]string{link}, false, nil)
	want := []string{"subdir/nested1.cpp", "subdir/nested2.cc"}
	if names := relNames(t, root, got); !equalStrings(names, want) {
		t.Errorf("Resolve() = %v, want %v", names, want)
	}
}

func TestResolveDanglingSymlinkSkipped(t *testing.T) {
	root := setupTree(t, map[string]string{"real.cpp": "int x;"})
	if err := os.Symlink("/nonexistent/path/file.cpp", filepath.Join(root, "dangling.cpp")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	got := Resolve([]string{root}, true, nil)
	if len(got) != 1 {
		t.Errorf("Resolve() should find 1 file (skipping dangling symlink), got %v", got)
	}
}

func TestResolveExcludedDirs(t *testing.T) {
	root := setupTree(t, map[string]string{
		"main.cpp":           "int main() {}",
		".git/hooks/x.cpp":   "int x;",
		"build/gen.cpp":      "int g;",
		"src/build_util.cpp": "int b;",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Dirs = append(cfg.Exclude.Dirs, "build")
	got := relNames(t, root, NewScanner(cfg, nil).Resolve([]string{root}, true, nil))
	want := []string{"main.cpp", "src/build_util.cpp"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveExcludedPatterns(t *testing.T) {
	root := setupTree(t, map[string]string{
		"main.cpp":          "int main() {}",
		"model_generated.h": "int m;",
		"src/x_generated.h": "int x;",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"*_generated.h"}
	got := relNames(t, root, NewScanner(cfg, nil).Resolve([]string{root}, true, nil))
	if !equalStrings(got, []string{"main.cpp"}) {
		t.Errorf("Resolve() = %v, want [main.cpp]", got)
	}
}

func TestResolveWithGitignore(t *testing.T) {
	root := setupTree(t, map[string]string{
		".gitignore":       "skipme\n*.gen.h\n",
		"main.cpp":         "int main() {}",
		"skipme/skip.cpp":  "int s;",
		"src/app.cpp":      "int a;",
		"src/types.gen.h":  "int t;",
		"src/.gitignore":   "local.h\n",
		"src/local.h":      "int l;",
		"other/local.h":    "int o;",
		".git/placeholder": "",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = true

	got := relNames(t, root, NewScanner(cfg, nil).Resolve([]string{root}, true, nil))
	want := []string{"main.cpp", "other/local.h", "src/app.cpp"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolveDisabledGitignore(t *testing.T) {
	root := setupTree(t, map[string]string{
		".gitignore":       "skipme\n",
		"main.cpp":         "int main() {}",
		"skipme/skip.cpp":  "int s;",
		".git/placeholder": "",
	})

	got := relNames(t, root, NewScanner(nil, nil).Resolve([]string{root}, true, nil))
	want := []string{"main.cpp", "skipme/skip.cpp"}
	if !equalStrings(got, want) {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     bool
	}{
		{"main.cpp", []string{"*.cpp"}, true},
		{"main.cpp", []string{"*.hpp", "*.cpp"}, true},
		{"maincpp", []string{"*.cpp"}, false},
		{"a.h", []string{"?.h"}, true},
		{"ab.h", []string{"?.h"}, false},
		{"file[1].cpp", []string{"file[1].cpp"}, true},
		{"file1.cpp", []string{"file[1].cpp"}, false},
		{"x.{a}", []string{"*.{a}"}, true},
		{"main.cpp", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesAny(tt.name, tt.patterns); got != tt.want {
				t.Errorf("MatchesAny(%q, %v) = %v, want %v", tt.name, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := setupTree(t, nil)
	if result := findGitRoot(tmpDir); result != "" {
		t.Skipf("temp dir is inside a git repository at %s", result)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	if result := findGitRoot(tmpDir); result != tmpDir {
		t.Errorf("findGitRoot() should return %q, got %q", tmpDir, result)
	}

	subDir := filepath.Join(tmpDir, "src", "pkg")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if result := findGitRoot(subDir); result != tmpDir {
		t.Errorf("findGitRoot() from subdir should return %q, got %q", tmpDir, result)
	}
}

func TestGroupByLanguage(t *testing.T) {
	groups := GroupByLanguage([]string{"a.cpp", "b.h", "c.py", "d.txt"})
	if len(groups[parser.LangCPP]) != 2 {
		t.Errorf("cpp group = %v, want 2 files", groups[parser.LangCPP])
	}
	if len(groups[parser.LangPython]) != 1 {
		t.Errorf("python group = %v, want 1 file", groups[parser.LangPython])
	}
	if _, ok := groups[parser.LangUnknown]; ok {
		t.Error("unknown files should not be grouped")
	}
}
