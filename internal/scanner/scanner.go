// Package scanner expands user supplied paths into the source files to analyze.
package scanner

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/tsmcp/pkg/config"
	"github.com/panbanda/tsmcp/pkg/parser"
)

// Scanner resolves files, directories and glob patterns into a sorted,
// deduplicated list of canonical file paths.
type Scanner struct {
	config *config.Config
	logger *slog.Logger
}

// NewScanner creates a new path scanner.
func NewScanner(cfg *config.Config, logger *slog.Logger) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{config: cfg, logger: logger}
}

// Resolve expands inputs with the default configuration.
func Resolve(inputs []string, recursive bool, patterns []string) []string {
	return NewScanner(nil, nil).Resolve(inputs, recursive, patterns)
}

// Resolve expands inputs into files. A file input is kept when its base
// name matches one of patterns; a directory is enumerated (recursively
// when asked) with the same filter. Missing inputs are skipped with a
// warning. Results are absolute, symlink free, unique and sorted.
// An empty pattern list uses config.DefaultPatterns.
func (s *Scanner) Resolve(inputs []string, recursive bool, patterns []string) []string {
	if len(patterns) == 0 {
		patterns = config.DefaultPatterns
	}

	unique := make(map[string]struct{})
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			s.logger.Warn("path does not exist", "path", input)
			continue
		}

		switch {
		case info.Mode().IsRegular():
			if !MatchesAny(filepath.Base(input), patterns) {
				s.logger.Debug("file does not match any pattern", "path", input)
				continue
			}
			if canon, ok := s.canonical(input); ok {
				unique[canon] = struct{}{}
			}
		case info.IsDir():
			dir, ok := s.canonical(input)
			if !ok {
				continue
			}
			for _, f := range s.scanDir(dir, recursive, patterns) {
				if canon, ok := s.canonical(f); ok {
					unique[canon] = struct{}{}
				}
			}
		default:
			s.logger.Warn("path is neither file nor directory", "path", input)
		}
	}

	files := make([]string, 0, len(unique))
	for f := range unique {
		files = append(files, f)
	}
	sort.Strings(files)

	s.logger.Debug("resolved paths", "files", len(files), "inputs", len(inputs))
	return files
}

// canonical returns the absolute, symlink free form of path.
func (s *Scanner) canonical(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		s.logger.Warn("cannot canonicalize path", "path", path, "error", err)
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		s.logger.Warn("cannot canonicalize path", "path", path, "error", err)
		return "", false
	}
	return resolved, true
}

// scanDir lists matching files under root. Directory symlinks are not
// followed; file symlinks are kept when they point at a regular file.
func (s *Scanner) scanDir(root string, recursive bool, patterns []string) []string {
	matcher := s.gitignoreMatcher(root)
	var files []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			s.logger.Warn("cannot read path", "path", path, "error", err)
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if !recursive || s.config.ShouldExcludeDir(d.Name()) || matcher.excluded(path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isRegular(path, d) {
			return nil
		}
		if !MatchesAny(d.Name(), patterns) {
			return nil
		}
		if rel, err := filepath.Rel(root, path); err == nil && s.config.ShouldExclude(rel) {
			return nil
		}
		if matcher.excluded(path, false) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		s.logger.Error("error scanning directory", "path", root, "error", walkErr)
	}
	return files
}

func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// MatchesAny reports whether name matches at least one pattern. Only `*`
// (any run of characters) and `?` (any single character) are wildcards;
// every other character is literal.
func MatchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(escapePattern(p), name); ok {
			return true
		}
	}
	return false
}

// escapePattern quotes the doublestar metacharacters that are not part
// of the supported glob syntax.
func escapePattern(p string) string {
	if !strings.ContainsAny(p, `[]{}\`) {
		return p
	}
	var b strings.Builder
	for _, r := range p {
		switch r {
		case '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ignoreMatcher applies .gitignore rules relative to the repository root.
type ignoreMatcher struct {
	root    string
	matcher gitignore.Matcher
}

func (m *ignoreMatcher) excluded(path string, isDir bool) bool {
	if m == nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	return m.matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// gitignoreMatcher reads every .gitignore in the repository containing
// dir. It returns nil when gitignore support is off or dir is not inside
// a repository.
func (s *Scanner) gitignoreMatcher(dir string) *ignoreMatcher {
	if !s.config.Exclude.Gitignore {
		return nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil
	}
	gitRoot := findGitRoot(abs)
	if gitRoot == "" {
		return nil
	}
	patterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil {
		s.logger.Warn("cannot read .gitignore", "root", gitRoot, "error", err)
		return nil
	}
	if len(patterns) == 0 {
		return nil
	}
	return &ignoreMatcher{root: gitRoot, matcher: gitignore.NewMatcher(patterns)}
}

// findGitRoot finds the root of the git repository by looking for .git.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// GroupByLanguage groups files by their detected language.
func GroupByLanguage(files []string) map[parser.Language][]string {
	groups := make(map[parser.Language][]string)
	for _, f := range files {
		lang := parser.DetectLanguage(f)
		if lang != parser.LangUnknown {
			groups[lang] = append(groups[lang], f)
		}
	}
	return groups
}
