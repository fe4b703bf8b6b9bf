// Package cache holds parsed syntax trees keyed by file path.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/panbanda/tsmcp/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotFound is returned when the path does not exist.
	ErrNotFound = errors.New("file does not exist")
	// ErrIsDirectory is returned when the path names a directory.
	ErrIsDirectory = errors.New("path is a directory")
)

// Entry is one parsed file. Entries are never mutated after insertion;
// a stale entry is replaced by a new one, so callers holding an entry
// keep a consistent tree and source for as long as they need them.
type Entry struct {
	Path     string
	Language parser.Language
	ModTime  time.Time
	Hash     string
	ParsedAt time.Time
	Result   *parser.ParseResult
}

// Tree returns the syntax tree.
func (e *Entry) Tree() *sitter.Tree { return e.Result.Tree }

// Source returns the exact bytes the tree was parsed from.
func (e *Entry) Source() []byte { return e.Result.Source }

// Root returns the tree's root node.
func (e *Entry) Root() *sitter.Node { return e.Result.Tree.RootNode() }

// valid reports whether the entry may serve a request for lang at modTime.
// Equality is exact: an mtime moving backwards also invalidates.
func (e *Entry) valid(modTime time.Time, lang parser.Language) bool {
	return e.Language == lang && e.ModTime.Equal(modTime)
}

// Stats reports cache counters.
type Stats struct {
	Entries       int   `json:"entries"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Invalidations int64 `json:"invalidations"`
	MaxEntries    int   `json:"max_entries"`
}

// Cache maps file paths to parsed trees, validated by modification time
// and language. It is unbounded unless a maximum entry count is set.
type Cache struct {
	pool   *parser.Pool
	logger *slog.Logger

	mu      sync.RWMutex
	entries store
	max     int

	group singleflight.Group

	hits          atomic.Int64
	misses        atomic.Int64
	invalidations atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithPool shares a parser pool with the cache.
func WithPool(pool *parser.Pool) Option {
	return func(c *Cache) {
		c.pool = pool
	}
}

// WithMaxEntries bounds the cache with least-recently-used eviction.
// Zero or a negative value keeps it unbounded.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.max = n
	}
}

// New creates a cache.
func New(opts ...Option) *Cache {
	c := &Cache{}
	for _, opt := range opts {
		opt(c)
	}
	if c.pool == nil {
		c.pool = parser.NewPool()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.max > 0 {
		l, err := lru.New[string, *Entry](c.max)
		if err == nil {
			c.entries = &lruStore{l: l}
		}
	}
	if c.entries == nil {
		c.max = 0
		c.entries = newMapStore()
	}
	return c
}

// HashFile computes a BLAKE3 hash of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// GetOrParse returns the cached entry for path if it is still valid for
// lang, otherwise reads and parses the file and replaces the entry.
// At most one parse per path runs at a time.
func (c *Cache) GetOrParse(ctx context.Context, path string, lang parser.Language) (*Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}
	modTime := info.ModTime()

	if e, ok := c.lookup(path); ok {
		if e.valid(modTime, lang) {
			c.hits.Add(1)
			c.logger.Debug("cache hit", "path", path, "language", lang)
			return e, nil
		}
		c.logger.Debug("cache entry stale, re-parsing", "path", path,
			"cached_language", e.Language, "language", lang)
		c.evict(path, e)
	}

	v, err, _ := c.group.Do(path+"\x00"+string(lang), func() (any, error) {
		if e, ok := c.lookup(path); ok && e.valid(modTime, lang) {
			return e, nil
		}
		c.misses.Add(1)

		source, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		c.logger.Debug("parsing file", "path", path, "language", lang, "bytes", len(source))
		res, err := c.pool.Parse(ctx, lang, source, path)
		if err != nil {
			return nil, err
		}
		e := &Entry{
			Path:     path,
			Language: lang,
			ModTime:  modTime,
			Hash:     HashBytes(source),
			ParsedAt: time.Now(),
			Result:   res,
		}
		c.mu.Lock()
		c.entries.put(path, e)
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

func (c *Cache) lookup(path string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.get(path)
}

// evict removes path only if it still maps to stale, so a fresher entry
// inserted concurrently survives.
func (c *Cache) evict(path string, stale *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries.get(path); ok && cur == stale {
		c.entries.remove(path)
		c.invalidations.Add(1)
	}
}

// Invalidate drops the entry for path, if any.
func (c *Cache) Invalidate(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries.get(path); !ok {
		return false
	}
	c.entries.remove(path)
	c.invalidations.Add(1)
	return true
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.clear()
	c.logger.Debug("cache cleared")
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.len()
}

// Entries returns a snapshot of the cached entries sorted by path.
func (c *Cache) Entries() []*Entry {
	c.mu.RLock()
	keys := c.entries.keys()
	out := make([]*Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := c.entries.peek(k); ok {
			out = append(out, e)
		}
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Stats returns cache statistics.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:       c.Len(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
		MaxEntries:    c.max,
	}
}

// Pool returns the parser pool used by the cache.
func (c *Cache) Pool() *parser.Pool {
	return c.pool
}

// Close releases pooled parsers. Cached trees stay usable.
func (c *Cache) Close() {
	c.pool.Close()
}

type store interface {
	get(path string) (*Entry, bool)
	peek(path string) (*Entry, bool)
	put(path string, e *Entry)
	remove(path string)
	clear()
	len() int
	keys() []string
}

type mapStore struct {
	m map[string]*Entry
}

func newMapStore() *mapStore {
	return &mapStore{m: make(map[string]*Entry)}
}

func (s *mapStore) get(path string) (*Entry, bool) {
	e, ok := s.m[path]
	return e, ok
}

func (s *mapStore) peek(path string) (*Entry, bool) { return s.get(path) }

func (s *mapStore) put(path string, e *Entry) { s.m[path] = e }

func (s *mapStore) remove(path string) { delete(s.m, path) }

func (s *mapStore) clear() { s.m = make(map[string]*Entry) }

func (s *mapStore) len() int { return len(s.m) }

func (s *mapStore) keys() []string {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys
}

type lruStore struct {
	l *lru.Cache[string, *Entry]
}

func (s *lruStore) get(path string) (*Entry, bool) { return s.l.Get(path) }

func (s *lruStore) peek(path string) (*Entry, bool) { return s.l.Peek(path) }

func (s *lruStore) put(path string, e *Entry) { s.l.Add(path, e) }

func (s *lruStore) remove(path string) { s.l.Remove(path) }

func (s *lruStore) clear() { s.l.Purge() }

func (s *lruStore) len() int { return s.l.Len() }

func (s *lruStore) keys() []string { return s.l.Keys() }
