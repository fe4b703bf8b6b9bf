package query

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/tsmcp/pkg/parser"
)

// Kinds lists every predefined query intent.
var Kinds = []parser.QueryKind{
	parser.QueryClasses,
	parser.QueryFunctions,
	parser.QueryIncludes,
	parser.QueryVirtualFunctions,
	parser.QueryNamespaces,
	parser.QueryStructs,
	parser.QueryTemplates,
	parser.QueryDecorators,
	parser.QueryAsyncFunctions,
}

// Get returns the predefined pattern for (kind, lang). A missing entry
// means the capability does not apply to the language.
func Get(kind parser.QueryKind, lang parser.Language) (string, bool) {
	p, ok := parser.ProfileFor(lang)
	if !ok {
		return "", false
	}
	return p.Query(kind)
}

// Cache memoizes compiled queries per (language, pattern).
type Cache struct {
	mu      sync.RWMutex
	entries map[uint64]*Query
}

// NewCache creates an empty compiled query cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uint64]*Query)}
}

func cacheKey(pattern string, lang parser.Language) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(string(lang))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(pattern)
	return d.Sum64()
}

// Compile returns a cached compiled query or compiles and stores it.
// Failed compilations are not cached.
func (c *Cache) Compile(pattern string, lang parser.Language) (*Query, error) {
	key := cacheKey(pattern, lang)

	c.mu.RLock()
	q, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && q.pattern == pattern && q.lang == lang {
		return q, nil
	}

	q, err := Compile(pattern, lang)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = q
	c.mu.Unlock()
	return q, nil
}

// Predefined compiles the predefined query for (kind, lang).
// ok is false when the catalog has no such entry.
func (c *Cache) Predefined(kind parser.QueryKind, lang parser.Language) (q *Query, ok bool, err error) {
	pattern, ok := Get(kind, lang)
	if !ok {
		return nil, false, nil
	}
	q, err = c.Compile(pattern, lang)
	return q, true, err
}

// Len returns the number of cached queries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
