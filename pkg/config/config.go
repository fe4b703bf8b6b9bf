package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

// Config holds all configuration options for tsmcp.
type Config struct {
	// Logging settings
	Log LogConfig `koanf:"log" toml:"log"`

	// Default path resolution behavior
	Resolver ResolverConfig `koanf:"resolver" toml:"resolver"`

	// File exclusion rules
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Parse cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Symbol context defaults
	Symbol SymbolConfig `koanf:"symbol" toml:"symbol"`

	// File watching for the MCP server
	Watch WatchConfig `koanf:"watch" toml:"watch"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `koanf:"level" toml:"level"` // debug, info, warn, error
}

// ResolverConfig controls how path inputs expand into files.
type ResolverConfig struct {
	Recursive bool     `koanf:"recursive" toml:"recursive"`
	Patterns  []string `koanf:"patterns" toml:"patterns"`
}

// ExcludeConfig defines file exclusion rules applied during directory enumeration.
type ExcludeConfig struct {
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls the parse cache.
type CacheConfig struct {
	MaxEntries int `koanf:"max_entries" toml:"max_entries"` // 0 = unbounded
}

// SymbolConfig holds defaults for symbol context requests.
type SymbolConfig struct {
	MaxDependencies  int `koanf:"max_dependencies" toml:"max_dependencies"`
	ContextLines     int `koanf:"context_lines" toml:"context_lines"`
	MaxUsageExamples int `koanf:"max_usage_examples" toml:"max_usage_examples"`
}

// WatchConfig controls filesystem watching.
type WatchConfig struct {
	Enabled    bool `koanf:"enabled" toml:"enabled"`
	DebounceMs int  `koanf:"debounce_ms" toml:"debounce_ms"`
}

// OutputConfig controls CLI output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// DefaultPatterns are the file patterns used when a request gives none.
var DefaultPatterns = []string{"*.cpp", "*.hpp", "*.h", "*.cc", "*.cxx"}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Resolver: ResolverConfig{
			Recursive: true,
			Patterns:  append([]string(nil), DefaultPatterns...),
		},
		Exclude: ExcludeConfig{
			Dirs:      []string{".git"},
			Gitignore: false,
		},
		Cache: CacheConfig{
			MaxEntries: 0,
		},
		Symbol: SymbolConfig{
			MaxDependencies:  10,
			ContextLines:     3,
			MaxUsageExamples: 5,
		},
		Watch: WatchConfig{
			Enabled:    false,
			DebounceMs: 100,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// configNames are the file names searched by LoadOrDefault and LoadConfig.
var configNames = []string{
	"tsmcp.toml",
	"tsmcp.yaml",
	"tsmcp.yml",
	"tsmcp.json",
	".tsmcp.toml",
	".tsmcp.yaml",
	".tsmcp.yml",
	".tsmcp.json",
}

// searchDirs are the directories searched for a config file.
var searchDirs = []string{".", ".tsmcp"}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return kjson.Parser()
	default:
		return toml.Parser()
	}
}

func loadKoanf(path string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return k, nil
}

// Load loads configuration from a file, layered over the defaults.
func Load(path string) (*Config, error) {
	k, err := loadKoanf(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return cfg, nil
}

// FindConfigFile returns the first config file found in the standard
// locations, or "" when there is none.
func FindConfigFile() string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := FindConfigFile(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// LoadResult is a loaded config together with the file it came from.
type LoadResult struct {
	Config *Config
	// Source is the config file path, empty when defaults were used.
	Source string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

type loadOptions struct {
	path string
}

// WithPath loads an explicit file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// LoadConfig loads and validates configuration. With no explicit path it
// searches the standard locations and falls back to defaults.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = FindConfigFile()
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	if err := ValidateFile(path); err != nil {
		return nil, err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// ValidateFile checks a config file against the embedded JSON Schema.
func ValidateFile(path string) error {
	k, err := loadKoanf(path)
	if err != nil {
		return err
	}
	return validateMap(k.Raw())
}

func validateMap(raw map[string]any) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so TOML and YAML values take JSON types.
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if err := schema.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("invalid configuration: %s", ve.Error())
		}
		return err
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to read config schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tsmcp-config.json", doc); err != nil {
		return nil, fmt.Errorf("failed to register config schema: %w", err)
	}
	return c.Compile("tsmcp-config.json")
}

// Patterns returns the configured resolver patterns, or the defaults.
func (c *Config) Patterns() []string {
	if len(c.Resolver.Patterns) == 0 {
		return append([]string(nil), DefaultPatterns...)
	}
	return c.Resolver.Patterns
}

// ShouldExclude reports whether a path, relative to the directory being
// enumerated, falls under an excluded directory or matches an exclude
// pattern. Patterns match the base name, or the whole path when they
// contain a separator.
func (c *Config) ShouldExclude(path string) bool {
	path = filepath.ToSlash(path)
	parts := strings.Split(path, "/")
	for _, part := range parts[:len(parts)-1] {
		if c.isExcludedDir(part) {
			return true
		}
	}

	base := parts[len(parts)-1]
	for _, pattern := range c.Exclude.Patterns {
		target := base
		if strings.Contains(pattern, "/") {
			target = path
		}
		if ok, _ := doublestar.Match(pattern, target); ok {
			return true
		}
	}
	return false
}

// ShouldExcludeDir reports whether a directory with the given base name
// is skipped during enumeration.
func (c *Config) ShouldExcludeDir(name string) bool {
	return c.isExcludedDir(name)
}

func (c *Config) isExcludedDir(name string) bool {
	for _, dir := range c.Exclude.Dirs {
		if dir == name {
			return true
		}
	}
	return false
}
