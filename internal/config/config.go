// Package config loads keydex configuration from YAML files and the
// environment.
//
// Precedence, lowest to highest: built-in defaults, the user config
// (~/.config/keydex/config.yaml), the project config (.keydex.yaml in the
// project root), then KEYDEX_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDataDir is the per-project directory holding the index and
// telemetry database.
const DefaultDataDir = ".keydex"

// SplitDisabled turns the split stage off when set as the split pattern.
const SplitDisabled = "none"

// Config is the complete keydex configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Watch     WatchConfig     `yaml:"watch" json:"watch"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

// IndexConfig configures storage and the extraction pipeline.
type IndexConfig struct {
	// Path is the index directory. Empty keeps the index in memory.
	Path string `yaml:"path" json:"path"`

	// StopWords replaces the default English stop-word set when non-empty.
	// Matching is exact and case-sensitive.
	StopWords []string `yaml:"stop_words" json:"stop_words"`

	// SplitPattern is the regexp raw words are split on. Empty means runs
	// of whitespace; "none" disables splitting.
	SplitPattern string `yaml:"split_pattern" json:"split_pattern"`

	// TermPattern is the regexp a word must fully match to be indexed.
	// Empty means two or more letters, digits, or dots.
	TermPattern string `yaml:"term_pattern" json:"term_pattern"`

	// DisableLeadingWildcard rejects queries that start with * or ?.
	DisableLeadingWildcard bool `yaml:"disable_leading_wildcard" json:"disable_leading_wildcard"`

	// GraceDelay is how long superseded reader generations stay open for
	// in-flight searches, as a duration string.
	GraceDelay string `yaml:"grace_delay" json:"grace_delay"`

	// ParseCacheSize bounds the parsed-query cache.
	ParseCacheSize int `yaml:"parse_cache_size" json:"parse_cache_size"`
}

// SearchConfig configures query execution.
type SearchConfig struct {
	// DefaultLimit caps results when a search asks for no explicit limit.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
}

// TelemetryConfig configures local query metrics. Nothing ever leaves the
// machine; the metrics back the stats command.
type TelemetryConfig struct {
	// Disabled turns query metrics off entirely.
	Disabled bool `yaml:"disabled" json:"disabled"`

	// Path is the SQLite database file for persisted metrics.
	Path string `yaml:"path" json:"path"`

	// RecentQueries bounds the in-memory distinct-query tracker.
	RecentQueries int `yaml:"recent_queries" json:"recent_queries"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce coalesces bursts of file events, as a duration string.
	Debounce string `yaml:"debounce" json:"debounce"`

	// PollInterval drives the polling fallback when native file events
	// are unavailable, as a duration string.
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`

	// Extensions limits which files feed the index.
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// ServerConfig configures the MCP server and logging.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Index: IndexConfig{
			Path:           filepath.Join(DefaultDataDir, "index"),
			GraceDelay:     "30s",
			ParseCacheSize: 256,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
		},
		Telemetry: TelemetryConfig{
			Path:          filepath.Join(DefaultDataDir, "telemetry.db"),
			RecentQueries: 512,
		},
		Watch: WatchConfig{
			Debounce:     "500ms",
			PollInterval: "2s",
			Extensions:   []string{".txt", ".md"},
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// GetUserConfigPath returns the user configuration file path, following the
// XDG base directory convention.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "keydex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "keydex", "config.yaml")
	}
	return filepath.Join(home, ".config", "keydex", "config.yaml")
}

// GetUserConfigDir returns the directory holding the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether a user configuration file is present.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the effective configuration for a project directory:
// defaults, then the user config, then .keydex.yaml in dir, then KEYDEX_*
// environment variables, validated at the end.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromDir loads .keydex.yaml or .keydex.yml when present; no file means
// defaults.
func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{".keydex.yaml", ".keydex.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML merges non-zero values from a YAML file over c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Boolean fields are
// named so that false is the default and zero-value merging stays sound.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Index.Path != "" {
		c.Index.Path = other.Index.Path
	}
	if len(other.Index.StopWords) > 0 {
		c.Index.StopWords = other.Index.StopWords
	}
	if other.Index.SplitPattern != "" {
		c.Index.SplitPattern = other.Index.SplitPattern
	}
	if other.Index.TermPattern != "" {
		c.Index.TermPattern = other.Index.TermPattern
	}
	if other.Index.DisableLeadingWildcard {
		c.Index.DisableLeadingWildcard = true
	}
	if other.Index.GraceDelay != "" {
		c.Index.GraceDelay = other.Index.GraceDelay
	}
	if other.Index.ParseCacheSize != 0 {
		c.Index.ParseCacheSize = other.Index.ParseCacheSize
	}

	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}

	if other.Telemetry.Disabled {
		c.Telemetry.Disabled = true
	}
	if other.Telemetry.Path != "" {
		c.Telemetry.Path = other.Telemetry.Path
	}
	if other.Telemetry.RecentQueries != 0 {
		c.Telemetry.RecentQueries = other.Telemetry.RecentQueries
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.PollInterval != "" {
		c.Watch.PollInterval = other.Watch.PollInterval
	}
	if len(other.Watch.Extensions) > 0 {
		c.Watch.Extensions = other.Watch.Extensions
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies KEYDEX_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KEYDEX_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("KEYDEX_GRACE_DELAY"); v != "" {
		c.Index.GraceDelay = v
	}
	if v := os.Getenv("KEYDEX_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("KEYDEX_TELEMETRY_DISABLED"); v != "" {
		c.Telemetry.Disabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("KEYDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("KEYDEX_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	if _, err := c.GraceDelay(); err != nil {
		return fmt.Errorf("index.grace_delay: %w", err)
	}
	if _, err := c.SplitPattern(); err != nil {
		return fmt.Errorf("index.split_pattern: %w", err)
	}
	if _, err := c.TermPattern(); err != nil {
		return fmt.Errorf("index.term_pattern: %w", err)
	}
	if c.Index.ParseCacheSize < 0 {
		return fmt.Errorf("index.parse_cache_size must be non-negative, got %d", c.Index.ParseCacheSize)
	}

	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}

	if _, err := c.WatchDebounce(); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	if _, err := c.WatchPollInterval(); err != nil {
		return fmt.Errorf("watch.poll_interval: %w", err)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// GraceDelay parses the configured grace delay.
func (c *Config) GraceDelay() (time.Duration, error) {
	return parseNonNegativeDuration(c.Index.GraceDelay)
}

// WatchDebounce parses the configured debounce window.
func (c *Config) WatchDebounce() (time.Duration, error) {
	return parseNonNegativeDuration(c.Watch.Debounce)
}

// WatchPollInterval parses the configured polling interval.
func (c *Config) WatchPollInterval() (time.Duration, error) {
	return parseNonNegativeDuration(c.Watch.PollInterval)
}

// SplitPattern compiles the configured split pattern. A nil result with a
// nil error means splitting is disabled.
func (c *Config) SplitPattern() (*regexp.Regexp, error) {
	switch c.Index.SplitPattern {
	case "":
		return regexp.MustCompile(`\s+`), nil
	case SplitDisabled:
		return nil, nil
	default:
		re, err := regexp.Compile(c.Index.SplitPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", c.Index.SplitPattern, err)
		}
		return re, nil
	}
}

// TermPattern compiles the configured term pattern.
func (c *Config) TermPattern() (*regexp.Regexp, error) {
	if c.Index.TermPattern == "" {
		return regexp.MustCompile(`^[a-zA-Z0-9.]{2,}$`), nil
	}
	re, err := regexp.Compile(c.Index.TermPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", c.Index.TermPattern, err)
	}
	return re, nil
}

func parseNonNegativeDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", s)
	}
	return d, nil
}

// FindProjectRoot walks up from startDir looking for a .git directory or a
// .keydex.yaml file; with neither found it settles on startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".keydex.yaml")) ||
			fileExists(filepath.Join(currentDir, ".keydex.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
