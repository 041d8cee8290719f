package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no path is given.
const DefaultConfigFile = "config.json"

// Link extractor names accepted by link_extractor.
const (
	ExtractorScan  = "scan"
	ExtractorHTML  = "html"
	ExtractorQuery = "query"
)

// Defaults used when a field is left unset.
const (
	DefaultSeedURL       = "https://books.toscrape.com/catalogue/category/books/travel_2/index.html"
	DefaultMaxDepth      = 200
	DefaultWorkers       = 10
	DefaultPerDepthCap   = 200
	DefaultQueueCapacity = 1000
	DefaultMaxURLLength  = 1000
	DefaultFetchPauseMs  = 100
	DefaultTimeoutMs     = 10000
	DefaultMaxBodyBytes  = 10 * 1024 * 1024
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultDBPath        = "crawler.db"
	DefaultLogPath       = "crawler_log.txt"
	DefaultMetricsPath   = "metrics.json"
)

// DefaultKeywords is the word list reported for every fetched page.
var DefaultKeywords = []string{"data", "algorithm", "math", "generate", "link", "information"}

// ErrConfigNotFound is returned when an explicit config file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config holds all runtime configuration parameters
type Config struct {
	SeedURL           string   `json:"seed_url" yaml:"seed_url"`
	MaxDepth          int      `json:"max_depth" yaml:"max_depth"`
	ConcurrentWorkers int      `json:"concurrent_workers" yaml:"concurrent_workers"`
	PerDepthCap       int      `json:"per_depth_cap" yaml:"per_depth_cap"`
	QueueCapacity     int      `json:"queue_capacity" yaml:"queue_capacity"`
	UserAgent         string   `json:"user_agent" yaml:"user_agent"`
	MaxURLLength      int      `json:"max_url_length" yaml:"max_url_length"`
	FetchPauseMs      int      `json:"fetch_pause_ms" yaml:"fetch_pause_ms"`
	RequestTimeoutMs  int      `json:"request_timeout_ms" yaml:"request_timeout_ms"`
	MaxBodyBytes      int      `json:"max_body_bytes" yaml:"max_body_bytes"`
	Keywords          []string `json:"keywords" yaml:"keywords"`
	LinkExtractor     string   `json:"link_extractor" yaml:"link_extractor"`
	DBPath            string   `json:"db_path" yaml:"db_path"`
	PagesDir          string   `json:"pages_dir" yaml:"pages_dir"`
	LogPath           string   `json:"log_path" yaml:"log_path"`
	MetricsPath       string   `json:"metrics_path" yaml:"metrics_path"`
}

// Default returns a configuration built only from defaults.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// LoadConfig reads and validates configuration from a JSON or YAML file.
// The format is picked from the file extension; anything that is not
// .yaml or .yml is decoded as JSON.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Resolve picks the configuration source for the CLI. An explicit path must
// exist; otherwise DefaultConfigFile is used when present in dir, and the
// built-in defaults when it is not.
func Resolve(explicit, dir string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := LoadConfig(explicit)
		return cfg, explicit, err
	}

	candidate := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(candidate); err == nil {
		cfg, err := LoadConfig(candidate)
		return cfg, candidate, err
	}

	return Default(), "", nil
}

// FetchPause is the fixed delay each worker waits after every fetch.
// A negative fetch_pause_ms disables the pause.
func (c *Config) FetchPause() time.Duration {
	if c.FetchPauseMs < 0 {
		return 0
	}
	return time.Duration(c.FetchPauseMs) * time.Millisecond
}

// RequestTimeout bounds a single page fetch.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.SeedURL == "" {
		cfg.SeedURL = DefaultSeedURL
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.ConcurrentWorkers == 0 {
		cfg.ConcurrentWorkers = DefaultWorkers
	}
	if cfg.PerDepthCap == 0 {
		cfg.PerDepthCap = DefaultPerDepthCap
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxURLLength == 0 {
		cfg.MaxURLLength = DefaultMaxURLLength
	}
	if cfg.FetchPauseMs == 0 {
		cfg.FetchPauseMs = DefaultFetchPauseMs
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = DefaultTimeoutMs
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Keywords == nil {
		cfg.Keywords = append([]string(nil), DefaultKeywords...)
	}
	if cfg.LinkExtractor == "" {
		cfg.LinkExtractor = ExtractorScan
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogPath
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultMetricsPath
	}
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.SeedURL, "http://") && !strings.HasPrefix(cfg.SeedURL, "https://") {
		return fmt.Errorf("seed_url must be an absolute http(s) URL, got %q", cfg.SeedURL)
	}
	if strings.Count(cfg.SeedURL, "/") < 2 || len(cfg.SeedURL) <= len("https://") {
		return fmt.Errorf("seed_url has no host: %q", cfg.SeedURL)
	}
	if cfg.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be >= 1")
	}
	if cfg.ConcurrentWorkers < 1 {
		return fmt.Errorf("concurrent_workers must be >= 1")
	}
	if cfg.PerDepthCap < 1 {
		return fmt.Errorf("per_depth_cap must be >= 1")
	}
	if cfg.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be >= 1")
	}
	if cfg.MaxURLLength <= len(cfg.SeedURL) {
		return fmt.Errorf("max_url_length must exceed the seed URL length (%d)", len(cfg.SeedURL))
	}
	if cfg.RequestTimeoutMs < 100 {
		return fmt.Errorf("request_timeout_ms must be >= 100")
	}
	if cfg.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be >= 0")
	}
	switch cfg.LinkExtractor {
	case ExtractorScan, ExtractorHTML, ExtractorQuery:
	default:
		return fmt.Errorf("link_extractor must be %q, %q or %q, got %q", ExtractorScan, ExtractorHTML, ExtractorQuery, cfg.LinkExtractor)
	}
	return nil
}
