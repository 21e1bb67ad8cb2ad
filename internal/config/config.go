package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the cmsdex API and worker configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Queue    QueueConfig    `yaml:"queue"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Export   ExportConfig   `yaml:"export"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Worker   WorkerConfig   `yaml:"worker"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig describes the record hashes and the FT index over them.
type IndexConfig struct {
	Name       string   `yaml:"name"`
	KeyPrefix  string   `yaml:"key_prefix"`
	TextFields []string `yaml:"text_fields"`
	TagFields  []string `yaml:"tag_fields"`
}

// SearchConfig holds search gateway settings.
type SearchConfig struct {
	PageSize int           `yaml:"page_size"`
	Breaker  BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the index.
type BreakerConfig struct {
	MaxRequests      uint32  `yaml:"max_requests"`
	IntervalSec      int     `yaml:"interval_sec"`
	TimeoutSec       int     `yaml:"timeout_sec"`
	FailureThreshold float64 `yaml:"failure_threshold"`
	MinRequests      uint32  `yaml:"min_requests"`
}

// QueueConfig holds ingestion queue settings.
type QueueConfig struct {
	Key             string `yaml:"key"`
	BlockTimeoutSec int    `yaml:"block_timeout_sec"`
}

// IngestConfig holds date range dispatch settings.
type IngestConfig struct {
	MaxRangeDays int `yaml:"max_range_days"`
}

// ExportConfig holds spreadsheet export settings.
type ExportConfig struct {
	Dir     string   `yaml:"dir"`
	Columns []string `yaml:"columns"`
}

// UpstreamConfig points at the CMS the worker fetches records from.
type UpstreamConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// WorkerConfig holds ingestion worker settings.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
	MaxRetries  int `yaml:"max_retries"`
	RetryBaseMs int `yaml:"retry_base_ms"`
	RetryMaxSec int `yaml:"retry_max_sec"`
	MetricsPort int `yaml:"metrics_port"`
	// TaskTimeoutSec caps one task, retries included.
	TaskTimeoutSec int `yaml:"task_timeout_sec"`
	ShutdownSec    int `yaml:"shutdown_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes raw YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120 // exports stream large files
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.Name == "" {
		c.Index.Name = "cms:records:idx"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "cms:record:"
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 500
	}
	if c.Search.Breaker.MaxRequests == 0 {
		c.Search.Breaker.MaxRequests = 3
	}
	if c.Search.Breaker.IntervalSec <= 0 {
		c.Search.Breaker.IntervalSec = 30
	}
	if c.Search.Breaker.TimeoutSec <= 0 {
		c.Search.Breaker.TimeoutSec = 15
	}
	if c.Search.Breaker.FailureThreshold <= 0 {
		c.Search.Breaker.FailureThreshold = 0.6
	}
	if c.Search.Breaker.MinRequests == 0 {
		c.Search.Breaker.MinRequests = 5
	}
	if c.Queue.Key == "" {
		c.Queue.Key = "cms:ingest:tasks"
	}
	if c.Queue.BlockTimeoutSec <= 0 {
		c.Queue.BlockTimeoutSec = 5
	}
	if c.Ingest.MaxRangeDays <= 0 {
		c.Ingest.MaxRangeDays = 3660
	}
	if c.Export.Dir == "" {
		c.Export.Dir = filepath.Join(os.TempDir(), "cmsdex-exports")
	}
	if len(c.Export.Columns) == 0 {
		c.Export.Columns = []string{"title", "section", "author", "published_at", "url", "summary"}
	}
	if c.Upstream.TimeoutSec <= 0 {
		c.Upstream.TimeoutSec = 30
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 4
	}
	if c.Worker.MaxRetries <= 0 {
		c.Worker.MaxRetries = 3
	}
	if c.Worker.RetryBaseMs <= 0 {
		c.Worker.RetryBaseMs = 500
	}
	if c.Worker.RetryMaxSec <= 0 {
		c.Worker.RetryMaxSec = 30
	}
	if c.Worker.MetricsPort <= 0 {
		c.Worker.MetricsPort = 9091
	}
	if c.Worker.TaskTimeoutSec <= 0 {
		c.Worker.TaskTimeoutSec = 300
	}
	if c.Worker.ShutdownSec <= 0 {
		c.Worker.ShutdownSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Search.Breaker.FailureThreshold > 1 {
		return fmt.Errorf("search.breaker.failure_threshold must be in (0, 1], got %v",
			c.Search.Breaker.FailureThreshold)
	}
	seen := map[string]bool{"id": true}
	for _, col := range c.Export.Columns {
		if col == "" || seen[col] {
			return fmt.Errorf("export.columns: %q is empty or duplicated", col)
		}
		seen[col] = true
	}
	if c.Upstream.BaseURL != "" &&
		!strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		return fmt.Errorf("upstream.base_url must be an http(s) URL, got %q", c.Upstream.BaseURL)
	}
	return nil
}

// Seconds converts an integer seconds setting to a duration.
func Seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
