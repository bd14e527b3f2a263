package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/report"
)

// Config holds all configuration for go-dataflow
type Config struct {
	// Solver bounds. Zero means unbounded.
	MaxIterations int `yaml:"max_iterations" env:"GDF_MAX_ITERATIONS"`
	MaxPathEdges  int `yaml:"max_path_edges" env:"GDF_MAX_PATH_EDGES"`

	// VerifyMeet checks the lattice meet laws during IDE solves
	VerifyMeet bool `yaml:"verify_meet" env:"GDF_VERIFY_MEET"`

	// OutputFormat is text, json or msgpack
	OutputFormat string `yaml:"output_format" env:"GDF_OUTPUT_FORMAT"`

	// Logging
	LogLevel string `yaml:"log_level" env:"GDF_LOG_LEVEL"`
	JSONLogs bool   `yaml:"json_logs" env:"GDF_JSON_LOGS"`
	Verbose  bool   `yaml:"verbose" env:"GDF_VERBOSE"`

	// Concurrency bounds the number of problems solved at once by batch
	Concurrency int `yaml:"concurrency" env:"GDF_CONCURRENCY"`

	// Report cache. Caching is off when CacheFile is empty. Cached reports
	// older than CacheMaxAge are solved again; 0 keeps them forever.
	CacheFile   string        `yaml:"cache_file" env:"GDF_CACHE_FILE"`
	CacheSize   int           `yaml:"cache_size" env:"GDF_CACHE_SIZE"`
	CacheMaxAge time.Duration `yaml:"cache_max_age" env:"GDF_CACHE_MAX_AGE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations: 0,
		MaxPathEdges:  0,
		VerifyMeet:    false,
		OutputFormat:  string(report.FormatText),
		LogLevel:      "info",
		JSONLogs:      false,
		Verbose:       false,
		Concurrency:   4,
		CacheFile:     "",
		CacheSize:     256,
		CacheMaxAge:   0,
	}
}

// globalConfigFilePath returns the global config file path (~/.gdf/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gdf/config.yaml"
	}
	return filepath.Join(home, ".gdf", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.gdf/config.yaml)
func projectConfigFilePath() string {
	return ".gdf/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.gdf/config.yaml)
// 3. Global config (~/.gdf/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{globalConfigFilePath(), projectConfigFilePath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative, got %d", c.MaxIterations)
	}
	if c.MaxPathEdges < 0 {
		return fmt.Errorf("max_path_edges must be non-negative, got %d", c.MaxPathEdges)
	}
	if _, err := report.ParseFormat(c.OutputFormat); err != nil {
		return fmt.Errorf("invalid output_format: %w", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", c.CacheSize)
	}
	if c.CacheMaxAge < 0 {
		return fmt.Errorf("cache_max_age must be non-negative, got %s", c.CacheMaxAge)
	}
	return nil
}

// Limits returns the solver bounds.
func (c *Config) Limits() dataflow.Limits {
	return dataflow.Limits{MaxIterations: c.MaxIterations, MaxPathEdges: c.MaxPathEdges}
}

// SolverConfig returns the IDE solver configuration.
func (c *Config) SolverConfig() dataflow.Config {
	return dataflow.Config{Limits: c.Limits(), VerifyMeet: c.VerifyMeet}
}

// Logger builds a logger honoring LogLevel, JSONLogs and Verbose.
// Verbose forces debug output.
func (c *Config) Logger() log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if c.Verbose {
		level = log.DebugLevel
	}
	return log.New(log.LoggerConfig{Level: level, JSONOutput: c.JSONLogs})
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GDF_MAX_ITERATIONS"); v != "" {
		if n := parseInt(v); n >= 0 {
			cfg.MaxIterations = n
		}
	}
	if v := os.Getenv("GDF_MAX_PATH_EDGES"); v != "" {
		if n := parseInt(v); n >= 0 {
			cfg.MaxPathEdges = n
		}
	}
	if v := os.Getenv("GDF_VERIFY_MEET"); v != "" {
		cfg.VerifyMeet = parseBool(v)
	}
	if v := os.Getenv("GDF_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = v
	}
	if v := os.Getenv("GDF_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("GDF_JSON_LOGS"); v != "" {
		cfg.JSONLogs = parseBool(v)
	}
	if v := os.Getenv("GDF_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("GDF_CONCURRENCY"); v != "" {
		if n := parseInt(v); n > 0 {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("GDF_CACHE_FILE"); v != "" {
		cfg.CacheFile = v
	}
	if v := os.Getenv("GDF_CACHE_SIZE"); v != "" {
		if n := parseInt(v); n >= 0 {
			cfg.CacheSize = n
		}
	}
	if v := os.Getenv("GDF_CACHE_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.CacheMaxAge = d
		}
	}
}

// parseInt parses an integer prefix, returning -1 when there is none.
func parseInt(s string) int {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return -1
	}
	return n
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
