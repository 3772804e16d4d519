package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/scanforge/scanforge/pkg/utils"
)

// Configuration represents the complete performance-core configuration
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Cache      CacheConfig      `yaml:"cache"`
	Pools      PoolsConfig      `yaml:"pools"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsPort int    `yaml:"metrics_port"`
}

// CacheConfig represents result cache settings
type CacheConfig struct {
	MaxEntries   int     `yaml:"max_entries"`
	MaxMemoryMB  int     `yaml:"max_memory_mb"`
	Directory    string  `yaml:"directory"`
	SnapshotFile string  `yaml:"snapshot_file"`
	MaxAgeHours  float64 `yaml:"max_age_hours"`
	Compression  bool    `yaml:"compression"`
}

// PoolsConfig sizes the hot-path buffer pools
type PoolsConfig struct {
	TextBufferCapacity    int `yaml:"text_buffer_capacity"`
	FindingBufferCapacity int `yaml:"finding_buffer_capacity"`
	PathBufferCapacity    int `yaml:"path_buffer_capacity"`
	MaxIdlePerPool        int `yaml:"max_idle_per_pool"`
}

// MonitoringConfig represents metrics settings
type MonitoringConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	Namespace      string `yaml:"namespace"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			LogFile:     "",
			MetricsPort: 9410,
		},
		Cache: CacheConfig{
			MaxEntries:   1000,
			MaxMemoryMB:  100,
			Directory:    ".scanforge/cache",
			SnapshotFile: "results.json",
			MaxAgeHours:  24 * 7,
			Compression:  false,
		},
		Pools: PoolsConfig{
			TextBufferCapacity:    64 * 1024,
			FindingBufferCapacity: 64,
			PathBufferCapacity:    256,
			MaxIdlePerPool:        32,
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: false,
			Namespace:      "scanforge",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	// Global settings
	if val := os.Getenv("SCANFORGE_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("SCANFORGE_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}
	if val := os.Getenv("SCANFORGE_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.MetricsPort = port
		}
	}

	// Cache settings
	if val := os.Getenv("SCANFORGE_CACHE_MAX_ENTRIES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.MaxEntries = n
		}
	}
	if val := os.Getenv("SCANFORGE_CACHE_MAX_MEMORY_MB"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cache.MaxMemoryMB = n
		}
	}
	if val := os.Getenv("SCANFORGE_CACHE_DIR"); val != "" {
		c.Cache.Directory = val
	}
	if val := os.Getenv("SCANFORGE_CACHE_MAX_AGE_HOURS"); val != "" {
		if hours, err := strconv.ParseFloat(val, 64); err == nil {
			c.Cache.MaxAgeHours = hours
		}
	}
	if val := os.Getenv("SCANFORGE_CACHE_COMPRESSION"); val != "" {
		c.Cache.Compression = strings.ToLower(val) == "true"
	}

	// Monitoring settings
	if val := os.Getenv("SCANFORGE_METRICS_ENABLED"); val != "" {
		c.Monitoring.MetricsEnabled = strings.ToLower(val) == "true"
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_entries must be greater than 0")
	}

	if c.Cache.MaxMemoryMB <= 0 {
		return fmt.Errorf("cache max_memory_mb must be greater than 0")
	}

	if c.Cache.MaxAgeHours < 0 {
		return fmt.Errorf("cache max_age_hours cannot be negative")
	}

	if c.Pools.MaxIdlePerPool < 0 {
		return fmt.Errorf("pools max_idle_per_pool cannot be negative")
	}

	// The snapshot file must stay inside the cache directory.
	if err := utils.ValidatePath(c.Cache.SnapshotFile, false); err != nil {
		return fmt.Errorf("invalid cache snapshot_file: %w", err)
	}
	if err := utils.ValidatePathWithinBase(c.Cache.Directory, c.Cache.SnapshotFile); err != nil {
		return fmt.Errorf("invalid cache snapshot_file: %w", err)
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// SnapshotPath returns the full path of the cache snapshot file, refusing a
// snapshot file that would land outside the cache directory.
func (c *Configuration) SnapshotPath() (string, error) {
	path, err := utils.SecureJoin(c.Cache.Directory, c.Cache.SnapshotFile)
	if err != nil {
		return "", fmt.Errorf("invalid cache snapshot_file: %w", err)
	}
	return path, nil
}
