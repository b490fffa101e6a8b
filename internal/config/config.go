package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yiblet/kopa/internal/clipboard"
	"github.com/yiblet/kopa/internal/logging"
)

// Limits on configurable values.
const (
	MinPollInterval = 50
	MaxPollInterval = 60_000
	MaxRetryBackoff = 600_000
	MaxPageSize     = 1000
)

// Config represents the kopa configuration
type Config struct {
	DataDir        string `yaml:"data_dir,omitempty"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	RetryBackoffMs int    `yaml:"retry_backoff_ms"`
	PageSize       int    `yaml:"page_size"`
	Clipboard      string `yaml:"clipboard"`
	LogLevel       string `yaml:"log_level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PollIntervalMs: 300,
		RetryBackoffMs: 1000,
		PageSize:       50,
		Clipboard:      clipboard.BackendSystem,
		LogLevel:       "info",
	}
}

// PollInterval is PollIntervalMs as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// RetryBackoff is RetryBackoffMs as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// ConfigManager manages configuration persistence
type ConfigManager struct {
	configPath string
}

// DefaultConfigPath returns ~/.config/kopa/config.yaml, honouring
// XDG_CONFIG_HOME.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "kopa", "config.yaml"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "kopa", "config.yaml"), nil
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() (*ConfigManager, error) {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return &ConfigManager{configPath: configPath}, nil
}

// NewConfigManagerWithPath creates a config manager with custom config path
func NewConfigManagerWithPath(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// Load reads the configuration from file, or returns default if file doesn't exist
func (cm *ConfigManager) Load() (*Config, error) {
	data, err := os.ReadFile(cm.configPath)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Fields missing from the file keep their defaults
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save writes the configuration to file
func (cm *ConfigManager) Save(config *Config) error {
	if err := validate(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configDir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write then rename so a watcher never sees a half-written file
	tmp := cm.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, cm.configPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validate(config *Config) error {
	if config.PollIntervalMs < MinPollInterval || config.PollIntervalMs > MaxPollInterval {
		return fmt.Errorf("poll_interval_ms must be between %d and %d", MinPollInterval, MaxPollInterval)
	}

	if config.RetryBackoffMs <= 0 || config.RetryBackoffMs > MaxRetryBackoff {
		return fmt.Errorf("retry_backoff_ms must be between 1 and %d", MaxRetryBackoff)
	}

	if config.PageSize <= 0 {
		return fmt.Errorf("page_size must be greater than 0")
	}

	if config.PageSize > MaxPageSize {
		return fmt.Errorf("page_size cannot exceed %d", MaxPageSize)
	}

	switch config.Clipboard {
	case clipboard.BackendSystem, clipboard.BackendNative:
	default:
		return fmt.Errorf("clipboard must be %q or %q, got %q", clipboard.BackendSystem, clipboard.BackendNative, config.Clipboard)
	}

	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}

	return nil
}

// GetConfigPath returns the path to the config file
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}
	return n, nil
}

// Update modifies a specific configuration value
func (cm *ConfigManager) Update(key, value string) error {
	config, err := cm.Load()
	if err != nil {
		return err
	}

	switch key {
	case "data-dir":
		config.DataDir = value
	case "poll-interval-ms":
		if config.PollIntervalMs, err = parseInt(key, value); err != nil {
			return err
		}
	case "retry-backoff-ms":
		if config.RetryBackoffMs, err = parseInt(key, value); err != nil {
			return err
		}
	case "page-size":
		if config.PageSize, err = parseInt(key, value); err != nil {
			return err
		}
	case "clipboard":
		config.Clipboard = value
	case "log-level":
		config.LogLevel = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	return cm.Save(config)
}

// Get returns the value for a specific configuration key
func (cm *ConfigManager) Get(key string) (string, error) {
	values, err := cm.List()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return v, nil
}

// List returns all configuration keys and values
func (cm *ConfigManager) List() (map[string]string, error) {
	config, err := cm.Load()
	if err != nil {
		return nil, err
	}

	result := map[string]string{
		"data-dir":         config.DataDir,
		"poll-interval-ms": strconv.Itoa(config.PollIntervalMs),
		"retry-backoff-ms": strconv.Itoa(config.RetryBackoffMs),
		"page-size":        strconv.Itoa(config.PageSize),
		"clipboard":        config.Clipboard,
		"log-level":        config.LogLevel,
	}

	if result["data-dir"] == "" {
		result["data-dir"] = "[default]"
	}

	return result, nil
}

// Keys returns the configuration keys, sorted.
func Keys() []string {
	keys := []string{"data-dir", "poll-interval-ms", "retry-backoff-ms", "page-size", "clipboard", "log-level"}
	sort.Strings(keys)
	return keys
}
