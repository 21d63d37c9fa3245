package config

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/juju/errors"
)

// Config represents the main configuration file structure
type Config struct {
	Locale       string                `json:"locale"` // "auto" or ISO format (e.g., "ko-KR", "en-US")
	Prompt       PromptConfig          `json:"prompt"`
	Runner       RunnerConfig          `json:"runner"`
	Metrics      MetricsConfig         `json:"metrics"`
	Repositories map[string]Repository `json:"repositories"`
}

// PromptConfig controls confirmation prompts
type PromptConfig struct {
	AssumeYes bool `json:"assumeYes"` // Skip confirmation prompts (default: false)
}

// RunnerConfig controls the local job runner
type RunnerConfig struct {
	Concurrency int `json:"concurrency"` // Parallel remote checks (default: 4)
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Listen string `json:"listen,omitempty"` // e.g. "127.0.0.1:9310", empty disables
}

// Repository represents a tracked repository
type Repository struct {
	Source          RepositorySource `json:"source"`
	InstallLocation string           `json:"installLocation"`
	LastUpdated     string           `json:"lastUpdated"`
	RollbackCommit  string           `json:"rollbackCommit,omitempty"` // set while an upgrade is unfinished
}

// RepositorySource describes where a repository is fetched from
type RepositorySource struct {
	URL    string `json:"url"`
	Branch string `json:"branch,omitempty"` // empty means the remote HEAD
}

const defaultConcurrency = 4

var (
	cfg     *Config
	cfgOnce sync.Once
	cfgMu   sync.RWMutex
)

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Locale: "auto", // default: auto-detect system locale
		Runner: RunnerConfig{
			Concurrency: defaultConcurrency,
		},
		Repositories: make(map[string]Repository),
	}
}

// Load loads the configuration from file
func Load() (*Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile loads the configuration from path, returning defaults when
// the file does not exist
func LoadFile(path string) (*Config, error) {
	cfgMu.RLock()
	defer cfgMu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(), nil
		}
		return nil, errors.Annotatef(err, "reading %s", path)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, errors.Annotatef(err, "parsing %s", path)
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	// Ensure maps are initialized
	if c.Repositories == nil {
		c.Repositories = make(map[string]Repository)
	}

	// Set default locale if empty
	if c.Locale == "" {
		c.Locale = "auto"
	}

	if c.Runner.Concurrency <= 0 {
		c.Runner.Concurrency = defaultConcurrency
	}
}

// Save saves the configuration to file
func Save(config *Config) error {
	return SaveFile(ConfigPath(), config)
}

// SaveFile writes the configuration to path
func SaveFile(path string, config *Config) error {
	cfgMu.Lock()
	defer cfgMu.Unlock()

	if err := EnsureDir(dirOf(path)); err != nil {
		return errors.Trace(err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}

	return errors.Trace(os.WriteFile(path, data, 0644))
}

// Get returns the current configuration (singleton)
func Get() *Config {
	cfgOnce.Do(func() {
		var err error
		cfg, err = Load()
		if err != nil {
			logger.Warningf("using default configuration: %v", err)
			cfg = NewConfig()
		}
	})
	return cfg
}

// GetLocale returns the configured locale
func GetLocale() string {
	return Get().Locale
}

// Set updates a single configuration key and saves
func Set(key, value string) error {
	config := Get()
	if err := config.Set(key, value); err != nil {
		return err
	}
	return Save(config)
}
