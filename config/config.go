package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dshills/nnbench/api"
	"github.com/dshills/nnbench/core"
	"github.com/dshills/nnbench/logging"
	"github.com/dshills/nnbench/persistence"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the home directory when no path is given
const DefaultFileName = ".nnbench.yml"

// envPrefix namespaces environment overrides
const envPrefix = "NNBENCH_"

// Config represents the complete nnbench configuration
type Config struct {
	// Benchmark holds the run defaults that CLI flags and API bodies override
	Benchmark core.RunConfig `yaml:"benchmark" json:"benchmark"`

	// Persistence configures where reports are stored
	Persistence persistence.PersistenceConfig `yaml:"persistence" json:"persistence"`

	// Server configuration
	Server api.ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LoggingConfig contains logging configuration
type LoggingConfig = logging.Config

// LoadConfig loads configuration from various sources with the following precedence:
// 1. Command-line flags (applied by the caller)
// 2. Environment variables
// 3. Configuration file (~/.nnbench.yml or specified path)
// 4. Default values
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	explicit := configPath != ""
	if !explicit {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(homeDir, DefaultFileName)
		}
	}

	if configPath != "" {
		if err := loadConfigFromFile(configPath, config); err != nil {
			// A missing default file is fine, a missing named one is not.
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		}
	}

	if err := loadConfigFromEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a YAML file
func loadConfigFromFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, config)
}

// loadConfigFromEnv applies NNBENCH_* environment variables
func loadConfigFromEnv(config *Config) error {
	// Server configuration
	if host := getenv("HOST"); host != "" {
		config.Server.Host = host
	}
	if port := getenv("PORT"); port != "" {
		p, err := parseInt(port)
		if err != nil {
			return fmt.Errorf("invalid %sPORT: %w", envPrefix, err)
		}
		config.Server.Port = p
	}

	// Persistence configuration
	if backend := getenv("PERSISTENCE_BACKEND"); backend != "" {
		config.Persistence.Type = persistence.PersistenceType(backend)
	}
	if path := getenv("PERSISTENCE_PATH"); path != "" {
		config.Persistence.Path = path
	}

	// Logging configuration
	if level := getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	// Benchmark configuration
	if points := getenv("POINTS"); points != "" {
		n, err := parseInt(points)
		if err != nil {
			return fmt.Errorf("invalid %sPOINTS: %w", envPrefix, err)
		}
		config.Benchmark.NumPoints = n
	}
	if queries := getenv("QUERIES"); queries != "" {
		n, err := parseInt(queries)
		if err != nil {
			return fmt.Errorf("invalid %sQUERIES: %w", envPrefix, err)
		}
		config.Benchmark.NumQueries = n
	}
	if locators := getenv("LOCATORS"); locators != "" {
		config.Benchmark.Locators = SplitList(locators)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	reportPath := "nnbench-reports.db"
	if homeDir, err := os.UserHomeDir(); err == nil {
		reportPath = filepath.Join(homeDir, ".nnbench", "reports.db")
	}

	return &Config{
		Benchmark:   core.DefaultRunConfig(),
		Persistence: persistence.DefaultPersistenceConfig(persistence.PersistenceBolt, reportPath),
		Server:      api.DefaultServerConfig(),
		Logging:     logging.DefaultConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", c.Server.Port)
	}

	if err := core.ValidateRunConfig(c.Benchmark); err != nil {
		return fmt.Errorf("benchmark config validation failed: %w", err)
	}

	if err := persistence.ValidateConfig(c.Persistence); err != nil {
		return fmt.Errorf("persistence config validation failed: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}

	return nil
}

// SplitList splits a comma separated list, dropping blanks
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenv(key string) string {
	return os.Getenv(envPrefix + key)
}

// parseInt parses a decimal integer
func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
