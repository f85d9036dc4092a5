package persistence

import (
	"fmt"
)

// PersistenceType represents the type of report storage backend
type PersistenceType string

const (
	PersistenceMemory PersistenceType = "memory"
	PersistenceBolt   PersistenceType = "bolt"
	PersistenceBadger PersistenceType = "badger"
)

// PersistenceConfig holds configuration for report storage
type PersistenceConfig struct {
	// Type of persistence backend
	Type PersistenceType `json:"type" yaml:"type"`

	// Path to database file (bolt) or directory (badger)
	Path string `json:"path" yaml:"path"`

	// Additional options specific to each backend
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// DefaultPersistenceConfig returns a default configuration for the specified type
func DefaultPersistenceConfig(persistenceType PersistenceType, path string) PersistenceConfig {
	config := PersistenceConfig{
		Type:    persistenceType,
		Path:    path,
		Options: make(map[string]interface{}),
	}

	switch persistenceType {
	case PersistenceBolt:
		config.Options = map[string]interface{}{
			"timeout":          "1s",
			"no_grow_sync":     false,
			"no_freelist_sync": false,
			"freelist_type":    "map",
			"read_only":        false,
		}
	case PersistenceBadger:
		config.Options = map[string]interface{}{
			"sync_writes":          false,
			"num_versions_to_keep": 1,
			"read_only":            false,
			"compression":          "none",
			"in_memory":            false,
			"mem_table_size":       64 << 20, // 64MB
			"vlog_percentile":      0.5,
		}
	}

	return config
}

// ValidateConfig validates a persistence configuration
func ValidateConfig(config PersistenceConfig) error {
	switch config.Type {
	case PersistenceMemory:
		return nil
	case PersistenceBolt:
		if config.Path == "" {
			return fmt.Errorf("path is required for %s persistence", config.Type)
		}
	case PersistenceBadger:
		if config.Path == "" && !parseBool(config.Options, "in_memory", false) {
			return fmt.Errorf("path is required for %s persistence", config.Type)
		}
	default:
		return fmt.Errorf("unsupported persistence type: %s", config.Type)
	}

	if p := parseFloat64(config.Options, "vlog_percentile", 0.5); p <= 0 || p >= 1 {
		return fmt.Errorf("vlog_percentile must be in (0, 1), got %g", p)
	}
	switch parseString(config.Options, "freelist_type", "map") {
	case "map", "hashmap", "array":
	default:
		return fmt.Errorf("unsupported freelist_type: %v", config.Options["freelist_type"])
	}
	switch parseString(config.Options, "compression", "none") {
	case "none", "snappy", "zstd":
	default:
		return fmt.Errorf("unsupported compression: %v", config.Options["compression"])
	}
	return nil
}
