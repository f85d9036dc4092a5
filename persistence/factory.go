package persistence

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/dshills/nnbench/core"
	"go.etcd.io/bbolt"
)

// DefaultFactory creates report stores from configuration
type DefaultFactory struct{}

// NewDefaultFactory creates a new default persistence factory
func NewDefaultFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// CreateStore creates a report store based on configuration
func (f *DefaultFactory) CreateStore(config PersistenceConfig) (core.ReportStore, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid persistence configuration: %w", err)
	}

	switch config.Type {
	case PersistenceMemory:
		return NewMemoryStore(), nil
	case PersistenceBolt:
		return newBoltStore(config.Path, boltOptions(config.Options))
	case PersistenceBadger:
		opts := badgerOptions(config.Path, config.Options)
		return newBadgerStore(opts, parseFloat64(config.Options, "vlog_percentile", 0.5))
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", config.Type)
	}
}

// boltOptions maps the option map onto bbolt options
func boltOptions(opts map[string]interface{}) *bbolt.Options {
	freelist := bbolt.FreelistMapType
	if parseString(opts, "freelist_type", "map") == "array" {
		freelist = bbolt.FreelistArrayType
	}
	return &bbolt.Options{
		Timeout:        parseDuration(opts, "timeout", time.Second),
		NoGrowSync:     parseBool(opts, "no_grow_sync", false),
		NoFreelistSync: parseBool(opts, "no_freelist_sync", false),
		FreelistType:   freelist,
		ReadOnly:       parseBool(opts, "read_only", false),
	}
}

// badgerOptions maps the option map onto badger options
func badgerOptions(path string, opts map[string]interface{}) badger.Options {
	o := badger.DefaultOptions(path).
		WithSyncWrites(parseBool(opts, "sync_writes", false)).
		WithNumVersionsToKeep(parseInt(opts, "num_versions_to_keep", 1)).
		WithReadOnly(parseBool(opts, "read_only", false)).
		WithMemTableSize(parseInt64(opts, "mem_table_size", 64<<20))

	switch parseString(opts, "compression", "none") {
	case "snappy":
		o = o.WithCompression(options.Snappy)
	case "zstd":
		o = o.WithCompression(options.ZSTD)
	default:
		o = o.WithCompression(options.None)
	}

	if parseBool(opts, "in_memory", false) {
		// Disk-less mode refuses a directory.
		o = o.WithDir("").WithValueDir("").WithInMemory(true)
	}
	return o
}

// Helper function to parse duration from config options
func parseDuration(options map[string]interface{}, key string, defaultValue time.Duration) time.Duration {
	if val, exists := options[key]; exists {
		switch v := val.(type) {
		case string:
			if duration, err := time.ParseDuration(v); err == nil {
				return duration
			}
		case time.Duration:
			return v
		}
	}
	return defaultValue
}

// Helper function to parse bool from config options
func parseBool(options map[string]interface{}, key string, defaultValue bool) bool {
	if val, exists := options[key]; exists {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultValue
}

// Helper function to parse int from config options
func parseInt(options map[string]interface{}, key string, defaultValue int) int {
	if val, exists := options[key]; exists {
		if i, ok := val.(int); ok {
			return i
		}
		if f, ok := val.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}

// Helper function to parse int64 from config options
func parseInt64(options map[string]interface{}, key string, defaultValue int64) int64 {
	if val, exists := options[key]; exists {
		if i, ok := val.(int64); ok {
			return i
		}
		if f, ok := val.(float64); ok {
			return int64(f)
		}
		if i, ok := val.(int); ok {
			return int64(i)
		}
	}
	return defaultValue
}

// Helper function to parse float64 from config options
func parseFloat64(options map[string]interface{}, key string, defaultValue float64) float64 {
	if val, exists := options[key]; exists {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}
	return defaultValue
}

// Helper function to parse string from config options
func parseString(options map[string]interface{}, key string, defaultValue string) string {
	if val, exists := options[key]; exists {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultValue
}
