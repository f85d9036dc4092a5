package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/nnbench/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nnbench.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000000, cfg.Benchmark.NumPoints)
	assert.Equal(t, int64(4012), cfg.Benchmark.QuerySeed)
	assert.Equal(t, persistence.PersistenceBolt, cfg.Persistence.Type)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Benchmark, cfg.Benchmark)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, `
benchmark:
  num_points: 5000
  num_queries: 50
  locators: [kdtree, vptree]
  verify: true
  options:
    points_per_bucket: 8
persistence:
  type: memory
server:
  port: 9090
  run_timeout: 30s
logging:
  level: debug
  format: console
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Benchmark.NumPoints)
	assert.Equal(t, 50, cfg.Benchmark.NumQueries)
	assert.Equal(t, []string{"kdtree", "vptree"}, cfg.Benchmark.Locators)
	assert.True(t, cfg.Benchmark.Verify)
	assert.Equal(t, 8, cfg.Benchmark.Options.PointsPerBucket)
	// Unset fields keep their defaults.
	assert.Equal(t, 1, cfg.Benchmark.K)
	assert.Equal(t, int64(4012), cfg.Benchmark.QuerySeed)

	assert.Equal(t, persistence.PersistenceMemory, cfg.Persistence.Type)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RunTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, "server:\n  port: 9090\n")

	t.Setenv("NNBENCH_PORT", "7070")
	t.Setenv("NNBENCH_HOST", "127.0.0.1")
	t.Setenv("NNBENCH_PERSISTENCE_BACKEND", "badger")
	t.Setenv("NNBENCH_PERSISTENCE_PATH", "/tmp/nnbench-badger")
	t.Setenv("NNBENCH_POINTS", "2500")
	t.Setenv("NNBENCH_LOCATORS", "static, flat")
	t.Setenv("NNBENCH_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, persistence.PersistenceBadger, cfg.Persistence.Type)
	assert.Equal(t, "/tmp/nnbench-badger", cfg.Persistence.Path)
	assert.Equal(t, 2500, cfg.Benchmark.NumPoints)
	assert.Equal(t, []string{"static", "flat"}, cfg.Benchmark.Locators)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	t.Run("missing named file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "benchmark: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "benchmark:\n  num_points: -1\n"))
		assert.Error(t, err)
	})

	t.Run("bad port env", func(t *testing.T) {
		t.Setenv("NNBENCH_PORT", "eighty")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("trailing garbage in numbers", func(t *testing.T) {
		t.Setenv("NNBENCH_PORT", "80abc")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("bad points env", func(t *testing.T) {
		t.Setenv("NNBENCH_POINTS", "1e6")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "logging:\n  level: chatty\n"))
		assert.Error(t, err)
	})
}

func TestParseInt(t *testing.T) {
	n, err := parseInt(" 8080 ")
	require.NoError(t, err)
	assert.Equal(t, 8080, n)

	for _, s := range []string{"80abc", "", "8.5", "0x10"} {
		_, err := parseInt(s)
		assert.Error(t, err, s)
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"kdtree", "static"}, SplitList(" kdtree, ,static,"))
	assert.Nil(t, SplitList(""))
}
