package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig writes a config that keeps reports and logs inside a temp dir
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	content := fmt.Sprintf(`
benchmark:
  num_points: 400
  num_queries: 12
  sample_count: 10
persistence:
  type: bolt
  path: %s
logging:
  level: info
  format: json
  output: %s
`, filepath.Join(dir, "reports.db"), filepath.Join(dir, "nnbench.log"))

	path := filepath.Join(dir, "nnbench.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunPrintsReferenceLines(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, "--config", cfg, "run", "--locators", "kdtree,static")
	require.NoError(t, err)

	assert.Contains(t, out, "KDTree\nBuilding locator.\nCreating time of 400 points in ")
	assert.Contains(t, out, "StaticPointLocator\nBuilding locator.\n")
	assert.Equal(t, 2, strings.Count(out, "Searched for 12 points in "))
	assert.NotContains(t, out, "Saved report")
}

func TestRunSaveAndManageReports(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, "--config", cfg, "run",
		"--points", "300", "--queries", "5", "--locators", "bucket", "--verify", "--save")
	require.NoError(t, err)

	m := regexp.MustCompile(`Saved report (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	out, err = execute(t, "--config", cfg, "reports", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "[bucket]")

	out, err = execute(t, "--config", cfg, "reports", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "bucket")

	out, err = execute(t, "--config", cfg, "reports", "show", "--json", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "`+id+`"`)
	assert.Contains(t, out, `"num_points": 300`)

	out, err = execute(t, "--config", cfg, "reports", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted report "+id)

	_, err = execute(t, "--config", cfg, "reports", "show", id)
	assert.Error(t, err)
}

func TestRunRejectsBadFlags(t *testing.T) {
	cfg := testConfig(t)

	_, err := execute(t, "--config", cfg, "run", "--locators", "octree")
	assert.Error(t, err)

	_, err = execute(t, "--config", cfg, "run", "--k", "0")
	assert.Error(t, err)
}

func TestLocatorsCommand(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, "--config", cfg, "locators")
	require.NoError(t, err)
	assert.Contains(t, out, "* kdtree")
	assert.Contains(t, out, "* static")
	assert.Contains(t, out, "  vptree")
	assert.Contains(t, out, "  flat")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "none.yml"), "locators")
	assert.Error(t, err)
}

func TestExportImportAndCopy(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()

	out, err := execute(t, "--config", cfg, "run", "--points", "200", "--queries", "4", "--locators", "flat", "--save")
	require.NoError(t, err)
	m := regexp.MustCompile(`Saved report (\S+)`).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	exportDir := filepath.Join(dir, "export")
	out, err = execute(t, "--config", cfg, "reports", "export", exportDir, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 reports")
	assert.FileExists(t, filepath.Join(exportDir, id+".yaml"))

	out, err = execute(t, "--config", cfg, "reports", "import", exportDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 reports, skipped 1")

	out, err = execute(t, "--config", cfg, "reports", "copy", "--to-type", "badger", "--to-path", filepath.Join(dir, "badger"))
	require.NoError(t, err)
	assert.Contains(t, out, "Copied 1 reports")
}

func TestRunWithProfiles(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(t.TempDir(), "profiles")

	_, err := execute(t, "--config", cfg, "run", "--locators", "vptree", "--profile-dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "cpu.prof"))
	assert.FileExists(t, filepath.Join(dir, "heap.prof"))
}
