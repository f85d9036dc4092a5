package migration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/nnbench/core"
	"github.com/dshills/nnbench/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(id string, offset time.Duration) core.Report {
	started := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC).Add(offset)
	agreement := 1.0
	cfg := core.DefaultRunConfig()
	cfg.NumPoints = 1000
	cfg.NumQueries = 10
	return core.Report{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Config:     cfg,
		Results: []core.LocatorResult{{
			Locator:   "bucket",
			Points:    1000,
			Queries:   10,
			BuildTime: 3 * time.Millisecond,
			QueryTime: 150 * time.Microsecond,
			Latency:   core.LatencyStats{Avg: 15 * time.Microsecond, P99: 40 * time.Microsecond},
			Samples:   []int{17, 402, 999},
			Agreement: &agreement,
		}},
	}
}

func seededStore(t *testing.T, ids ...string) *persistence.MemoryStore {
	t.Helper()
	store := persistence.NewMemoryStore()
	for i, id := range ids {
		require.NoError(t, store.SaveReport(context.Background(), sampleReport(id, time.Duration(i)*time.Minute)))
	}
	return store
}

func TestExportImportRoundTrip(t *testing.T) {
	for _, format := range []ExportFormat{ExportFormatJSON, ExportFormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			ctx := context.Background()
			dir := filepath.Join(t.TempDir(), "export")

			src := seededStore(t, "run-a", "run-b")
			options := DefaultExportOptions(dir)
			options.Format = format

			metadata, err := NewExporter(src, nil).Export(ctx, options)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"run-a", "run-b"}, metadata.Reports)
			assert.FileExists(t, filepath.Join(dir, "run-a."+string(format)))
			assert.FileExists(t, filepath.Join(dir, metadataFile))

			dst := persistence.NewMemoryStore()
			result, err := NewImporter(dst, nil).Import(ctx, ImportOptions{InputDirectory: dir, ValidateData: true})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"run-a", "run-b"}, result.Imported)
			assert.Empty(t, result.Skipped)
			assert.Equal(t, format, result.Format)

			want := sampleReport("run-a", 0)
			got, err := dst.LoadReport(ctx, "run-a")
			require.NoError(t, err)
			assert.True(t, want.StartedAt.Equal(got.StartedAt))
			assert.Equal(t, want.Config, got.Config)
			require.Len(t, got.Results, 1)
			assert.Equal(t, want.Results[0].Samples, got.Results[0].Samples)
			assert.Equal(t, want.Results[0].BuildTime, got.Results[0].BuildTime)
			assert.Equal(t, want.Results[0].Latency, got.Results[0].Latency)
			require.NotNil(t, got.Results[0].Agreement)
			assert.Equal(t, 1.0, *got.Results[0].Agreement)
		})
	}
}

func TestImportSkipsExistingUnlessOverwrite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := NewExporter(seededStore(t, "run-a"), nil).Export(ctx, DefaultExportOptions(dir))
	require.NoError(t, err)

	dst := seededStore(t, "run-a")
	importer := NewImporter(dst, nil)

	result, err := importer.Import(ctx, ImportOptions{InputDirectory: dir})
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Equal(t, []string{"run-a"}, result.Skipped)

	result, err = importer.Import(ctx, ImportOptions{InputDirectory: dir, OverwriteData: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a"}, result.Imported)
}

func TestExportSelectedReports(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	options := DefaultExportOptions(dir)
	options.Reports = []string{"run-b"}
	metadata, err := NewExporter(seededStore(t, "run-a", "run-b"), nil).Export(ctx, options)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-b"}, metadata.Reports)

	_, err = os.Stat(filepath.Join(dir, "run-a.json"))
	assert.True(t, os.IsNotExist(err))

	options.Reports = []string{"missing"}
	_, err = NewExporter(seededStore(t), nil).Export(ctx, options)
	assert.ErrorIs(t, err, core.ErrReportNotFound)
}

func TestImportValidation(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	bad := sampleReport("run-bad", 0)
	bad.Results[0].Samples = []int{1000}
	src := persistence.NewMemoryStore()
	require.NoError(t, src.SaveReport(ctx, bad))

	_, err := NewExporter(src, nil).Export(ctx, DefaultExportOptions(dir))
	require.NoError(t, err)

	_, err = NewImporter(persistence.NewMemoryStore(), nil).Import(ctx, ImportOptions{InputDirectory: dir, ValidateData: true})
	assert.Error(t, err)

	_, err = NewImporter(persistence.NewMemoryStore(), nil).Import(ctx, ImportOptions{InputDirectory: dir})
	assert.NoError(t, err)
}

func TestReportIDsStayInsideDirectory(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	exportDir := filepath.Join(base, "export")
	require.NoError(t, os.MkdirAll(exportDir, 0o755))

	_, err := NewExporter(seededStore(t, "run-a"), nil).Export(ctx, ExportOptions{
		Format:          ExportFormatJSON,
		Reports:         []string{"../escape"},
		OutputDirectory: exportDir,
	})
	assert.ErrorContains(t, err, "path or key separators")
	assert.NoFileExists(t, filepath.Join(base, "escape.json"))

	// A hand-edited metadata file must not reach files outside the export.
	_, err = NewExporter(seededStore(t, "escape"), nil).Export(ctx, DefaultExportOptions(base))
	require.NoError(t, err)
	require.NoError(t, writeJSON(filepath.Join(exportDir, metadataFile), ExportMetadata{
		Version:    formatVersion,
		ExportedAt: time.Now(),
		Format:     ExportFormatJSON,
		Reports:    []string{"../escape"},
	}))

	store := persistence.NewMemoryStore()
	_, err = NewImporter(store, nil).Import(ctx, ImportOptions{InputDirectory: exportDir})
	assert.ErrorContains(t, err, "path or key separators")

	list, err := store.ListReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInvalidOptions(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	_, err := NewExporter(store, nil).Export(ctx, ExportOptions{Format: ExportFormatJSON})
	assert.Error(t, err)

	_, err = NewExporter(store, nil).Export(ctx, ExportOptions{Format: "xml", OutputDirectory: t.TempDir()})
	assert.Error(t, err)

	_, err = NewImporter(store, nil).Import(ctx, ImportOptions{})
	assert.Error(t, err)

	_, err = NewImporter(store, nil).Import(ctx, ImportOptions{InputDirectory: t.TempDir()})
	assert.Error(t, err)
}

func TestListAvailableExports(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	_, err := NewExporter(seededStore(t, "run-a"), nil).Export(ctx, DefaultExportOptions(filepath.Join(base, "first")))
	require.NoError(t, err)
	_, err = NewExporter(seededStore(t, "run-a", "run-b"), nil).Export(ctx, DefaultExportOptions(filepath.Join(base, "second")))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(base, "unrelated"), 0755))

	exports, err := ListAvailableExports(base)
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.Equal(t, filepath.Join(base, "second"), exports[0].Path)
	assert.Equal(t, 2, exports[0].Reports)
}

func TestCopyBetweenStores(t *testing.T) {
	ctx := context.Background()

	src := seededStore(t, "run-a", "run-b", "run-c")
	dst, err := persistence.NewBoltStore(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, dst.SaveReport(ctx, sampleReport("run-b", 0)))

	copied, err := Copy(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, copied)

	list, err := dst.ListReports(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
