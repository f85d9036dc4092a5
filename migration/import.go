package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dshills/nnbench/core"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ImportResult contains the results of an import operation
type ImportResult struct {
	ExportedAt time.Time    `json:"exported_at"`
	Format     ExportFormat `json:"format"`
	Imported   []string     `json:"imported"`
	Skipped    []string     `json:"skipped"`
}

// Importer loads exported reports into a store
type Importer struct {
	store  core.ReportStore
	logger *zap.Logger
}

// NewImporter creates a new report importer. A nil logger discards logs.
func NewImporter(store core.ReportStore, logger *zap.Logger) *Importer {
	return &Importer{
		store:  store,
		logger: orNop(logger),
	}
}

// Import reads an export directory into the store. Reports that already
// exist are skipped unless OverwriteData is set.
func (i *Importer) Import(ctx context.Context, options ImportOptions) (*ImportResult, error) {
	if options.InputDirectory == "" {
		return nil, fmt.Errorf("invalid import options: input directory is required")
	}

	metadata, err := loadExportMetadata(options.InputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to load export metadata: %w", err)
	}

	i.logger.Info("importing reports",
		zap.Time("exported_at", metadata.ExportedAt),
		zap.Int("available", len(metadata.Reports)))

	result := &ImportResult{
		ExportedAt: metadata.ExportedAt,
		Format:     metadata.Format,
		Imported:   make([]string, 0, len(metadata.Reports)),
		Skipped:    make([]string, 0),
	}

	for _, id := range getReportsToImport(metadata.Reports, options.Reports) {
		imported, err := i.importReport(ctx, id, metadata.Format, options)
		if err != nil {
			return nil, fmt.Errorf("failed to import report %s: %w", id, err)
		}
		if imported {
			result.Imported = append(result.Imported, id)
		} else {
			result.Skipped = append(result.Skipped, id)
		}
	}

	i.logger.Info("import completed",
		zap.Int("imported", len(result.Imported)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// importReport loads one report file and saves it
func (i *Importer) importReport(ctx context.Context, id string, format ExportFormat, options ImportOptions) (bool, error) {
	filePath, err := reportPath(options.InputDirectory, id, format)
	if err != nil {
		return false, err
	}
	file, err := os.Open(filePath)
	if err != nil {
		return false, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	report, err := decodeReport(file, format)
	if err != nil {
		return false, fmt.Errorf("failed to read report: %w", err)
	}
	if report.ID != id {
		return false, fmt.Errorf("file %s holds report %q", filePath, report.ID)
	}

	if options.ValidateData {
		if err := validateReport(report); err != nil {
			return false, fmt.Errorf("report validation failed: %w", err)
		}
	}

	if !options.OverwriteData {
		_, err := i.store.LoadReport(ctx, id)
		if err == nil {
			i.logger.Debug("report exists, skipping", zap.String("run_id", id))
			return false, nil
		}
		if !errors.Is(err, core.ErrReportNotFound) {
			return false, err
		}
	}

	if err := i.store.SaveReport(ctx, report); err != nil {
		return false, err
	}
	return true, nil
}

// validateReport checks the results an import would otherwise trust
func validateReport(report core.Report) error {
	if err := core.ValidateReport(report); err != nil {
		return err
	}
	if err := core.ValidateRunConfig(report.Config); err != nil {
		return err
	}
	for _, res := range report.Results {
		if res.OutOfRange < 0 || res.OutOfRange > res.Queries {
			return fmt.Errorf("locator %s: out of range count %d outside [0, %d]", res.Locator, res.OutOfRange, res.Queries)
		}
		for _, idx := range res.Samples {
			if idx < 0 || idx >= res.Points {
				return fmt.Errorf("locator %s: sample index %d outside [0, %d)", res.Locator, idx, res.Points)
			}
		}
	}
	return nil
}

func decodeReport(r io.Reader, format ExportFormat) (core.Report, error) {
	var report core.Report
	switch format {
	case ExportFormatJSON:
		err := json.NewDecoder(r).Decode(&report)
		return report, err
	case ExportFormatYAML:
		err := yaml.NewDecoder(r).Decode(&report)
		return report, err
	default:
		return report, fmt.Errorf("unsupported format: %s", format)
	}
}

// loadExportMetadata loads export metadata from a directory
func loadExportMetadata(inputDir string) (*ExportMetadata, error) {
	data, err := os.ReadFile(filepath.Join(inputDir, metadataFile))
	if err != nil {
		return nil, err
	}

	var metadata ExportMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	if metadata.Version != formatVersion {
		return nil, fmt.Errorf("unsupported export version %q", metadata.Version)
	}
	return &metadata, nil
}

// getReportsToImport keeps the requested reports that the export holds
func getReportsToImport(available, requested []string) []string {
	if len(requested) == 0 {
		return available
	}

	have := make(map[string]bool, len(available))
	for _, id := range available {
		have[id] = true
	}

	var out []string
	for _, id := range requested {
		if have[id] {
			out = append(out, id)
		}
	}
	return out
}

// ExportInfo describes an export directory found under a base directory
type ExportInfo struct {
	Path       string       `json:"path"`
	ExportedAt time.Time    `json:"exported_at"`
	Format     ExportFormat `json:"format"`
	Reports    int          `json:"reports"`
}

// ListAvailableExports finds export directories directly under baseDir,
// newest first
func ListAvailableExports(baseDir string) ([]ExportInfo, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var exports []ExportInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(baseDir, entry.Name())
		metadata, err := loadExportMetadata(dir)
		if err != nil {
			continue // Not an export directory
		}

		exports = append(exports, ExportInfo{
			Path:       dir,
			ExportedAt: metadata.ExportedAt,
			Format:     metadata.Format,
			Reports:    len(metadata.Reports),
		})
	}

	sort.Slice(exports, func(a, b int) bool {
		return exports[a].ExportedAt.After(exports[b].ExportedAt)
	})
	return exports, nil
}

// Copy moves every report from src to dst, skipping reports dst already has
func Copy(ctx context.Context, src, dst core.ReportStore) (int, error) {
	list, err := src.ListReports(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list source reports: %w", err)
	}

	copied := 0
	for _, s := range list {
		if _, err := dst.LoadReport(ctx, s.ID); err == nil {
			continue
		} else if !errors.Is(err, core.ErrReportNotFound) {
			return copied, err
		}

		report, err := src.LoadReport(ctx, s.ID)
		if err != nil {
			return copied, err
		}
		if err := dst.SaveReport(ctx, report); err != nil {
			return copied, fmt.Errorf("failed to save report %s: %w", s.ID, err)
		}
		copied++
	}
	return copied, nil
}
