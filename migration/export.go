// Package migration moves benchmark reports between stores and on-disk
// export directories.
package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/nnbench/core"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatYAML ExportFormat = "yaml"
)

// metadataFile is written next to the exported reports
const metadataFile = "export_metadata.json"

// formatVersion is bumped when the export layout changes
const formatVersion = "1.0"

// ExportOptions contains options for report export
type ExportOptions struct {
	Format          ExportFormat `json:"format"`
	Reports         []string     `json:"reports,omitempty"` // Empty means all reports
	OutputDirectory string       `json:"output_directory"`
}

// ImportOptions contains options for report import
type ImportOptions struct {
	Reports        []string `json:"reports,omitempty"` // Empty means all reports
	OverwriteData  bool     `json:"overwrite_data"`
	InputDirectory string   `json:"input_directory"`
	ValidateData   bool     `json:"validate_data"`
}

// ExportMetadata contains metadata about an export
type ExportMetadata struct {
	Version    string       `json:"version"`
	ExportedAt time.Time    `json:"exported_at"`
	Format     ExportFormat `json:"format"`
	Reports    []string     `json:"reports"`
}

// Exporter writes stored reports to files
type Exporter struct {
	store  core.ReportStore
	logger *zap.Logger
}

// NewExporter creates a new report exporter. A nil logger discards logs.
func NewExporter(store core.ReportStore, logger *zap.Logger) *Exporter {
	return &Exporter{
		store:  store,
		logger: orNop(logger),
	}
}

// Export writes one file per report plus the export metadata
func (e *Exporter) Export(ctx context.Context, options ExportOptions) (*ExportMetadata, error) {
	if err := validateExportOptions(options); err != nil {
		return nil, fmt.Errorf("invalid export options: %w", err)
	}

	if err := os.MkdirAll(options.OutputDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ids, err := e.getReportsToExport(ctx, options.Reports)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	metadata := &ExportMetadata{
		Version:    formatVersion,
		ExportedAt: time.Now(),
		Format:     options.Format,
		Reports:    ids,
	}

	for _, id := range ids {
		if err := e.exportReport(ctx, id, options); err != nil {
			return nil, fmt.Errorf("failed to export report %s: %w", id, err)
		}
		e.logger.Debug("exported report", zap.String("run_id", id))
	}

	if err := writeJSON(filepath.Join(options.OutputDirectory, metadataFile), metadata); err != nil {
		return nil, fmt.Errorf("failed to save export metadata: %w", err)
	}

	e.logger.Info("export completed",
		zap.String("dir", options.OutputDirectory),
		zap.Int("reports", len(ids)))
	return metadata, nil
}

// exportReport writes a single report
func (e *Exporter) exportReport(ctx context.Context, id string, options ExportOptions) error {
	filePath, err := reportPath(options.OutputDirectory, id, options.Format)
	if err != nil {
		return err
	}
	report, err := e.store.LoadReport(ctx, id)
	if err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	return encodeReport(file, report, options.Format)
}

// getReportsToExport determines which reports to export
func (e *Exporter) getReportsToExport(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		return requested, nil
	}

	list, err := e.store.ListReports(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids, nil
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// reportPath returns the file holding report id inside dir
func reportPath(dir, id string, format ExportFormat) (string, error) {
	if err := core.ValidateReportID(id); err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%s", id, format)), nil
}

func encodeReport(w io.Writer, report core.Report, format ExportFormat) error {
	switch format {
	case ExportFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case ExportFormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(report)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

func writeJSON(path string, obj interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(obj)
}

// validateExportOptions validates export options
func validateExportOptions(options ExportOptions) error {
	if options.OutputDirectory == "" {
		return fmt.Errorf("output directory is required")
	}

	if options.Format != ExportFormatJSON && options.Format != ExportFormatYAML {
		return fmt.Errorf("unsupported format: %s", options.Format)
	}

	return nil
}

// DefaultExportOptions returns default export options
func DefaultExportOptions(outputDir string) ExportOptions {
	return ExportOptions{
		Format:          ExportFormatJSON,
		OutputDirectory: outputDir,
	}
}
