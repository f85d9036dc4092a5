package persistence

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dshills/nnbench/core"
)

// StoreFactory creates report stores based on configuration
type StoreFactory interface {
	CreateStore(config PersistenceConfig) (core.ReportStore, error)
}

// encodeReport validates and serialises a report
func encodeReport(report core.Report) ([]byte, error) {
	if err := core.ValidateReport(report); err != nil {
		return nil, fmt.Errorf("invalid report: %w", err)
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// decodeReport deserialises a stored report
func decodeReport(data []byte) (core.Report, error) {
	var report core.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return core.Report{}, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return report, nil
}

// sortSummaries orders summaries newest first, then by ID
func sortSummaries(list []core.ReportSummary) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.After(list[j].StartedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
}
