package persistence

import (
	"context"
	"sync"

	"github.com/dshills/nnbench/core"
)

// MemoryStore implements in-memory report storage (non-persistent)
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]core.Report
}

// NewMemoryStore creates a new in-memory report store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]core.Report),
	}
}

// SaveReport stores a report in memory
func (m *MemoryStore) SaveReport(ctx context.Context, report core.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := encodeReport(report); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports[report.ID] = report
	return nil
}

// LoadReport retrieves a report by ID
func (m *MemoryStore) LoadReport(ctx context.Context, id string) (core.Report, error) {
	if err := ctx.Err(); err != nil {
		return core.Report{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	report, exists := m.reports[id]
	if !exists {
		return core.Report{}, notFound(id)
	}
	return report, nil
}

// ListReports returns summaries of every stored report, newest first
func (m *MemoryStore) ListReports(ctx context.Context) ([]core.ReportSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]core.ReportSummary, 0, len(m.reports))
	for _, r := range m.reports {
		list = append(list, r.Summary())
	}
	sortSummaries(list)
	return list, nil
}

// DeleteReport removes a report from memory
func (m *MemoryStore) DeleteReport(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reports[id]; !exists {
		return notFound(id)
	}
	delete(m.reports, id)
	return nil
}

// Close is a no-op for the memory store
func (m *MemoryStore) Close() error {
	return nil
}
