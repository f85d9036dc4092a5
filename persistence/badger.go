package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dshills/nnbench/core"
)

// reportKeyPrefix namespaces report keys
const reportKeyPrefix = "r:"

// BadgerStore implements report storage using BadgerDB
type BadgerStore struct {
	db             *badger.DB
	path           string
	vlogPercentile float64
}

// NewBadgerStore creates a new BadgerDB report store with default options
func NewBadgerStore(dbPath string) (*BadgerStore, error) {
	return newBadgerStore(badger.DefaultOptions(dbPath), 0.5)
}

func newBadgerStore(opts badger.Options, vlogPercentile float64) (*BadgerStore, error) {
	if !opts.InMemory {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", opts.Dir, err)
		}
	}

	opts.Logger = nil // Disable logging for cleaner output

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", opts.Dir, err)
	}

	return &BadgerStore{
		db:             db,
		path:           opts.Dir,
		vlogPercentile: vlogPercentile,
	}, nil
}

// makeReportKey creates a key for storing reports
func (b *BadgerStore) makeReportKey(id string) []byte {
	return []byte(reportKeyPrefix + id)
}

// SaveReport stores a report in BadgerDB
func (b *BadgerStore) SaveReport(ctx context.Context, report core.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeReport(report)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.makeReportKey(report.ID), data)
	})
}

// LoadReport retrieves a report by ID
func (b *BadgerStore) LoadReport(ctx context.Context, id string) (core.Report, error) {
	if err := ctx.Err(); err != nil {
		return core.Report{}, err
	}

	var report core.Report
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.makeReportKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return notFound(id)
			}
			return err
		}

		return item.Value(func(val []byte) error {
			report, err = decodeReport(val)
			return err
		})
	})
	if err != nil {
		return core.Report{}, err
	}

	return report, nil
}

// ListReports returns summaries of every stored report, newest first
func (b *BadgerStore) ListReports(ctx context.Context) ([]core.ReportSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list := make([]core.ReportSummary, 0)
	prefix := []byte(reportKeyPrefix)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				report, err := decodeReport(val)
				if err != nil {
					return err
				}
				list = append(list, report.Summary())
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortSummaries(list)
	return list, nil
}

// DeleteReport removes a report from BadgerDB
func (b *BadgerStore) DeleteReport(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := b.makeReportKey(id)
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return notFound(id)
			}
			return err
		}
		return txn.Delete(key)
	})
}

// RunGarbageCollection manually triggers BadgerDB value log garbage collection
func (b *BadgerStore) RunGarbageCollection() error {
	if b.db.Opts().InMemory {
		return nil
	}
	for {
		err := b.db.RunValueLogGC(b.vlogPercentile)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break // No more GC needed
			}
			return fmt.Errorf("garbage collection failed: %w", err)
		}
	}
	return nil
}

// Close closes the BadgerDB database
func (b *BadgerStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
