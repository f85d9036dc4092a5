package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/nnbench/core"
	"go.etcd.io/bbolt"
)

// reportsBucket holds one JSON document per report, keyed by report ID
const reportsBucket = "reports"

// BoltStore implements report storage using BoltDB
type BoltStore struct {
	db   *bbolt.DB
	path string
}

// NewBoltStore creates a new BoltDB report store with default options
func NewBoltStore(dbPath string) (*BoltStore, error) {
	return newBoltStore(dbPath, &bbolt.Options{Timeout: 1 * time.Second})
}

func newBoltStore(dbPath string, opts *bbolt.Options) (*BoltStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0600, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB at %s: %w", dbPath, err)
	}

	store := &BoltStore{
		db:   db,
		path: dbPath,
	}

	if !opts.ReadOnly {
		if err := store.initBuckets(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize buckets: %w", err)
		}
	}

	return store, nil
}

// initBuckets creates the reports bucket if it doesn't exist
func (b *BoltStore) initBuckets() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(reportsBucket)); err != nil {
			return fmt.Errorf("failed to create reports bucket: %w", err)
		}
		return nil
	})
}

// SaveReport stores a report in BoltDB
func (b *BoltStore) SaveReport(ctx context.Context, report core.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeReport(report)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reportsBucket)).Put([]byte(report.ID), data)
	})
}

// LoadReport retrieves a report by ID
func (b *BoltStore) LoadReport(ctx context.Context, id string) (core.Report, error) {
	if err := ctx.Err(); err != nil {
		return core.Report{}, err
	}

	var report core.Report
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(reportsBucket))
		if bucket == nil {
			return notFound(id)
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return notFound(id)
		}

		var err error
		report, err = decodeReport(data)
		return err
	})
	if err != nil {
		return core.Report{}, err
	}

	return report, nil
}

// ListReports returns summaries of every stored report, newest first
func (b *BoltStore) ListReports(ctx context.Context) ([]core.ReportSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list := make([]core.ReportSummary, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(reportsBucket))
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			report, err := decodeReport(v)
			if err != nil {
				return fmt.Errorf("report %s: %w", string(k), err)
			}
			list = append(list, report.Summary())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sortSummaries(list)
	return list, nil
}

// DeleteReport removes a report from BoltDB
func (b *BoltStore) DeleteReport(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(reportsBucket))
		if bucket == nil || bucket.Get([]byte(id)) == nil {
			return notFound(id)
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the BoltDB database
func (b *BoltStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

// Path returns the database file path
func (b *BoltStore) Path() string {
	return b.path
}
