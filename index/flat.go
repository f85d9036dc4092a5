package index

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/dshills/nnbench/core"
)

// FlatLocator implements brute-force exact search. It is the reference the
// other locators are verified against.
type FlatLocator struct {
	mu     sync.RWMutex
	points []core.Point
}

// NewFlatLocator creates a new flat locator
func NewFlatLocator() *FlatLocator {
	return &FlatLocator{}
}

// Build records the point set. The slice is retained, not copied.
func (f *FlatLocator) Build(ctx context.Context, points []core.Point) error {
	if err := validateDataset(ctx, points); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.points = points
	return nil
}

// FindClosestPoint scans every point
func (f *FlatLocator) FindClosestPoint(query core.Point) (core.Neighbor, error) {
	if err := core.ValidatePoint(query); err != nil {
		return core.Neighbor{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.points == nil {
		return core.Neighbor{}, core.ErrNotBuilt
	}

	best, bestDist2 := -1, math.Inf(1)
	for i, p := range f.points {
		if d2 := query.Sub(p).Norm2(); d2 < bestDist2 {
			best, bestDist2 = i, d2
		}
	}
	return core.Neighbor{Index: best, Distance: math.Sqrt(bestDist2)}, nil
}

// FindClosestN performs brute-force search for the k nearest points
func (f *FlatLocator) FindClosestN(query core.Point, k int) ([]core.Neighbor, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.points == nil {
		return nil, core.ErrNotBuilt
	}

	keep := newKeeper(k)
	for i, p := range f.points {
		keep.offer(i, query.Sub(p).Norm2())
	}
	return keep.neighbors(), nil
}

// FindWithinRadius returns all points within radius of the query
func (f *FlatLocator) FindWithinRadius(query core.Point, radius float64) ([]core.Neighbor, error) {
	if err := core.ValidatePoint(query); err != nil {
		return nil, err
	}
	if err := core.ValidateRadius(radius); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.points == nil {
		return nil, core.ErrNotBuilt
	}

	r2 := radius * radius
	results := make([]core.Neighbor, 0)
	for i, p := range f.points {
		if d2 := query.Sub(p).Norm2(); d2 <= r2 {
			results = append(results, core.Neighbor{Index: i, Distance: math.Sqrt(d2)})
		}
	}

	core.SortNeighbors(results)
	return results, nil
}

// Size returns the number of points in the locator
func (f *FlatLocator) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.points)
}

// Type returns the locator type
func (f *FlatLocator) Type() string {
	return TypeFlat
}

// validateDataset rejects empty, oversized or non-finite point sets
func validateDataset(ctx context.Context, points []core.Point) error {
	if len(points) == 0 {
		return core.ErrEmptyDataset
	}
	if len(points) > maxPoints {
		return fmt.Errorf("dataset of %d points exceeds the %d point limit", len(points), maxPoints)
	}

	for i, p := range points {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := core.ValidatePoint(p); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

// validateQuery checks a k-nearest query
func validateQuery(query core.Point, k int) error {
	if err := core.ValidatePoint(query); err != nil {
		return err
	}
	return core.ValidateK(k)
}
