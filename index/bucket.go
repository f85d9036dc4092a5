package index

import (
	"context"
	"sync"

	"github.com/dshills/nnbench/core"
)

// BucketLocator is a uniform bucket grid where every bucket owns its own
// id list. Construction is sequential.
type BucketLocator struct {
	mu              sync.RWMutex
	grid            grid
	buckets         [][]int32
	built           bool
	pointsPerBucket int
}

// NewBucketLocator creates a bucket locator targeting pointsPerBucket
// points per bucket on average
func NewBucketLocator(pointsPerBucket int) *BucketLocator {
	return &BucketLocator{pointsPerBucket: pointsPerBucket}
}

// Build assigns every point to its bucket
func (b *BucketLocator) Build(ctx context.Context, points []core.Point) error {
	if err := validateDataset(ctx, points); err != nil {
		return err
	}

	g := newGrid(points, b.pointsPerBucket)
	buckets := make([][]int32, g.numBuckets())
	for i, p := range points {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		id := g.bucketOf(p)
		buckets[id] = append(buckets[id], int32(i))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.grid = g
	b.buckets = buckets
	b.built = true
	return nil
}

func (b *BucketLocator) bucket(id int) []int32 {
	return b.buckets[id]
}

// FindClosestPoint returns the nearest point
func (b *BucketLocator) FindClosestPoint(query core.Point) (core.Neighbor, error) {
	ns, err := b.FindClosestN(query, 1)
	if err != nil {
		return core.Neighbor{}, err
	}
	return ns[0], nil
}

// FindClosestN returns up to k nearest points
func (b *BucketLocator) FindClosestN(query core.Point, k int) ([]core.Neighbor, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.built {
		return nil, core.ErrNotBuilt
	}
	return b.grid.closestN(b, query, k), nil
}

// FindWithinRadius returns every point within radius
func (b *BucketLocator) FindWithinRadius(query core.Point, radius float64) ([]core.Neighbor, error) {
	if err := core.ValidatePoint(query); err != nil {
		return nil, err
	}
	if err := core.ValidateRadius(radius); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.built {
		return nil, core.ErrNotBuilt
	}
	return b.grid.withinRadius(b, query, radius), nil
}

// Divisions returns the number of buckets along each axis
func (b *BucketLocator) Divisions() [3]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.grid.div
}

// Size returns the number of indexed points
func (b *BucketLocator) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.grid.points)
}

// Type returns the locator type
func (b *BucketLocator) Type() string {
	return TypeBucket
}
