package index

import (
	"context"
	"sync"

	"github.com/dshills/nnbench/core"
	"golang.org/x/sync/errgroup"
)

// StaticLocator is a bucket grid stored as one array of point ids sorted by
// bucket plus an offsets array. Bucket assignment runs in parallel.
type StaticLocator struct {
	mu              sync.RWMutex
	grid            grid
	ids             []int32
	offsets         []int32 // bucket b holds ids[offsets[b]:offsets[b+1]]
	built           bool
	pointsPerBucket int
	parallelism     int
}

// NewStaticLocator creates a static locator
func NewStaticLocator(pointsPerBucket, parallelism int) *StaticLocator {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &StaticLocator{pointsPerBucket: pointsPerBucket, parallelism: parallelism}
}

// Build computes each point's bucket in parallel chunks and then counting
// sorts the ids by bucket
func (s *StaticLocator) Build(ctx context.Context, points []core.Point) error {
	if err := validateDataset(ctx, points); err != nil {
		return err
	}

	g := newGrid(points, s.pointsPerBucket)
	bucketOf := make([]int32, len(points))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallelism)
	chunk := (len(points) + s.parallelism - 1) / s.parallelism
	for start := 0; start < len(points); start += chunk {
		start, end := start, min(start+chunk, len(points))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				if (i-start)%ctxCheckInterval == 0 {
					if err := egCtx.Err(); err != nil {
						return err
					}
				}
				bucketOf[i] = int32(g.bucketOf(points[i]))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	nb := g.numBuckets()
	offsets := make([]int32, nb+1)
	for _, b := range bucketOf {
		offsets[b+1]++
	}
	for b := 1; b <= nb; b++ {
		offsets[b] += offsets[b-1]
	}

	// Stable placement keeps ids ascending inside each bucket.
	cursor := make([]int32, nb)
	copy(cursor, offsets[:nb])
	ids := make([]int32, len(points))
	for i, b := range bucketOf {
		ids[cursor[b]] = int32(i)
		cursor[b]++
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.grid = g
	s.ids = ids
	s.offsets = offsets
	s.built = true
	return nil
}

func (s *StaticLocator) bucket(id int) []int32 {
	return s.ids[s.offsets[id]:s.offsets[id+1]]
}

// FindClosestPoint returns the nearest point
func (s *StaticLocator) FindClosestPoint(query core.Point) (core.Neighbor, error) {
	ns, err := s.FindClosestN(query, 1)
	if err != nil {
		return core.Neighbor{}, err
	}
	return ns[0], nil
}

// FindClosestN returns up to k nearest points
func (s *StaticLocator) FindClosestN(query core.Point, k int) ([]core.Neighbor, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.built {
		return nil, core.ErrNotBuilt
	}
	return s.grid.closestN(s, query, k), nil
}

// FindWithinRadius returns every point within radius
func (s *StaticLocator) FindWithinRadius(query core.Point, radius float64) ([]core.Neighbor, error) {
	if err := core.ValidatePoint(query); err != nil {
		return nil, err
	}
	if err := core.ValidateRadius(radius); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.built {
		return nil, core.ErrNotBuilt
	}
	return s.grid.withinRadius(s, query, radius), nil
}

// Size returns the number of indexed points
func (s *StaticLocator) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Type returns the locator type
func (s *StaticLocator) Type() string {
	return TypeStatic
}
