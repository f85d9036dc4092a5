package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/nnbench/core"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/vptree"
)

// vpPoint is a point that remembers its position in the input dataset
type vpPoint struct {
	r3.Vector
	id int32
}

// Distance returns the Euclidean distance between p and c
func (p vpPoint) Distance(c vptree.Comparable) float64 {
	return p.Vector.Distance(c.(vpPoint).Vector)
}

// VPTreeLocator answers queries with a gonum vantage point tree
type VPTreeLocator struct {
	mu     sync.RWMutex
	tree   *vptree.Tree
	size   int
	effort int
}

// NewVPTreeLocator creates a vp-tree locator. effort is the number of
// vantage point candidates examined per node.
func NewVPTreeLocator(effort int) *VPTreeLocator {
	return &VPTreeLocator{effort: effort}
}

// Build constructs the tree
func (l *VPTreeLocator) Build(ctx context.Context, points []core.Point) error {
	if err := validateDataset(ctx, points); err != nil {
		return err
	}

	pts := make([]vptree.Comparable, len(points))
	for i, p := range points {
		pts[i] = vpPoint{Vector: p, id: int32(i)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tree, err := vptree.New(pts, l.effort, nil)
	if err != nil {
		return fmt.Errorf("failed to build vp-tree: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.tree = tree
	l.size = len(points)
	return nil
}

// FindClosestPoint returns the nearest point
func (l *VPTreeLocator) FindClosestPoint(query core.Point) (core.Neighbor, error) {
	if err := core.ValidatePoint(query); err != nil {
		return core.Neighbor{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.tree == nil {
		return core.Neighbor{}, core.ErrNotBuilt
	}

	c, d := l.tree.Nearest(vpPoint{Vector: query, id: -1})
	if c == nil {
		return core.Neighbor{}, core.ErrEmptyDataset
	}
	return core.Neighbor{Index: int(c.(vpPoint).id), Distance: d}, nil
}

// FindClosestN returns up to k nearest points
func (l *VPTreeLocator) FindClosestN(query core.Point, k int) ([]core.Neighbor, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.tree == nil {
		return nil, core.ErrNotBuilt
	}

	keep := vptree.NewNKeeper(k)
	l.tree.NearestSet(keep, vpPoint{Vector: query, id: -1})
	return vpNeighbors(keep.Heap), nil
}

// FindWithinRadius returns every point within radius
func (l *VPTreeLocator) FindWithinRadius(query core.Point, radius float64) ([]core.Neighbor, error) {
	if err := core.ValidatePoint(query); err != nil {
		return nil, err
	}
	if err := core.ValidateRadius(radius); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.tree == nil {
		return nil, core.ErrNotBuilt
	}

	keep := vptree.NewDistKeeper(radius)
	l.tree.NearestSet(keep, vpPoint{Vector: query, id: -1})
	return vpNeighbors(keep.Heap), nil
}

func vpNeighbors(h vptree.Heap) []core.Neighbor {
	out := make([]core.Neighbor, 0, len(h))
	for _, cd := range h {
		if cd.Comparable == nil {
			continue
		}
		out = append(out, core.Neighbor{Index: int(cd.Comparable.(vpPoint).id), Distance: cd.Dist})
	}
	core.SortNeighbors(out)
	return out
}

// Size returns the number of indexed points
func (l *VPTreeLocator) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Type returns the locator type
func (l *VPTreeLocator) Type() string {
	return TypeVPTree
}
