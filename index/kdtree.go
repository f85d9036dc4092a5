package index

import (
	"context"
	"math"
	"sync"

	"github.com/dshills/nnbench/core"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// kdPoint is a point that remembers its position in the input dataset
type kdPoint struct {
	r3.Vector
	id int32
}

func (p kdPoint) coord(d kdtree.Dim) float64 {
	switch d {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// Compare returns the signed distance of p from the plane through c along d
func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(kdPoint).coord(d)
}

// Dims returns the number of dimensions
func (p kdPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between p and c
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	return p.Sub(c.(kdPoint).Vector).Norm2()
}

// kdPoints satisfies kdtree.Interface
type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int                { return kdPlane{Dim: d, kdPoints: p}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Bounds implements kdtree.Bounder so bounded trees can be built
func (p kdPoints) Bounds() *kdtree.Bounding {
	if len(p) == 0 {
		return nil
	}
	lo, hi := p[0].Vector, p[0].Vector
	for _, q := range p[1:] {
		lo = r3.Vector{X: math.Min(lo.X, q.X), Y: math.Min(lo.Y, q.Y), Z: math.Min(lo.Z, q.Z)}
		hi = r3.Vector{X: math.Max(hi.X, q.X), Y: math.Max(hi.Y, q.Y), Z: math.Max(hi.Z, q.Z)}
	}
	return &kdtree.Bounding{Min: kdPoint{Vector: lo, id: -1}, Max: kdPoint{Vector: hi, id: -1}}
}

// kdPlane sorts a point slice along one dimension
type kdPlane struct {
	kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool {
	return p.kdPoints[i].coord(p.Dim) < p.kdPoints[j].coord(p.Dim)
}
func (p kdPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdPoints = p.kdPoints[start:end]
	return p
}
func (p kdPlane) Swap(i, j int) {
	p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i]
}

// KDTreeLocator answers queries with a gonum k-d tree
type KDTreeLocator struct {
	mu       sync.RWMutex
	tree     *kdtree.Tree
	size     int
	bounding bool
}

// NewKDTreeLocator creates a k-d tree locator. With bounding set every node
// records its bounding box.
func NewKDTreeLocator(bounding bool) *KDTreeLocator {
	return &KDTreeLocator{bounding: bounding}
}

// Build constructs the tree. The input slice is copied because tree
// construction reorders its points.
func (l *KDTreeLocator) Build(ctx context.Context, points []core.Point) error {
	if err := validateDataset(ctx, points); err != nil {
		return err
	}

	pts := make(kdPoints, len(points))
	for i, p := range points {
		pts[i] = kdPoint{Vector: p, id: int32(i)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tree := kdtree.New(pts, l.bounding)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.tree = tree
	l.size = len(points)
	return nil
}

// FindClosestPoint returns the nearest point
func (l *KDTreeLocator) FindClosestPoint(query core.Point) (core.Neighbor, error) {
	if err := core.ValidatePoint(query); err != nil {
		return core.Neighbor{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.tree == nil {
		return core.Neighbor{}, core.ErrNotBuilt
	}

	c, d2 := l.tree.Nearest(kdPoint{Vector: query, id: -1})
	if c == nil {
		return core.Neighbor{}, core.ErrEmptyDataset
	}
	return core.Neighbor{Index: int(c.(kdPoint).id), Distance: math.Sqrt(d2)}, nil
}

// FindClosestN returns up to k nearest points
func (l *KDTreeLocator) FindClosestN(query core.Point, k int) ([]core.Neighbor, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.tree == nil {
		return nil, core.ErrNotBuilt
	}

	keep := kdtree.NewNKeeper(k)
	l.tree.NearestSet(keep, kdPoint{Vector: query, id: -1})
	return kdNeighbors(keep.Heap), nil
}

// FindWithinRadius returns every point within radius
func (l *KDTreeLocator) FindWithinRadius(query core.Point, radius float64) ([]core.Neighbor, error) {
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

	// Point distances are squared, so is the keeper threshold.
	keep := kdtree.NewDistKeeper(radius * radius)
	l.tree.NearestSet(keep, kdPoint{Vector: query, id: -1})
	return kdNeighbors(keep.Heap), nil
}

// kdNeighbors converts a keeper heap, dropping the nil sentinel a keeper
// holds until it is displaced
func kdNeighbors(h kdtree.Heap) []core.Neighbor {
	out := make([]core.Neighbor, 0, len(h))
	for _, cd := range h {
		if cd.Comparable == nil {
			continue
		}
		out = append(out, core.Neighbor{
			Index:    int(cd.Comparable.(kdPoint).id),
			Distance: math.Sqrt(cd.Dist),
		})
	}
	core.SortNeighbors(out)
	return out
}

// Size returns the number of indexed points
func (l *KDTreeLocator) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}

// Type returns the locator type
func (l *KDTreeLocator) Type() string {
	return TypeKDTree
}
