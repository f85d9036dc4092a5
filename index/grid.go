package index

import (
	"math"

	"github.com/dshills/nnbench/core"
	"github.com/dshills/nnbench/dataset"
)

// bucketSource exposes the point ids stored in a bucket
type bucketSource interface {
	bucket(id int) []int32
}

// grid is the uniform bucket subdivision shared by the bucket locators.
// Buckets are addressed (i, j, k) and flattened as i + j*nx + k*nx*ny.
type grid struct {
	bounds dataset.Box
	div    [3]int
	width  [3]float64 // bucket edge length per axis, 0 along a flat axis
	points []core.Point
}

// newGrid sizes a grid so that buckets hold pointsPerBucket points on average
func newGrid(points []core.Point, pointsPerBucket int) grid {
	if pointsPerBucket <= 0 {
		pointsPerBucket = 3
	}

	g := grid{bounds: dataset.Bounds(points), points: points}
	size := g.bounds.Size()
	extent := [3]float64{size.X, size.Y, size.Z}

	target := float64(len(points)) / float64(pointsPerBucket)
	if target < 1 {
		target = 1
	}

	// Spread the target bucket count over the non-degenerate axes in
	// proportion to their extent.
	volume, axes := 1.0, 0
	for _, e := range extent {
		if e > 0 {
			volume *= e
			axes++
		}
	}
	edge := 0.0
	if axes > 0 {
		edge = math.Pow(volume/target, 1/float64(axes))
	}

	limit := int(math.Ceil(target))
	for a, e := range extent {
		g.div[a] = 1
		if e > 0 && edge > 0 {
			g.div[a] = int(max(1, min(math.Round(e/edge), float64(limit))))
		}
	}
	capDivisions(&g.div, limit)

	for a, e := range extent {
		g.width[a] = e / float64(g.div[a])
	}
	return g
}

// capDivisions shrinks the widest axes until the grid holds at most limit
// buckets
func capDivisions(div *[3]int, limit int) {
	limit = max(limit, 1)
	for {
		total := float64(div[0]) * float64(div[1]) * float64(div[2])
		if total <= float64(limit) {
			return
		}
		a := 0
		for b := 1; b < 3; b++ {
			if div[b] > div[a] {
				a = b
			}
		}
		next := int(float64(div[a]) * float64(limit) / total)
		div[a] = max(1, min(next, div[a]-1))
	}
}

// numBuckets returns the total number of buckets
func (g *grid) numBuckets() int {
	return g.div[0] * g.div[1] * g.div[2]
}

// axisIndex maps a coordinate to a bucket index on one axis, clamped to the grid
func (g *grid) axisIndex(a int, v float64) int {
	if g.width[a] == 0 {
		return 0
	}
	lo := [3]float64{g.bounds.Min.X, g.bounds.Min.Y, g.bounds.Min.Z}[a]
	i := int(math.Floor((v - lo) / g.width[a]))
	if i < 0 {
		return 0
	}
	if i >= g.div[a] {
		return g.div[a] - 1
	}
	return i
}

// cell returns the clamped bucket coordinates of p
func (g *grid) cell(p core.Point) [3]int {
	return [3]int{g.axisIndex(0, p.X), g.axisIndex(1, p.Y), g.axisIndex(2, p.Z)}
}

// bucketID flattens bucket coordinates
func (g *grid) bucketID(c [3]int) int {
	return c[0] + c[1]*g.div[0] + c[2]*g.div[0]*g.div[1]
}

// bucketOf returns the flattened bucket id of p
func (g *grid) bucketOf(p core.Point) int {
	return g.bucketID(g.cell(p))
}

// visit offers every point in bucket c to the keeper
func (g *grid) visit(src bucketSource, c [3]int, q core.Point, keep *keeper) {
	for _, id := range src.bucket(g.bucketID(c)) {
		keep.offer(int(id), q.Sub(g.points[id]).Norm2())
	}
}

// visitShell visits the buckets at Chebyshev distance exactly level from
// center. It reports whether any bucket of the shell lies inside the grid.
func (g *grid) visitShell(src bucketSource, center [3]int, level int, q core.Point, keep *keeper) bool {
	lo, hi := [3]int{}, [3]int{}
	for a := 0; a < 3; a++ {
		lo[a] = max(center[a]-level, 0)
		hi[a] = min(center[a]+level, g.div[a]-1)
	}

	inside := false
	for i := lo[0]; i <= hi[0]; i++ {
		onI := abs(i-center[0]) == level
		for j := lo[1]; j <= hi[1]; j++ {
			onJ := abs(j-center[1]) == level
			if onI || onJ {
				for k := lo[2]; k <= hi[2]; k++ {
					g.visit(src, [3]int{i, j, k}, q, keep)
					inside = true
				}
				continue
			}
			for _, k := range [2]int{center[2] - level, center[2] + level} {
				if k < 0 || k >= g.div[2] {
					continue
				}
				g.visit(src, [3]int{i, j, k}, q, keep)
				inside = true
			}
		}
	}
	return inside
}

// cellRange returns the clamped bucket range covering the cube of half
// width r around q
func (g *grid) cellRange(q core.Point, r float64) (lo, hi [3]int) {
	lo = g.cell(core.Point{X: q.X - r, Y: q.Y - r, Z: q.Z - r})
	hi = g.cell(core.Point{X: q.X + r, Y: q.Y + r, Z: q.Z + r})
	return lo, hi
}

// boxDist2 returns the squared distance from q to bucket c
func (g *grid) boxDist2(c [3]int, q core.Point) float64 {
	qc := [3]float64{q.X, q.Y, q.Z}
	origin := [3]float64{g.bounds.Min.X, g.bounds.Min.Y, g.bounds.Min.Z}
	top := [3]float64{g.bounds.Max.X, g.bounds.Max.Y, g.bounds.Max.Z}
	d2 := 0.0
	for a := 0; a < 3; a++ {
		lo := origin[a] + float64(c[a])*g.width[a]
		hi := lo + g.width[a]
		if c[a] == g.div[a]-1 {
			// Clamped boundary points belong to the last bucket.
			hi = top[a]
		}
		switch {
		case qc[a] < lo:
			d2 += (lo - qc[a]) * (lo - qc[a])
		case qc[a] > hi:
			d2 += (qc[a] - hi) * (qc[a] - hi)
		}
	}
	return d2
}

// closestN searches outward from the query bucket one shell at a time until
// k candidates are held, then sweeps every bucket that could still hold a
// closer point.
func (g *grid) closestN(src bucketSource, q core.Point, k int) []core.Neighbor {
	keep := newKeeper(k)
	center := g.cell(q)

	level := 0
	for !keep.full() {
		if !g.visitShell(src, center, level, q, keep) {
			break
		}
		level++
	}
	searched := level - 1

	worst := keep.worst()
	if math.IsInf(worst, 1) {
		return keep.neighbors()
	}

	lo, hi := g.cellRange(q, math.Sqrt(worst))
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for kk := lo[2]; kk <= hi[2]; kk++ {
				c := [3]int{i, j, kk}
				if chebyshev(c, center) <= searched {
					continue
				}
				if g.boxDist2(c, q) > keep.worst() {
					continue
				}
				g.visit(src, c, q, keep)
			}
		}
	}
	return keep.neighbors()
}

// withinRadius collects every point within radius of q
func (g *grid) withinRadius(src bucketSource, q core.Point, radius float64) []core.Neighbor {
	r2 := radius * radius
	results := make([]core.Neighbor, 0)

	lo, hi := g.cellRange(q, radius)
	for i := lo[0]; i <= hi[0]; i++ {
		for j := lo[1]; j <= hi[1]; j++ {
			for k := lo[2]; k <= hi[2]; k++ {
				c := [3]int{i, j, k}
				if g.boxDist2(c, q) > r2 {
					continue
				}
				for _, id := range src.bucket(g.bucketID(c)) {
					if d2 := q.Sub(g.points[id]).Norm2(); d2 <= r2 {
						results = append(results, core.Neighbor{Index: int(id), Distance: math.Sqrt(d2)})
					}
				}
			}
		}
	}

	core.SortNeighbors(results)
	return results
}

func chebyshev(a, b [3]int) int {
	return max(abs(a[0]-b[0]), abs(a[1]-b[1]), abs(a[2]-b[2]))
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
