// Package dataset generates the synthetic point clouds the locators are
// measured against.
package dataset

import (
	"math"
	"math/rand"

	"github.com/dshills/nnbench/core"
	"github.com/golang/geo/r3"
)

// DefaultQuerySeed is the seed every locator's query phase starts from
const DefaultQuerySeed = 4012

// Generator produces uniformly distributed points in the unit cube
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded with seed
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Point returns the next point in [0,1)^3
func (g *Generator) Point() core.Point {
	return r3.Vector{X: g.rng.Float64(), Y: g.rng.Float64(), Z: g.rng.Float64()}
}

// Fill overwrites every element of dst with the next generated points
func (g *Generator) Fill(dst []core.Point) {
	for i := range dst {
		dst[i] = g.Point()
	}
}

// Uniform returns n points drawn from a generator seeded with seed
func Uniform(n int, seed int64) []core.Point {
	if n <= 0 {
		return nil
	}
	points := make([]core.Point, n)
	NewGenerator(seed).Fill(points)
	return points
}

// Queries returns the query sequence for seed. Calling it again with the
// same seed yields the same sequence, which is how every locator gets to
// answer identical queries.
func Queries(n int, seed int64) []core.Point {
	return Uniform(n, seed)
}

// Box is an axis-aligned bounding box
type Box struct {
	Min r3.Vector `json:"min"`
	Max r3.Vector `json:"max"`
}

// Bounds returns the bounding box of points. The zero box is returned for
// an empty slice.
func Bounds(points []core.Point) Box {
	if len(points) == 0 {
		return Box{}
	}
	b := Box{
		Min: r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, p := range points {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	return b
}

// Size returns the edge lengths of the box
func (b Box) Size() r3.Vector {
	return b.Max.Sub(b.Min)
}

// Contains reports whether p lies inside the box, boundary included
func (b Box) Contains(p core.Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}
