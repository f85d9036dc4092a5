package index

import (
	"context"
	"testing"

	"github.com/dshills/nnbench/core"
	"github.com/dshills/nnbench/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridSizing(t *testing.T) {
	points := dataset.Uniform(3000, 1)
	g := newGrid(points, 3)

	// 1000 buckets in a near-unit cube split evenly.
	assert.Equal(t, [3]int{10, 10, 10}, g.div)
	assert.Equal(t, 1000, g.numBuckets())

	for i, p := range points {
		c := g.cell(p)
		for a := 0; a < 3; a++ {
			require.GreaterOrEqual(t, c[a], 0, "point %d", i)
			require.Less(t, c[a], g.div[a], "point %d", i)
		}
		require.Less(t, g.boxDist2(c, p), 1e-24, "point %d not inside its bucket", i)
	}
}

func TestGridFlatAxis(t *testing.T) {
	points := []core.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 1}, {X: 4, Y: 1}}
	g := newGrid(points, 1)

	assert.Equal(t, 1, g.div[2])
	assert.Zero(t, g.width[2])
	assert.Equal(t, 0, g.axisIndex(2, 100))
	assert.Equal(t, 4, g.numBuckets())
}

func TestGridElongatedCloud(t *testing.T) {
	points := make([]core.Point, 300)
	for i := range points {
		points[i] = core.Point{X: float64(i) * 1e4, Y: float64(i%2) * 1e-8, Z: float64(i%3) * 1e-8}
	}

	g := newGrid(points, 3)
	assert.LessOrEqual(t, g.numBuckets(), 100)
	assert.Greater(t, g.div[0], 1)

	bucket := NewBucketLocator(3)
	require.NoError(t, bucket.Build(context.Background(), points))
	static := NewStaticLocator(3, 4)
	require.NoError(t, static.Build(context.Background(), points))
	flat := NewFlatLocator()
	require.NoError(t, flat.Build(context.Background(), points))

	assert.LessOrEqual(t, bucket.grid.numBuckets(), len(points))
	assert.LessOrEqual(t, static.grid.numBuckets(), len(points))

	for _, q := range []core.Point{{X: 12345, Y: 1}, {X: -50}, {X: 3e6, Z: -2}} {
		want, err := flat.FindClosestPoint(q)
		require.NoError(t, err)
		for _, loc := range []core.Locator{bucket, static} {
			got, err := loc.FindClosestPoint(q)
			require.NoError(t, err)
			assert.InDelta(t, want.Distance, got.Distance, 1e-9, "%s at %v", loc.Type(), q)
		}
	}
}

func TestCapDivisions(t *testing.T) {
	div := [3]int{1000, 2, 1}
	capDivisions(&div, 10)
	assert.LessOrEqual(t, div[0]*div[1]*div[2], 10)
	for _, d := range div {
		assert.GreaterOrEqual(t, d, 1)
	}

	div = [3]int{4, 4, 4}
	capDivisions(&div, 64)
	assert.Equal(t, [3]int{4, 4, 4}, div)
}

func TestGridDefaultsPointsPerBucket(t *testing.T) {
	points := dataset.Uniform(300, 2)
	assert.Equal(t, newGrid(points, 3).div, newGrid(points, 0).div)
}

func TestStaticLocatorLayout(t *testing.T) {
	points := dataset.Uniform(10000, 4)

	static := NewStaticLocator(3, 4)
	require.NoError(t, static.Build(context.Background(), points))
	bucket := NewBucketLocator(3)
	require.NoError(t, bucket.Build(context.Background(), points))

	require.Equal(t, bucket.Divisions(), static.grid.div)
	require.Len(t, static.offsets, static.grid.numBuckets()+1)
	assert.Equal(t, int32(len(points)), static.offsets[len(static.offsets)-1])

	// Both layouts hold the same ids in the same order per bucket.
	for b := 0; b < static.grid.numBuckets(); b++ {
		want := bucket.bucket(b)
		got := static.bucket(b)
		if len(want) == 0 {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, want, got, "bucket %d", b)
	}
}

func TestStaticLocatorSingleWorker(t *testing.T) {
	points := dataset.Uniform(500, 9)
	a := NewStaticLocator(3, 1)
	b := NewStaticLocator(3, 16)
	require.NoError(t, a.Build(context.Background(), points))
	require.NoError(t, b.Build(context.Background(), points))
	assert.Equal(t, a.ids, b.ids)
	assert.Equal(t, a.offsets, b.offsets)
}

func TestKeeper(t *testing.T) {
	k := newKeeper(3)
	assert.False(t, k.full())

	for i, d := range []float64{9, 1, 16, 4, 25, 0} {
		k.offer(i, d)
	}
	assert.True(t, k.full())
	assert.Equal(t, 4.0, k.worst())

	got := k.neighbors()
	require.Len(t, got, 3)
	assert.Equal(t, []core.Neighbor{{Index: 5, Distance: 0}, {Index: 1, Distance: 1}, {Index: 3, Distance: 2}}, got)
}
