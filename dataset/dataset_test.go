package dataset

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformInUnitCube(t *testing.T) {
	points := Uniform(5000, 7)
	require.Len(t, points, 5000)

	unit := Box{Max: r3.Vector{X: 1, Y: 1, Z: 1}}
	for i, p := range points {
		if !unit.Contains(p) || p.X == 1 || p.Y == 1 || p.Z == 1 {
			t.Fatalf("point %d outside [0,1)^3: %v", i, p)
		}
	}
}

func TestQueriesAreReproducible(t *testing.T) {
	a := Queries(100, DefaultQuerySeed)
	b := Queries(100, DefaultQuerySeed)
	assert.Equal(t, a, b)

	c := Queries(100, DefaultQuerySeed+1)
	assert.NotEqual(t, a, c)
}

func TestUniformEmpty(t *testing.T) {
	assert.Nil(t, Uniform(0, 1))
	assert.Nil(t, Uniform(-5, 1))
}

func TestGeneratorFillContinuesSequence(t *testing.T) {
	g := NewGenerator(3)
	first := make([]r3.Vector, 4)
	second := make([]r3.Vector, 4)
	g.Fill(first)
	g.Fill(second)

	all := Uniform(8, 3)
	assert.Equal(t, all[:4], first)
	assert.Equal(t, all[4:], second)
}

func TestBounds(t *testing.T) {
	assert.Equal(t, Box{}, Bounds(nil))

	points := []r3.Vector{
		{X: 0.5, Y: -1, Z: 2},
		{X: -0.5, Y: 3, Z: 0},
		{X: 0, Y: 0, Z: 1},
	}
	b := Bounds(points)
	assert.Equal(t, r3.Vector{X: -0.5, Y: -1, Z: 0}, b.Min)
	assert.Equal(t, r3.Vector{X: 0.5, Y: 3, Z: 2}, b.Max)
	assert.Equal(t, r3.Vector{X: 1, Y: 4, Z: 2}, b.Size())

	for _, p := range points {
		assert.True(t, b.Contains(p))
	}
	assert.False(t, b.Contains(r3.Vector{X: 1}))
}
