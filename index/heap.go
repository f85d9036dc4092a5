package index

import (
	"container/heap"
	"math"

	"github.com/dshills/nnbench/core"
)

// candidate is a neighbour with its squared distance
type candidate struct {
	id    int
	dist2 float64
}

// keeper retains the k closest candidates seen so far as a max-heap on
// squared distance
type keeper struct {
	k     int
	items []candidate
}

func newKeeper(k int) *keeper {
	return &keeper{k: k, items: make([]candidate, 0, min(k, 1024))}
}

func (h *keeper) Len() int           { return len(h.items) }
func (h *keeper) Less(i, j int) bool { return h.items[i].dist2 > h.items[j].dist2 }
func (h *keeper) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *keeper) Push(x any)         { h.items = append(h.items, x.(candidate)) }
func (h *keeper) Pop() any {
	old := h.items
	n := len(old)
	c := old[n-1]
	h.items = old[:n-1]
	return c
}

// offer considers a candidate for inclusion
func (h *keeper) offer(id int, dist2 float64) {
	if len(h.items) < h.k {
		heap.Push(h, candidate{id: id, dist2: dist2})
		return
	}
	if dist2 < h.items[0].dist2 {
		h.items[0] = candidate{id: id, dist2: dist2}
		heap.Fix(h, 0)
	}
}

func (h *keeper) full() bool { return len(h.items) >= h.k }

// worst returns the largest retained squared distance, +Inf until full
func (h *keeper) worst() float64 {
	if !h.full() {
		return math.Inf(1)
	}
	return h.items[0].dist2
}

// neighbors returns the retained candidates in ascending distance order
func (h *keeper) neighbors() []core.Neighbor {
	out := make([]core.Neighbor, len(h.items))
	for i, c := range h.items {
		out[i] = core.Neighbor{Index: c.id, Distance: math.Sqrt(c.dist2)}
	}
	core.SortNeighbors(out)
	return out
}
