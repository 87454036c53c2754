// Package bvh builds a bounding volume hierarchy over world space boxes and
// culls it against a view frustum.
package bvh

import (
	"math"
	"slices"

	"github.com/gekko3d/volumetrics/fogrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Node is one box of the hierarchy. Leaves have Left == Right == -1 and
// Item set to the index of the input box.
type Node struct {
	Min   mgl32.Vec3
	Max   mgl32.Vec3
	Left  int32
	Right int32
	Item  int32
}

func (n Node) Leaf() bool {
	return n.Left < 0 && n.Right < 0
}

type item struct {
	min      mgl32.Vec3
	max      mgl32.Vec3
	centroid mgl32.Vec3
	index    int
}

// Tree is an immutable hierarchy. The zero value is empty.
type Tree struct {
	nodes []Node
	items int
}

// Build splits the boxes at the median centroid along the longest axis of
// each node's extent.
func Build(aabbs [][2]mgl32.Vec3) *Tree {
	t := &Tree{items: len(aabbs)}
	if len(aabbs) == 0 {
		return t
	}
	items := make([]item, len(aabbs))
	for i, b := range aabbs {
		items[i] = item{
			min:      b[0],
			max:      b[1],
			centroid: b[0].Add(b[1]).Mul(0.5),
			index:    i,
		}
	}
	t.nodes = make([]Node, 0, 2*len(items)-1)
	t.build(items)
	return t
}

func (t *Tree) build(items []item) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, Node{Left: -1, Right: -1, Item: -1})

	inf := float32(math.Inf(1))
	minB := mgl32.Vec3{inf, inf, inf}
	maxB := mgl32.Vec3{-inf, -inf, -inf}
	for _, it := range items {
		for a := 0; a < 3; a++ {
			minB[a] = min(minB[a], it.min[a])
			maxB[a] = max(maxB[a], it.max[a])
		}
	}
	t.nodes[idx].Min = minB
	t.nodes[idx].Max = maxB

	if len(items) == 1 {
		t.nodes[idx].Item = int32(items[0].index)
		return idx
	}

	extent := maxB.Sub(minB)
	axis := 0
	if extent.Y() > extent.X() {
		axis = 1
	}
	if extent.Z() > extent[axis] {
		axis = 2
	}
	slices.SortStableFunc(items, func(a, b item) int {
		switch {
		case a.centroid[axis] < b.centroid[axis]:
			return -1
		case a.centroid[axis] > b.centroid[axis]:
			return 1
		}
		return 0
	})

	mid := len(items) / 2
	left := t.build(items[:mid])
	right := t.build(items[mid:])
	t.nodes[idx].Left = left
	t.nodes[idx].Right = right
	return idx
}

// Len is the number of boxes the tree was built from.
func (t *Tree) Len() int {
	return t.items
}

func (t *Tree) Nodes() []Node {
	return t.nodes
}

// Bounds is the root box; false for an empty tree.
func (t *Tree) Bounds() ([2]mgl32.Vec3, bool) {
	if len(t.nodes) == 0 {
		return [2]mgl32.Vec3{}, false
	}
	return [2]mgl32.Vec3{t.nodes[0].Min, t.nodes[0].Max}, true
}

// Cull returns the indices of the input boxes that intersect the frustum,
// in ascending order.
func (t *Tree) Cull(planes [6]mgl32.Vec4) []int {
	if len(t.nodes) == 0 {
		return nil
	}
	var out []int
	stack := []int32{0}
	for len(stack) > 0 {
		n := t.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]
		if !core.AABBInFrustum([2]mgl32.Vec3{n.Min, n.Max}, planes) {
			continue
		}
		if n.Leaf() {
			out = append(out, int(n.Item))
			continue
		}
		stack = append(stack, n.Left, n.Right)
	}
	slices.Sort(out)
	return out
}
