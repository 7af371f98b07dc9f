package accel

import (
	"sort"
)

// DefaultLeafSize is the primitive count at or below which a node becomes a leaf.
const DefaultLeafSize = 4

// Node is one entry of a flattened, depth-first BVH.
// An inner node's left child immediately follows it; Offset holds the right child index.
// A leaf holds Count > 0 primitives starting at Offset in the BVH's primitive order.
type Node struct {
	Bounds AABB
	Offset uint32
	Count  uint32
}

// Leaf reports whether the node stores primitives.
func (n Node) Leaf() bool {
	return n.Count > 0
}

// BVH is a bounding volume hierarchy over an indexed set of primitives.
// The flattened layout uploads to GPU storage buffers as-is.
type BVH struct {
	Nodes []Node
	// Order maps leaf slots to primitive indices.
	Order []uint32
}

// BuildBVH builds a hierarchy over primitive bounds using a median split on the longest centroid axis.
//
// Parameters:
//   - bounds: one box per primitive
//   - leafSize: maximum primitives per leaf (DefaultLeafSize when <= 0)
//
// Returns:
//   - BVH: the flattened hierarchy; empty when bounds is empty
func BuildBVH(bounds []AABB, leafSize int) BVH {
	if leafSize <= 0 {
		leafSize = DefaultLeafSize
	}
	if len(bounds) == 0 {
		return BVH{}
	}

	order := make([]uint32, len(bounds))
	centers := make([]AABB, len(bounds))
	for i, b := range bounds {
		order[i] = uint32(i)
		c := b.Center()
		centers[i] = AABB{Min: c, Max: c}
	}

	bvh := BVH{
		Nodes: make([]Node, 0, 2*len(bounds)/leafSize+1),
		Order: order,
	}
	bvh.build(bounds, centers, 0, len(order), leafSize)
	return bvh
}

func (b *BVH) build(bounds, centers []AABB, start, end, leafSize int) uint32 {
	box := EmptyAABB()
	centroidBox := EmptyAABB()
	for _, p := range b.Order[start:end] {
		box = box.Union(bounds[p])
		centroidBox = centroidBox.Union(centers[p])
	}

	idx := uint32(len(b.Nodes))
	b.Nodes = append(b.Nodes, Node{Bounds: box})

	count := end - start
	if count <= leafSize {
		b.Nodes[idx].Offset = uint32(start)
		b.Nodes[idx].Count = uint32(count)
		return idx
	}

	axis := centroidBox.LongestAxis()
	slice := b.Order[start:end]
	sort.SliceStable(slice, func(i, j int) bool {
		return centers[slice[i]].Min[axis] < centers[slice[j]].Min[axis]
	})
	mid := start + count/2

	b.build(bounds, centers, start, mid, leafSize)
	right := b.build(bounds, centers, mid, end, leafSize)
	b.Nodes[idx].Offset = right
	return idx
}

// Refit recomputes node bounds bottom-up from new primitive bounds, keeping the topology.
// Children always follow their parent in the flattened array, so a reverse sweep visits them first.
func (b *BVH) Refit(bounds []AABB) {
	for i := len(b.Nodes) - 1; i >= 0; i-- {
		n := &b.Nodes[i]
		if n.Leaf() {
			box := EmptyAABB()
			for _, p := range b.Order[n.Offset : n.Offset+n.Count] {
				box = box.Union(bounds[p])
			}
			n.Bounds = box
			continue
		}
		n.Bounds = b.Nodes[i+1].Bounds.Union(b.Nodes[n.Offset].Bounds)
	}
}

// Bounds returns the root box, or an empty box for an empty hierarchy.
func (b *BVH) Bounds() AABB {
	if len(b.Nodes) == 0 {
		return EmptyAABB()
	}
	return b.Nodes[0].Bounds
}

// Traverse visits every leaf primitive whose ancestors the ray enters, nearest subtree first.
// visit returns the new closest distance and whether it accepted a hit; returning stop ends the walk.
func (b *BVH) Traverse(r Ray, tMin, tMax float32, visit func(prim uint32, tMax float32) (newMax float32, stop bool)) float32 {
	if len(b.Nodes) == 0 {
		return tMax
	}
	var stack [64]uint32
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		idx := stack[sp]
		n := b.Nodes[idx]
		if _, ok := n.Bounds.Hit(r, tMin, tMax); !ok {
			continue
		}
		if n.Leaf() {
			for _, p := range b.Order[n.Offset : n.Offset+n.Count] {
				var stop bool
				tMax, stop = visit(p, tMax)
				if stop {
					return tMax
				}
			}
			continue
		}

		left, right := idx+1, n.Offset
		tl, hitL := b.Nodes[left].Bounds.Hit(r, tMin, tMax)
		tr, hitR := b.Nodes[right].Bounds.Hit(r, tMin, tMax)
		switch {
		case hitL && hitR:
			if tl <= tr {
				stack[sp], stack[sp+1] = right, left
			} else {
				stack[sp], stack[sp+1] = left, right
			}
			sp += 2
		case hitL:
			stack[sp] = left
			sp++
		case hitR:
			stack[sp] = right
			sp++
		}
	}
	return tMax
}

// Stats summarizes a hierarchy for logs and the inspect command.
type Stats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
	MaxLeaf  int
}

// Stats walks the hierarchy and reports its shape.
func (b *BVH) Stats() Stats {
	var s Stats
	if len(b.Nodes) == 0 {
		return s
	}
	var walk func(i uint32, depth int)
	walk = func(i uint32, depth int) {
		n := b.Nodes[i]
		s.Nodes++
		s.MaxDepth = max(s.MaxDepth, depth)
		if n.Leaf() {
			s.Leaves++
			s.MaxLeaf = max(s.MaxLeaf, int(n.Count))
			return
		}
		walk(i+1, depth+1)
		walk(n.Offset, depth+1)
	}
	walk(0, 0)
	return s
}
