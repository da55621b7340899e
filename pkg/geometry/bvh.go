package geometry

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/df07/go-tile-pathtracer/pkg/core"
	"github.com/df07/go-tile-pathtracer/pkg/material"
)

const (
	// maxDepth caps the tree height; ranges still too large at this depth become leaves
	maxDepth = 10
	// leafThreshold: if we have this many or fewer triangles, store them in a leaf node
	leafThreshold = 4
	// traversalStackSize bounds the explicit traversal stack
	traversalStackSize = 32
)

// SplitHeuristic selects how a node's triangle range is partitioned
type SplitHeuristic int

const (
	// SplitEqual splits at the median centroid along the longest axis
	SplitEqual SplitHeuristic = iota
	// SplitMiddle splits at the spatial midpoint of the centroid bounds
	SplitMiddle
	// SplitSAH picks the split with the lowest surface area cost over all axes
	SplitSAH
)

var heuristicNames = map[SplitHeuristic]string{
	SplitEqual:  "equal",
	SplitMiddle: "middle",
	SplitSAH:    "sah",
}

func (h SplitHeuristic) String() string {
	if name, ok := heuristicNames[h]; ok {
		return name
	}
	return fmt.Sprintf("SplitHeuristic(%d)", int(h))
}

// ParseSplitHeuristic converts a heuristic name (equal, middle, sah) into a SplitHeuristic
func ParseSplitHeuristic(name string) (SplitHeuristic, error) {
	for h, n := range heuristicNames {
		if strings.EqualFold(name, n) {
			return h, nil
		}
	}
	return SplitEqual, errors.Errorf("unknown split heuristic %q (want equal, middle or sah)", name)
}

// BVHNode is one entry of the flat pre-order node array.
// A leaf owns triangles [Offset, Offset+Count). An interior node has Count 0,
// its first child directly follows it and Offset holds the second child's index.
type BVHNode struct {
	BoundingBox core.AABB
	Offset      uint32
	Count       uint32
	SplitAxis   uint8
}

// IsLeaf reports whether the node references triangles
func (n *BVHNode) IsLeaf() bool {
	return n.Count != 0
}

// BVH is a bounding volume hierarchy over a triangle slice that it owns and
// reorders so every leaf references a contiguous range.
type BVH struct {
	Nodes     []BVHNode
	Triangles []Triangle
	materials []material.Material
	heuristic SplitHeuristic
}

// BuildBVH constructs a BVH over the triangles, reordering the slice in place.
// The materials are consulted during traversal for culling and occlusion.
func BuildBVH(triangles []Triangle, materials []material.Material, heuristic SplitHeuristic) *BVH {
	bvh := &BVH{
		Triangles: triangles,
		materials: materials,
		heuristic: heuristic,
	}
	if len(triangles) == 0 {
		return bvh
	}

	bvh.Nodes = make([]BVHNode, 0, 2*len(triangles)/leafThreshold+1)
	bvh.build(0, len(triangles), 0)
	return bvh
}

// Heuristic returns the split heuristic the tree was built with
func (bvh *BVH) Heuristic() SplitHeuristic {
	return bvh.heuristic
}

// BoundingBox returns the bounds of the whole tree, or an empty box
func (bvh *BVH) BoundingBox() core.AABB {
	if len(bvh.Nodes) == 0 {
		return core.EmptyAABB()
	}
	return bvh.Nodes[0].BoundingBox
}

// build appends the node for triangles [start, end) and recurses into its children.
// It returns the index of the appended node.
func (bvh *BVH) build(start, end, depth int) int {
	box := core.EmptyAABB()
	for i := start; i < end; i++ {
		box = box.Union(bvh.Triangles[i].bbox)
	}

	index := len(bvh.Nodes)
	bvh.Nodes = append(bvh.Nodes, BVHNode{BoundingBox: box})

	count := end - start
	if count <= leafThreshold || depth >= maxDepth {
		bvh.Nodes[index].Offset = uint32(start)
		bvh.Nodes[index].Count = uint32(count)
		return index
	}

	var mid, axis int
	switch bvh.heuristic {
	case SplitMiddle:
		mid, axis = bvh.splitMiddle(start, end, box)
	case SplitSAH:
		mid, axis = bvh.splitSAH(start, end, box)
	default:
		mid, axis = bvh.splitEqual(start, end, box)
	}

	bvh.Nodes[index].SplitAxis = uint8(axis)
	bvh.build(start, mid, depth+1)
	second := bvh.build(mid, end, depth+1)
	bvh.Nodes[index].Offset = uint32(second)
	return index
}

// centroidBounds bounds the centroids of triangles [start, end)
func (bvh *BVH) centroidBounds(start, end int) core.AABB {
	box := core.EmptyAABB()
	for i := start; i < end; i++ {
		c := bvh.Triangles[i].centroid
		box.Min = core.MinVec(box.Min, c)
		box.Max = core.MaxVec(box.Max, c)
	}
	return box
}

// splitEqual partitions around the median centroid along the longest axis of the node box
func (bvh *BVH) splitEqual(start, end int, box core.AABB) (int, int) {
	axis := box.LongestAxis()
	mid := start + (end-start)/2
	selectNth(bvh.Triangles[start:end], mid-start, axis)
	return mid, axis
}

// splitMiddle partitions centroids around the midpoint of the node box on its longest axis.
// When every centroid lands on one side it falls back to a median split on the same axis.
func (bvh *BVH) splitMiddle(start, end int, box core.AABB) (int, int) {
	axis := box.LongestAxis()
	pivot := 0.5 * (box.Min.Axis(axis) + box.Max.Axis(axis))

	mid := start
	for i := start; i < end; i++ {
		if bvh.Triangles[i].centroid.Axis(axis) < pivot {
			bvh.Triangles[i], bvh.Triangles[mid] = bvh.Triangles[mid], bvh.Triangles[i]
			mid++
		}
	}

	if mid == start || mid == end {
		mid = start + (end-start)/2
		selectNth(bvh.Triangles[start:end], mid-start, axis)
	}
	return mid, axis
}

// splitSAH evaluates every split position on all three axes and keeps the cheapest.
// cost(i) = 0.125 + (nLeft*area(left) + nRight*area(right)) / area(parent)
func (bvh *BVH) splitSAH(start, end int, parent core.AABB) (int, int) {
	count := end - start
	if count <= 2 {
		return bvh.splitEqual(start, end, parent)
	}

	tris := bvh.Triangles[start:end]
	parentArea := parent.Area()
	bestCost := math.Inf(1)
	bestAxis := bvh.centroidBounds(start, end).LongestAxis()
	bestSplit := count / 2

	// suffix[i] bounds tris[i:]
	suffix := make([]core.AABB, count+1)
	for axis := 0; axis < 3; axis++ {
		sortByCentroid(tris, axis)

		suffix[count] = core.EmptyAABB()
		for i := count - 1; i >= 0; i-- {
			suffix[i] = suffix[i+1].Union(tris[i].bbox)
		}

		left := tris[0].bbox
		for i := 1; i < count; i++ {
			cost := 0.125 + (float64(i)*left.Area()+float64(count-i)*suffix[i].Area())/parentArea
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestSplit = i
			}
			left = left.Union(tris[i].bbox)
		}
	}

	sortByCentroid(tris, bestAxis)
	return start + bestSplit, bestAxis
}

func sortByCentroid(tris []Triangle, axis int) {
	sort.SliceStable(tris, func(i, j int) bool {
		return tris[i].centroid.Axis(axis) < tris[j].centroid.Axis(axis)
	})
}

// selectNth reorders tris so the element at k has its sorted position, with
// smaller-or-equal centroids before it and greater-or-equal after it.
func selectNth(tris []Triangle, k, axis int) {
	lo, hi := 0, len(tris)-1
	for lo < hi {
		pivot := tris[lo+(hi-lo)/2].centroid.Axis(axis)
		i, j := lo, hi
		for i <= j {
			for tris[i].centroid.Axis(axis) < pivot {
				i++
			}
			for tris[j].centroid.Axis(axis) > pivot {
				j--
			}
			if i <= j {
				tris[i], tris[j] = tris[j], tris[i]
				i++
				j--
			}
		}
		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return
		}
	}
}

// nodeStack is the fixed-size traversal stack
type nodeStack struct {
	items [traversalStackSize]uint32
	size  int
}

func (s *nodeStack) push(index uint32) {
	if s.size == traversalStackSize {
		panic(fmt.Sprintf("bvh traversal stack overflow (capacity %d)", traversalStackSize))
	}
	s.items[s.size] = index
	s.size++
}

func (s *nodeStack) pop() uint32 {
	s.size--
	return s.items[s.size]
}

// pushChildren pushes the far child first so the near child is visited next
func pushChildren(stack *nodeStack, index uint32, node *BVHNode, dirIsNeg *[3]bool) {
	near, far := index+1, node.Offset
	if dirIsNeg[node.SplitAxis] {
		near, far = far, near
	}
	stack.push(far)
	stack.push(near)
}

func directionSigns(ray *core.Ray) [3]bool {
	return [3]bool{ray.InvDirection.X < 0, ray.InvDirection.Y < 0, ray.InvDirection.Z < 0}
}

// NearestHit returns the closest intersection along the ray. Every accepted hit
// shrinks ray.MaxT so farther boxes are skipped. Equal distances resolve to the
// triangle with the lowest ID.
func (bvh *BVH) NearestHit(ray *core.Ray) HitRecord {
	closest := NoHit()
	if len(bvh.Nodes) == 0 {
		return closest
	}

	dirIsNeg := directionSigns(ray)
	closestID := math.MaxInt
	var stack nodeStack
	stack.push(0)

	for stack.size > 0 {
		index := stack.pop()
		node := &bvh.Nodes[index]
		if !node.BoundingBox.Hit(*ray) {
			continue
		}

		if !node.IsLeaf() {
			pushChildren(&stack, index, node, &dirIsNeg)
			continue
		}

		for i := node.Offset; i < node.Offset+node.Count; i++ {
			tri := &bvh.Triangles[i]
			var rec HitRecord
			if !tri.Hit(*ray, bvh.materials[tri.MaterialIndex].CullBackFace(), &rec) {
				continue
			}
			if rec.T < closest.T || (rec.T == closest.T && tri.ID < closestID) {
				rec.TriangleIndex = int(i)
				closest = rec
				closestID = tri.ID
				ray.MaxT = rec.T
			}
		}
	}

	return closest
}

// AnyHit reports whether anything that blocks light lies on the ray within
// [0, ray.MaxT]. Refractive surfaces are transparent to this query.
func (bvh *BVH) AnyHit(ray core.Ray) bool {
	if len(bvh.Nodes) == 0 {
		return false
	}

	dirIsNeg := directionSigns(&ray)
	var stack nodeStack
	stack.push(0)

	for stack.size > 0 {
		index := stack.pop()
		node := &bvh.Nodes[index]
		if !node.BoundingBox.Hit(ray) {
			continue
		}

		if !node.IsLeaf() {
			pushChildren(&stack, index, node, &dirIsNeg)
			continue
		}

		for i := node.Offset; i < node.Offset+node.Count; i++ {
			tri := &bvh.Triangles[i]
			mat := &bvh.materials[tri.MaterialIndex]
			var rec HitRecord
			if tri.Hit(ray, mat.CullBackFace(), &rec) && mat.Occludes() {
				return true
			}
		}
	}

	return false
}

// BVHStats summarizes the shape of a built tree
type BVHStats struct {
	Heuristic   SplitHeuristic
	Triangles   int
	Nodes       int
	Leaves      int
	MaxDepth    int
	MaxLeafSize int
	AvgLeafSize float64
}

// Stats walks the node array and collects tree statistics
func (bvh *BVH) Stats() BVHStats {
	stats := BVHStats{
		Heuristic: bvh.Heuristic(),
		Triangles: len(bvh.Triangles),
		Nodes:     len(bvh.Nodes),
	}
	if len(bvh.Nodes) == 0 {
		return stats
	}

	type entry struct{ index, depth int }
	pending := []entry{{0, 0}}
	for len(pending) > 0 {
		e := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		node := &bvh.Nodes[e.index]

		if e.depth > stats.MaxDepth {
			stats.MaxDepth = e.depth
		}
		if node.IsLeaf() {
			stats.Leaves++
			if int(node.Count) > stats.MaxLeafSize {
				stats.MaxLeafSize = int(node.Count)
			}
			continue
		}
		pending = append(pending, entry{e.index + 1, e.depth + 1}, entry{int(node.Offset), e.depth + 1})
	}

	stats.AvgLeafSize = float64(stats.Triangles) / float64(stats.Leaves)
	return stats
}

// Table renders the statistics as a two-column text table
func (s BVHStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"BVH", "Value"})
	table.SetAutoFormatHeaders(false)
	table.Append([]string{"heuristic", s.Heuristic.String()})
	table.Append([]string{"triangles", fmt.Sprint(s.Triangles)})
	table.Append([]string{"nodes", fmt.Sprint(s.Nodes)})
	table.Append([]string{"leaves", fmt.Sprint(s.Leaves)})
	table.Append([]string{"max depth", fmt.Sprint(s.MaxDepth)})
	table.Append([]string{"max leaf size", fmt.Sprint(s.MaxLeafSize)})
	table.Append([]string{"avg leaf size", fmt.Sprintf("%.2f", s.AvgLeafSize)})
	table.Render()
	return buf.String()
}
