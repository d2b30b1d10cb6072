package bvh

import (
	"time"

	"github.com/achilleasa/rtaccel/log"
	"github.com/achilleasa/rtaccel/types"
	"github.com/chewxy/math32"
)

// BVH is a flattened bounding volume hierarchy. The root is always stored
// at Nodes[0]. Leaf nodes reference consecutive ranges of Indices which in
// turn hold the positions of the partitioned items in the slice passed to
// Build.
type BVH struct {
	Nodes   []Node
	Indices []uint32

	stats Stats
}

// Stats collected while building a tree.
type Stats struct {
	Primitives  int
	Nodes       int
	Leaves      int
	MaxDepth    int
	MaxLeafSize int

	// Sum of leaf primitive count * leaf surface area.
	Cost float32

	// Splits that were abandoned because all items ended up on one side.
	DegenerateSplits int

	// SAH splits that were skipped because no candidate was cheaper
	// than keeping the node as a leaf.
	RejectedSplits int

	BuildTime time.Duration
}

// Get the stats collected while the tree was built.
func (t *BVH) Stats() Stats {
	return t.stats
}

// Get the bounding box of the entire tree.
func (t *BVH) BBox() AABB {
	if len(t.Nodes) == 0 {
		return EmptyAABB()
	}
	return t.Nodes[0].BBox()
}

// Calculate the sum of leaf primitive count * leaf surface area.
func (t *BVH) Cost() float32 {
	var cost float32
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			cost += float32(t.Nodes[i].PrimitiveCount) * t.Nodes[i].BBox().SurfaceArea()
		}
	}
	return cost
}

type bin struct {
	bbox  AABB
	count uint32
}

type builder struct {
	logger log.Logger
	opts   Options

	// Per-item bboxes and centroids. Items are never moved; partitioning
	// only reorders indices.
	bboxes    []AABB
	centroids []types.Vec3

	nodes     []Node
	indices   []uint32
	nodesUsed uint32

	// Scratch space for SAH evaluation.
	bins       []bin
	leftCount  []uint32
	leftArea   []float32
	rightCount []uint32
	rightArea  []float32

	stats Stats
}

// Construct a BVH from a set of bounded items.
//
// The builder works top-down: starting with a root leaf that covers all
// items it recursively picks a split plane, partitions the index range of
// the node in place and creates two child nodes. Nodes are allocated from a
// pre-sized arena of 2N-1 slots which is trimmed to the number of nodes
// actually used once the build completes.
func Build[P Bounded](items []P, opts Options) (*BVH, error) {
	if len(items) == 0 {
		return nil, ErrNoPrimitives
	}

	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	b := &builder{
		logger:     log.New("bvh builder"),
		opts:       opts,
		bboxes:     make([]AABB, len(items)),
		centroids:  make([]types.Vec3, len(items)),
		nodes:      make([]Node, 2*len(items)-1),
		indices:    make([]uint32, len(items)),
		bins:       make([]bin, opts.Bins),
		leftCount:  make([]uint32, opts.Bins-1),
		leftArea:   make([]float32, opts.Bins-1),
		rightCount: make([]uint32, opts.Bins-1),
		rightArea:  make([]float32, opts.Bins-1),
		stats:      Stats{Primitives: len(items)},
	}
	for index, item := range items {
		b.bboxes[index] = item.BBox()
		b.centroids[index] = item.Centroid()
		b.indices[index] = uint32(index)
	}

	start := time.Now()
	b.nodes[0] = Node{LeftChild: 0, PrimitiveCount: uint32(len(items))}
	b.nodesUsed = 1
	b.updateBounds(0)
	b.subdivide(0, 0)

	b.stats.Nodes = int(b.nodesUsed)
	b.stats.BuildTime = time.Since(start)
	b.logger.Debugf(
		"BVH tree build time: %d us, strategy: %s, items: %d, maxDepth: %d, nodes: %d, leafs: %d",
		b.stats.BuildTime.Nanoseconds()/1e3, opts.Strategy,
		len(items), b.stats.MaxDepth, b.stats.Nodes, b.stats.Leaves,
	)

	return &BVH{
		Nodes:   b.nodes[:b.nodesUsed],
		Indices: b.indices,
		stats:   b.stats,
	}, nil
}

// Recalculate the node bbox so it encloses all items in its index range.
func (b *builder) updateBounds(nodeIndex uint32) {
	node := &b.nodes[nodeIndex]
	first, count := node.IndexRange()

	bbox := EmptyAABB()
	for i := first; i < first+count; i++ {
		bbox.Merge(b.bboxes[b.indices[i]])
	}
	node.SetBBox(bbox)
}

// Split node and recurse into its children. If the node cannot or should
// not be split it is left as a leaf.
func (b *builder) subdivide(nodeIndex uint32, depth int) {
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}

	node := &b.nodes[nodeIndex]
	if int(node.PrimitiveCount) <= b.opts.LeafSize {
		b.markLeaf(node)
		return
	}

	var axis int
	var splitPos float32
	switch b.opts.Strategy {
	case SurfaceAreaHeuristic:
		var ok bool
		axis, splitPos, ok = b.sahSplit(node)
		if !ok {
			b.stats.RejectedSplits++
			b.markLeaf(node)
			return
		}
	default:
		axis, splitPos = b.medianSplit(node)
	}

	leftCount := b.partition(node, axis, splitPos)

	// If all items ended up on the same side the split makes no
	// progress; keep the node as a leaf.
	if leftCount == 0 || leftCount == node.PrimitiveCount {
		b.stats.DegenerateSplits++
		b.markLeaf(node)
		return
	}

	leftIndex := b.nodesUsed
	rightIndex := leftIndex + 1
	b.nodesUsed += 2

	first, count := node.IndexRange()
	b.nodes[leftIndex] = Node{LeftChild: first, PrimitiveCount: leftCount}
	b.nodes[rightIndex] = Node{LeftChild: first + leftCount, PrimitiveCount: count - leftCount}

	node.LeftChild = leftIndex
	node.PrimitiveCount = 0

	b.updateBounds(leftIndex)
	b.updateBounds(rightIndex)
	b.subdivide(leftIndex, depth+1)
	b.subdivide(rightIndex, depth+1)
}

// Update stats for a node that will remain a leaf.
func (b *builder) markLeaf(node *Node) {
	b.stats.Leaves++
	b.stats.Cost += float32(node.PrimitiveCount) * node.BBox().SurfaceArea()
	if int(node.PrimitiveCount) > b.stats.MaxLeafSize {
		b.stats.MaxLeafSize = int(node.PrimitiveCount)
	}
}

// Reorder the node's index range so that all items whose centroid lies
// before splitPos along axis precede all other items. Items exactly at
// splitPos are placed on the right side. Returns the number of items on
// the left side.
func (b *builder) partition(node *Node, axis int, splitPos float32) uint32 {
	first, count := node.IndexRange()

	i := int(first)
	j := i + int(count) - 1
	for i <= j {
		if b.centroids[b.indices[i]][axis] < splitPos {
			i++
			continue
		}
		b.indices[i], b.indices[j] = b.indices[j], b.indices[i]
		j--
	}

	return uint32(i) - first
}

// Split the node bbox at the midpoint of its longest axis.
func (b *builder) medianSplit(node *Node) (axis int, splitPos float32) {
	extent := node.BBox().Extent()
	axis = extent.MaxAxis()
	return axis, node.Min[axis] + extent[axis]*0.5
}

// Evaluate binned SAH split candidates along each axis and return the
// cheapest one. The returned flag is false if no candidate is cheaper than
// keeping the node as a leaf.
//
// For each axis the centroid bounds of the node items are divided into
// equally sized bins. A first pass populates the bins; a second pass sweeps
// the bins from both ends accumulating counts and bboxes so that the cost
// of every bin boundary can be evaluated in constant time:
//
// cost = left count * left bbox area + right count * right bbox area
func (b *builder) sahSplit(node *Node) (bestAxis int, bestPos float32, ok bool) {
	first, count := node.IndexRange()
	numBins := len(b.bins)

	centroidBounds := EmptyAABB()
	for i := first; i < first+count; i++ {
		centroidBounds.Grow(b.centroids[b.indices[i]])
	}

	bestCost := math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		boundsMin, boundsMax := centroidBounds.Min[axis], centroidBounds.Max[axis]

		// All centroids share the same coordinate; nothing to split.
		if boundsMin == boundsMax {
			continue
		}

		for binIndex := range b.bins {
			b.bins[binIndex] = bin{bbox: EmptyAABB()}
		}

		scale := float32(numBins) / (boundsMax - boundsMin)
		for i := first; i < first+count; i++ {
			itemIndex := b.indices[i]
			binIndex := int(math32.Floor((b.centroids[itemIndex][axis] - boundsMin) * scale))
			if binIndex < 0 {
				binIndex = 0
			} else if binIndex >= numBins {
				binIndex = numBins - 1
			}
			b.bins[binIndex].count++
			b.bins[binIndex].bbox.Merge(b.bboxes[itemIndex])
		}

		leftBox, rightBox := EmptyAABB(), EmptyAABB()
		var leftSum, rightSum uint32
		for i := 0; i < numBins-1; i++ {
			leftSum += b.bins[i].count
			leftBox.Merge(b.bins[i].bbox)
			b.leftCount[i] = leftSum
			b.leftArea[i] = leftBox.SurfaceArea()

			rightSum += b.bins[numBins-1-i].count
			rightBox.Merge(b.bins[numBins-1-i].bbox)
			b.rightCount[numBins-2-i] = rightSum
			b.rightArea[numBins-2-i] = rightBox.SurfaceArea()
		}

		binWidth := (boundsMax - boundsMin) / float32(numBins)
		for i := 0; i < numBins-1; i++ {
			if b.leftCount[i] == 0 || b.rightCount[i] == 0 {
				continue
			}

			cost := float32(b.leftCount[i])*b.leftArea[i] + float32(b.rightCount[i])*b.rightArea[i]
			if cost < bestCost {
				bestCost = cost
				bestAxis = axis
				bestPos = boundsMin + binWidth*float32(i+1)
			}
		}
	}

	parentCost := float32(count) * node.BBox().SurfaceArea()
	if bestCost >= parentCost {
		return 0, 0, false
	}
	return bestAxis, bestPos, true
}
