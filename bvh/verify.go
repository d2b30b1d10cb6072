package bvh

import "fmt"

// Verify checks the structural invariants of a tree built from items:
//   - the tree contains at most 2N-1 nodes
//   - the index list is a permutation of [0, N)
//   - every internal node has both children inside the node list
//   - every node bbox contains the bboxes of its children
//   - every leaf bbox contains the bboxes of all items it references
//   - every item is referenced by exactly one leaf
func Verify[P Bounded](t *BVH, items []P) error {
	if len(items) == 0 {
		return ErrNoPrimitives
	}
	if len(t.Nodes) == 0 || len(t.Nodes) > 2*len(items)-1 {
		return fmt.Errorf("bvh: node count %d out of range [1, %d]", len(t.Nodes), 2*len(items)-1)
	}
	if len(t.Indices) != len(items) {
		return fmt.Errorf("bvh: expected %d indices; got %d", len(items), len(t.Indices))
	}

	seen := make([]bool, len(items))
	for _, index := range t.Indices {
		if int(index) >= len(items) {
			return fmt.Errorf("bvh: index %d out of range", index)
		}
		if seen[index] {
			return fmt.Errorf("bvh: index %d appears more than once", index)
		}
		seen[index] = true
	}

	covered := make([]bool, len(t.Indices))
	for nodeIndex := range t.Nodes {
		node := &t.Nodes[nodeIndex]
		bbox := node.BBox()

		if !node.IsLeaf() {
			left, right := node.Children()
			if left <= uint32(nodeIndex) || int(right) >= len(t.Nodes) {
				return fmt.Errorf("bvh: node %d has invalid children (%d, %d)", nodeIndex, left, right)
			}
			if !bbox.Contains(t.Nodes[left].BBox()) || !bbox.Contains(t.Nodes[right].BBox()) {
				return fmt.Errorf("bvh: node %d bbox does not enclose its children", nodeIndex)
			}
			continue
		}

		first, count := node.IndexRange()
		if int(first+count) > len(t.Indices) {
			return fmt.Errorf("bvh: leaf %d index range [%d, %d) out of bounds", nodeIndex, first, first+count)
		}
		for slot := first; slot < first+count; slot++ {
			if covered[slot] {
				return fmt.Errorf("bvh: index slot %d referenced by more than one leaf", slot)
			}
			covered[slot] = true
			if !bbox.Contains(items[t.Indices[slot]].BBox()) {
				return fmt.Errorf("bvh: leaf %d bbox does not enclose item %d", nodeIndex, t.Indices[slot])
			}
		}
	}

	for slot, ok := range covered {
		if !ok {
			return fmt.Errorf("bvh: index slot %d is not referenced by any leaf", slot)
		}
	}
	return nil
}
