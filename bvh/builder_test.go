package bvh

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/achilleasa/rtaccel/types"
)

func mustTriangle(t *testing.T, a, b, c types.Vec3) Triangle {
	t.Helper()
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	tri, err := NewTriangle([]types.Vec3{a, b, c}, []types.Vec3{n, n, n}, types.XYZ(1, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	return tri
}

func randomTriangles(t *testing.T, count int, seed int64) []Triangle {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	rnd := func(scale float32) float32 {
		return (rng.Float32()*2 - 1) * scale
	}

	tris := make([]Triangle, count)
	for i := range tris {
		center := types.XYZ(rnd(10), rnd(10), rnd(10))
		tris[i] = mustTriangle(t,
			center.Add(types.XYZ(rnd(0.5), rnd(0.5), rnd(0.5))),
			center.Add(types.XYZ(rnd(0.5), rnd(0.5), rnd(0.5))),
			center.Add(types.XYZ(rnd(0.5), rnd(0.5), rnd(0.5))),
		)
	}
	return tris
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build([]Triangle{}, DefaultOptions(MedianSplit))
	if !errors.Is(err, ErrNoPrimitives) {
		t.Fatalf("expected error %v; got %v", ErrNoPrimitives, err)
	}
}

func TestBuildUnknownStrategy(t *testing.T) {
	tris := randomTriangles(t, 4, 1)
	if _, err := Build(tris, Options{Strategy: Strategy(42)}); err == nil {
		t.Fatal("expected an error for an unsupported strategy")
	}
}

func TestBuildSingleTriangle(t *testing.T) {
	tri := mustTriangle(t, types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 1, 0))

	for _, strategy := range []Strategy{MedianSplit, SurfaceAreaHeuristic} {
		tree, err := Build([]Triangle{tri}, DefaultOptions(strategy))
		if err != nil {
			t.Fatal(err)
		}

		if len(tree.Nodes) != 1 {
			t.Fatalf("[%s] expected tree to contain 1 node; got %d", strategy, len(tree.Nodes))
		}
		root := tree.Nodes[0]
		if root.LeftChild != 0 || root.PrimitiveCount != 1 {
			t.Fatalf("[%s] expected root to be a leaf at index 0 with count 1; got (%d, %d)", strategy, root.LeftChild, root.PrimitiveCount)
		}
		if root.BBox() != tri.BBox() {
			t.Fatalf("[%s] expected root bbox to be %v; got %v", strategy, tri.BBox(), root.BBox())
		}
		if len(tree.Indices) != 1 || tree.Indices[0] != 0 {
			t.Fatalf("[%s] expected indices to be [0]; got %v", strategy, tree.Indices)
		}
	}
}

func TestBuildCoincidentCentroids(t *testing.T) {
	tris := []Triangle{
		mustTriangle(t, types.XYZ(-1, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 3, 0)),
		mustTriangle(t, types.XYZ(-1, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 3, 0)),
		mustTriangle(t, types.XYZ(-1, 0, 0), types.XYZ(1, 0, 0), types.XYZ(0, 3, 0)),
	}

	tree, err := Build(tris, DefaultOptions(MedianSplit))
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected degenerate split to produce a single node; got %d", len(tree.Nodes))
	}
	if count := tree.Nodes[0].PrimitiveCount; count != 3 {
		t.Fatalf("expected root leaf to reference 3 items; got %d", count)
	}
	if stats := tree.Stats(); stats.DegenerateSplits != 1 {
		t.Fatalf("expected 1 degenerate split; got %d", stats.DegenerateSplits)
	}

	// SAH skips axes where all centroids coincide and should also keep a single leaf.
	tree, err = Build(tris, DefaultOptions(SurfaceAreaHeuristic))
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Nodes) != 1 || tree.Nodes[0].PrimitiveCount != 3 {
		t.Fatalf("expected SAH build to produce a single leaf with 3 items; got %d nodes", len(tree.Nodes))
	}
}

func TestBuildInvariants(t *testing.T) {
	tris := randomTriangles(t, 1000, 1234)

	specs := []Options{
		DefaultOptions(MedianSplit),
		DefaultOptions(SurfaceAreaHeuristic),
		{Strategy: SurfaceAreaHeuristic, LeafSize: 4, Bins: 8},
		{Strategy: MedianSplit, LeafSize: 8},
	}

	for specIndex, opts := range specs {
		tree, err := Build(tris, opts)
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		if err = Verify(tree, tris); err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}

		stats := tree.Stats()
		if stats.Nodes != len(tree.Nodes) {
			t.Fatalf("[spec %d] expected stats node count to be %d; got %d", specIndex, len(tree.Nodes), stats.Nodes)
		}
		if 2*stats.Leaves-1 != stats.Nodes {
			t.Fatalf("[spec %d] expected a full binary tree with %d leaves to have %d nodes; got %d", specIndex, stats.Leaves, 2*stats.Leaves-1, stats.Nodes)
		}

		rootBox := EmptyAABB()
		for _, tri := range tris {
			rootBox.Merge(tri.BBox())
		}
		if tree.BBox() != rootBox {
			t.Fatalf("[spec %d] expected root bbox to be %v; got %v", specIndex, rootBox, tree.BBox())
		}
	}
}

func TestBuildLeafSize(t *testing.T) {
	tris := randomTriangles(t, 300, 99)
	tree, err := Build(tris, DefaultOptions(MedianSplit))
	if err != nil {
		t.Fatal(err)
	}

	// Leaves may only exceed the leaf size when a split degenerates.
	if stats := tree.Stats(); stats.DegenerateSplits == 0 && stats.MaxLeafSize > 2 {
		t.Fatalf("expected max leaf size to be <= 2; got %d", stats.MaxLeafSize)
	}
}

func TestSAHCostNotWorseThanMedian(t *testing.T) {
	tris := randomTriangles(t, 1000, 42)

	medianTree, err := Build(tris, DefaultOptions(MedianSplit))
	if err != nil {
		t.Fatal(err)
	}
	sahTree, err := Build(tris, DefaultOptions(SurfaceAreaHeuristic))
	if err != nil {
		t.Fatal(err)
	}

	medianCost, sahCost := medianTree.Cost(), sahTree.Cost()
	if sahCost > medianCost {
		t.Fatalf("expected SAH cost (%f) to be <= median cost (%f)", sahCost, medianCost)
	}

	if diff := sahTree.Stats().Cost - sahCost; diff > 1e-2*sahCost || diff < -1e-2*sahCost {
		t.Fatalf("expected tracked cost %f to match computed cost %f", sahTree.Stats().Cost, sahCost)
	}
}

func TestBuildSpheres(t *testing.T) {
	spheres := make([]Sphere, 0, 64)
	for i := 0; i < 64; i++ {
		s, err := NewSphere(types.XYZ(float32(i%8)*3, float32(i/8)*3, 0), 1, types.XYZ(1, 0, 0))
		if err != nil {
			t.Fatal(err)
		}
		spheres = append(spheres, s)
	}

	tree, err := Build(spheres, DefaultOptions(SurfaceAreaHeuristic))
	if err != nil {
		t.Fatal(err)
	}
	if err = Verify(tree, spheres); err != nil {
		t.Fatal(err)
	}
	if leaves := tree.Stats().Leaves; leaves != 64 {
		t.Fatalf("expected 64 single-sphere leaves; got %d", leaves)
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	tris := randomTriangles(t, 50, 7)
	tree, err := Build(tris, DefaultOptions(MedianSplit))
	if err != nil {
		t.Fatal(err)
	}

	tree.Indices[0] = tree.Indices[1]
	if err = Verify(tree, tris); err == nil {
		t.Fatal("expected Verify to detect a duplicate index")
	}
}
