package reader

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/achilleasa/rtaccel/bvh"
	"github.com/achilleasa/rtaccel/types"
)

const cubeObj = `
v -1 -1 -1
v 1 -1 -1
v 1 1 -1
v -1 1 -1
v -1 -1 1
v 1 -1 1
v 1 1 1
v -1 1 1
f 1 2 3 4
f 5 8 7 6
f 1 5 6 2
f 2 6 7 3
f 3 7 8 4
f 5 1 4 8
`

func TestParseSceneDescription(t *testing.T) {
	desc, err := ParseSceneDescription(strings.NewReader(`
blas: {strategy: median, leaf_size: 4}
tlas: {strategy: sah, bins: 8}
limits: {storage_alignment: 64}
meshes:
  - {name: cube, path: cube.obj, color: [1, 0, 0]}
instances:
  - {mesh: cube, position: [0, 0, -5], rotation: [0, 90, 0], angular_velocity: [0, 10, 0]}
scatter:
  - {mesh: cube, count: 3, extent: 10, seed: 7, max_angular_velocity: 20}
`))
	if err != nil {
		t.Fatal(err)
	}

	opts, err := desc.AccelOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.BLAS.Strategy != bvh.MedianSplit || opts.BLAS.LeafSize != 4 {
		t.Fatalf("unexpected BLAS options %+v", opts.BLAS)
	}
	if opts.TLAS.Strategy != bvh.SurfaceAreaHeuristic || opts.TLAS.Bins != 8 || opts.TLAS.LeafSize != 1 {
		t.Fatalf("unexpected TLAS options %+v", opts.TLAS)
	}
	if opts.Limits.MinStorageBufferOffsetAlignment != 64 || opts.Limits.MinUniformBufferOffsetAlignment != 256 {
		t.Fatalf("unexpected limits %+v", opts.Limits)
	}
	if desc.Meshes[0].Color == nil || *desc.Meshes[0].Color != types.XYZ(1, 0, 0) {
		t.Fatalf("unexpected mesh config %+v", desc.Meshes[0])
	}
	if desc.Instances[0].Rotation != types.XYZ(0, 90, 0) {
		t.Fatalf("unexpected instance config %+v", desc.Instances[0])
	}

	if _, err = ParseSceneDescription(strings.NewReader("meshes: []\ncamera: {}\n")); err == nil {
		t.Fatal("expected an error for an unknown key")
	}

	desc.BLAS.Strategy = "octree"
	if _, err = desc.AccelOptions(); err == nil {
		t.Fatal("expected an error for an unknown strategy")
	}
}

func TestAccelOptionsRejectsInvalidAlignment(t *testing.T) {
	specs := []struct {
		in     string
		expErr string
	}{
		{"limits: {storage_alignment: 48}\n", "storage_alignment 48 is not a power of 2"},
		{"limits: {uniform_alignment: 100}\n", "uniform_alignment 100 is not a power of 2"},
	}

	for specIndex, spec := range specs {
		desc, err := ParseSceneDescription(strings.NewReader(spec.in))
		if err != nil {
			t.Fatalf("[spec %d] %v", specIndex, err)
		}
		_, err = desc.AccelOptions()
		if err == nil || !strings.Contains(err.Error(), spec.expErr) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", specIndex, spec.expErr, err)
		}
	}
}

func TestScatterIsDeterministic(t *testing.T) {
	cfg := ScatterConfig{Mesh: "cube", Count: 10, Extent: 5, Seed: 42, MaxAngularVelocity: 1}
	a, b := cfg.instances(), cfg.instances()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected instance %d to be identical for the same seed", i)
		}
		for axis := 0; axis < 3; axis++ {
			if p := a[i].Position[axis]; p < -5 || p > 5 {
				t.Fatalf("expected instance %d to lie within the scatter extent; got %v", i, a[i].Position)
			}
		}
	}
}

func TestAnimationModelAt(t *testing.T) {
	anim := Animation{
		Position:        types.XYZ(10, 0, 0),
		AngularVelocity: types.XYZ(0, 0, 45),
	}

	p := anim.ModelAt(2).MulPoint(types.XYZ(1, 0, 0))
	if d := p.Sub(types.XYZ(10, 1, 0)).Len(); d > 1e-4 {
		t.Fatalf("expected point to be rotated by 90 degrees and translated to (10, 1, 0); got %v", p)
	}
}

func TestReadScene(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "meshes", "cube.obj"), cubeObj)
	writeFile(t, filepath.Join(dir, "meshes", "tri.obj"), "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n")
	writeFile(t, filepath.Join(dir, "scene.yaml"), `
meshes:
  - {name: cube, path: meshes/cube.obj}
  - {path: meshes/tri.obj, color: [0, 1, 0]}
instances:
  - {mesh: cube, position: [0, 0, -5]}
  - {mesh: tri.obj, position: [3, 0, 0]}
scatter:
  - {mesh: cube, count: 4, extent: 10, seed: 1}
`)

	loaded, err := ReadScene(context.Background(), filepath.Join(dir, "scene.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	scene := loaded.Scene
	if len(scene.Meshes()) != 2 || scene.Meshes()[0].Name != "cube" || scene.Meshes()[1].Name != "tri.obj" {
		t.Fatalf("unexpected meshes %v", scene.Meshes())
	}
	if tris := len(scene.Meshes()[0].Triangles); tris != 12 {
		t.Fatalf("expected cube to contain 12 triangles; got %d", tris)
	}
	if len(loaded.Animations) != 6 || len(scene.Instances()) != 6 {
		t.Fatalf("expected 6 instances; got %d", len(scene.Instances()))
	}
	if color := scene.Meshes()[0].Triangles[0].Color; color != defaultMeshColor {
		t.Fatalf("expected default mesh color; got %v", color)
	}

	if err = scene.Compile(); err != nil {
		t.Fatal(err)
	}
	if _, err = scene.Frame(); err != nil {
		t.Fatal(err)
	}
}

func TestReadSceneErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cube.obj"), cubeObj)

	specs := []struct {
		scene  string
		expErr string
	}{
		{"meshes:\n  - {name: cube, path: missing.obj}\n", "missing.obj"},
		{"meshes:\n  - {name: cube, path: cube.obj}\ninstances:\n  - {mesh: sphere}\n", "unknown mesh"},
		{"meshes:\n  - {name: cube, path: cube.obj}\n  - {name: cube, path: cube.obj}\n", "duplicate mesh"},
	}

	for specIndex, spec := range specs {
		sceneFile := filepath.Join(dir, "scene.yaml")
		writeFile(t, sceneFile, spec.scene)
		_, err := ReadScene(context.Background(), sceneFile)
		if err == nil || !strings.Contains(err.Error(), spec.expErr) {
			t.Fatalf("[spec %d] expected error containing %q; got %v", specIndex, spec.expErr, err)
		}
	}
}
