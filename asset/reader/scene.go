package reader

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/achilleasa/rtaccel/accel"
	"github.com/achilleasa/rtaccel/asset"
	"github.com/achilleasa/rtaccel/bvh"
	"github.com/achilleasa/rtaccel/gpubuf"
	"github.com/achilleasa/rtaccel/log"
	"github.com/achilleasa/rtaccel/types"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var defaultMeshColor = types.Vec3{0.7, 0.7, 0.7}

// BuildConfig selects BVH build options.
type BuildConfig struct {
	Strategy string `yaml:"strategy"`
	LeafSize int    `yaml:"leaf_size"`
	Bins     int    `yaml:"bins"`
}

// Get the BVH options described by this config. Unset fields fall back to
// the defaults for the selected strategy or, if no strategy is selected,
// to the defaults for defStrategy.
func (c BuildConfig) Options(defStrategy bvh.Strategy) (bvh.Options, error) {
	strategy := defStrategy
	if c.Strategy != "" {
		var err error
		if strategy, err = bvh.ParseStrategy(c.Strategy); err != nil {
			return bvh.Options{}, err
		}
	}

	opts := bvh.DefaultOptions(strategy)
	if c.LeafSize > 0 {
		opts.LeafSize = c.LeafSize
	}
	if c.Bins > 0 {
		opts.Bins = c.Bins
	}
	return opts, nil
}

// LimitsConfig overrides device buffer offset alignments.
type LimitsConfig struct {
	StorageAlignment uint32 `yaml:"storage_alignment"`
	UniformAlignment uint32 `yaml:"uniform_alignment"`
}

// MeshConfig references a mesh file.
type MeshConfig struct {
	Name  string      `yaml:"name"`
	Path  string      `yaml:"path"`
	Color *types.Vec3 `yaml:"color"`
}

// InstanceConfig places a mesh in the world. Rotations are euler angles in
// degrees and angular velocities are expressed in degrees per second.
type InstanceConfig struct {
	Mesh            string     `yaml:"mesh"`
	Position        types.Vec3 `yaml:"position"`
	Rotation        types.Vec3 `yaml:"rotation"`
	AngularVelocity types.Vec3 `yaml:"angular_velocity"`
}

// ScatterConfig generates Count randomly placed and oriented instances of
// a mesh inside a cube of half-size Extent centered at the origin.
type ScatterConfig struct {
	Mesh               string  `yaml:"mesh"`
	Count              int     `yaml:"count"`
	Extent             float32 `yaml:"extent"`
	Seed               int64   `yaml:"seed"`
	MaxAngularVelocity float32 `yaml:"max_angular_velocity"`
}

// SceneDescription is the contents of a scene file.
type SceneDescription struct {
	BLAS      BuildConfig      `yaml:"blas"`
	TLAS      BuildConfig      `yaml:"tlas"`
	Limits    LimitsConfig     `yaml:"limits"`
	Meshes    []MeshConfig     `yaml:"meshes"`
	Instances []InstanceConfig `yaml:"instances"`
	Scatter   []ScatterConfig  `yaml:"scatter"`
}

// Parse a yaml scene description. Unknown keys are rejected.
func ParseSceneDescription(r io.Reader) (*SceneDescription, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	desc := &SceneDescription{}
	if err := dec.Decode(desc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("scene reader: %w", err)
	}
	return desc, nil
}

// Get the scene options described by the file.
func (d *SceneDescription) AccelOptions() (accel.Options, error) {
	opts := accel.DefaultOptions()

	var err error
	if opts.BLAS, err = d.BLAS.Options(bvh.SurfaceAreaHeuristic); err != nil {
		return opts, fmt.Errorf("scene reader: blas: %w", err)
	}
	if opts.TLAS, err = d.TLAS.Options(bvh.MedianSplit); err != nil {
		return opts, fmt.Errorf("scene reader: tlas: %w", err)
	}
	if !gpubuf.IsValidAlignment(d.Limits.StorageAlignment) {
		return opts, fmt.Errorf("scene reader: limits: storage_alignment %d is not a power of 2", d.Limits.StorageAlignment)
	}
	if !gpubuf.IsValidAlignment(d.Limits.UniformAlignment) {
		return opts, fmt.Errorf("scene reader: limits: uniform_alignment %d is not a power of 2", d.Limits.UniformAlignment)
	}
	if d.Limits.StorageAlignment != 0 {
		opts.Limits.MinStorageBufferOffsetAlignment = d.Limits.StorageAlignment
	}
	if d.Limits.UniformAlignment != 0 {
		opts.Limits.MinUniformBufferOffsetAlignment = d.Limits.UniformAlignment
	}
	return opts, nil
}

// Animation drives the model transform of a scene instance.
type Animation struct {
	Instance        int
	Position        types.Vec3
	Rotation        types.Vec3
	AngularVelocity types.Vec3
}

// Get the instance model matrix t seconds after the scene was loaded.
func (a Animation) ModelAt(t float32) types.Mat4 {
	return types.Transform4(a.Position, a.Rotation.Add(a.AngularVelocity.Mul(t)))
}

// LoadedScene is an uncompiled scene together with the animations of its
// instances.
type LoadedScene struct {
	Scene      *accel.Scene
	Animations []Animation
}

// Read a scene description file and load it. See SceneDescription.Load.
func ReadScene(ctx context.Context, filename string) (*LoadedScene, error) {
	res, err := asset.NewResourceContext(ctx, filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	desc, err := ParseSceneDescription(res)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", res.Path(), err)
	}
	return desc.Load(ctx, res)
}

// Load the meshes referenced by the description and populate a scene with
// the described instances. Mesh paths are resolved relative to sceneRes.
// Meshes are loaded and their BVHs built concurrently.
func (d *SceneDescription) Load(ctx context.Context, sceneRes *asset.Resource) (*LoadedScene, error) {
	logger := log.New("scene reader")
	start := time.Now()

	opts, err := d.AccelOptions()
	if err != nil {
		return nil, err
	}

	meshes := make([]*accel.Mesh, len(d.Meshes))
	group, groupCtx := errgroup.WithContext(ctx)
	for meshIndex, meshCfg := range d.Meshes {
		group.Go(func() error {
			mesh, err := loadMesh(groupCtx, sceneRes, meshCfg, opts.BLAS)
			if err != nil {
				return err
			}
			meshes[meshIndex] = mesh
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		return nil, err
	}

	loaded := &LoadedScene{Scene: accel.NewScene(opts)}
	for _, mesh := range meshes {
		if _, err = loaded.Scene.AddMesh(mesh); err != nil {
			return nil, fmt.Errorf("scene reader: %w", err)
		}
	}

	for _, inst := range d.Instances {
		if err = loaded.addInstance(inst); err != nil {
			return nil, err
		}
	}

	for _, scatter := range d.Scatter {
		for _, inst := range scatter.instances() {
			if err = loaded.addInstance(inst); err != nil {
				return nil, err
			}
		}
	}

	logger.Noticef("loaded %d meshes and %d instances in %d ms", len(meshes), len(loaded.Animations), time.Since(start).Nanoseconds()/1e6)
	return loaded, nil
}

func (l *LoadedScene) addInstance(inst InstanceConfig) error {
	anim := Animation{
		Position:        inst.Position,
		Rotation:        inst.Rotation,
		AngularVelocity: inst.AngularVelocity,
	}

	var err error
	if anim.Instance, err = l.Scene.AddInstance(inst.Mesh, anim.ModelAt(0)); err != nil {
		return fmt.Errorf("scene reader: instance of %q: %w", inst.Mesh, err)
	}
	l.Animations = append(l.Animations, anim)
	return nil
}

// Generate the scattered instances. The same seed always yields the same
// instances.
func (s ScatterConfig) instances() []InstanceConfig {
	rng := rand.New(rand.NewSource(s.Seed))
	rnd := func(min, max float32) float32 {
		return min + rng.Float32()*(max-min)
	}

	out := make([]InstanceConfig, s.Count)
	for i := range out {
		out[i] = InstanceConfig{
			Mesh:     s.Mesh,
			Position: types.XYZ(rnd(-s.Extent, s.Extent), rnd(-s.Extent, s.Extent), rnd(-s.Extent, s.Extent)),
			Rotation: types.XYZ(rnd(0, 360), rnd(0, 360), rnd(0, 360)),
			AngularVelocity: types.XYZ(
				rnd(-s.MaxAngularVelocity, s.MaxAngularVelocity),
				rnd(-s.MaxAngularVelocity, s.MaxAngularVelocity),
				rnd(-s.MaxAngularVelocity, s.MaxAngularVelocity),
			),
		}
	}
	return out
}

func loadMesh(ctx context.Context, sceneRes *asset.Resource, cfg MeshConfig, opts bvh.Options) (*accel.Mesh, error) {
	res, err := asset.NewResourceContext(ctx, cfg.Path, sceneRes)
	if err != nil {
		return nil, fmt.Errorf("scene reader: mesh %q: %w", cfg.Name, err)
	}
	defer res.Close()

	color := defaultMeshColor
	if cfg.Color != nil {
		color = *cfg.Color
	}

	data, err := ReadWavefront(ctx, res, color)
	if err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = data.Name
	}
	return accel.NewMesh(name, data.Triangles, opts)
}
