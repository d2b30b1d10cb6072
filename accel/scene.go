package accel

import (
	"fmt"
	"time"

	"github.com/achilleasa/rtaccel/bvh"
	"github.com/achilleasa/rtaccel/gpubuf"
	"github.com/achilleasa/rtaccel/log"
	"github.com/achilleasa/rtaccel/types"
	"github.com/gogpu/gputypes"
)

// Coarse partitions of the compiled scene buffer.
const (
	NodePartition = iota
	IndexPartition
	TrianglePartition
	DescriptionPartition
)

// The TLAS always occupies the first fine partition of the node, index
// and description partitions. Mesh data follows in mesh order.
const tlasPartition = 0

// Instance places a mesh in the world.
type Instance struct {
	Mesh  int
	Model types.Mat4
}

// Offsets of a mesh's data inside the shared buffer.
type meshPartitions struct {
	nodes     int
	indices   int
	triangles int

	rootNodeIndex uint32
}

// FrameStats describes the work performed by a call to Frame.
type FrameStats struct {
	Frame      int
	Instances  int
	TLASNodes  int
	TLASLeaves int
	TLASDepth  int
	BuildTime  time.Duration
	TotalTime  time.Duration

	// Bytes uploaded by Step. Always zero for Frame.
	UploadedBytes int
}

// Scene is a two level acceleration structure. Each mesh owns a BVH (the
// BLAS) that is built once. Every frame a second BVH (the TLAS) is built
// over the world space bounds of all mesh instances. Both levels are
// packed into a single buffer: BLAS data is written once by Compile while
// TLAS data is rewritten by each call to Frame.
type Scene struct {
	logger log.Logger
	opts   Options

	meshes     []*Mesh
	meshLookup map[string]int
	instances  []Instance

	buffer     *gpubuf.Buffer
	meshParts  []meshPartitions
	tlasCap    int
	frameCount int

	descriptions []BlasDescription
	tlas         *bvh.BVH
}

// Create an empty scene.
func NewScene(opts Options) *Scene {
	return &Scene{
		logger:     log.New("accel scene"),
		opts:       opts,
		meshLookup: make(map[string]int),
	}
}

// Get scene options.
func (s *Scene) Options() Options {
	return s.opts
}

// Add a mesh to the scene and return its index.
func (s *Scene) AddMesh(mesh *Mesh) (int, error) {
	if s.buffer != nil {
		return -1, ErrCompiled
	}
	if _, exists := s.meshLookup[mesh.Name]; exists {
		return -1, fmt.Errorf("%w: %q", ErrDuplicateMesh, mesh.Name)
	}
	s.meshes = append(s.meshes, mesh)
	s.meshLookup[mesh.Name] = len(s.meshes) - 1
	return len(s.meshes) - 1, nil
}

// Lookup a mesh index by name.
func (s *Scene) MeshIndex(name string) (int, error) {
	index, exists := s.meshLookup[name]
	if !exists {
		return -1, fmt.Errorf("%w: %q", ErrUnknownMesh, name)
	}
	return index, nil
}

// Get the scene meshes.
func (s *Scene) Meshes() []*Mesh {
	return s.meshes
}

// Add an instance of a named mesh and return the instance index. Once the
// scene is compiled instances can only be added while the TLAS capacity
// allows it.
func (s *Scene) AddInstance(mesh string, model types.Mat4) (int, error) {
	meshIndex, err := s.MeshIndex(mesh)
	if err != nil {
		return -1, err
	}
	if s.buffer != nil && len(s.instances) >= s.tlasCap {
		return -1, fmt.Errorf("%w (%d)", ErrTLASCapacity, s.tlasCap)
	}
	s.instances = append(s.instances, Instance{Mesh: meshIndex, Model: model})
	return len(s.instances) - 1, nil
}

// Get the scene instances.
func (s *Scene) Instances() []Instance {
	return s.instances
}

// Update the model transform of an instance. The change is picked up by the
// next call to Frame.
func (s *Scene) SetTransform(instance int, model types.Mat4) error {
	if instance < 0 || instance >= len(s.instances) {
		return fmt.Errorf("%w: %d", ErrUnknownInstance, instance)
	}
	s.instances[instance].Model = model
	return nil
}

// Get the buffer holding the compiled scene. Returns nil before Compile.
func (s *Scene) Buffer() *gpubuf.Buffer {
	return s.buffer
}

// Get the TLAS built by the last call to Frame.
func (s *Scene) TLAS() *bvh.BVH {
	return s.tlas
}

// Get a copy of the instance descriptions generated by the last call to
// Frame. Frame reuses its description storage so the copy stays valid
// across frames.
func (s *Scene) Descriptions() []BlasDescription {
	return append([]BlasDescription(nil), s.descriptions...)
}

// Get the index of a mesh BLAS root in the shared node list.
func (s *Scene) RootNodeIndex(mesh int) (uint32, error) {
	if s.buffer == nil {
		return 0, ErrNotCompiled
	}
	if mesh < 0 || mesh >= len(s.meshParts) {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMesh, mesh)
	}
	return s.meshParts[mesh].rootNodeIndex, nil
}

// Allocate the scene buffer and write all mesh data into it.
//
// The buffer contains 4 coarse partitions (nodes, indices, triangles and
// instance descriptions). The node and index partitions start with a
// fine partition reserved for the TLAS followed by one fine partition per
// mesh. Mesh nodes are biased by the position of the mesh root in the
// node partition (internal nodes) and by the position of the mesh indices
// in the index partition (leaves). Mesh indices are biased by the position
// of the mesh's first triangle in the triangle partition.
func (s *Scene) Compile() error {
	if len(s.instances) == 0 {
		return ErrNoInstances
	}

	start := time.Now()
	s.logger.Noticef("compiling scene (%d meshes, %d instances)", len(s.meshes), len(s.instances))

	s.tlasCap = s.opts.TLASCapacity
	if s.tlasCap < len(s.instances) {
		s.tlasCap = len(s.instances)
	}
	tlasNodeCap := 2*s.tlasCap - 1

	nodeCount, indexCount, triCount := tlasNodeCap, s.tlasCap, 0
	for _, mesh := range s.meshes {
		nodeCount += len(mesh.BLAS.Nodes)
		indexCount += len(mesh.BLAS.Indices)
		triCount += len(mesh.Triangles)
	}

	usage := gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
	buf := gpubuf.NewBuffer("scene", s.opts.Limits)
	buf.AddCoarsePartition("nodes", nodeCount*bvh.NodeSize, usage)
	buf.AddCoarsePartition("indices", indexCount*bvh.IndexSize, usage)
	buf.AddCoarsePartition("triangles", triCount*bvh.TriangleSize, usage)
	buf.AddCoarsePartition("descriptions", s.tlasCap*DescriptionSize, usage)
	buf.Initialize()

	buf.AddFinePartition(NodePartition, "tlas", tlasNodeCap*bvh.NodeSize, gpubuf.Payload{})
	buf.AddFinePartition(IndexPartition, "tlas", s.tlasCap*bvh.IndexSize, gpubuf.Payload{})
	buf.AddFinePartition(DescriptionPartition, "tlas", s.tlasCap*DescriptionSize, gpubuf.Payload{})

	nodeOffset, indexOffset, triOffset := uint32(tlasNodeCap), uint32(s.tlasCap), uint32(0)
	s.meshParts = make([]meshPartitions, len(s.meshes))
	for meshIndex, mesh := range s.meshes {
		parts := &s.meshParts[meshIndex]
		parts.rootNodeIndex = nodeOffset
		parts.nodes = buf.AddFinePartition(
			NodePartition, mesh.Name, len(mesh.BLAS.Nodes)*bvh.NodeSize,
			gpubuf.Payload{NodeBias: nodeOffset, PrimitiveBias: indexOffset},
		)
		parts.indices = buf.AddFinePartition(
			IndexPartition, mesh.Name, len(mesh.BLAS.Indices)*bvh.IndexSize,
			gpubuf.Payload{PrimitiveBias: triOffset},
		)
		parts.triangles = buf.AddFinePartition(
			TrianglePartition, mesh.Name, len(mesh.Triangles)*bvh.TriangleSize,
			gpubuf.Payload{PrimitiveBias: triOffset},
		)

		buf.BlitNodes(NodePartition, parts.nodes, mesh.BLAS.Nodes)
		buf.BlitIndices(IndexPartition, parts.indices, mesh.BLAS.Indices)
		buf.BlitTriangles(TrianglePartition, parts.triangles, mesh.Triangles)

		s.logger.Infof(
			"mesh %q: %d triangles, %d nodes (root %d), index offset %d, triangle offset %d",
			mesh.Name, len(mesh.Triangles), len(mesh.BLAS.Nodes), nodeOffset, indexOffset, triOffset,
		)

		nodeOffset += uint32(len(mesh.BLAS.Nodes))
		indexOffset += uint32(len(mesh.BLAS.Indices))
		triOffset += uint32(len(mesh.Triangles))
	}

	s.buffer = buf
	s.logger.Noticef("compiled scene in %d ms; buffer size: %d bytes", time.Since(start).Nanoseconds()/1e6, buf.Size())
	return nil
}

// Rebuild the TLAS from the current instance transforms and write it,
// together with the instance descriptions, into the scene buffer.
func (s *Scene) Frame() (FrameStats, error) {
	if s.buffer == nil {
		return FrameStats{}, ErrNotCompiled
	}

	start := time.Now()
	s.descriptions = s.descriptions[:0]
	for _, inst := range s.instances {
		mesh := s.meshes[inst.Mesh]
		s.descriptions = append(s.descriptions, NewBlasDescription(mesh.BBox(), inst.Model, s.meshParts[inst.Mesh].rootNodeIndex))
	}

	tlas, err := bvh.Build(s.descriptions, s.opts.TLAS)
	if err != nil {
		return FrameStats{}, fmt.Errorf("accel: TLAS build failed: %w", err)
	}
	s.tlas = tlas

	s.buffer.BlitNodes(NodePartition, tlasPartition, tlas.Nodes)
	s.buffer.BlitIndices(IndexPartition, tlasPartition, tlas.Indices)
	s.buffer.BlitFineFloats(DescriptionPartition, tlasPartition, FlattenDescriptions(s.descriptions))

	s.frameCount++
	treeStats := tlas.Stats()
	stats := FrameStats{
		Frame:      s.frameCount,
		Instances:  len(s.instances),
		TLASNodes:  treeStats.Nodes,
		TLASLeaves: treeStats.Leaves,
		TLASDepth:  treeStats.MaxDepth,
		BuildTime:  treeStats.BuildTime,
		TotalTime:  time.Since(start),
	}
	s.logger.Debugf("frame %d: TLAS with %d nodes built in %d us", stats.Frame, stats.TLASNodes, stats.BuildTime.Nanoseconds()/1e3)
	return stats, nil
}

// Upload all buffer regions modified since the last call to Flush.
func (s *Scene) Flush(u gpubuf.Uploader) (int, error) {
	if s.buffer == nil {
		return 0, ErrNotCompiled
	}
	return s.buffer.Flush(u)
}

// Run Frame and upload the modified buffer regions.
func (s *Scene) Step(u gpubuf.Uploader) (FrameStats, error) {
	stats, err := s.Frame()
	if err != nil {
		return stats, err
	}
	if stats.UploadedBytes, err = s.Flush(u); err != nil {
		return stats, err
	}
	return stats, nil
}
