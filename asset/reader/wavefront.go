package reader

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/rtaccel/asset"
	"github.com/achilleasa/rtaccel/bvh"
	"github.com/achilleasa/rtaccel/log"
	"github.com/achilleasa/rtaccel/types"
)

// MeshData is the triangle list of a mesh together with its local space
// bounds.
type MeshData struct {
	Name      string
	Triangles []bvh.Triangle
	BBox      bvh.AABB
}

type wavefrontReader struct {
	ctx    context.Context
	logger log.Logger
	color  types.Vec3

	vertexList []types.Vec3
	normalList []types.Vec3
	uvCount    int

	mesh *MeshData

	// Include chain used for error reporting.
	errStack []string
}

// Read a wavefront (obj) file into a single mesh. All groups and objects
// defined by the file (and any files it includes via "call") are merged.
// Materials and texture coordinates are ignored; every triangle is
// assigned the supplied color.
func ReadWavefront(ctx context.Context, res *asset.Resource, color types.Vec3) (*MeshData, error) {
	r := &wavefrontReader{
		ctx:    ctx,
		logger: log.New("wavefront reader"),
		color:  color,
		mesh: &MeshData{
			Name: res.Name(),
			BBox: bvh.EmptyAABB(),
		},
	}

	start := time.Now()
	if err := r.parse(res); err != nil {
		return nil, err
	}
	if len(r.mesh.Triangles) == 0 {
		return nil, r.emitError(res.Path(), 0, "file does not define any faces")
	}

	r.logger.Infof(
		`parsed "%s" in %d ms (%d vertices, %d triangles)`,
		res.Path(), time.Since(start).Nanoseconds()/1e6, len(r.vertexList), len(r.mesh.Triangles),
	)
	return r.mesh, nil
}

// Generate an error message that also includes any data in the error stack.
func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	return fmt.Errorf("%s", strings.Trim(
		fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
		"\n",
	))
}

func (r *wavefrontReader) parse(res *asset.Resource) error {
	var lineNum int

	// Included files use 1-based indices relative to their own vertex
	// lists; negative indices are relative to the end of the global list.
	relVertexOffset := len(r.vertexList)
	relNormalOffset := len(r.normalList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "call"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			r.errStack = append([]string{fmt.Sprintf("referenced from %s:%d [call]", res.Path(), lineNum)}, r.errStack...)
			incRes, err := asset.NewResourceContext(r.ctx, lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.errStack = r.errStack[1:]
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			r.uvCount++
		case "f":
			if err := r.parseFace(lineTokens, relVertexOffset, relNormalOffset); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		case "o", "g", "s", "mtllib", "usemtl":
		default:
			r.logger.Debugf("[%s: %d] ignoring unsupported statement %q", res.Path(), lineNum, lineTokens[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}
	return nil
}

// Parse a face definition. Faces with more than 3 vertices are converted
// into a triangle fan around the first vertex. Faces without normals get
// a flat normal calculated from their first 3 vertices. A face must either
// specify normals for all of its vertices or for none of them.
func (r *wavefrontReader) parseFace(lineTokens []string, relVertexOffset, relNormalOffset int) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(lineTokens)-1)
	}

	argCount := len(lineTokens) - 1
	vertices := make([]types.Vec3, argCount)
	normals := make([]types.Vec3, argCount)
	expIndices := 0
	normalCount := 0
	for arg := 0; arg < argCount; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		if vTokens[0] == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		offset, err := selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		vertices[arg] = r.vertexList[offset]

		if expIndices > 2 && vTokens[2] != "" {
			offset, err = selectFaceCoordIndex(vTokens[2], len(r.normalList), relNormalOffset)
			if err != nil {
				return fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
			normals[arg] = r.normalList[offset]
			normalCount++
		}
	}

	if normalCount != 0 && normalCount != argCount {
		return fmt.Errorf("face specifies normals for %d out of %d vertices", normalCount, argCount)
	}

	if normalCount == 0 {
		faceNormal := vertices[1].Sub(vertices[0]).Cross(vertices[2].Sub(vertices[0])).Normalize()
		for i := range normals {
			normals[i] = faceNormal
		}
	}

	for i := 1; i+1 < argCount; i++ {
		tri, err := bvh.NewTriangle(
			[]types.Vec3{vertices[0], vertices[i], vertices[i+1]},
			[]types.Vec3{normals[0], normals[i], normals[i+1]},
			r.color,
		)
		if err != nil {
			return err
		}
		r.mesh.Triangles = append(r.mesh.Triangles, tri)
		r.mesh.BBox.Merge(tri.BBox())
	}
	return nil
}

// Given an index for a face coord type (vertex, normal) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	if index < 0 {
		offset = coordListLen + int(index)
	} else {
		offset = relOffset + int(index-1)
	}
	if offset < 0 || offset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return offset, nil
}

// Parse a Vec3 row.
func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
