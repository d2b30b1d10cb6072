package accel

import "errors"

var (
	ErrUnknownMesh     = errors.New("accel: unknown mesh")
	ErrDuplicateMesh   = errors.New("accel: duplicate mesh name")
	ErrUnknownInstance = errors.New("accel: unknown instance")
	ErrNoInstances     = errors.New("accel: scene contains no mesh instances")
	ErrNotCompiled     = errors.New("accel: scene has not been compiled")
	ErrCompiled        = errors.New("accel: meshes cannot be added to a compiled scene")
	ErrTLASCapacity    = errors.New("accel: instance count exceeds compiled TLAS capacity")
)
