package bvh

import "errors"

var (
	ErrNoPrimitives = errors.New("bvh: empty primitive list")
	ErrCornerCount  = errors.New("bvh: triangles require exactly 3 corners")
	ErrNormalCount  = errors.New("bvh: normal count does not match corner count")
	ErrRadius       = errors.New("bvh: sphere radius must be positive")
)
