package shader

import "errors"

var (
	errBoundaryStride = errors.New("boundary records must be 24 bytes")
	errParticleLayout = errors.New("particle and source buffers must hold the same number of 12 byte records")
)
