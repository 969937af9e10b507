package gpu

import "errors"

var (
	// ErrDispatch is returned when the device rejects or fails a kernel launch.
	ErrDispatch = errors.New("gpu: dispatch failed")

	// ErrResourceExhausted is returned when a texture or buffer cannot be allocated.
	ErrResourceExhausted = errors.New("gpu: resource exhausted")
)
