package fluid

import (
	"fmt"

	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/shader"
)

type kernelID int

const (
	kernelAddImpulse kernelID = iota
	kernelAdvect
	kernelClear
	kernelDivergence
	kernelJacobi
	kernelSubtractGradient
	kernelPressureBoundary
	kernelVelocityBoundary
	kernelMoveParticles
	numKernels
)

var kernelNames = [numKernels]string{
	kernelAddImpulse:       shader.AddImpulse,
	kernelAdvect:           shader.Advect,
	kernelClear:            shader.ClearTextures,
	kernelDivergence:       shader.ComputeDivergence,
	kernelJacobi:           shader.Jacobi,
	kernelSubtractGradient: shader.SubtractGradient,
	kernelPressureBoundary: shader.DrawPressureBoundary,
	kernelVelocityBoundary: shader.DrawVelocityBoundary,
	kernelMoveParticles:    shader.MoveFluidParticles,
}

// kernelTable resolves every entry point once so dispatches never look
// kernels up by name.
type kernelTable [numKernels]*gpu.Kernel

func loadKernels(p *gpu.Program) (kernelTable, error) {
	var t kernelTable
	for id, name := range kernelNames {
		k, err := p.FindKernel(name)
		if err != nil {
			return t, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		t[id] = k
	}
	return t, nil
}

// dispatcher maps logical domains onto thread group counts.
type dispatcher struct {
	dev *gpu.Device
	res gpu.Size3
}

// dispatch covers the whole grid with 16x16x1 groups.
func (d dispatcher) dispatch(k *gpu.Kernel, b gpu.Bindings) error {
	return d.dev.Dispatch(k, gpu.Groups(d.res, shader.VolumeThreads), b)
}

// dispatch1D covers count elements with groups of 128 threads.
func (d dispatcher) dispatch1D(k *gpu.Kernel, count int, b gpu.Bindings) error {
	return d.dev.Dispatch(k, gpu.Size3{X: gpu.GroupCount(count, shader.LinearThreads.X), Y: 1, Z: 1}, b)
}
