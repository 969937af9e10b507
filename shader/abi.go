// Package shader holds the compute kernels of the fluid simulator. The
// kernels are addressed by entry point name and read their resources from
// a fixed slot table.
package shader

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/esimov/fluid3d/gpu"
)

// Entry points.
const (
	AddImpulse           = "AddImpulse"
	Advect               = "Advect"
	ClearTextures        = "ClearTextures"
	ComputeDivergence    = "ComputeDivergence"
	Jacobi               = "Jacobi"
	SubtractGradient     = "SubtractGradient"
	DrawPressureBoundary = "DrawPressureBoundary"
	DrawVelocityBoundary = "DrawVelocityBoundary"
	MoveFluidParticles   = "MoveFluidParticles"
)

// Binding slots.
const (
	SlotVelocity gpu.Slot = iota
	SlotReadVelocity
	SlotDye
	SlotReadDye
	SlotDivergence
	SlotReadDivergence
	SlotPressure
	SlotReadPressure
	SlotClearTexture
	SlotBoundaryData
	SlotParticles
	SlotSourcePositions
	SlotVelocityField
)

// Thread group shapes.
var (
	VolumeThreads = gpu.Size3{X: 16, Y: 16, Z: 1}
	LinearThreads = gpu.Size3{X: 128, Y: 1, Z: 1}
)

// Record layouts of the structured buffers.
const (
	BoundaryStride = 24 // int3 coordinate, int3 inside offset
	ParticleStride = 12 // float3 position
)

// Constants is the uniform block shared by every kernel.
type Constants struct {
	Resolution          gpu.Size3
	ImpulsePosition     mgl32.Vec3
	ImpulseDirection    mgl32.Vec3
	ImpulseRadius       float32
	BoundaryValue       float32
	Timestep            float32
	DyeDissipation      float32
	VelocityDissipation float32
	InkColor            mgl32.Vec4
	StabilityClamp      float32
}

func constants(b *gpu.Bindings) (Constants, error) {
	c, ok := b.Constants.(Constants)
	if !ok {
		return Constants{}, fmt.Errorf("constants: got %T, want shader.Constants", b.Constants)
	}
	if !c.Resolution.Valid() {
		return Constants{}, fmt.Errorf("constants: invalid resolution %s", c.Resolution)
	}
	return c, nil
}

func textures(b *gpu.Bindings, slots ...gpu.Slot) ([]*gpu.Texture3D, error) {
	out := make([]*gpu.Texture3D, len(slots))
	for i, s := range slots {
		t, err := b.Texture(s)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// TexelCoord maps a normalized domain position to texel space, where texel
// centers sit on integer coordinates.
func TexelCoord(p mgl32.Vec3, res gpu.Size3) mgl32.Vec3 {
	return mgl32.Vec3{
		p.X()*float32(res.X) - 0.5,
		p.Y()*float32(res.Y) - 0.5,
		p.Z()*float32(res.Z) - 0.5,
	}
}

// NewProgram returns the kernels of the simulator and its particle system.
func NewProgram() *gpu.Program {
	return gpu.NewProgram("fluid",
		&gpu.Kernel{Name: AddImpulse, Threads: VolumeThreads, Bind: bindAddImpulse},
		&gpu.Kernel{Name: Advect, Threads: VolumeThreads, Bind: bindAdvect},
		&gpu.Kernel{Name: ClearTextures, Threads: VolumeThreads, Bind: bindClear},
		&gpu.Kernel{Name: ComputeDivergence, Threads: VolumeThreads, Bind: bindDivergence},
		&gpu.Kernel{Name: Jacobi, Threads: VolumeThreads, Bind: bindJacobi},
		&gpu.Kernel{Name: SubtractGradient, Threads: VolumeThreads, Bind: bindSubtractGradient},
		&gpu.Kernel{Name: DrawPressureBoundary, Threads: LinearThreads, Bind: bindPressureBoundary},
		&gpu.Kernel{Name: DrawVelocityBoundary, Threads: LinearThreads, Bind: bindVelocityBoundary},
		&gpu.Kernel{Name: MoveFluidParticles, Threads: LinearThreads, Bind: bindMoveParticles},
	)
}
