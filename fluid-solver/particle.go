package fluid

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/shader"
)

// ParticleSystem advects passive tracers through a published velocity
// field. It only reads the field and is independent of the solver stages.
type ParticleSystem struct {
	dev       *gpu.Device
	kernel    *gpu.Kernel
	grid      int
	count     int
	particles *gpu.Buffer
	sources   *gpu.Buffer
}

// SeedPositions places grid³ tracers at the cell corners i/grid, jittered
// by up to 1/grid on x and z and half of that on y, then clamped into the
// unit cube.
func SeedPositions(grid int, rng *rand.Rand) []mgl32.Vec3 {
	noise := func() float32 {
		return (rng.Float32() - 0.5) * 2 / float32(grid)
	}
	clamp := func(v float32) float32 {
		return mgl32.Clamp(v, 0, 1)
	}
	out := make([]mgl32.Vec3, 0, grid*grid*grid)
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			for k := 0; k < grid; k++ {
				out = append(out, mgl32.Vec3{
					clamp(float32(i)/float32(grid) + noise()),
					clamp(float32(j)/float32(grid) + noise()/2),
					clamp(float32(k)/float32(grid) + noise()),
				})
			}
		}
	}
	return out
}

func encodePositions(ps []mgl32.Vec3) []byte {
	out := make([]byte, len(ps)*shader.ParticleStride)
	for i, p := range ps {
		for w := 0; w < 3; w++ {
			binary.LittleEndian.PutUint32(out[i*shader.ParticleStride+w*4:], math.Float32bits(p[w]))
		}
	}
	return out
}

// NewParticleSystem uploads grid³ seeded tracers to the device.
func NewParticleSystem(dev *gpu.Device, program *gpu.Program, grid int, rng *rand.Rand) (*ParticleSystem, error) {
	if grid <= 0 {
		return nil, fmt.Errorf("%w: particle grid must be positive, got %d", ErrConfiguration, grid)
	}
	k, err := program.FindKernel(shader.MoveFluidParticles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	ps := &ParticleSystem{
		dev:    dev,
		kernel: k,
		grid:   grid,
		count:  grid * grid * grid,
	}
	if ps.particles, err = dev.NewBuffer("_ParticleBuffer", ps.count, shader.ParticleStride); err != nil {
		return nil, err
	}
	if ps.sources, err = dev.NewBuffer("_SourcePositions", ps.count, shader.ParticleStride); err != nil {
		return nil, err
	}

	data := encodePositions(SeedPositions(grid, rng))
	if err := dev.WriteBuffer(ps.particles, data); err != nil {
		return nil, err
	}
	if err := dev.WriteBuffer(ps.sources, data); err != nil {
		return nil, err
	}
	return ps, nil
}

// Count returns the number of tracers.
func (ps *ParticleSystem) Count() int { return ps.count }

// Update moves every tracer one time step through velocity.
func (ps *ParticleSystem) Update(velocity *gpu.Texture3D, timeStep float32) error {
	var b gpu.Bindings
	b.SetTexture(shader.SlotVelocityField, velocity)
	b.SetBuffer(shader.SlotParticles, ps.particles)
	b.SetBuffer(shader.SlotSourcePositions, ps.sources)
	b.Constants = shader.Constants{Resolution: velocity.Size(), Timestep: timeStep}

	groups := gpu.Size3{X: gpu.GroupCount(ps.count, shader.LinearThreads.X), Y: 1, Z: 1}
	return ps.dev.Dispatch(ps.kernel, groups, b)
}

// Positions reads the tracer positions back.
func (ps *ParticleSystem) Positions() []mgl32.Vec3 {
	raw := ps.dev.ReadBuffer(ps.particles)
	out := make([]mgl32.Vec3, ps.count)
	for i := range out {
		for w := 0; w < 3; w++ {
			out[i][w] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*shader.ParticleStride+w*4:]))
		}
	}
	return out
}
