package shader

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/esimov/fluid3d/gpu"
)

// bindMoveParticles integrates every tracer forward through the velocity
// field. Tracers leaving the unit cube restart from their source position.
func bindMoveParticles(b *gpu.Bindings) (gpu.ThreadFunc, error) {
	c, err := constants(b)
	if err != nil {
		return nil, err
	}
	field, err := b.Texture(SlotVelocityField)
	if err != nil {
		return nil, err
	}
	particles, err := b.Buffer(SlotParticles)
	if err != nil {
		return nil, err
	}
	sources, err := b.Buffer(SlotSourcePositions)
	if err != nil {
		return nil, err
	}
	if particles.Stride() != ParticleStride || sources.Stride() != ParticleStride || sources.Count() != particles.Count() {
		return nil, errParticleLayout
	}
	res := field.Size()
	scale := mgl32.Vec3{1 / float32(res.X), 1 / float32(res.Y), 1 / float32(res.Z)}
	count := particles.Count()

	return func(i, _, _ int) {
		if i >= count {
			return
		}
		p := mgl32.Vec3{particles.Float32(i, 0), particles.Float32(i, 1), particles.Float32(i, 2)}
		v := field.SampleLinear(TexelCoord(p, res)).Vec3()
		p = p.Add(mgl32.Vec3{v.X() * scale.X(), v.Y() * scale.Y(), v.Z() * scale.Z()}.Mul(c.Timestep))
		if !insideUnit(p) {
			p = mgl32.Vec3{sources.Float32(i, 0), sources.Float32(i, 1), sources.Float32(i, 2)}
		}
		particles.PutFloat32(i, 0, p.X())
		particles.PutFloat32(i, 1, p.Y())
		particles.PutFloat32(i, 2, p.Z())
	}, nil
}

func insideUnit(p mgl32.Vec3) bool {
	for _, v := range p {
		if !(v >= 0 && v <= 1) {
			return false
		}
	}
	return true
}
