package shader

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/esimov/fluid3d/gpu"
)

func cellPos(x, y, z int) mgl32.Vec3 {
	return mgl32.Vec3{float32(x), float32(y), float32(z)}
}

// OnShell reports whether a cell lies on the outer layer of the domain.
// A domain one cell deep is planar and has no shell along z.
func OnShell(res gpu.Size3, x, y, z int) bool {
	if x == 0 || y == 0 || x == res.X-1 || y == res.Y-1 {
		return true
	}
	return res.Z > 1 && (z == 0 || z == res.Z-1)
}

// bindAddImpulse splats a gaussian of force and ink around impulsePosition.
func bindAddImpulse(b *gpu.Bindings) (gpu.ThreadFunc, error) {
	c, err := constants(b)
	if err != nil {
		return nil, err
	}
	t, err := textures(b, SlotVelocity, SlotReadVelocity, SlotDye, SlotReadDye)
	if err != nil {
		return nil, err
	}
	velocity, readVelocity, dye, readDye := t[0], t[1], t[2], t[3]
	res := c.Resolution
	center := TexelCoord(c.ImpulsePosition, res)
	r2 := c.ImpulseRadius * c.ImpulseRadius
	force := c.ImpulseDirection.Vec4(0)

	return func(x, y, z int) {
		if !res.Contains(x, y, z) {
			return
		}
		d := cellPos(x, y, z).Sub(center)
		var w float32
		if r2 > 0 {
			w = float32(math.Exp(float64(-d.Dot(d) / r2)))
		} else if d.Len() < 0.5 {
			w = 1
		}
		velocity.Store(x, y, z, readVelocity.Load(x, y, z).Add(force.Mul(w)))
		dye.Store(x, y, z, readDye.Load(x, y, z).Add(c.InkColor.Mul(w)))
	}, nil
}

// bindAdvect moves velocity and dye along the velocity field with a
// semi-lagrangian backtrace.
func bindAdvect(b *gpu.Bindings) (gpu.ThreadFunc, error) {
	c, err := constants(b)
	if err != nil {
		return nil, err
	}
	t, err := textures(b, SlotVelocity, SlotReadVelocity, SlotDye, SlotReadDye)
	if err != nil {
		return nil, err
	}
	velocity, readVelocity, dye, readDye := t[0], t[1], t[2], t[3]
	res := c.Resolution

	return func(x, y, z int) {
		if !res.Contains(x, y, z) {
			return
		}
		v := readVelocity.Load(x, y, z).Vec3()
		p := cellPos(x, y, z).Sub(v.Mul(c.Timestep))

		nv := readVelocity.SampleLinear(p).Mul(c.VelocityDissipation)
		if c.StabilityClamp > 0 {
			if l := nv.Vec3().Len(); l > c.StabilityClamp {
				s := c.StabilityClamp / l
				nv = mgl32.Vec4{nv.X() * s, nv.Y() * s, nv.Z() * s, nv.W()}
			}
		}
		velocity.Store(x, y, z, nv)
		dye.Store(x, y, z, readDye.SampleLinear(p).Mul(c.DyeDissipation))
	}, nil
}

func bindClear(b *gpu.Bindings) (gpu.ThreadFunc, error) {
	target, err := b.Texture(SlotClearTexture)
	if err != nil {
		return nil, err
	}
	return func(x, y, z int) {
		target.Store(x, y, z, mgl32.Vec4{})
	}, nil
}

// bindDivergence writes the central difference divergence of the velocity
// field. Shell cells get zero.
func bindDivergence(b *gpu.Bindings) (gpu.ThreadFunc, error) {
	c, err := constants(b)
	if err != nil {
		return nil, err
	}
	t, err := textures(b, SlotDivergence, SlotReadVelocity)
	if err != nil {
		return nil, err
	}
	divergence, readVelocity := t[0], t[1]
	res := c.Resolution

	return func(x, y, z int) {
		if !res.Contains(x, y, z) {
			return
		}
		if OnShell(res, x, y, z) {
			divergence.Store(x, y, z, mgl32.Vec4{})
			return
		}
		d := Divergence(readVelocity, x, y, z)
		divergence.Store(x, y, z, mgl32.Vec4{d, 0, 0, 0})
	}, nil
}

// Divergence is the central difference divergence of v at an interior
// cell, with unit cell spacing.
func Divergence(v *gpu.Texture3D, x, y, z int) float32 {
	l := v.Load(x-1, y, z).X()
	r := v.Load(x+1, y, z).X()
	bt := v.Load(x, y-1, z).Y()
	tp := v.Load(x, y+1, z).Y()
	dn := v.Load(x, y, z-1).Z()
	up := v.Load(x, y, z+1).Z()
	return 0.5 * ((r - l) + (tp - bt) + (up - dn))
}

// bindJacobi runs one relaxation sweep of the pressure poisson equation.
func bindJacobi(b *gpu.Bindings) (gpu.ThreadFunc, error) {
	c, err := constants(b)
	if err != nil {
		return nil, err
	}
	t, err := textures(b, SlotPressure, SlotReadPressure, SlotReadDivergence)
	if err != nil {
		return nil, err
	}
	pressure, readPressure, readDivergence := t[0], t[1], t[2]
	res := c.Resolution

	return func(x, y, z int) {
		if !res.Contains(x, y, z) {
			return
		}
		sum := readPressure.Load(x-1, y, z).X() +
			readPressure.Load(x+1, y, z).X() +
			readPressure.Load(x, y-1, z).X() +
			readPressure.Load(x, y+1, z).X() +
			readPressure.Load(x, y, z-1).X() +
			readPressure.Load(x, y, z+1).X()
		div := readDivergence.Load(x, y, z).X()
		pressure.Store(x, y, z, mgl32.Vec4{sum/6 - div/4, 0, 0, 0})
	}, nil
}

// bindSubtractGradient projects velocity by removing the pressure gradient
// from interior cells. Shell cells are copied through.
func bindSubtractGradient(b *gpu.Bindings) (gpu.ThreadFunc, error) {
	c, err := constants(b)
	if err != nil {
		return nil, err
	}
	t, err := textures(b, SlotVelocity, SlotReadVelocity, SlotReadPressure)
	if err != nil {
		return nil, err
	}
	velocity, readVelocity, readPressure := t[0], t[1], t[2]
	res := c.Resolution

	return func(x, y, z int) {
		if !res.Contains(x, y, z) {
			return
		}
		v := readVelocity.Load(x, y, z)
		if OnShell(res, x, y, z) {
			velocity.Store(x, y, z, v)
			return
		}
		grad := mgl32.Vec4{
			readPressure.Load(x+1, y, z).X() - readPressure.Load(x-1, y, z).X(),
			readPressure.Load(x, y+1, z).X() - readPressure.Load(x, y-1, z).X(),
			readPressure.Load(x, y, z+1).X() - readPressure.Load(x, y, z-1).X(),
			0,
		}
		velocity.Store(x, y, z, v.Sub(grad.Mul(0.5)))
	}, nil
}

func bindPressureBoundary(b *gpu.Bindings) (gpu.ThreadFunc, error) {
	return bindBoundary(b, SlotPressure, SlotReadPressure)
}

func bindVelocityBoundary(b *gpu.Bindings) (gpu.ThreadFunc, error) {
	return bindBoundary(b, SlotVelocity, SlotReadVelocity)
}

// bindBoundary stamps boundaryValue times the inside neighbour, read from
// the read slot, onto every boundary cell of the write slot.
func bindBoundary(b *gpu.Bindings, write, read gpu.Slot) (gpu.ThreadFunc, error) {
	c, err := constants(b)
	if err != nil {
		return nil, err
	}
	t, err := textures(b, write, read)
	if err != nil {
		return nil, err
	}
	dst, src := t[0], t[1]
	cells, err := b.Buffer(SlotBoundaryData)
	if err != nil {
		return nil, err
	}
	if cells.Stride() != BoundaryStride {
		return nil, errBoundaryStride
	}
	count := cells.Count()

	return func(i, _, _ int) {
		if i >= count {
			return
		}
		x, y, z := int(cells.Int32(i, 0)), int(cells.Int32(i, 1)), int(cells.Int32(i, 2))
		ox, oy, oz := int(cells.Int32(i, 3)), int(cells.Int32(i, 4)), int(cells.Int32(i, 5))
		if c.BoundaryValue == 0 {
			dst.StoreShared(x, y, z, mgl32.Vec4{})
			return
		}
		inside := src.Load(x+ox, y+oy, z+oz)
		dst.StoreShared(x, y, z, inside.Mul(c.BoundaryValue))
	}, nil
}
