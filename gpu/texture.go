package gpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Texture3D is a device resident volumetric texture with four float
// channels per texel. Addressing clamps to the edge.
type Texture3D struct {
	id    uint64
	name  string
	size  Size3
	data  []mgl32.Vec4
	locks *shardLocks
}

func (t *Texture3D) ID() uint64   { return t.id }
func (t *Texture3D) Name() string { return t.name }
func (t *Texture3D) Size() Size3  { return t.size }

func (t *Texture3D) index(x, y, z int) int {
	return x + t.size.X*(y+t.size.Y*z)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Load reads one texel. Out of range coordinates are clamped.
func (t *Texture3D) Load(x, y, z int) mgl32.Vec4 {
	x = clampInt(x, 0, t.size.X-1)
	y = clampInt(y, 0, t.size.Y-1)
	z = clampInt(z, 0, t.size.Z-1)
	return t.data[t.index(x, y, z)]
}

// Store writes one texel. Writes outside the texture are discarded.
func (t *Texture3D) Store(x, y, z int, v mgl32.Vec4) {
	if !t.size.Contains(x, y, z) {
		return
	}
	t.data[t.index(x, y, z)] = v
}

// StoreShared writes one texel that other threads of the same dispatch may
// also write. The last writer wins, but no write is ever torn.
func (t *Texture3D) StoreShared(x, y, z int, v mgl32.Vec4) {
	if !t.size.Contains(x, y, z) {
		return
	}
	idx := t.index(x, y, z)
	t.locks.lock(idx)
	t.data[idx] = v
	t.locks.unlock(idx)
}

// SampleLinear reads the texture at a fractional texel coordinate using
// trilinear filtering. Texel centers sit on integer coordinates.
func (t *Texture3D) SampleLinear(p mgl32.Vec3) mgl32.Vec4 {
	px := clampFloat(p.X(), float32(t.size.X-1))
	py := clampFloat(p.Y(), float32(t.size.Y-1))
	pz := clampFloat(p.Z(), float32(t.size.Z-1))

	x0, y0, z0 := int(px), int(py), int(pz)
	x1 := clampInt(x0+1, 0, t.size.X-1)
	y1 := clampInt(y0+1, 0, t.size.Y-1)
	z1 := clampInt(z0+1, 0, t.size.Z-1)
	fx, fy, fz := px-float32(x0), py-float32(y0), pz-float32(z0)

	c00 := lerp(t.data[t.index(x0, y0, z0)], t.data[t.index(x1, y0, z0)], fx)
	c10 := lerp(t.data[t.index(x0, y1, z0)], t.data[t.index(x1, y1, z0)], fx)
	c01 := lerp(t.data[t.index(x0, y0, z1)], t.data[t.index(x1, y0, z1)], fx)
	c11 := lerp(t.data[t.index(x0, y1, z1)], t.data[t.index(x1, y1, z1)], fx)

	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz)
}

func clampFloat(v, hi float32) float32 {
	if v < 0 || math.IsNaN(float64(v)) {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	if t == 0 {
		return a
	}
	return a.Add(b.Sub(a).Mul(t))
}
