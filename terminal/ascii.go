package terminal

import (
	"github.com/go-gl/mathgl/mgl32"

	fluid "github.com/esimov/fluid3d/fluid-solver"
	"github.com/esimov/fluid3d/render"
)

// ramp orders glyphs from empty to dense.
const ramp = " .:-=+*#%@"

// ForceMultiplier scales the impulser direction.
const ForceMultiplier = 100

// Shade maps v within [lo, hi] onto a glyph of the ramp.
func Shade(v, lo, hi float32) rune {
	if hi <= lo {
		return rune(ramp[0])
	}
	n := len(ramp) - 1
	i := int((v - lo) / (hi - lo) * float32(n))
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return rune(ramp[i])
}

// Sample returns the plane value under the screen cell (col, row) when the
// plane is stretched over a w×h screen. Row zero is the top of the screen.
func Sample(p render.Plane, col, row, w, h int) float32 {
	u := col * p.Width / w
	v := (h - 1 - row) * p.Height / h
	return p.At(u, v)
}

// DomainPoint converts a screen cell into a normalized position on the
// slice at depth, which is itself normalized along axis.
func DomainPoint(col, row, w, h int, axis render.Axis, depth float32) mgl32.Vec3 {
	u := (float32(col) + 0.5) / float32(w)
	v := (float32(h-1-row) + 0.5) / float32(h)
	switch axis {
	case render.AxisX:
		return mgl32.Vec3{depth, u, v}
	case render.AxisY:
		return mgl32.Vec3{u, depth, v}
	}
	return mgl32.Vec3{u, v, depth}
}

// Impulser pushes dye and momentum at a point every frame while active.
type Impulser struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Force     float32
	Active    bool
}

func NewImpulser() *Impulser {
	return &Impulser{
		Position:  mgl32.Vec3{0.5, 0.5, 0.5},
		Direction: mgl32.Vec3{0, 1, 0},
		Force:     ForceMultiplier,
	}
}

// Drag moves the impulser to the end of a mouse drag and points it along
// the drag. A zero length drag keeps the previous direction.
func (im *Impulser) Drag(from, to mgl32.Vec3) {
	im.Position = to
	if d := to.Sub(from); d.Len() > 0 {
		im.Direction = d.Normalize()
	}
}

// Impulse returns the impulse for one frame.
func (im *Impulser) Impulse() fluid.Impulse {
	dir := im.Direction
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return fluid.Impulse{Position: im.Position, Direction: dir.Mul(im.Force)}
}
