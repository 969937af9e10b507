package detector

import (
	"github.com/go-gl/mathgl/mgl32"

	fluid "github.com/esimov/fluid3d/fluid-solver"
)

// Tracker follows the strongest face across frames and emits an impulse
// along its motion, projected onto a plane of the domain at Depth.
type Tracker struct {
	Depth float32
	Force float32

	last *mgl32.Vec3
}

func NewTracker() *Tracker {
	return &Tracker{Depth: 0.5, Force: 100}
}

// Track consumes the faces of one frame of size width×height. It reports
// false until a face has been seen twice in a row at different places.
func (t *Tracker) Track(faces []Face, width, height int) (fluid.Impulse, bool) {
	best := -1
	for i, f := range faces {
		if best < 0 || f.Q > faces[best].Q {
			best = i
		}
	}
	if best < 0 || width <= 0 || height <= 0 {
		t.last = nil
		return fluid.Impulse{}, false
	}

	f := faces[best]
	p := mgl32.Vec3{
		mgl32.Clamp(float32(f.Col)/float32(width), 0, 1),
		mgl32.Clamp(1-float32(f.Row)/float32(height), 0, 1),
		t.Depth,
	}
	prev := t.last
	t.last = &p
	if prev == nil {
		return fluid.Impulse{}, false
	}
	d := p.Sub(*prev)
	if d.Len() == 0 {
		return fluid.Impulse{}, false
	}
	return fluid.Impulse{Position: p, Direction: d.Normalize().Mul(t.Force)}, true
}

// Reset forgets the last seen face.
func (t *Tracker) Reset() { t.last = nil }
