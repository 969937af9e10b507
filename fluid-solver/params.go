package fluid

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/shader"
)

// Params are the runtime tunable simulation parameters. They are read at
// the start of every stage, so changes apply from the next dispatch on.
type Params struct {
	ImpulseRadius       float32    `json:"impulseRadius"`
	DyeDissipation      float32    `json:"dyeDissipation"`
	VelocityDissipation float32    `json:"velocityDissipation"`
	TimeStep            float32    `json:"timeStep"`
	InkColor            mgl32.Vec4 `json:"inkColor"`
	// StabilityClamp caps the advected velocity magnitude; 0 disables it.
	StabilityClamp float32 `json:"stabilityClamp,omitempty"`
}

func DefaultParams() Params {
	return Params{
		ImpulseRadius:       10,
		DyeDissipation:      0.95,
		VelocityDissipation: 0.9999,
		TimeStep:            0.01,
		InkColor:            mgl32.Vec4{1, 1, 1, 1},
	}
}

func (p Params) constants(res gpu.Size3) shader.Constants {
	return shader.Constants{
		Resolution:          res,
		ImpulseRadius:       p.ImpulseRadius,
		Timestep:            p.TimeStep,
		DyeDissipation:      p.DyeDissipation,
		VelocityDissipation: p.VelocityDissipation,
		InkColor:            p.InkColor,
		StabilityClamp:      p.StabilityClamp,
	}
}

// Impulse injects force along Direction and ink around Position, given in
// normalized domain coordinates.
type Impulse struct {
	Position  mgl32.Vec3 `json:"position"`
	Direction mgl32.Vec3 `json:"direction"`
}

// DemoImpulses are the impulses the simulator starts with in the demo.
func DemoImpulses() []Impulse {
	return []Impulse{
		{Position: mgl32.Vec3{0.25, 0.5, 0.25}, Direction: mgl32.Vec3{1, 1, 1}},
		{Position: mgl32.Vec3{0.25, 0.5, 0.25}, Direction: mgl32.Vec3{1, 1, 1}},
		{Position: mgl32.Vec3{0.75, 0.2, 0.25}, Direction: mgl32.Vec3{-1, 0, 0}},
	}
}

// CellOf returns the grid cell containing a normalized position.
func CellOf(p mgl32.Vec3, res gpu.Size3) (x, y, z int) {
	cell := func(v float32, n int) int {
		c := int(v * float32(n))
		if c < 0 {
			return 0
		}
		if c >= n {
			return n - 1
		}
		return c
	}
	return cell(p.X(), res.X), cell(p.Y(), res.Y), cell(p.Z(), res.Z)
}
