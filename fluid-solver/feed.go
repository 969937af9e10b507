package fluid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/esimov/fluid3d/gpu"
)

// VelocityField returns the published velocity texture. The reference is
// only valid until the next call that dispatches work on the simulator,
// since buffer identity changes on every swap.
func (s *Simulator) VelocityField() *gpu.Texture3D { return s.velocity.Read() }

// DyeField returns the published dye texture, with the same lifetime as VelocityField.
func (s *Simulator) DyeField() *gpu.Texture3D { return s.dye.Read() }

// Transform is the model matrix of the published fields.
func (s *Simulator) Transform() mgl32.Mat4 { return s.transform }

func (s *Simulator) SetTransform(m mgl32.Mat4) { s.transform = m }

// SelectedField returns the texture to display for kind.
func (s *Simulator) SelectedField(kind FieldKind) (*gpu.Texture3D, error) {
	switch kind {
	case Dye:
		return s.dye.Read(), nil
	case Velocity:
		return s.velocity.Read(), nil
	case Divergence:
		return s.divergence, nil
	case Pressure:
		return s.pressure.Read(), nil
	}
	return nil, fmt.Errorf("fluid: unknown field %v", kind)
}

// Snapshot waits for pending work and reads the selected field back.
func (s *Simulator) Snapshot(kind FieldKind) ([]mgl32.Vec4, error) {
	t, err := s.SelectedField(kind)
	if err != nil {
		return nil, err
	}
	return s.dev.ReadTexture(t), nil
}

// MeanAbsDivergence recomputes the divergence of the published velocity
// and returns its mean absolute value over interior cells. It overwrites
// the divergence field.
func (s *Simulator) MeanAbsDivergence() (float64, error) {
	if err := s.computeDivergence(); err != nil {
		return 0, s.abort("divergence", err)
	}
	return InteriorMeanAbs(s.dev.ReadTexture(s.divergence), s.res), nil
}

// Index returns the texel index of a cell in a read back field.
func Index(res gpu.Size3, x, y, z int) int {
	return x + res.X*(y+res.Y*z)
}

// Magnitude is the per cell value shown for a field: the length of the
// vector for velocity and dye, the value itself for scalars.
func Magnitude(kind FieldKind, v mgl32.Vec4) float32 {
	if kind.Vector() {
		return v.Vec3().Len()
	}
	return v.X()
}
