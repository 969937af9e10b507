package fluid

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/esimov/fluid3d/gpu"
)

func TestFieldStats(t *testing.T) {
	texels := []mgl32.Vec4{{3, 4, 0, 0}, {}, {0, 0, 1, 0}, {}}
	st := FieldStats(Velocity, texels)
	if st.NonZero != 2 || st.Max != 5 || st.Mean != 1.5 {
		t.Fatalf("velocity stats = %+v", st)
	}

	st = FieldStats(Pressure, []mgl32.Vec4{{-2, 9, 9, 9}, {1, 0, 0, 0}})
	if st.NonZero != 2 || st.Max != 2 || st.Mean != 1.5 {
		t.Fatalf("pressure stats = %+v", st)
	}
	if st := FieldStats(Dye, nil); st != (Stats{}) {
		t.Fatalf("empty stats = %+v", st)
	}
}

func TestInteriorMeanAbs(t *testing.T) {
	res := gpu.Size3{X: 3, Y: 3, Z: 3}
	texels := make([]mgl32.Vec4, res.Cells())
	for i := range texels {
		texels[i] = mgl32.Vec4{100, 0, 0, 0}
	}
	texels[Index(res, 1, 1, 1)] = mgl32.Vec4{-0.5, 0, 0, 0}
	if got := InteriorMeanAbs(texels, res); got != 0.5 {
		t.Fatalf("got %v, want 0.5", got)
	}
}

func TestInteriorMeanAbsPlanar(t *testing.T) {
	res := gpu.Size3{X: 4, Y: 3, Z: 1}
	texels := make([]mgl32.Vec4, res.Cells())
	for i := range texels {
		texels[i] = mgl32.Vec4{100, 0, 0, 0}
	}
	texels[Index(res, 1, 1, 0)] = mgl32.Vec4{-1, 0, 0, 0}
	texels[Index(res, 2, 1, 0)] = mgl32.Vec4{3, 0, 0, 0}
	if got := InteriorMeanAbs(texels, res); got != 2 {
		t.Fatalf("got %v, want 2", got)
	}
}
