package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	fluid "github.com/esimov/fluid3d/fluid-solver"
	"github.com/esimov/fluid3d/gpu"
)

func field(res gpu.Size3) []mgl32.Vec4 {
	texels := make([]mgl32.Vec4, res.Cells())
	for z := 0; z < res.Z; z++ {
		for y := 0; y < res.Y; y++ {
			for x := 0; x < res.X; x++ {
				texels[fluid.Index(res, x, y, z)] = mgl32.Vec4{float32(100*x + 10*y + z), 0, 0, 0}
			}
		}
	}
	return texels
}

func TestSlice(t *testing.T) {
	res := gpu.Size3{X: 4, Y: 3, Z: 2}
	texels := field(res)

	tests := []struct {
		axis  Axis
		index int
		w, h  int
		u, v  int
		want  float32
	}{
		{AxisZ, 1, 4, 3, 2, 1, 211},
		{AxisY, 2, 4, 2, 3, 1, 321},
		{AxisX, 3, 3, 2, 1, 0, 310},
		{AxisZ, -1, 4, 3, 0, 0, 1},
	}
	for _, tt := range tests {
		p, err := Slice(texels, res, tt.axis, tt.index, fluid.Pressure)
		if err != nil {
			t.Fatal(err)
		}
		if p.Width != tt.w || p.Height != tt.h {
			t.Errorf("%c: plane %dx%d, want %dx%d", tt.axis, p.Width, p.Height, tt.w, tt.h)
		}
		if got := p.At(tt.u, tt.v); got != tt.want {
			t.Errorf("%c[%d] at (%d,%d) = %v, want %v", tt.axis, tt.index, tt.u, tt.v, got, tt.want)
		}
	}

	if _, err := Slice(texels, res, AxisZ, 2, fluid.Pressure); err == nil {
		t.Error("expected an error for a slice past the domain")
	}
	if _, err := Slice(texels[:3], res, AxisZ, 0, fluid.Pressure); err == nil {
		t.Error("expected an error for a short field")
	}
}

func TestParseAxis(t *testing.T) {
	if a, err := ParseAxis("y"); err != nil || a != AxisY {
		t.Errorf("got %v, %v", a, err)
	}
	if _, err := ParseAxis("xy"); err == nil {
		t.Error("expected an error")
	}
}

func TestWritePNG(t *testing.T) {
	res := gpu.Size3{X: 4, Y: 3, Z: 2}
	p, err := Slice(field(res), res, AxisZ, 0, fluid.Pressure)
	if err != nil {
		t.Fatal(err)
	}
	pal := NewPalette(16)
	img := pal.Image(p)
	if lo := img.ColorIndexAt(0, p.Height-1); lo != 0 {
		t.Errorf("smallest value mapped to index %d", lo)
	}
	if hi := img.ColorIndexAt(p.Width-1, 0); hi != 15 {
		t.Errorf("largest value mapped to index %d", hi)
	}

	var buf bytes.Buffer
	if err := pal.WritePNG(&buf, p); err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := decoded.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("decoded bounds %v", b)
	}
}
