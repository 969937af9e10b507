package gpu

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLoadClampsToEdge(t *testing.T) {
	d := NewDevice()
	defer d.Release()

	size := Size3{3, 3, 3}
	tex, _ := d.NewTexture3D("t", size)
	tex.Store(0, 0, 0, mgl32.Vec4{1, 0, 0, 0})
	tex.Store(2, 2, 2, mgl32.Vec4{2, 0, 0, 0})
	tex.Store(5, 0, 0, mgl32.Vec4{9, 9, 9, 9})

	if got := tex.Load(-4, -1, 0).X(); got != 1 {
		t.Errorf("Load below range = %v, want 1", got)
	}
	if got := tex.Load(7, 3, 99).X(); got != 2 {
		t.Errorf("Load above range = %v, want 2", got)
	}
	if got := tex.Load(2, 0, 0); got != (mgl32.Vec4{}) {
		t.Errorf("out of range Store leaked: %v", got)
	}
}

func TestSampleLinear(t *testing.T) {
	d := NewDevice()
	defer d.Release()

	size := Size3{4, 4, 4}
	tex, _ := d.NewTexture3D("ramp", size)
	for z := 0; z < size.Z; z++ {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				tex.Store(x, y, z, mgl32.Vec4{float32(x), float32(y), float32(z), 1})
			}
		}
	}

	tests := []struct {
		p    mgl32.Vec3
		want mgl32.Vec4
	}{
		{mgl32.Vec3{1, 2, 3}, mgl32.Vec4{1, 2, 3, 1}},
		{mgl32.Vec3{1.5, 0.25, 2.75}, mgl32.Vec4{1.5, 0.25, 2.75, 1}},
		{mgl32.Vec3{-3, 10, 1}, mgl32.Vec4{0, 3, 1, 1}},
	}
	for _, tt := range tests {
		got := tex.SampleLinear(tt.p)
		for i := range got {
			if math.Abs(float64(got[i]-tt.want[i])) > 1e-5 {
				t.Errorf("SampleLinear(%v) = %v, want %v", tt.p, got, tt.want)
				break
			}
		}
	}
}

func TestBufferWords(t *testing.T) {
	d := NewDevice()
	defer d.Release()

	b, err := d.NewBuffer("records", 2, 12)
	if err != nil {
		t.Fatal(err)
	}
	b.PutFloat32(1, 2, -0.5)
	if got := b.Float32(1, 2); got != -0.5 {
		t.Fatalf("Float32 = %v, want -0.5", got)
	}
	raw := d.ReadBuffer(b)
	if len(raw) != 24 {
		t.Fatalf("len = %d, want 24", len(raw))
	}
	if err := d.WriteBuffer(b, raw[:5]); err == nil {
		t.Fatal("expected a size mismatch error")
	}
}
