// Package render extracts planar slices from read back fields and
// encodes them as images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mazznoer/colorgrad"

	fluid "github.com/esimov/fluid3d/fluid-solver"
	"github.com/esimov/fluid3d/gpu"
)

// Axis is the axis normal to a slice.
type Axis byte

const (
	AxisX Axis = 'x'
	AxisY Axis = 'y'
	AxisZ Axis = 'z'
)

// ParseAxis accepts "x", "y" or "z".
func ParseAxis(s string) (Axis, error) {
	if len(s) == 1 {
		switch a := Axis(s[0]); a {
		case AxisX, AxisY, AxisZ:
			return a, nil
		}
	}
	return 0, fmt.Errorf("render: unknown axis %q", s)
}

// Plane is a row major grid of per cell magnitudes.
type Plane struct {
	Width, Height int
	Values        []float32
}

// At returns the value at column u, row v.
func (p Plane) At(u, v int) float32 { return p.Values[v*p.Width+u] }

// Range returns the smallest and largest value of the plane.
func (p Plane) Range() (lo, hi float32) {
	if len(p.Values) == 0 {
		return 0, 0
	}
	lo, hi = p.Values[0], p.Values[0]
	for _, v := range p.Values[1:] {
		lo = float32(math.Min(float64(lo), float64(v)))
		hi = float32(math.Max(float64(hi), float64(v)))
	}
	return lo, hi
}

// Slice cuts the plane normal to axis at index out of a field of size res.
// A negative index selects the middle of the domain.
func Slice(texels []mgl32.Vec4, res gpu.Size3, axis Axis, index int, kind fluid.FieldKind) (Plane, error) {
	if len(texels) != res.Cells() {
		return Plane{}, fmt.Errorf("render: %d texels for a %s field", len(texels), res)
	}
	var w, h, depth int
	var cell func(u, v int) (x, y, z int)
	switch axis {
	case AxisX:
		w, h, depth = res.Y, res.Z, res.X
		cell = func(u, v int) (int, int, int) { return index, u, v }
	case AxisY:
		w, h, depth = res.X, res.Z, res.Y
		cell = func(u, v int) (int, int, int) { return u, index, v }
	case AxisZ:
		w, h, depth = res.X, res.Y, res.Z
		cell = func(u, v int) (int, int, int) { return u, v, index }
	default:
		return Plane{}, fmt.Errorf("render: unknown axis %q", byte(axis))
	}
	if index < 0 {
		index = depth / 2
	}
	if index >= depth {
		return Plane{}, fmt.Errorf("render: slice %d out of range along %c (%d cells)", index, axis, depth)
	}

	p := Plane{Width: w, Height: h, Values: make([]float32, w*h)}
	for v := 0; v < h; v++ {
		for u := 0; u < w; u++ {
			x, y, z := cell(u, v)
			p.Values[v*w+u] = fluid.Magnitude(kind, texels[fluid.Index(res, x, y, z)])
		}
	}
	return p, nil
}

// Palette is a gradient sampled into a fixed number of colors.
type Palette []color.Color

// NewPalette samples the viridis gradient into n colors.
func NewPalette(n int) Palette {
	if n < 2 {
		n = 2
	}
	if n > 256 {
		n = 256
	}
	return Palette(colorgrad.Viridis().Colors(uint(n)))
}

// Image maps the plane onto the palette, scaled to the plane's own range.
// Row zero of the plane is the bottom row of the image.
func (pal Palette) Image(p Plane) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, p.Width, p.Height), color.Palette(pal))
	lo, hi := p.Range()
	scale := float32(0)
	if hi > lo {
		scale = float32(len(pal)-1) / (hi - lo)
	}
	for v := 0; v < p.Height; v++ {
		for u := 0; u < p.Width; u++ {
			idx := uint8((p.At(u, v) - lo) * scale)
			img.SetColorIndex(u, p.Height-1-v, idx)
		}
	}
	return img
}

// WritePNG encodes the plane as a PNG image.
func (pal Palette) WritePNG(w io.Writer, p Plane) error {
	return png.Encode(w, pal.Image(p))
}
