package fluid

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/shader"
)

func TestBoundaryCount(t *testing.T) {
	for _, res := range []gpu.Size3{
		{X: 1, Y: 1, Z: 1},
		{X: 2, Y: 3, Z: 4},
		{X: 16, Y: 16, Z: 16},
		{X: 64, Y: 64, Z: 64},
		{X: 7, Y: 31, Z: 2},
	} {
		cells, err := BuildBoundary(res, Dims3D)
		if err != nil {
			t.Fatalf("%s: %v", res, err)
		}
		want := 2 * (res.X*res.Y + res.X*res.Z + res.Y*res.Z)
		if len(cells) != want || BoundaryCount(res, Dims3D) != want {
			t.Errorf("%s: got %d cells, want %d", res, len(cells), want)
		}
	}
	for _, res := range []gpu.Size3{{X: 1, Y: 1, Z: 1}, {X: 64, Y: 32, Z: 1}, {X: 5, Y: 9, Z: 1}} {
		cells, err := BuildBoundary(res, Dims2D)
		if err != nil {
			t.Fatalf("%s: %v", res, err)
		}
		if want := 2 * (res.X + res.Y); len(cells) != want {
			t.Errorf("2D %s: got %d cells, want %d", res, len(cells), want)
		}
	}
}

func TestBoundaryCellsPointInward(t *testing.T) {
	res := gpu.Size3{X: 5, Y: 4, Z: 6}
	cells, err := BuildBoundary(res, Dims3D)
	if err != nil {
		t.Fatal(err)
	}
	perFace := map[[3]int32]int{}
	for _, c := range cells {
		x, y, z := int(c.Coord[0]), int(c.Coord[1]), int(c.Coord[2])
		if !res.Contains(x, y, z) {
			t.Fatalf("cell %v outside the domain", c.Coord)
		}
		if !(x == 0 || y == 0 || z == 0 || x == res.X-1 || y == res.Y-1 || z == res.Z-1) {
			t.Fatalf("cell %v is not on the shell", c.Coord)
		}
		n := 0
		for _, o := range c.Offset {
			if o != 0 {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("offset %v is not a unit axis vector", c.Offset)
		}
		ix, iy, iz := x+int(c.Offset[0]), y+int(c.Offset[1]), z+int(c.Offset[2])
		if !res.Contains(ix, iy, iz) {
			t.Fatalf("offset %v of %v points outside", c.Offset, c.Coord)
		}
		perFace[c.Offset]++
	}
	want := map[[3]int32]int{
		{0, 0, 1}: res.X * res.Y, {0, 0, -1}: res.X * res.Y,
		{0, 1, 0}: res.X * res.Z, {0, -1, 0}: res.X * res.Z,
		{1, 0, 0}: res.Y * res.Z, {-1, 0, 0}: res.Y * res.Z,
	}
	for off, n := range want {
		if perFace[off] != n {
			t.Errorf("face %v: %d cells, want %d", off, perFace[off], n)
		}
	}
}

func TestBoundaryConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		res  gpu.Size3
		dims Dims
	}{
		{"zero axis", gpu.Size3{X: 0, Y: 4, Z: 4}, Dims3D},
		{"planar with depth", gpu.Size3{X: 4, Y: 4, Z: 2}, Dims2D},
		{"four dimensions", gpu.Size3{X: 4, Y: 4, Z: 4}, Dims(4)},
	}
	for _, tt := range tests {
		if _, err := BuildBoundary(tt.res, tt.dims); !errors.Is(err, ErrConfiguration) {
			t.Errorf("%s: got %v, want ErrConfiguration", tt.name, err)
		}
	}
}

func TestEncodeBoundaryLayout(t *testing.T) {
	cells := []BoundaryCell{
		{Coord: [3]int32{1, 2, 3}, Offset: [3]int32{0, -1, 0}},
		{Coord: [3]int32{63, 0, 9}, Offset: [3]int32{-1, 0, 0}},
	}
	raw := EncodeBoundary(cells)
	if len(raw) != len(cells)*shader.BoundaryStride || shader.BoundaryStride != 24 {
		t.Fatalf("encoded %d bytes, want 24 per record", len(raw))
	}
	word := func(rec, w int) int32 {
		return int32(binary.LittleEndian.Uint32(raw[rec*24+w*4:]))
	}
	if word(0, 2) != 3 || word(0, 4) != -1 || word(1, 0) != 63 || word(1, 3) != -1 {
		t.Fatalf("unexpected record words: %v", raw)
	}
}
