package fluid

import (
	"encoding/binary"
	"fmt"

	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/shader"
)

// Dims selects between the volumetric domain and the planar variant.
type Dims int

const (
	Dims3D Dims = 3
	Dims2D Dims = 2
)

// BoundaryCell is a cell on the outer shell of the domain together with
// the unit offset pointing at its interior neighbour.
type BoundaryCell struct {
	Coord  [3]int32
	Offset [3]int32
}

// BoundaryCount is the number of boundary records of a domain: every cell
// of every face, so edge cells appear once per face they belong to.
func BoundaryCount(res gpu.Size3, dims Dims) int {
	if dims == Dims2D {
		return 2 * (res.X + res.Y)
	}
	return 2 * (res.X*res.Y + res.X*res.Z + res.Y*res.Z)
}

func checkDomain(res gpu.Size3, dims Dims) error {
	if !res.Valid() {
		return fmt.Errorf("%w: invalid resolution %s", ErrConfiguration, res)
	}
	switch dims {
	case Dims3D:
	case Dims2D:
		if res.Z != 1 {
			return fmt.Errorf("%w: planar domain needs a depth of 1, got %s", ErrConfiguration, res)
		}
	default:
		return fmt.Errorf("%w: unsupported dimension count %d", ErrConfiguration, dims)
	}
	return nil
}

// BuildBoundary enumerates the boundary cells of the domain.
func BuildBoundary(res gpu.Size3, dims Dims) ([]BoundaryCell, error) {
	if err := checkDomain(res, dims); err != nil {
		return nil, err
	}
	want := BoundaryCount(res, dims)
	cells := make([]BoundaryCell, 0, want)
	add := func(x, y, z, ox, oy, oz int) {
		cells = append(cells, BoundaryCell{
			Coord:  [3]int32{int32(x), int32(y), int32(z)},
			Offset: [3]int32{int32(ox), int32(oy), int32(oz)},
		})
	}
	X, Y, Z := res.X, res.Y, res.Z

	if dims == Dims2D {
		for i := 0; i < X; i++ {
			add(i, 0, 0, 0, 1, 0)
			add(i, Y-1, 0, 0, -1, 0)
		}
		for j := 0; j < Y; j++ {
			add(0, j, 0, 1, 0, 0)
			add(X-1, j, 0, -1, 0, 0)
		}
	} else {
		for i := 0; i < X; i++ {
			for j := 0; j < Y; j++ {
				add(i, j, 0, 0, 0, 1)
				add(i, j, Z-1, 0, 0, -1)
			}
			for k := 0; k < Z; k++ {
				add(i, 0, k, 0, 1, 0)
				add(i, Y-1, k, 0, -1, 0)
			}
		}
		for j := 0; j < Y; j++ {
			for k := 0; k < Z; k++ {
				add(0, j, k, 1, 0, 0)
				add(X-1, j, k, -1, 0, 0)
			}
		}
	}

	if len(cells) != want {
		return nil, fmt.Errorf("%w: built %d boundary cells, want %d", ErrConfiguration, len(cells), want)
	}
	return cells, nil
}

// EncodeBoundary packs the cells in the 24 byte record layout the
// boundary kernels read.
func EncodeBoundary(cells []BoundaryCell) []byte {
	out := make([]byte, len(cells)*shader.BoundaryStride)
	for i, c := range cells {
		rec := out[i*shader.BoundaryStride:]
		for w := 0; w < 3; w++ {
			binary.LittleEndian.PutUint32(rec[w*4:], uint32(c.Coord[w]))
			binary.LittleEndian.PutUint32(rec[12+w*4:], uint32(c.Offset[w]))
		}
	}
	return out
}
