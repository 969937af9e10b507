package fluid

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/floats"

	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/shader"
)

// Stats summarizes a read back field.
type Stats struct {
	Mean    float64
	Max     float64
	NonZero int
}

// FieldStats computes the statistics of the per cell magnitude of a field.
func FieldStats(kind FieldKind, texels []mgl32.Vec4) Stats {
	if len(texels) == 0 {
		return Stats{}
	}
	mags := make([]float64, len(texels))
	var st Stats
	for i, t := range texels {
		mags[i] = math.Abs(float64(Magnitude(kind, t)))
		if mags[i] != 0 {
			st.NonZero++
		}
	}
	st.Mean = floats.Sum(mags) / float64(len(mags))
	st.Max = floats.Max(mags)
	return st
}

// InteriorMeanAbs is the mean absolute value of channel X over the cells
// not on the outer shell.
func InteriorMeanAbs(texels []mgl32.Vec4, res gpu.Size3) float64 {
	var vals []float64
	for z := 0; z < res.Z; z++ {
		for y := 0; y < res.Y; y++ {
			for x := 0; x < res.X; x++ {
				if shader.OnShell(res, x, y, z) {
					continue
				}
				vals = append(vals, math.Abs(float64(texels[Index(res, x, y, z)].X())))
			}
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return floats.Sum(vals) / float64(len(vals))
}
