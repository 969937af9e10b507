// Package detector finds faces in image frames and turns their motion
// into fluid impulses.
package detector

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// ErrNoCascade is returned when the cascade file cannot be unpacked.
var ErrNoCascade = errors.New("detector: invalid facefinder cascade")

// Face is a detected face in image coordinates.
type Face struct {
	Row, Col int
	Scale    int
	Q        float32
}

// Detector runs the pigo face classifier.
type Detector struct {
	classifier *pigo.Pigo

	MinSize     int
	MaxSize     int
	ShiftFactor float64
	ScaleFactor float64
	IoU         float64
	MinQuality  float32
}

// Load reads and unpacks the facefinder cascade at path.
func Load(path string) (*Detector, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the facefinder cascade file: %w", err)
	}
	return New(cascade)
}

// New unpacks a facefinder cascade.
func New(cascade []byte) (*Detector, error) {
	p := pigo.NewPigo()
	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	classifier, err := p.Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCascade, err)
	}
	return &Detector{
		classifier:  classifier,
		MinSize:     20,
		MaxSize:     1000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		IoU:         0.2,
		MinQuality:  5,
	}, nil
}

// Grayscale converts img to the pixel layout the classifier expects.
func Grayscale(img image.Image) []uint8 {
	src, ok := img.(*image.NRGBA)
	if !ok {
		b := img.Bounds()
		src = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)
	}
	return pigo.RgbToGrayscale(src)
}

// DetectFaces runs the cluster detection over a grayscale frame and
// returns the faces above the quality threshold.
func (d *Detector) DetectFaces(pixels []uint8, width, height int) []Face {
	cParams := pigo.CascadeParams{
		MinSize:     d.MinSize,
		MaxSize:     d.MaxSize,
		ShiftFactor: d.ShiftFactor,
		ScaleFactor: d.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   height,
			Cols:   width,
			Dim:    width,
		},
	}

	// Run the classifier over the obtained leaf nodes and return the detection results.
	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := d.classifier.RunCascade(cParams, 0.0)

	// Calculate the intersection over union (IoU) of two clusters.
	dets = d.classifier.ClusterDetections(dets, d.IoU)

	faces := make([]Face, 0, len(dets))
	for _, det := range dets {
		if det.Q < d.MinQuality {
			continue
		}
		faces = append(faces, Face{Row: det.Row, Col: det.Col, Scale: det.Scale, Q: det.Q})
	}
	return faces
}

// DetectImage detects the faces of a decoded image.
func (d *Detector) DetectImage(img image.Image) []Face {
	b := img.Bounds()
	return d.DetectFaces(Grayscale(img), b.Dx(), b.Dy())
}
