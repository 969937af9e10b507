package fluid

import (
	"fmt"
	"strings"

	"github.com/esimov/fluid3d/gpu"
)

// FieldKind selects one of the simulation fields.
type FieldKind int

const (
	Dye FieldKind = iota
	Velocity
	Divergence
	Pressure
)

var fieldNames = [...]string{"dye", "velocity", "divergence", "pressure"}

func (k FieldKind) String() string {
	if k < 0 || int(k) >= len(fieldNames) {
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
	return fieldNames[k]
}

// Vector reports whether the field stores a vector per cell.
func (k FieldKind) Vector() bool {
	return k == Dye || k == Velocity
}

// ParseFieldKind converts a field name into its kind.
func ParseFieldKind(s string) (FieldKind, error) {
	for i, name := range fieldNames {
		if strings.EqualFold(s, name) {
			return FieldKind(i), nil
		}
	}
	return 0, fmt.Errorf("fluid: unknown field %q", s)
}

// Field is a double buffered volumetric field. Kernels read the previous
// state from Read and write the next one into Write; Swap exchanges the two
// roles without copying.
type Field struct {
	name  string
	read  *gpu.Texture3D
	write *gpu.Texture3D
}

func newField(dev *gpu.Device, name string, res gpu.Size3) (*Field, error) {
	read, err := dev.NewTexture3D("Read"+name, res)
	if err != nil {
		return nil, err
	}
	write, err := dev.NewTexture3D(name, res)
	if err != nil {
		return nil, err
	}
	return &Field{name: name, read: read, write: write}, nil
}

func (f *Field) Name() string { return f.name }

// Read returns the buffer holding the latest completed state.
func (f *Field) Read() *gpu.Texture3D { return f.read }

// Write returns the buffer the next dispatch writes into.
func (f *Field) Write() *gpu.Texture3D { return f.write }

// Swap exchanges the read and write buffers.
func (f *Field) Swap() {
	f.read, f.write = f.write, f.read
}

func (f *Field) bind(b *gpu.Bindings, write, read gpu.Slot) {
	b.SetTexture(write, f.write)
	b.SetTexture(read, f.read)
}
