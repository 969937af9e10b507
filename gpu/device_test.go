package gpu

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func fillKernel(value float32) *Kernel {
	return &Kernel{
		Name:    "Fill",
		Threads: Size3{4, 4, 1},
		Bind: func(b *Bindings) (ThreadFunc, error) {
			t, err := b.Texture(0)
			if err != nil {
				return nil, err
			}
			size := t.Size()
			return func(x, y, z int) {
				if size.Contains(x, y, z) {
					t.Store(x, y, z, mgl32.Vec4{value, float32(x), float32(y), float32(z)})
				}
			}, nil
		},
	}
}

func TestGroups(t *testing.T) {
	tests := []struct {
		domain, group, want Size3
	}{
		{Size3{64, 64, 64}, Size3{16, 16, 1}, Size3{4, 4, 64}},
		{Size3{65, 17, 3}, Size3{16, 16, 1}, Size3{5, 2, 3}},
		{Size3{24576, 1, 1}, Size3{128, 1, 1}, Size3{192, 1, 1}},
		{Size3{1, 1, 1}, Size3{128, 1, 1}, Size3{1, 1, 1}},
	}
	for _, tt := range tests {
		if got := Groups(tt.domain, tt.group); got != tt.want {
			t.Errorf("Groups(%s, %s) = %s, want %s", tt.domain, tt.group, got, tt.want)
		}
	}
}

func TestDispatchCoversEveryThread(t *testing.T) {
	d := NewDevice(WithWorkers(3))
	defer d.Release()

	size := Size3{10, 7, 3}
	tex, err := d.NewTexture3D("target", size)
	if err != nil {
		t.Fatal(err)
	}
	var b Bindings
	b.SetTexture(0, tex)
	if err := d.Dispatch(fillKernel(2), Groups(size, Size3{4, 4, 1}), b); err != nil {
		t.Fatal(err)
	}
	texels := d.ReadTexture(tex)
	for z := 0; z < size.Z; z++ {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				want := mgl32.Vec4{2, float32(x), float32(y), float32(z)}
				if got := texels[x+size.X*(y+size.Y*z)]; got != want {
					t.Fatalf("texel (%d,%d,%d) = %v, want %v", x, y, z, got, want)
				}
			}
		}
	}
	if d.Submitted() != 1 {
		t.Fatalf("submitted = %d, want 1", d.Submitted())
	}
}

func TestDispatchIsInOrder(t *testing.T) {
	d := NewDevice(WithWorkers(4), WithQueueDepth(2))
	defer d.Release()

	size := Size3{8, 8, 8}
	tex, err := d.NewTexture3D("target", size)
	if err != nil {
		t.Fatal(err)
	}
	var b Bindings
	b.SetTexture(0, tex)
	for i := 1; i <= 20; i++ {
		if err := d.Dispatch(fillKernel(float32(i)), Groups(size, Size3{4, 4, 1}), b); err != nil {
			t.Fatal(err)
		}
	}
	for _, v := range d.ReadTexture(tex) {
		if v.X() != 20 {
			t.Fatalf("got %v, last dispatch did not win", v)
		}
	}
}

func TestBindingsAreSnapshotted(t *testing.T) {
	d := NewDevice()
	defer d.Release()

	size := Size3{4, 4, 1}
	a, _ := d.NewTexture3D("a", size)
	other, _ := d.NewTexture3D("b", size)

	var b Bindings
	b.SetTexture(0, a)
	if err := d.Dispatch(fillKernel(1), Size3{1, 1, 1}, b); err != nil {
		t.Fatal(err)
	}
	b.SetTexture(0, other)
	d.Finish()

	if got := d.ReadTexture(a)[0].X(); got != 1 {
		t.Fatalf("first texture = %v, want 1", got)
	}
	if got := d.ReadTexture(other)[0].X(); got != 0 {
		t.Fatalf("rebinding leaked into a queued dispatch: %v", got)
	}
}

func TestDispatchErrors(t *testing.T) {
	var fail atomic.Bool
	d := NewDevice(WithFaultInjector(func(kernel string) error {
		if fail.Load() {
			return errors.New("injected")
		}
		return nil
	}))

	tex, _ := d.NewTexture3D("t", Size3{4, 4, 1})
	var b Bindings
	b.SetTexture(0, tex)

	if err := d.Dispatch(fillKernel(1), Size3{0, 1, 1}, b); !errors.Is(err, ErrDispatch) {
		t.Errorf("invalid groups: got %v, want ErrDispatch", err)
	}
	if err := d.Dispatch(fillKernel(1), Size3{1, 1, 1}, Bindings{}); !errors.Is(err, ErrDispatch) {
		t.Errorf("missing binding: got %v, want ErrDispatch", err)
	}
	fail.Store(true)
	if err := d.Dispatch(fillKernel(1), Size3{1, 1, 1}, b); !errors.Is(err, ErrDispatch) {
		t.Errorf("injected fault: got %v, want ErrDispatch", err)
	}
	fail.Store(false)

	d.Release()
	if err := d.Dispatch(fillKernel(1), Size3{1, 1, 1}, b); !errors.Is(err, ErrDispatch) {
		t.Errorf("released device: got %v, want ErrDispatch", err)
	}
}

func TestKernelPanicIsReportedOnce(t *testing.T) {
	d := NewDevice(WithWorkers(2))
	defer d.Release()

	boom := &Kernel{
		Name:    "Boom",
		Threads: Size3{1, 1, 1},
		Bind: func(*Bindings) (ThreadFunc, error) {
			return func(x, y, z int) { panic("out of range") }, nil
		},
	}
	if err := d.Dispatch(boom, Size3{1, 1, 1}, Bindings{}); err != nil {
		t.Fatal(err)
	}
	d.Finish()

	tex, _ := d.NewTexture3D("t", Size3{4, 4, 1})
	var b Bindings
	b.SetTexture(0, tex)
	if err := d.Dispatch(fillKernel(1), Size3{1, 1, 1}, b); !errors.Is(err, ErrDispatch) {
		t.Fatalf("got %v, want the fault to surface as ErrDispatch", err)
	}
	if err := d.Dispatch(fillKernel(1), Size3{1, 1, 1}, b); err != nil {
		t.Fatalf("fault reported twice: %v", err)
	}
}

func TestMemoryLimit(t *testing.T) {
	d := NewDevice(WithMemoryLimit(4 * 4 * 4 * texelBytes))
	defer d.Release()

	if _, err := d.NewTexture3D("fits", Size3{4, 4, 4}); err != nil {
		t.Fatal(err)
	}
	if _, err := d.NewTexture3D("overflow", Size3{1, 1, 1}); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("got %v, want ErrResourceExhausted", err)
	}
	if _, err := d.NewBuffer("bad", 3, 6); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("got %v, want ErrResourceExhausted for unaligned stride", err)
	}
}

func TestProgramFindKernel(t *testing.T) {
	p := NewProgram("test", fillKernel(0))
	if _, err := p.FindKernel("Fill"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.FindKernel("Missing"); err == nil {
		t.Fatal("expected an error for an unknown kernel")
	}
}
