package gpu

import "fmt"

// Slot identifies a resource binding of a kernel.
type Slot uint8

// MaxSlots is the size of a binding table.
const MaxSlots = 16

// Bindings is the binding table of one dispatch. It is copied when the
// dispatch is submitted, so rebinding or swapping textures afterwards does
// not affect commands already in the queue. Constants must hold a value,
// not a pointer, for the same reason.
type Bindings struct {
	Textures  [MaxSlots]*Texture3D
	Buffers   [MaxSlots]*Buffer
	Constants any
}

func (b *Bindings) SetTexture(s Slot, t *Texture3D) { b.Textures[s] = t }
func (b *Bindings) SetBuffer(s Slot, buf *Buffer)   { b.Buffers[s] = buf }

// Texture returns the texture bound at s or an error if the slot is empty.
func (b *Bindings) Texture(s Slot) (*Texture3D, error) {
	if int(s) >= MaxSlots || b.Textures[s] == nil {
		return nil, fmt.Errorf("no texture bound at slot %d", s)
	}
	return b.Textures[s], nil
}

// Buffer returns the buffer bound at s or an error if the slot is empty.
func (b *Bindings) Buffer(s Slot) (*Buffer, error) {
	if int(s) >= MaxSlots || b.Buffers[s] == nil {
		return nil, fmt.Errorf("no buffer bound at slot %d", s)
	}
	return b.Buffers[s], nil
}

// ThreadFunc is the body of a kernel for one thread of the dispatch.
type ThreadFunc func(x, y, z int)

// Kernel is a named compute entry point. Bind resolves the binding table
// once per dispatch and returns the per thread body.
type Kernel struct {
	Name    string
	Threads Size3
	Bind    func(b *Bindings) (ThreadFunc, error)
}

// Program is a set of kernels addressable by name.
type Program struct {
	name    string
	kernels map[string]*Kernel
}

func NewProgram(name string, kernels ...*Kernel) *Program {
	p := &Program{
		name:    name,
		kernels: make(map[string]*Kernel, len(kernels)),
	}
	for _, k := range kernels {
		p.kernels[k.Name] = k
	}
	return p
}

func (p *Program) Name() string { return p.name }

// FindKernel looks a kernel up by its entry point name.
func (p *Program) FindKernel(name string) (*Kernel, error) {
	k, ok := p.kernels[name]
	if !ok {
		return nil, fmt.Errorf("gpu: program %q has no kernel %q", p.name, name)
	}
	return k, nil
}
