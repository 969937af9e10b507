package gpu

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	texelBytes        = 16
	defaultQueueDepth = 256
)

// FaultFunc is consulted before every submission; a non-nil error rejects it.
type FaultFunc func(kernel string) error

type Option func(*Device)

// WithWorkers sets the number of goroutines executing thread groups.
func WithWorkers(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueDepth sets how many commands may be in flight before Dispatch blocks.
func WithQueueDepth(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.queueDepth = n
		}
	}
}

// WithMemoryLimit caps the bytes of textures and buffers the device may hold.
func WithMemoryLimit(bytes int64) Option {
	return func(d *Device) { d.limit = bytes }
}

// WithFaultInjector installs a hook able to reject submissions.
func WithFaultInjector(f FaultFunc) Option {
	return func(d *Device) { d.fault = f }
}

type command struct {
	kernel *Kernel
	groups Size3
	run    ThreadFunc
	fence  chan struct{}
}

// Device is a software compute accelerator. Commands are executed strictly
// in submission order by a single executor goroutine; the thread groups of
// each command are spread over a pool of workers.
type Device struct {
	workers    int
	queueDepth int
	limit      int64
	fault      FaultFunc

	queue chan command
	done  chan struct{}

	mu        sync.RWMutex
	released  bool
	allocated int64

	lostMu sync.Mutex
	lost   error

	nextID    atomic.Uint64
	submitted atomic.Uint64
}

// NewDevice starts a device and its executor.
func NewDevice(opts ...Option) *Device {
	d := &Device{
		workers:    runtime.NumCPU(),
		queueDepth: defaultQueueDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan command, d.queueDepth)
	d.done = make(chan struct{})
	go d.executor()

	return d
}

func (d *Device) Workers() int { return d.workers }

// Submitted returns the number of kernel dispatches accepted so far.
func (d *Device) Submitted() uint64 { return d.submitted.Load() }

func (d *Device) reserve(bytes int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return fmt.Errorf("%w: device released", ErrResourceExhausted)
	}
	if d.limit > 0 && d.allocated+bytes > d.limit {
		return fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrResourceExhausted, bytes, d.allocated, d.limit)
	}
	d.allocated += bytes
	return nil
}

// NewTexture3D allocates a zeroed volumetric texture.
func (d *Device) NewTexture3D(name string, size Size3) (*Texture3D, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: texture %s has invalid size %s", ErrResourceExhausted, name, size)
	}
	if err := d.reserve(int64(size.Cells()) * texelBytes); err != nil {
		return nil, fmt.Errorf("texture %s: %w", name, err)
	}
	return &Texture3D{
		id:    d.nextID.Add(1),
		name:  name,
		size:  size,
		data:  make([]mgl32.Vec4, size.Cells()),
		locks: new(shardLocks),
	}, nil
}

// NewBuffer allocates a zeroed structured buffer.
func (d *Device) NewBuffer(name string, count, stride int) (*Buffer, error) {
	if count <= 0 || stride <= 0 || stride%4 != 0 {
		return nil, fmt.Errorf("%w: buffer %s has invalid layout %dx%d", ErrResourceExhausted, name, count, stride)
	}
	if err := d.reserve(int64(count) * int64(stride)); err != nil {
		return nil, fmt.Errorf("buffer %s: %w", name, err)
	}
	return &Buffer{
		id:     d.nextID.Add(1),
		name:   name,
		count:  count,
		stride: stride,
		data:   make([]byte, count*stride),
	}, nil
}

// Dispatch submits a kernel over the given number of thread groups. It
// returns as soon as the command is queued.
func (d *Device) Dispatch(k *Kernel, groups Size3, b Bindings) error {
	if err := d.takeLost(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDispatch, k.Name, err)
	}
	if !groups.Valid() {
		return fmt.Errorf("%w: %s: invalid group count %s", ErrDispatch, k.Name, groups)
	}
	if d.fault != nil {
		if err := d.fault(k.Name); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDispatch, k.Name, err)
		}
	}
	run, err := k.Bind(&b)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDispatch, k.Name, err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.released {
		return fmt.Errorf("%w: %s: device released", ErrDispatch, k.Name)
	}
	d.queue <- command{kernel: k, groups: groups, run: run}
	d.submitted.Add(1)

	return nil
}

// Finish blocks until every command submitted so far has executed.
func (d *Device) Finish() {
	d.mu.RLock()
	if d.released {
		d.mu.RUnlock()
		return
	}
	fence := make(chan struct{})
	d.queue <- command{fence: fence}
	d.mu.RUnlock()
	<-fence
}

// ReadTexture waits for the queue to drain and copies the texture back.
func (d *Device) ReadTexture(t *Texture3D) []mgl32.Vec4 {
	d.Finish()
	out := make([]mgl32.Vec4, len(t.data))
	copy(out, t.data)
	return out
}

// WriteTexture waits for the queue to drain and uploads texels.
func (d *Device) WriteTexture(t *Texture3D, texels []mgl32.Vec4) error {
	if len(texels) != len(t.data) {
		return fmt.Errorf("gpu: texture %s: got %d texels, want %d", t.name, len(texels), len(t.data))
	}
	d.Finish()
	copy(t.data, texels)
	return nil
}

// ReadBuffer waits for the queue to drain and copies the buffer back.
func (d *Device) ReadBuffer(b *Buffer) []byte {
	d.Finish()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// WriteBuffer waits for the queue to drain and uploads raw records.
func (d *Device) WriteBuffer(b *Buffer, data []byte) error {
	if len(data) != len(b.data) {
		return fmt.Errorf("gpu: buffer %s: got %d bytes, want %d", b.name, len(data), len(b.data))
	}
	d.Finish()
	copy(b.data, data)
	return nil
}

// Release drains the queue and stops the executor. The device rejects
// every later submission.
func (d *Device) Release() {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return
	}
	d.released = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}

func (d *Device) takeLost() error {
	d.lostMu.Lock()
	defer d.lostMu.Unlock()

	err := d.lost
	d.lost = nil
	return err
}

func (d *Device) setLost(err error) {
	d.lostMu.Lock()
	if d.lost == nil {
		d.lost = err
	}
	d.lostMu.Unlock()
}

func (d *Device) executor() {
	defer close(d.done)

	for c := range d.queue {
		if c.fence != nil {
			close(c.fence)
			continue
		}
		d.execute(c)
	}
}

// execute runs every thread group of c and returns once all have finished.
func (d *Device) execute(c command) {
	total := c.groups.Cells()
	workers := d.workers
	if workers > total {
		workers = total
	}

	var (
		wg   sync.WaitGroup
		next atomic.Int64
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.setLost(fmt.Errorf("kernel %s faulted: %v", c.kernel.Name, r))
				}
			}()
			for {
				g := int(next.Add(1)) - 1
				if g >= total {
					return
				}
				d.runGroup(c, g)
			}
		}()
	}
	wg.Wait()
}

func (d *Device) runGroup(c command, g int) {
	gx := g % c.groups.X
	gy := (g / c.groups.X) % c.groups.Y
	gz := g / (c.groups.X * c.groups.Y)
	t := c.kernel.Threads

	for lz := 0; lz < t.Z; lz++ {
		z := gz*t.Z + lz
		for ly := 0; ly < t.Y; ly++ {
			y := gy*t.Y + ly
			for lx := 0; lx < t.X; lx++ {
				c.run(gx*t.X+lx, y, z)
			}
		}
	}
}
