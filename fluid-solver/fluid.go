package fluid

import (
	"fmt"
	"io"
	"log"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/shader"
)

// JacobiIterations is the fixed number of pressure relaxation sweeps per frame.
const JacobiIterations = 50

// Config describes a simulator at start-up.
type Config struct {
	Resolution gpu.Size3
	Dims       Dims
	Params     Params
	// Iterations overrides JacobiIterations when positive.
	Iterations int
	// Device is created, and owned by the simulator, when nil.
	Device  *gpu.Device
	Program *gpu.Program
	Logger  *log.Logger
	// Transform places the unit domain in world space; zero means identity.
	Transform mgl32.Mat4
}

func DefaultConfig() Config {
	return Config{
		Resolution: gpu.Size3{X: 64, Y: 64, Z: 64},
		Dims:       Dims3D,
		Params:     DefaultParams(),
	}
}

// Simulator owns every field and the boundary table of one fluid domain.
// All of its methods must be called from a single goroutine.
type Simulator struct {
	res        gpu.Size3
	iterations int
	params     Params

	dev        *gpu.Device
	ownsDevice bool
	program    *gpu.Program
	kernels    kernelTable
	disp       dispatcher
	logger     *log.Logger

	velocity   *Field
	dye        *Field
	pressure   *Field
	divergence *gpu.Texture3D

	boundary      *gpu.Buffer
	boundaryCount int

	transform mgl32.Mat4

	frame      uint64
	needsReset bool
}

// New allocates the fields, builds and uploads the boundary table and
// resolves the kernels.
func New(cfg Config) (*Simulator, error) {
	if cfg.Dims == 0 {
		cfg.Dims = Dims3D
	}
	cells, err := BuildBoundary(cfg.Resolution, cfg.Dims)
	if err != nil {
		return nil, err
	}
	if cfg.Program == nil {
		cfg.Program = shader.NewProgram()
	}
	kernels, err := loadKernels(cfg.Program)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		res:        cfg.Resolution,
		iterations: cfg.Iterations,
		params:     cfg.Params,
		dev:        cfg.Device,
		program:    cfg.Program,
		kernels:    kernels,
		logger:     cfg.Logger,
		transform:  cfg.Transform,
	}
	if s.transform == (mgl32.Mat4{}) {
		s.transform = mgl32.Ident4()
	}
	if s.iterations <= 0 {
		s.iterations = JacobiIterations
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.dev == nil {
		s.dev = gpu.NewDevice()
		s.ownsDevice = true
	}
	s.disp = dispatcher{dev: s.dev, res: s.res}

	if err := s.allocate(cells); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (s *Simulator) allocate(cells []BoundaryCell) error {
	var err error
	if s.velocity, err = newField(s.dev, "Velocity", s.res); err != nil {
		return err
	}
	if s.dye, err = newField(s.dev, "Dye", s.res); err != nil {
		return err
	}
	if s.pressure, err = newField(s.dev, "Pressure", s.res); err != nil {
		return err
	}
	if s.divergence, err = s.dev.NewTexture3D("Divergence", s.res); err != nil {
		return err
	}
	s.boundaryCount = len(cells)
	if s.boundary, err = s.dev.NewBuffer("boundaryData", len(cells), shader.BoundaryStride); err != nil {
		return err
	}
	return s.dev.WriteBuffer(s.boundary, EncodeBoundary(cells))
}

// Release frees the device when the simulator created it. Textures
// handed out earlier must not be used afterwards.
func (s *Simulator) Release() {
	if s.ownsDevice && s.dev != nil {
		s.dev.Release()
	}
}

func (s *Simulator) Resolution() gpu.Size3 { return s.res }
func (s *Simulator) Device() *gpu.Device { return s.dev }
func (s *Simulator) Program() *gpu.Program { return s.program }
func (s *Simulator) Frame() uint64 { return s.frame }
func (s *Simulator) BoundaryCells() int { return s.boundaryCount }
func (s *Simulator) Params() Params { return s.params }
func (s *Simulator) SetParams(p Params) { s.params = p }
func (s *Simulator) NeedsReset() bool { return s.needsReset }
func (s *Simulator) constants() shader.Constants { return s.params.constants(s.res) }

// AddImpulse applies one impulse immediately. After a failed frame the
// fields are reset first, so the impulse survives into the next Step.
func (s *Simulator) AddImpulse(im Impulse) error {
	if err := s.resetIfNeeded(); err != nil {
		return err
	}
	if err := s.addImpulse(im); err != nil {
		return s.abort("impulse", err)
	}
	return nil
}

// Step runs one frame: the given impulses, then advection, velocity
// boundary, divergence, the pressure solve and the projection. A failed
// dispatch aborts the rest of the frame and the next Step starts by
// clearing every field.
func (s *Simulator) Step(impulses ...Impulse) error {
	if err := s.resetIfNeeded(); err != nil {
		return err
	}
	for _, im := range impulses {
		if err := s.addImpulse(im); err != nil {
			return s.abort("impulse", err)
		}
	}

	stages := []struct {
		name string
		run  func() error
	}{
		{"advect", s.advect},
		{"velocity boundary", s.velocityBoundary},
		{"divergence", s.computeDivergence},
		{"pressure reset", s.clearPressure},
		{"jacobi", s.solvePressure},
		{"subtract gradient", s.subtractGradient},
	}
	for _, st := range stages {
		if err := st.run(); err != nil {
			return s.abort(st.name, err)
		}
	}
	s.frame++

	return nil
}

func (s *Simulator) resetIfNeeded() error {
	if !s.needsReset {
		return nil
	}
	if err := s.Reset(); err != nil {
		return s.abort("reset", err)
	}
	return nil
}

func (s *Simulator) abort(stage string, err error) error {
	s.needsReset = true
	s.logger.Printf("frame %d aborted at %s: %v", s.frame, stage, err)
	return fmt.Errorf("fluid: frame %d: %s: %w", s.frame, stage, err)
}

// Advect runs one extra advection pass outside of the frame cycle.
func (s *Simulator) Advect() error {
	if err := s.resetIfNeeded(); err != nil {
		return err
	}
	if err := s.advect(); err != nil {
		return s.abort("advect", err)
	}
	return nil
}

// ClearDye removes all ink from the domain.
func (s *Simulator) ClearDye() error {
	for _, t := range []*gpu.Texture3D{s.dye.Write(), s.dye.Read()} {
		if err := s.clear(t); err != nil {
			return s.abort("clear dye", err)
		}
	}
	return nil
}

// Reset clears both buffers of every field.
func (s *Simulator) Reset() error {
	targets := []*gpu.Texture3D{
		s.velocity.Write(), s.velocity.Read(),
		s.dye.Write(), s.dye.Read(),
		s.pressure.Write(), s.pressure.Read(),
		s.divergence,
	}
	for _, t := range targets {
		if err := s.clear(t); err != nil {
			return err
		}
	}
	s.needsReset = false
	return nil
}

func (s *Simulator) clear(t *gpu.Texture3D) error {
	var b gpu.Bindings
	b.SetTexture(shader.SlotClearTexture, t)
	b.Constants = s.constants()
	return s.disp.dispatch(s.kernels[kernelClear], b)
}

func (s *Simulator) addImpulse(im Impulse) error {
	c := s.constants()
	c.ImpulsePosition = im.Position
	c.ImpulseDirection = im.Direction

	var b gpu.Bindings
	s.dye.bind(&b, shader.SlotDye, shader.SlotReadDye)
	s.velocity.bind(&b, shader.SlotVelocity, shader.SlotReadVelocity)
	b.Constants = c
	if err := s.disp.dispatch(s.kernels[kernelAddImpulse], b); err != nil {
		return err
	}
	s.dye.Swap()
	s.velocity.Swap()

	return nil
}

func (s *Simulator) advect() error {
	var b gpu.Bindings
	s.dye.bind(&b, shader.SlotDye, shader.SlotReadDye)
	s.velocity.bind(&b, shader.SlotVelocity, shader.SlotReadVelocity)
	b.Constants = s.constants()
	if err := s.disp.dispatch(s.kernels[kernelAdvect], b); err != nil {
		return err
	}
	s.dye.Swap()
	s.velocity.Swap()

	return nil
}

// velocityBoundary brings the advected state back into the write slot so
// the boundary kernel can stamp zero onto the shell of that buffer, then
// publishes it again. Interior cells are not touched.
func (s *Simulator) velocityBoundary() error {
	s.velocity.Swap()

	var b gpu.Bindings
	s.velocity.bind(&b, shader.SlotVelocity, shader.SlotReadVelocity)
	b.SetBuffer(shader.SlotBoundaryData, s.boundary)
	c := s.constants()
	c.BoundaryValue = 0
	b.Constants = c
	if err := s.disp.dispatch1D(s.kernels[kernelVelocityBoundary], s.boundaryCount, b); err != nil {
		return err
	}
	s.velocity.Swap()

	return nil
}

func (s *Simulator) computeDivergence() error {
	var b gpu.Bindings
	s.velocity.bind(&b, shader.SlotVelocity, shader.SlotReadVelocity)
	b.SetTexture(shader.SlotDivergence, s.divergence)
	b.Constants = s.constants()
	return s.disp.dispatch(s.kernels[kernelDivergence], b)
}

// clearPressure zeroes both pressure buffers; the solve always starts
// from rest.
func (s *Simulator) clearPressure() error {
	if err := s.clear(s.pressure.Write()); err != nil {
		return err
	}
	return s.clear(s.pressure.Read())
}

// solvePressure alternates a Jacobi sweep with the pressure boundary
// stamp. The stamp samples the buffer the sweep read from, i.e. the
// previous iteration, before the one swap of the iteration.
func (s *Simulator) solvePressure() error {
	c := s.constants()
	c.BoundaryValue = 1

	for i := 0; i < s.iterations; i++ {
		var jb gpu.Bindings
		s.pressure.bind(&jb, shader.SlotPressure, shader.SlotReadPressure)
		jb.SetTexture(shader.SlotReadDivergence, s.divergence)
		jb.Constants = c
		if err := s.disp.dispatch(s.kernels[kernelJacobi], jb); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}

		var bb gpu.Bindings
		s.pressure.bind(&bb, shader.SlotPressure, shader.SlotReadPressure)
		bb.SetBuffer(shader.SlotBoundaryData, s.boundary)
		bb.Constants = c
		if err := s.disp.dispatch1D(s.kernels[kernelPressureBoundary], s.boundaryCount, bb); err != nil {
			return fmt.Errorf("iteration %d boundary: %w", i, err)
		}
		s.pressure.Swap()
	}
	return nil
}

func (s *Simulator) subtractGradient() error {
	var b gpu.Bindings
	s.pressure.bind(&b, shader.SlotPressure, shader.SlotReadPressure)
	s.velocity.bind(&b, shader.SlotVelocity, shader.SlotReadVelocity)
	b.Constants = s.constants()
	if err := s.disp.dispatch(s.kernels[kernelSubtractGradient], b); err != nil {
		return err
	}
	s.velocity.Swap()

	return nil
}
