package terminal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/nsf/termbox-go"

	fluid "github.com/esimov/fluid3d/fluid-solver"
	"github.com/esimov/fluid3d/render"
)

type Terminal struct {
	backbuf  []termbox.Cell
	bbw, bbh int
	logfile  *os.File
	fn       string

	sim      *fluid.Simulator
	interval time.Duration
	kind     fluid.FieldKind
	axis     render.Axis
	slice    int
	impulser *Impulser
	drag     *mgl32.Vec3
	status   string
}

func New(sim *fluid.Simulator, interval time.Duration) *Terminal {
	t := new(Terminal)
	t.fn = "debug.log"
	t.logfile, _ = os.OpenFile(t.fn, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0755)

	t.sim = sim
	t.interval = interval
	t.kind = fluid.Dye
	t.axis = render.AxisZ
	t.slice = sim.Resolution().Z / 2
	t.impulser = NewImpulser()
	t.impulser.Position[2] = t.depth()

	return t
}

// Render runs the simulation and draws the selected field until Esc is pressed.
func (t *Terminal) Render() {
	if t.logfile != nil {
		defer t.logfile.Close()
	}

	err := termbox.Init()
	if err != nil {
		panic(err)
	}
	defer termbox.Close()
	termbox.SetInputMode(termbox.InputEsc | termbox.InputMouse)
	t.reallocBackBuffer(termbox.Size())

	events := make(chan termbox.Event)
	done, polled := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(polled)
		for {
			ev := termbox.PollEvent()
			if ev.Type == termbox.EventInterrupt {
				return
			}
			select {
			case events <- ev:
			case <-done:
			}
		}
	}()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

mainloop:
	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case termbox.EventKey:
				if ev.Key == termbox.KeyEsc {
					break mainloop
				}
				t.key(ev)
			case termbox.EventMouse:
				t.mouse(ev)
			case termbox.EventResize:
				t.reallocBackBuffer(ev.Width, ev.Height)
			}
		case <-ticker.C:
			t.step()
			t.redraw()
		}
	}
	close(done)
	termbox.Interrupt()
	<-polled
}

func (t *Terminal) step() {
	var impulses []fluid.Impulse
	if t.impulser.Active {
		impulses = append(impulses, t.impulser.Impulse())
	}
	if err := t.sim.Step(impulses...); err != nil {
		t.log(t.logfile, "step: %v", err)
	}
}

func (t *Terminal) key(ev termbox.Event) {
	var err error
	switch {
	case ev.Ch >= '1' && ev.Ch <= '4':
		t.kind = fluid.FieldKind(ev.Ch - '1')
	case ev.Ch == 'c':
		err = t.sim.ClearDye()
	case ev.Ch == 'x':
		err = t.sim.Advect()
	case ev.Key == termbox.KeySpace:
		t.impulser.Active = !t.impulser.Active
	case ev.Key == termbox.KeyArrowUp:
		t.moveSlice(1)
	case ev.Key == termbox.KeyArrowDown:
		t.moveSlice(-1)
	case ev.Key == termbox.KeyArrowLeft, ev.Key == termbox.KeyArrowRight:
		t.cycleAxis(ev.Key == termbox.KeyArrowRight)
	}
	if err != nil {
		t.log(t.logfile, "key %q: %v", ev.Ch, err)
	}
}

func (t *Terminal) mouse(ev termbox.Event) {
	w, h := t.plot()
	if ev.MouseY >= h {
		return
	}
	p := DomainPoint(ev.MouseX, ev.MouseY, w, h, t.axis, t.depth())
	switch ev.Key {
	case termbox.MouseLeft:
		if t.drag != nil {
			t.impulser.Drag(*t.drag, p)
		} else {
			t.impulser.Position = p
		}
		t.drag = &p
		t.impulser.Active = true
		t.log(t.logfile, "X:%d \t Y:%d", ev.MouseX, ev.MouseY)
	case termbox.MouseRelease:
		t.drag = nil
		t.impulser.Active = false
	}
}

func (t *Terminal) moveSlice(d int) {
	n := t.extent()
	t.slice = (t.slice + d + n) % n
	t.impulser.Position[t.axisIndex()] = t.depth()
}

func (t *Terminal) cycleAxis(forward bool) {
	axes := []render.Axis{render.AxisX, render.AxisY, render.AxisZ}
	i := t.axisIndex()
	if forward {
		i = (i + 1) % len(axes)
	} else {
		i = (i + len(axes) - 1) % len(axes)
	}
	t.axis = axes[i]
	t.slice = t.extent() / 2
	t.impulser.Position[i] = t.depth()
}

func (t *Terminal) axisIndex() int { return int(t.axis - render.AxisX) }

func (t *Terminal) extent() int {
	res := t.sim.Resolution()
	return [3]int{res.X, res.Y, res.Z}[t.axisIndex()]
}

func (t *Terminal) depth() float32 {
	return (float32(t.slice) + 0.5) / float32(t.extent())
}

// plot is the part of the screen above the status line.
func (t *Terminal) plot() (w, h int) {
	return t.bbw, t.bbh - 1
}

func (t *Terminal) reallocBackBuffer(w, h int) {
	t.bbw, t.bbh = w, h
	t.backbuf = make([]termbox.Cell, w*h)
}

func (t *Terminal) redraw() {
	termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	if err := t.fill(); err != nil {
		t.log(t.logfile, "draw: %v", err)
	}
	copy(termbox.CellBuffer(), t.backbuf)
	termbox.Flush()
}

func (t *Terminal) fill() error {
	w, h := t.plot()
	if w <= 0 || h <= 0 {
		return nil
	}
	texels, err := t.sim.Snapshot(t.kind)
	if err != nil {
		return err
	}
	plane, err := render.Slice(texels, t.sim.Resolution(), t.axis, t.slice, t.kind)
	if err != nil {
		return err
	}
	lo, hi := plane.Range()
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			r := Shade(Sample(plane, col, row, w, h), lo, hi)
			t.backbuf[row*t.bbw+col] = termbox.Cell{Ch: r, Fg: termbox.ColorWhite}
		}
	}

	t.status = fmt.Sprintf("frame %d  %s  %c=%d  impulser %v  [1-4 field, c clear, x advect, space impulser, arrows slice, esc quit]",
		t.sim.Frame(), t.kind, t.axis, t.slice, t.impulser.Active)
	status := t.backbuf[h*t.bbw : (h+1)*t.bbw]
	for i := range status {
		status[i] = termbox.Cell{Ch: ' ', Fg: termbox.ColorBlack, Bg: termbox.ColorWhite}
	}
	for i, r := range []rune(t.status) {
		if i >= len(status) {
			break
		}
		status[i].Ch = r
	}
	return nil
}

func (t *Terminal) log(f io.Writer, format string, vals ...interface{}) {
	if f == nil {
		return
	}
	fmt.Fprintf(f, format+"\n", vals...)
}
