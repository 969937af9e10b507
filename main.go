package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"

	"github.com/esimov/fluid3d/config"
	"github.com/esimov/fluid3d/detector"
	fluid "github.com/esimov/fluid3d/fluid-solver"
	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/render"
	"github.com/esimov/fluid3d/terminal"
	"github.com/esimov/fluid3d/websocket"
)

var (
	mode     = flag.String("mode", "headless", "run mode: terminal, server or headless")
	cfgPath  = flag.String("config", "settings.json", "settings file")
	res      = flag.Int("res", 0, "cubic domain resolution, overrides the settings file")
	frames   = flag.Int("frames", 200, "frames to simulate in headless mode")
	pngPath  = flag.String("png", "", "write the final slice of the selected field as PNG")
	field    = flag.String("field", "dye", "field to display: dye, velocity, divergence or pressure")
	cascade  = flag.String("cascade", "", "pigo facefinder cascade used to turn faces into impulses")
	images   = flag.String("images", "", "comma separated image frames fed to the face tracker")
	logEvery = flag.Int("log", 50, "log field statistics every n frames in headless mode")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatalln(err)
	}
}

func run() error {
	settings, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *res > 0 {
		settings.Simulation.Resolution = [3]int{*res, *res, *res}
	}
	kind, err := fluid.ParseFieldKind(*field)
	if err != nil {
		return err
	}

	dev := gpu.NewDevice(settings.DeviceOptions()...)
	defer dev.Release()

	cfg := settings.Fluid()
	cfg.Device = dev
	cfg.Logger = log.Default()
	sim, err := fluid.New(cfg)
	if err != nil {
		return err
	}
	log.Printf("domain %s, %d boundary cells, %d workers", sim.Resolution(), sim.BoundaryCells(), dev.Workers())

	if settings.Simulation.Demo {
		if err := sim.Step(fluid.DemoImpulses()...); err != nil {
			log.Println(err)
		}
	}

	switch *mode {
	case "terminal":
		term := terminal.New(sim, settings.Interval())
		term.Render()
		return nil
	case "server":
		return serve(sim, settings)
	case "headless":
		return headless(sim, settings, kind)
	}
	return fmt.Errorf("unknown mode %q", *mode)
}

func particles(sim *fluid.Simulator, settings config.Settings) (*fluid.ParticleSystem, error) {
	rng := rand.New(rand.NewSource(settings.Particles.Seed))
	return fluid.NewParticleSystem(sim.Device(), sim.Program(), settings.Particles.Grid, rng)
}

func serve(sim *fluid.Simulator, settings config.Settings) error {
	ps, err := particles(sim, settings)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := websocket.New(websocket.Params{
		Address:  settings.Server.Address,
		Prefix:   settings.Server.Prefix,
		Root:     settings.Server.Root,
		Interval: settings.Interval(),
	}, sim, ps)
	return s.Run(ctx)
}

type faceSource struct {
	det     *detector.Detector
	tracker *detector.Tracker
	frames  []image.Image
}

func newFaceSource() (*faceSource, error) {
	if *cascade == "" || *images == "" {
		return nil, nil
	}
	det, err := detector.Load(*cascade)
	if err != nil {
		return nil, err
	}
	fs := &faceSource{det: det, tracker: detector.NewTracker()}
	for _, path := range strings.Split(*images, ",") {
		img, err := decode(strings.TrimSpace(path))
		if err != nil {
			return nil, err
		}
		fs.frames = append(fs.frames, img)
	}
	return fs, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func (fs *faceSource) impulse(frame int) []fluid.Impulse {
	img := fs.frames[frame%len(fs.frames)]
	b := img.Bounds()
	if im, ok := fs.tracker.Track(fs.det.DetectImage(img), b.Dx(), b.Dy()); ok {
		return []fluid.Impulse{im}
	}
	return nil
}

func headless(sim *fluid.Simulator, settings config.Settings, kind fluid.FieldKind) error {
	ps, err := particles(sim, settings)
	if err != nil {
		return err
	}
	faces, err := newFaceSource()
	if err != nil {
		return err
	}

	for i := 0; i < *frames; i++ {
		var impulses []fluid.Impulse
		if faces != nil {
			impulses = faces.impulse(i)
		}
		if err := sim.Step(impulses...); err != nil {
			log.Println(err)
			continue
		}
		if err := ps.Update(sim.VelocityField(), sim.Params().TimeStep); err != nil {
			log.Println(err)
		}
		if *logEvery > 0 && (i+1)%*logEvery == 0 {
			if err := logStats(sim); err != nil {
				log.Println(err)
			}
		}
	}
	if *pngPath != "" {
		return writePNG(sim, settings, kind)
	}
	return nil
}

func logStats(sim *fluid.Simulator) error {
	vel, err := sim.Snapshot(fluid.Velocity)
	if err != nil {
		return err
	}
	dye, err := sim.Snapshot(fluid.Dye)
	if err != nil {
		return err
	}
	div, err := sim.MeanAbsDivergence()
	if err != nil {
		return err
	}
	vs, ds := fluid.FieldStats(fluid.Velocity, vel), fluid.FieldStats(fluid.Dye, dye)
	log.Printf("frame %d: |v| mean %.4f max %.4f, dye mean %.4f in %d cells, mean |div| %.6f",
		sim.Frame(), vs.Mean, vs.Max, ds.Mean, ds.NonZero, div)
	return nil
}

func writePNG(sim *fluid.Simulator, settings config.Settings, kind fluid.FieldKind) error {
	axis, err := render.ParseAxis(settings.Render.Axis)
	if err != nil {
		return err
	}
	texels, err := sim.Snapshot(kind)
	if err != nil {
		return err
	}
	plane, err := render.Slice(texels, sim.Resolution(), axis, settings.Render.Slice, kind)
	if err != nil {
		return err
	}
	f, err := os.Create(*pngPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := render.NewPalette(settings.Render.Palette).WritePNG(f, plane); err != nil {
		return err
	}
	log.Printf("wrote %s slice %c=%d to %s", kind, axis, settings.Render.Slice, *pngPath)
	return nil
}
