// Command fluidview draws the tracer particles of a running simulation in
// an orbiting 3D view.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/esimov/fluid3d/config"
	fluid "github.com/esimov/fluid3d/fluid-solver"
	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/render"
)

const (
	windowWidth  = 1280
	windowHeight = 800
	boxSize      = 10
)

var (
	cfgPath = flag.String("config", "settings.json", "settings file")
	res     = flag.Int("res", 0, "cubic domain resolution, overrides the settings file")
)

func world(p mgl32.Vec3, model mgl32.Mat4) rl.Vector3 {
	w := mgl32.TransformCoordinate(p, model)
	return rl.NewVector3(w.X(), w.Y(), w.Z())
}

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
	dev := gpu.NewDevice(settings.DeviceOptions()...)
	defer dev.Release()

	cfg := settings.Fluid()
	cfg.Device = dev
	cfg.Logger = log.Default()
	cfg.Transform = mgl32.Scale3D(boxSize, boxSize, boxSize).Mul4(mgl32.Translate3D(-0.5, -0.5, -0.5))
	sim, err := fluid.New(cfg)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(settings.Particles.Seed))
	ps, err := fluid.NewParticleSystem(dev, sim.Program(), settings.Particles.Grid, rng)
	if err != nil {
		return err
	}

	palette := render.NewPalette(settings.Render.Palette)
	colors := make([]rl.Color, len(palette))
	for i, c := range palette {
		r, g, b, _ := c.RGBA()
		colors[i] = rl.NewColor(uint8(r>>8), uint8(g>>8), uint8(b>>8), 255)
	}

	rl.InitWindow(windowWidth, windowHeight, "fluid3d")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	camera := rl.Camera3D{
		Position:   rl.NewVector3(16, 10, 16),
		Target:     rl.NewVector3(0, 0, 0),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}

	impulses := fluid.DemoImpulses()
	paused := false
	for !rl.WindowShouldClose() {
		switch {
		case rl.IsKeyPressed(rl.KeySpace):
			paused = !paused
		case rl.IsKeyPressed(rl.KeyC):
			if err := sim.ClearDye(); err != nil {
				log.Println(err)
			}
		case rl.IsKeyPressed(rl.KeyX):
			if err := sim.Advect(); err != nil {
				log.Println(err)
			}
		case rl.IsKeyPressed(rl.KeyI):
			impulses = fluid.DemoImpulses()
		}

		if !paused {
			if err := sim.Step(impulses...); err != nil {
				log.Println(err)
			}
			impulses = nil
			if err := ps.Update(sim.VelocityField(), sim.Params().TimeStep); err != nil {
				log.Println(err)
			}
		}
		rl.UpdateCamera(&camera, rl.CameraOrbital)

		velocity, err := sim.Snapshot(fluid.Velocity)
		if err != nil {
			log.Println(err)
			continue
		}
		stats := fluid.FieldStats(fluid.Velocity, velocity)
		scale := float32(0)
		if stats.Max > 0 {
			scale = float32(len(colors)-1) / float32(stats.Max)
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		rl.BeginMode3D(camera)
		rl.DrawCubeWires(rl.NewVector3(0, 0, 0), boxSize, boxSize, boxSize, rl.Gray)
		for _, p := range ps.Positions() {
			x, y, z := fluid.CellOf(p, sim.Resolution())
			speed := velocity[fluid.Index(sim.Resolution(), x, y, z)].Vec3().Len()
			i := int(speed * scale)
			if i >= len(colors) {
				i = len(colors) - 1
			}
			rl.DrawPoint3D(world(p, sim.Transform()), colors[i])
		}
		rl.EndMode3D()
		rl.DrawText(fmt.Sprintf("frame %d  %d particles  max |v| %.3f", sim.Frame(), ps.Count(), stats.Max), 10, 10, 20, rl.RayWhite)
		rl.DrawText("space pause, c clear dye, x advect, i impulse", 10, 36, 16, rl.LightGray)
		rl.EndDrawing()
	}
	return nil
}
