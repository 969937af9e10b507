package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	fluid "github.com/esimov/fluid3d/fluid-solver"
	"github.com/esimov/fluid3d/gpu"
)

type Settings struct {
	Simulation SimulationSettings `json:"simulation"`
	Particles  ParticleSettings   `json:"particles"`
	Device     DeviceSettings     `json:"device"`
	Server     ServerSettings     `json:"server"`
	Render     RenderSettings     `json:"render"`
}

type SimulationSettings struct {
	Resolution [3]int       `json:"resolution"`
	Dims       int          `json:"dims"`
	Iterations int          `json:"iterations"`
	Params     fluid.Params `json:"params"`
	Demo       bool         `json:"demo"`
}

type ParticleSettings struct {
	Grid int   `json:"grid"`
	Seed int64 `json:"seed"`
}

type DeviceSettings struct {
	Workers    int `json:"workers"`
	QueueDepth int `json:"queueDepth"`
}

type ServerSettings struct {
	Address    string `json:"address"`
	Prefix     string `json:"prefix"`
	Root       string `json:"root"`
	IntervalMs int    `json:"intervalMs"`
}

type RenderSettings struct {
	Axis    string `json:"axis"`
	Slice   int    `json:"slice"`
	Palette int    `json:"palette"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		Simulation: SimulationSettings{
			Resolution: [3]int{64, 64, 64},
			Dims:       int(fluid.Dims3D),
			Params:     fluid.DefaultParams(),
			Demo:       true,
		},
		Particles: ParticleSettings{
			Grid: 32,
			Seed: 1,
		},
		Server: ServerSettings{
			Address:    "localhost:5000",
			Prefix:     "/",
			Root:       "./",
			IntervalMs: 33,
		},
		Render: RenderSettings{
			Axis:    "z",
			Slice:   -1,
			Palette: 256,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Settings, error) {
	settings := Default()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&settings); err != nil {
		return settings, fmt.Errorf("error parsing %s: %v", path, err)
	}
	return settings, settings.validate()
}

func (s Settings) validate() error {
	for _, n := range s.Simulation.Resolution {
		if n <= 0 {
			return fmt.Errorf("%w: resolution %v", fluid.ErrConfiguration, s.Simulation.Resolution)
		}
	}
	if d := fluid.Dims(s.Simulation.Dims); d != fluid.Dims2D && d != fluid.Dims3D {
		return fmt.Errorf("%w: dims must be 2 or 3, got %d", fluid.ErrConfiguration, s.Simulation.Dims)
	}
	switch s.Render.Axis {
	case "x", "y", "z":
	default:
		return fmt.Errorf("%w: render axis %q", fluid.ErrConfiguration, s.Render.Axis)
	}
	return nil
}

// Resolution returns the configured domain size.
func (s Settings) Resolution() gpu.Size3 {
	r := s.Simulation.Resolution
	return gpu.Size3{X: r[0], Y: r[1], Z: r[2]}
}

// Fluid converts the simulation section to a solver configuration.
func (s Settings) Fluid() fluid.Config {
	cfg := fluid.DefaultConfig()
	cfg.Resolution = s.Resolution()
	cfg.Dims = fluid.Dims(s.Simulation.Dims)
	cfg.Params = s.Simulation.Params
	cfg.Iterations = s.Simulation.Iterations
	return cfg
}

// DeviceOptions converts the device section to device options.
func (s Settings) DeviceOptions() []gpu.Option {
	var opts []gpu.Option
	if s.Device.Workers > 0 {
		opts = append(opts, gpu.WithWorkers(s.Device.Workers))
	}
	if s.Device.QueueDepth > 0 {
		opts = append(opts, gpu.WithQueueDepth(s.Device.QueueDepth))
	}
	return opts
}

func (s Settings) Interval() time.Duration {
	return time.Duration(s.Server.IntervalMs) * time.Millisecond
}
