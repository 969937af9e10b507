package websocket

import (
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	fluid "github.com/esimov/fluid3d/fluid-solver"
	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/render"
)

func newTestServer(t *testing.T) (*Server, *websocket.Conn) {
	t.Helper()
	cfg := fluid.DefaultConfig()
	cfg.Resolution = gpu.Size3{X: 8, Y: 8, Z: 8}
	sim, err := fluid.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sim.Release)

	ps, err := fluid.NewParticleSystem(sim.Device(), sim.Program(), 2, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	s := New(Params{}, sim, ps)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + Path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(time.Millisecond)
	}
	return s, conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestTickBroadcastsFrame(t *testing.T) {
	s, conn := newTestServer(t)
	s.tick()

	f := readFrame(t, conn)
	if f.Frame != 1 || f.Field != "dye" || f.Axis != "z" {
		t.Fatalf("frame header = %+v", f)
	}
	if f.Width != 8 || f.Height != 8 || len(f.Values) != 64 {
		t.Fatalf("plane %dx%d with %d values", f.Width, f.Height, len(f.Values))
	}
	if len(f.Particles) != 8 {
		t.Fatalf("got %d particles, want 8", len(f.Particles))
	}
}

func TestMessagesReachTheSimulation(t *testing.T) {
	s, conn := newTestServer(t)

	msgs := []Message{
		{Type: MsgField, Field: "velocity"},
		{Type: MsgSlice, Axis: "x", Slice: 4},
		{Type: MsgImpulse, Position: mgl32.Vec3{0.5, 0.5, 0.5}, Direction: mgl32.Vec3{100, 0, 0}},
	}
	for _, m := range msgs {
		if err := conn.WriteJSON(m); err != nil {
			t.Fatal(err)
		}
	}
	for range msgs {
		select {
		case m := <-s.inbox:
			if err := s.apply(m); err != nil {
				t.Fatal(err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("message never arrived")
		}
	}
	if s.kind != fluid.Velocity || s.axis != render.AxisX || s.slice != 4 {
		t.Fatalf("state = %v %c %d", s.kind, s.axis, s.slice)
	}

	s.tick()
	f := readFrame(t, conn)
	if f.Field != "velocity" || f.Axis != "x" || f.Slice != 4 {
		t.Fatalf("frame header = %+v", f)
	}
	if f.Max <= 0 {
		t.Fatal("impulse left no velocity on the slice")
	}
}

func TestApplyRejectsUnknownMessages(t *testing.T) {
	s := New(Params{}, nil, nil)
	for _, m := range []Message{
		{Type: "teleport"},
		{Type: MsgField, Field: "temperature"},
		{Type: MsgSlice, Axis: "w"},
	} {
		if err := s.apply(m); err == nil {
			t.Errorf("%+v: expected an error", m)
		}
	}
}

func TestSliceOutOfRangeKeepsBroadcasting(t *testing.T) {
	s, conn := newTestServer(t)

	for _, m := range []Message{
		{Type: MsgSlice, Axis: "z", Slice: 99},
		{Type: MsgSlice, Axis: "z", Slice: 8},
		{Type: MsgSlice, Axis: "y", Slice: -2},
	} {
		if err := s.apply(m); err == nil {
			t.Errorf("%+v: expected an error", m)
		}
	}
	if s.axis != render.AxisZ || s.slice != -1 {
		t.Fatalf("rejected slice changed the state to %c %d", s.axis, s.slice)
	}

	for _, m := range []Message{
		{Type: MsgSlice, Axis: "y", Slice: 7},
		{Type: MsgSlice, Axis: "x", Slice: -1},
	} {
		if err := s.apply(m); err != nil {
			t.Errorf("%+v: %v", m, err)
		}
	}

	for i := 1; i <= 3; i++ {
		s.tick()
		if f := readFrame(t, conn); f.Frame != uint64(i) || f.Axis != "x" {
			t.Fatalf("tick %d: frame header = %+v", i, f)
		}
	}
}
