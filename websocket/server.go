// Package websocket streams slices of the running simulation to browser
// clients and turns their messages into impulses and control commands.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	fluid "github.com/esimov/fluid3d/fluid-solver"
	"github.com/esimov/fluid3d/gpu"
	"github.com/esimov/fluid3d/render"
)

// Path is the websocket endpoint.
const Path = "/ws"

type Params struct {
	Address  string
	Prefix   string
	Root     string
	Interval time.Duration
}

// Message is sent by clients.
type Message struct {
	Type      string     `json:"type"`
	Position  mgl32.Vec3 `json:"position"`
	Direction mgl32.Vec3 `json:"direction"`
	Field     string     `json:"field,omitempty"`
	Axis      string     `json:"axis,omitempty"`
	Slice     int        `json:"slice"`
}

const (
	MsgImpulse = "impulse"
	MsgField   = "field"
	MsgSlice   = "slice"
	MsgClear   = "clear"
	MsgAdvect  = "advect"
	MsgReset   = "reset"
)

// Frame is broadcast to every client after each simulated frame.
type Frame struct {
	Frame     uint64       `json:"frame"`
	Field     string       `json:"field"`
	Axis      string       `json:"axis"`
	Slice     int          `json:"slice"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	Min       float32      `json:"min"`
	Max       float32      `json:"max"`
	Values    []float32    `json:"values"`
	Particles []mgl32.Vec3 `json:"particles,omitempty"`
}

// A server application calls the Upgrade method from an HTTP request handler to initiate a connection
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server owns the simulator: every simulator call happens on the goroutine
// running Run.
type Server struct {
	params    Params
	sim       *fluid.Simulator
	particles *fluid.ParticleSystem

	mu      sync.Mutex
	clients map[*client]struct{}
	inbox   chan Message

	kind     fluid.FieldKind
	axis     render.Axis
	slice    int
	impulses []fluid.Impulse
}

// New creates a server for sim. particles may be nil.
func New(p Params, sim *fluid.Simulator, particles *fluid.ParticleSystem) *Server {
	if p.Interval <= 0 {
		p.Interval = 33 * time.Millisecond
	}
	if p.Prefix == "" {
		p.Prefix = "/"
	}
	return &Server{
		params:    p,
		sim:       sim,
		particles: particles,
		clients:   make(map[*client]struct{}),
		inbox:     make(chan Message, 64),
		kind:      fluid.Dye,
		axis:      render.AxisZ,
		slice:     -1,
	}
}

// Handler serves the static root under the prefix and the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.params.Root != "" {
		mux.Handle(s.params.Prefix, http.StripPrefix(s.params.Prefix, http.FileServer(http.Dir(s.params.Root))))
	}
	mux.HandleFunc(Path, s.wsHandler)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Print(r.RemoteAddr + " " + r.Method + " " + r.URL.String())
		mux.ServeHTTP(w, r)
	})
}

// Run serves clients and steps the simulation every interval until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var err error
	if s.params.Root != "" {
		s.params.Root, err = filepath.Abs(s.params.Root)
		if err != nil {
			return err
		}
	}
	srv := &http.Server{
		Addr:    s.params.Address,
		Handler: s.Handler(),
	}
	errc := make(chan error, 1)
	go func() {
		log.Printf("serving %s as %s on %s", s.params.Root, s.params.Prefix, s.params.Address)
		errc <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(s.params.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			s.closeClients()
			return srv.Shutdown(shutdown)
		case err := <-errc:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ticker.C:
			s.tick()
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}

// wsHandler defines the websocket connection endpoint
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	// Upgrade the http connection to a WebSocket connection
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			log.Println(err)
		}
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 4)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writeSocket(c)
	go s.readSocket(c)
}

// readSocket listen for new messages being sent to the websocket
func (s *Server) readSocket(c *client) {
	defer s.drop(c)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			return
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			log.Printf("invalid message: %v", err)
			continue
		}
		select {
		case s.inbox <- m:
		default:
			log.Printf("inbox full, dropping %s message", m.Type)
		}
	}
}

func (s *Server) writeSocket(c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Println(err)
			c.conn.Close()
			return
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
	c.conn.Close()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
		c.conn.Close()
	}
}

// broadcast hands data to every client. Slow clients skip frames.
func (s *Server) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (s *Server) drain() {
	for {
		select {
		case m := <-s.inbox:
			if err := s.apply(m); err != nil {
				log.Printf("%s message: %v", m.Type, err)
			}
		default:
			return
		}
	}
}

func (s *Server) apply(m Message) error {
	switch m.Type {
	case MsgImpulse:
		s.impulses = append(s.impulses, fluid.Impulse{Position: m.Position, Direction: m.Direction})
	case MsgField:
		kind, err := fluid.ParseFieldKind(m.Field)
		if err != nil {
			return err
		}
		s.kind = kind
	case MsgSlice:
		axis, err := render.ParseAxis(m.Axis)
		if err != nil {
			return err
		}
		if n := extent(s.sim.Resolution(), axis); m.Slice < -1 || m.Slice >= n {
			return fmt.Errorf("slice %d out of range along %c (%d cells)", m.Slice, axis, n)
		}
		s.axis, s.slice = axis, m.Slice
	case MsgClear:
		return s.sim.ClearDye()
	case MsgAdvect:
		return s.sim.Advect()
	case MsgReset:
		return s.sim.Reset()
	default:
		return errors.New("unknown message type")
	}
	return nil
}

// tick applies pending messages, steps the simulation once and
// broadcasts the selected slice.
func (s *Server) tick() {
	s.drain()
	err := s.sim.Step(s.impulses...)
	s.impulses = s.impulses[:0]
	if err != nil {
		log.Printf("step: %v", err)
		return
	}
	if s.particles != nil {
		if err := s.particles.Update(s.sim.VelocityField(), s.sim.Params().TimeStep); err != nil {
			log.Printf("particles: %v", err)
		}
	}

	frame, err := s.frame()
	if err != nil {
		log.Printf("frame: %v", err)
		return
	}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("frame: %v", err)
		return
	}
	s.broadcast(data)
}

// extent is the number of cells along axis.
func extent(res gpu.Size3, axis render.Axis) int {
	switch axis {
	case render.AxisX:
		return res.X
	case render.AxisY:
		return res.Y
	}
	return res.Z
}

func (s *Server) frame() (*Frame, error) {
	texels, err := s.sim.Snapshot(s.kind)
	if err != nil {
		return nil, err
	}
	plane, err := render.Slice(texels, s.sim.Resolution(), s.axis, s.slice, s.kind)
	if err != nil {
		return nil, err
	}
	lo, hi := plane.Range()
	f := &Frame{
		Frame:  s.sim.Frame(),
		Field:  s.kind.String(),
		Axis:   string(rune(s.axis)),
		Slice:  s.slice,
		Width:  plane.Width,
		Height: plane.Height,
		Min:    lo,
		Max:    hi,
		Values: plane.Values,
	}
	if s.particles != nil {
		f.Particles = s.particles.Positions()
	}
	return f, nil
}
