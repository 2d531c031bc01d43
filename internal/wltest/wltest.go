// Package wltest provides an in-process fake compositor for testing
// clients. It decodes every request generically from the embedded
// protocol specifications, records it and answers the ones that a
// client needs answered to make progress. Everything else, such as
// configuring surfaces, is driven explicitly by the test.
package wltest

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"sync"
	"testing"

	"deedles.dev/kyo/internal/bin"
	"deedles.dev/kyo/protocol"
	"deedles.dev/kyo/wire"
)

// DefaultGlobals are advertised by New if no globals are given.
var DefaultGlobals = []string{
	"wl_compositor",
	"wl_shm",
	"xdg_wm_base",
	"zxdg_decoration_manager_v1",
	"zwlr_layer_shell_v1",
	"wl_seat",
	"wl_output",
}

type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Request is a request received from the client.
type Request struct {
	Object    uint32
	Interface string
	Name      string
	Args      []any
}

// Surface is the server's view of a wl_surface and its roles.
type Surface struct {
	ID         uint32
	XDG        uint32
	Toplevel   uint32
	Decoration uint32
	Layer      uint32

	Title   string
	AppID   string
	Scale   int
	Buffer  uint32
	Commits int
	Acked   []uint32

	frames []uint32
}

type objID uint32

func (id objID) ID() uint32 { return uint32(id) }

type Server struct {
	conn   *wire.Conn
	client *wire.Conn

	m          sync.Mutex
	err        error
	closed     bool
	objects    map[uint32]*protocol.Interface
	globals    []Global
	nextGlobal uint32
	bound      map[uint32][]uint32
	registries []uint32
	requests   []Request
	surfaces   map[uint32]*Surface
	serial     uint32
	seatCaps   uint32
	files      []*os.File
	done       chan struct{}
}

// New starts a fake compositor that advertises the given globals, or
// DefaultGlobals if there are none, at the versions described by the
// embedded protocol specifications. It is shut down when the test
// ends.
func New(t testing.TB, globals ...string) *Server {
	t.Helper()

	server, client, err := wire.Pipe()
	if err != nil {
		t.Fatalf("create pipe: %v", err)
	}

	s := Server{
		conn:       server,
		client:     client,
		objects:    map[uint32]*protocol.Interface{1: protocol.MustLookup("wl_display")},
		nextGlobal: 1,
		bound:      make(map[uint32][]uint32),
		surfaces:   make(map[uint32]*Surface),
		done:       make(chan struct{}),
	}

	if len(globals) == 0 {
		globals = DefaultGlobals
	}
	for _, inter := range globals {
		s.AddGlobal(inter, uint32(protocol.MustLookup(inter).Version))
	}

	go s.serve()
	t.Cleanup(func() {
		s.Disconnect()
		<-s.done
		client.Close()
	})

	return &s
}

// ClientConn returns the client's end of the connection.
func (s *Server) ClientConn() *wire.Conn {
	return s.client
}

// Err returns the error that stopped the server, if any.
func (s *Server) Err() error {
	s.m.Lock()
	defer s.m.Unlock()
	return s.err
}

// Disconnect closes the server's end of the connection.
func (s *Server) Disconnect() {
	s.m.Lock()
	defer s.m.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.conn.Close()
	for _, f := range s.files {
		f.Close()
	}
	s.files = nil
}

func (s *Server) serve() {
	defer close(s.done)

	for {
		msg, err := wire.ReadMessage(s.conn)
		if err != nil {
			s.m.Lock()
			if !s.closed && !errors.Is(err, net.ErrClosed) {
				s.err = err
			}
			s.m.Unlock()
			return
		}

		s.m.Lock()
		err = s.handle(msg)
		if err != nil && s.err == nil {
			s.err = err
		}
		s.m.Unlock()
		if err != nil {
			return
		}
	}
}

func (s *Server) handle(msg *wire.MessageBuffer) error {
	inter := s.objects[msg.Sender()]
	if inter == nil {
		return fmt.Errorf("request %v for unknown object %v", msg.Op(), msg.Sender())
	}
	op, ok := inter.Request(msg.Op())
	if !ok {
		return fmt.Errorf("unknown request %v for %v@%v", msg.Op(), inter.Name, msg.Sender())
	}

	req := Request{
		Object:    msg.Sender(),
		Interface: inter.Name,
		Name:      op.Name,
	}
	for _, arg := range op.Args {
		switch arg.Type {
		case "int":
			req.Args = append(req.Args, msg.ReadInt())
		case "uint", "object":
			req.Args = append(req.Args, msg.ReadUint())
		case "fixed":
			req.Args = append(req.Args, msg.ReadFixed())
		case "string":
			req.Args = append(req.Args, msg.ReadString())
		case "array":
			req.Args = append(req.Args, msg.ReadArray())
		case "fd":
			f := msg.ReadFile()
			if f != nil {
				s.files = append(s.files, f)
			}
			req.Args = append(req.Args, f)
		case "new_id":
			if arg.Interface == "" {
				nid := msg.ReadNewID()
				s.objects[nid.ID] = protocol.MustLookup(nid.Interface)
				req.Args = append(req.Args, nid)
				continue
			}
			id := msg.ReadUint()
			s.objects[id] = protocol.MustLookup(arg.Interface)
			req.Args = append(req.Args, id)
		}
	}
	if err := msg.Err(); err != nil {
		return err
	}

	s.requests = append(s.requests, req)
	if op.Type == "destructor" {
		delete(s.objects, req.Object)
		s.send(1, "delete_id", req.Object)
	}
	return s.respond(req)
}

func (s *Server) respond(req Request) error {
	switch req.Interface + "." + req.Name {
	case "wl_display.sync":
		cb := req.Args[0].(uint32)
		s.serial++
		s.send(cb, "done", s.serial)
		delete(s.objects, cb)
		s.send(1, "delete_id", cb)

	case "wl_display.get_registry":
		reg := req.Args[0].(uint32)
		s.registries = append(s.registries, reg)
		for _, g := range s.globals {
			s.send(reg, "global", g.Name, g.Interface, g.Version)
		}

	case "wl_registry.bind":
		name := req.Args[0].(uint32)
		nid := req.Args[1].(wire.NewID)
		s.bound[name] = append(s.bound[name], nid.ID)
		s.bind(nid)

	case "wl_compositor.create_surface":
		id := req.Args[0].(uint32)
		s.surfaces[id] = &Surface{ID: id, Scale: 1}

	case "xdg_wm_base.get_xdg_surface":
		if surf := s.surfaces[req.Args[1].(uint32)]; surf != nil {
			surf.XDG = req.Args[0].(uint32)
		}

	case "xdg_surface.get_toplevel":
		if surf := s.find(func(surf *Surface) bool { return surf.XDG == req.Object }); surf != nil {
			surf.Toplevel = req.Args[0].(uint32)
		}

	case "xdg_toplevel.set_title":
		if surf := s.find(func(surf *Surface) bool { return surf.Toplevel == req.Object }); surf != nil {
			surf.Title = req.Args[0].(string)
		}

	case "xdg_toplevel.set_app_id":
		if surf := s.find(func(surf *Surface) bool { return surf.Toplevel == req.Object }); surf != nil {
			surf.AppID = req.Args[0].(string)
		}

	case "xdg_surface.ack_configure":
		if surf := s.find(func(surf *Surface) bool { return surf.XDG == req.Object }); surf != nil {
			surf.Acked = append(surf.Acked, req.Args[0].(uint32))
		}

	case "zwlr_layer_surface_v1.ack_configure":
		if surf := s.find(func(surf *Surface) bool { return surf.Layer == req.Object }); surf != nil {
			surf.Acked = append(surf.Acked, req.Args[0].(uint32))
		}

	case "zxdg_decoration_manager_v1.get_toplevel_decoration":
		if surf := s.find(func(surf *Surface) bool { return surf.Toplevel == req.Args[1].(uint32) }); surf != nil {
			surf.Decoration = req.Args[0].(uint32)
		}

	case "zwlr_layer_shell_v1.get_layer_surface":
		if surf := s.surfaces[req.Args[1].(uint32)]; surf != nil {
			surf.Layer = req.Args[0].(uint32)
		}

	case "wl_surface.frame":
		if surf := s.surfaces[req.Object]; surf != nil {
			surf.frames = append(surf.frames, req.Args[0].(uint32))
		}

	case "wl_surface.attach":
		if surf := s.surfaces[req.Object]; surf != nil {
			surf.Buffer = req.Args[0].(uint32)
		}

	case "wl_surface.set_buffer_scale":
		if surf := s.surfaces[req.Object]; surf != nil {
			surf.Scale = int(req.Args[0].(int32))
		}

	case "wl_surface.commit":
		if surf := s.surfaces[req.Object]; surf != nil {
			surf.Commits++
		}

	case "wl_surface.destroy":
		delete(s.surfaces, req.Object)

	case "wl_seat.get_pointer", "wl_seat.get_keyboard":
		// Nothing to answer.
	}
	return nil
}

func (s *Server) bind(nid wire.NewID) {
	switch nid.Interface {
	case "wl_shm":
		s.send(nid.ID, "format", uint32(0))
		s.send(nid.ID, "format", uint32(1))

	case "wl_seat":
		s.send(nid.ID, "capabilities", s.seatCaps)
		if nid.Version >= 2 {
			s.send(nid.ID, "name", "seat0")
		}

	case "wl_output":
		s.send(nid.ID, "geometry", int32(0), int32(0), int32(600), int32(340), int32(0), "kyo", "fake", int32(0))
		s.send(nid.ID, "mode", uint32(0x3), int32(1920), int32(1080), int32(60000))
		if nid.Version >= 2 {
			s.send(nid.ID, "scale", int32(1))
		}
		if nid.Version >= 4 {
			s.send(nid.ID, "name", "FAKE-1")
			s.send(nid.ID, "description", "Fake output")
		}
		if nid.Version >= 2 {
			s.send(nid.ID, "done")
		}
	}
}

func (s *Server) find(f func(*Surface) bool) *Surface {
	for _, surf := range s.surfaces {
		if f(surf) {
			return surf
		}
	}
	return nil
}

// send sends an event from the object with the given ID. The caller
// must hold s.m.
func (s *Server) send(id uint32, event string, args ...any) error {
	if s.closed {
		return net.ErrClosed
	}

	inter := s.objects[id]
	if inter == nil {
		return fmt.Errorf("send %v: unknown object %v", event, id)
	}
	op, ok := inter.EventOp(event)
	if !ok {
		return fmt.Errorf("send %v: %v has no such event", event, inter.Name)
	}

	msg := wire.NewMessage(objID(id), op)
	msg.WriteArgs(args...)
	return msg.Build(s.conn)
}

// Send sends an event from the object with the given ID.
func (s *Server) Send(id uint32, event string, args ...any) error {
	s.m.Lock()
	defer s.m.Unlock()
	return s.send(id, event, args...)
}

// SendRaw sends a message with an arbitrary opcode, whether or not the
// object's interface has such an event.
func (s *Server) SendRaw(id uint32, op uint16, args ...any) error {
	s.m.Lock()
	defer s.m.Unlock()

	msg := wire.NewMessage(objID(id), op)
	msg.WriteArgs(args...)
	return msg.Build(s.conn)
}

// AddGlobal advertises a new global to every registry and returns its
// name.
func (s *Server) AddGlobal(inter string, version uint32) uint32 {
	s.m.Lock()
	defer s.m.Unlock()

	g := Global{Name: s.nextGlobal, Interface: inter, Version: version}
	s.nextGlobal++
	s.globals = append(s.globals, g)
	for _, reg := range s.registries {
		s.send(reg, "global", g.Name, g.Interface, g.Version)
	}
	return g.Name
}

// RemoveGlobal withdraws a global from every registry.
func (s *Server) RemoveGlobal(name uint32) {
	s.m.Lock()
	defer s.m.Unlock()

	s.globals = slices.DeleteFunc(s.globals, func(g Global) bool { return g.Name == name })
	for _, reg := range s.registries {
		s.send(reg, "global_remove", name)
	}
}

// Global returns the name of the first global with the given interface.
func (s *Server) Global(inter string) (uint32, bool) {
	s.m.Lock()
	defer s.m.Unlock()

	for _, g := range s.globals {
		if g.Interface == inter {
			return g.Name, true
		}
	}
	return 0, false
}

// Bound returns the IDs of the objects that the client has bound to the
// named global.
func (s *Server) Bound(name uint32) []uint32 {
	s.m.Lock()
	defer s.m.Unlock()
	return slices.Clone(s.bound[name])
}

// SetSeatCapabilities sets the capabilities that are reported for
// seats, including ones that are already bound.
func (s *Server) SetSeatCapabilities(caps uint32) {
	s.m.Lock()
	defer s.m.Unlock()

	s.seatCaps = caps
	for _, g := range s.globals {
		if g.Interface != "wl_seat" {
			continue
		}
		for _, id := range s.bound[g.Name] {
			s.send(id, "capabilities", caps)
		}
	}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.m.Lock()
	defer s.m.Unlock()
	return slices.Clone(s.requests)
}

// Requested returns the received requests with the given interface
// and name.
func (s *Server) Requested(inter, name string) []Request {
	s.m.Lock()
	defer s.m.Unlock()

	var reqs []Request
	for _, req := range s.requests {
		if req.Interface == inter && req.Name == name {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// Object returns the interface of the object with the given ID.
func (s *Server) Object(id uint32) (string, bool) {
	s.m.Lock()
	defer s.m.Unlock()

	inter, ok := s.objects[id]
	if !ok {
		return "", false
	}
	return inter.Name, true
}

// Surfaces returns a snapshot of every live surface.
func (s *Server) Surfaces() []Surface {
	s.m.Lock()
	defer s.m.Unlock()

	surfaces := make([]Surface, 0, len(s.surfaces))
	for _, surf := range s.surfaces {
		c := *surf
		c.Acked = slices.Clone(surf.Acked)
		c.frames = slices.Clone(surf.frames)
		surfaces = append(surfaces, c)
	}
	slices.SortFunc(surfaces, func(a, b Surface) int { return int(a.ID) - int(b.ID) })
	return surfaces
}

// Surface returns a snapshot of the surface with the given ID.
func (s *Server) Surface(id uint32) (Surface, bool) {
	for _, surf := range s.Surfaces() {
		if surf.ID == id {
			return surf, true
		}
	}
	return Surface{}, false
}

// PendingFrames returns the number of frame callbacks that the surface
// is waiting on.
func (s *Server) PendingFrames(id uint32) int {
	surf, _ := s.Surface(id)
	return len(surf.frames)
}

// Configure starts and finishes a configure sequence for the surface
// with the given size and returns its serial.
func (s *Server) Configure(id uint32, w, h int, states ...uint32) (uint32, error) {
	s.m.Lock()
	defer s.m.Unlock()

	surf := s.surfaces[id]
	if surf == nil {
		return 0, fmt.Errorf("configure: unknown surface %v", id)
	}

	s.serial++
	switch {
	case surf.Toplevel != 0:
		array := make([]byte, 0, 4*len(states))
		for _, state := range states {
			b := bin.Bytes(state)
			array = append(array, b[:]...)
		}
		if err := s.send(surf.Toplevel, "configure", int32(w), int32(h), array); err != nil {
			return 0, err
		}
		return s.serial, s.send(surf.XDG, "configure", s.serial)

	case surf.Layer != 0:
		return s.serial, s.send(surf.Layer, "configure", s.serial, uint32(w), uint32(h))

	default:
		return 0, fmt.Errorf("configure: surface %v has no role", id)
	}
}

// Close asks the client to close the surface.
func (s *Server) Close(id uint32) error {
	s.m.Lock()
	defer s.m.Unlock()

	surf := s.surfaces[id]
	switch {
	case surf == nil:
		return fmt.Errorf("close: unknown surface %v", id)
	case surf.Toplevel != 0:
		return s.send(surf.Toplevel, "close")
	case surf.Layer != 0:
		return s.send(surf.Layer, "closed")
	default:
		return fmt.Errorf("close: surface %v has no role", id)
	}
}

// Frame completes every frame callback that the surface is waiting on.
// It returns the number of callbacks completed.
func (s *Server) Frame(id uint32, time uint32) int {
	s.m.Lock()
	defer s.m.Unlock()

	surf := s.surfaces[id]
	if surf == nil {
		return 0
	}
	frames := surf.frames
	surf.frames = nil
	for _, cb := range frames {
		s.send(cb, "done", time)
		delete(s.objects, cb)
		s.send(1, "delete_id", cb)
	}
	return len(frames)
}

// Enter reports that the surface is now on the output with the given
// global name.
func (s *Server) Enter(id uint32, output uint32) error {
	s.m.Lock()
	defer s.m.Unlock()

	bound := s.bound[output]
	if len(bound) == 0 {
		return fmt.Errorf("enter: output %v is not bound", output)
	}
	return s.send(id, "enter", bound[0])
}

// Decorate sends a decoration mode for the surface.
func (s *Server) Decorate(id uint32, mode uint32) error {
	s.m.Lock()
	defer s.m.Unlock()

	surf := s.surfaces[id]
	if surf == nil || surf.Decoration == 0 {
		return fmt.Errorf("decorate: surface %v has no decoration object", id)
	}
	return s.send(surf.Decoration, "configure", mode)
}

// Release tells the client that the compositor is done with a buffer.
func (s *Server) Release(buffer uint32) error {
	return s.Send(buffer, "release")
}

// Ping pings every bound xdg_wm_base.
func (s *Server) Ping(serial uint32) error {
	s.m.Lock()
	defer s.m.Unlock()

	for _, g := range s.globals {
		if g.Interface != "xdg_wm_base" {
			continue
		}
		for _, id := range s.bound[g.Name] {
			if err := s.send(id, "ping", serial); err != nil {
				return err
			}
		}
	}
	return nil
}

// Error reports a fatal protocol error on an object.
func (s *Server) Error(object, code uint32, message string) error {
	return s.Send(1, "error", object, code, message)
}

// Seat returns the ID of the first object created with the given
// wl_seat request, such as get_pointer.
func (s *Server) Seat(request string) (uint32, bool) {
	for _, req := range s.Requested("wl_seat", request) {
		return req.Args[0].(uint32), true
	}
	return 0, false
}
