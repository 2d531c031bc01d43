// Package wl is a Wayland client. It owns the connection to the
// compositor, keeps track of the protocol objects that live on it and
// reduces the events that the compositor sends into RawEvents.
package wl

import (
	"errors"
	"fmt"
	"iter"
	"net"
	"slices"
	"sync"
	"syscall"
	"time"

	"deedles.dev/kyo/config"
	"deedles.dev/kyo/handle"
	"deedles.dev/kyo/internal/debug"
	"deedles.dev/kyo/internal/ev"
	"deedles.dev/kyo/internal/objstore"
	"deedles.dev/kyo/wire"
	"deedles.dev/xsync"
	"golang.org/x/exp/maps"
)

// initTimeout bounds each round trip made while connecting.
const initTimeout = 5 * time.Second

// Global is an interface advertised by the compositor's registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Client is a connection to a compositor. Its methods, Close included,
// must all be called from the same goroutine.
type Client struct {
	conn    *wire.Conn
	objects *objstore.Store
	queue   *ev.Queue
	stop    xsync.Stopper
	close   sync.Once

	out    []*wire.MessageBuilder
	events []RawEvent
	err    error

	display  *display
	registry *registry
	globals  map[uint32]Global

	compositor  *compositor
	shm         *Shm
	wmBase      *wmBase
	decorations *decorationManager
	layerShell  *layerShell
	seats       map[uint32]*seat
	outputs     map[uint32]*output
	surfaces    map[uint32]*ShellSurface
}

// Connect opens a connection to the compositor selected by cfg.Display
// or the environment and binds the globals that the client uses.
func Connect(cfg config.Config) (*Client, error) {
	conn, err := wire.Dial(cfg.Display)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return NewClient(conn)
}

// NewClient sets up a client on an already open connection. The
// connection is closed if setup fails. The compositor must advertise
// wl_compositor and xdg_wm_base.
func NewClient(conn *wire.Conn) (*Client, error) {
	c := Client{
		conn:     conn,
		objects:  objstore.New(1),
		queue:    ev.NewQueue(),
		globals:  make(map[uint32]Global),
		seats:    make(map[uint32]*seat),
		outputs:  make(map[uint32]*output),
		surfaces: make(map[uint32]*ShellSurface),
	}

	c.display = newDisplay(&c)
	c.objects.Add(c.display)
	c.registry = newRegistry(&c)
	c.objects.Add(c.registry)
	c.display.send(displayGetRegistry, c.registry)

	go c.listen()

	err := c.RoundTrip(initTimeout)
	if err != nil {
		c.Close()
		return nil, &ConnectionError{Op: "get globals", Err: err}
	}

	err = c.bindGlobals()
	if err != nil {
		c.Close()
		return nil, &ConnectionError{Op: "bind globals", Err: err}
	}

	err = c.RoundTrip(initTimeout)
	if err != nil {
		c.Close()
		return nil, &ConnectionError{Op: "initialize globals", Err: err}
	}

	return &c, nil
}

func (c *Client) listen() {
	for {
		msg, err := wire.ReadMessage(c.conn)
		if err != nil {
			err = readError(err)
			select {
			case <-c.stop.Done():
			case c.queue.Add() <- func() error { return err }:
			}
			return
		}

		select {
		case <-c.stop.Done():
			return
		case c.queue.Add() <- func() error { return c.dispatch(msg) }:
		}
	}
}

func readError(err error) error {
	if errors.Is(err, wire.ErrMalformed) {
		return &ProtocolError{Err: err}
	}
	return fmt.Errorf("%w: %w", ErrConnectionLost, err)
}

func writeError(err error) error {
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return err
}

func (c *Client) dispatch(msg *wire.MessageBuffer) error {
	obj, handled, err := c.objects.Dispatch(msg)
	if obj != nil {
		debug.Printf("%v", msg.Debug(obj))
	}
	if err != nil {
		return protocolError(msg, obj, err)
	}
	if !handled {
		debug.Log().Debug("dropped event for destroyed object", "object", msg.Sender(), "op", msg.Op())
	}
	return nil
}

func protocolError(msg *wire.MessageBuffer, obj wire.Object, err error) error {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		return err
	}

	perr = &ProtocolError{Object: msg.Sender(), Err: err}
	if obj != nil {
		perr.Interface = obj.Interface()
	}
	return perr
}

func (c *Client) fail(err error) error {
	if c.err == nil {
		c.err = err
	}
	return c.err
}

// Err returns the error that ended the session, if any.
func (c *Client) Err() error {
	return c.err
}

// Close closes the connection. Requests that are still queued are sent
// first. After Close, every method that talks to the compositor
// returns ErrConnectionLost. Calling Close again does nothing.
func (c *Client) Close() error {
	var err error
	c.close.Do(func() {
		c.Flush()
		c.fail(fmt.Errorf("%w: client closed", ErrConnectionLost))

		c.stop.Stop()
		c.queue.Stop()
		err = c.conn.Close()
	})
	return err
}

// Enqueue queues a request to be sent by the next Flush. Requests that
// are queued after the session has failed are dropped.
func (c *Client) Enqueue(msg *wire.MessageBuilder) {
	if c.err != nil {
		return
	}
	c.out = append(c.out, msg)
}

// Flush sends every queued request in the order that they were queued.
func (c *Client) Flush() error {
	if c.err != nil {
		return c.err
	}

	out := c.out
	c.out = nil
	for _, msg := range out {
		debug.Printf(" -> %v", msg)
		err := msg.Build(c.conn)
		if err != nil {
			return c.fail(writeError(fmt.Errorf("send %v: %w", msg, err)))
		}
	}
	return nil
}

// wait flushes queued requests and then handles at most one batch of
// incoming messages, waiting up to timeout for it to arrive.
func (c *Client) wait(timeout time.Duration) error {
	err := c.Flush()
	if err != nil {
		return err
	}

	var batch *ev.Events
	if timeout <= 0 {
		select {
		case batch = <-c.queue.Get():
		default:
			return nil
		}
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case batch = <-c.queue.Get():
		case <-timer.C:
			return nil
		}
	}

	err = batch.Run()
	if err != nil {
		return c.fail(err)
	}
	return c.Flush()
}

// Dispatch sends queued requests, waits up to timeout for messages from
// the compositor and handles them. It returns the events produced
// since the previous call. If there are already events waiting, it
// doesn't block.
//
// If the session fails, the returned sequence still holds the events
// that were produced before the failure.
func (c *Client) Dispatch(timeout time.Duration) (iter.Seq[RawEvent], error) {
	if c.err != nil {
		return c.take(), c.err
	}

	if len(c.events) > 0 {
		timeout = 0
	}
	err := c.wait(timeout)
	return c.take(), err
}

func (c *Client) take() iter.Seq[RawEvent] {
	events := c.events
	c.events = nil
	return slices.Values(events)
}

func (c *Client) emit(ev RawEvent) {
	c.events = append(c.events, ev)
}

// RoundTrip blocks until the compositor has handled every request
// sent so far. Events produced in the meantime are kept for the next
// call to Dispatch.
func (c *Client) RoundTrip(timeout time.Duration) error {
	if c.err != nil {
		return c.err
	}

	var done bool
	c.sync(func(uint32) { done = true })

	deadline := time.Now().Add(timeout)
	for !done {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}

		err := c.wait(remaining)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) sync(done func(uint32)) {
	cb := newCallback(c, done)
	c.objects.Add(cb)
	c.display.send(displaySync, cb)
}

func (c *Client) addGlobal(g Global) {
	c.globals[g.Name] = g

	switch g.Interface {
	case "wl_output":
		out := newOutput(c, g.Name, bindVersion(g.Interface, g.Version))
		c.registry.bind(g, out)
		c.outputs[g.Name] = out
	case "wl_seat":
		s := newSeat(c, bindVersion(g.Interface, g.Version))
		c.registry.bind(g, s)
		c.seats[g.Name] = s
	}
}

func (c *Client) removeGlobal(name uint32) {
	g, ok := c.globals[name]
	if !ok {
		return
	}
	delete(c.globals, name)

	switch g.Interface {
	case "wl_output":
		if out, ok := c.outputs[name]; ok {
			delete(c.outputs, name)
			out.release()
			c.emit(OutputRemoved{Output: name})
		}
	case "wl_seat":
		if s, ok := c.seats[name]; ok {
			delete(c.seats, name)
			s.release()
		}
	}
}

func (c *Client) bindGlobals() error {
	for _, g := range c.globals {
		version := bindVersion(g.Interface, g.Version)
		switch g.Interface {
		case "wl_compositor":
			c.compositor = newCompositor(c, version)
			c.registry.bind(g, c.compositor)
		case "wl_shm":
			c.shm = newShm(c, version)
			c.registry.bind(g, c.shm)
		case "xdg_wm_base":
			c.wmBase = newWMBase(c, version)
			c.registry.bind(g, c.wmBase)
		case "zxdg_decoration_manager_v1":
			c.decorations = newDecorationManager(c, version)
			c.registry.bind(g, c.decorations)
		case "zwlr_layer_shell_v1":
			c.layerShell = newLayerShell(c, version)
			c.registry.bind(g, c.layerShell)
		}
	}

	if c.compositor == nil {
		return fmt.Errorf("%w: wl_compositor", ErrMissingGlobal)
	}
	if c.wmBase == nil {
		return fmt.Errorf("%w: xdg_wm_base", ErrMissingGlobal)
	}
	return nil
}

// Globals returns the globals that the compositor currently
// advertises, keyed by name.
func (c *Client) Globals() map[uint32]Global {
	return maps.Clone(c.globals)
}

// Outputs returns the last complete description of every output,
// keyed by global name.
func (c *Client) Outputs() map[uint32]OutputInfo {
	infos := make(map[uint32]OutputInfo, len(c.outputs))
	for name, out := range c.outputs {
		if out.ready {
			infos[name] = out.info
		}
	}
	return infos
}

// Shm returns the shared memory global, or nil if the compositor
// doesn't provide one.
func (c *Client) Shm() *Shm {
	return c.shm
}

// Surface returns the shell surface whose wl_surface has the given
// object ID, or nil.
func (c *Client) Surface(id uint32) *ShellSurface {
	return c.surfaces[id]
}

// SupportsDecorations reports whether the compositor can negotiate
// server-side decorations.
func (c *Client) SupportsDecorations() bool {
	return c.decorations != nil
}

// SupportsLayers reports whether the compositor supports layer shell
// surfaces.
func (c *Client) SupportsLayers() bool {
	return c.layerShell != nil
}

// DisplayHandle returns a raw handle to the connection.
func (c *Client) DisplayHandle() handle.Display {
	fd, _ := c.conn.Fd()
	return handle.Display{
		Platform: handle.Wayland,
		Socket:   fd,
	}
}
