// Package kyo connects to a Wayland compositor and manages a set of
// surfaces and the presentation of frames to them from a single event
// loop.
package kyo

import (
	"context"
	"errors"

	wl "deedles.dev/kyo/client"
	"deedles.dev/kyo/config"
	"deedles.dev/kyo/event"
	"deedles.dev/kyo/internal/debug"
	"deedles.dev/kyo/present"
	"deedles.dev/kyo/shm"
	"deedles.dev/kyo/surface"
	"deedles.dev/ximage/geom"
)

// ErrCloseQueueFull is returned by PostClose when too many close
// requests are waiting for the event loop.
var ErrCloseQueueFull = errors.New("close queue full")

// Handler handles the events of a workspace.
type Handler interface {
	Handle(w *Workspace, ev event.Event) error
}

type HandlerFunc func(*Workspace, event.Event) error

func (f HandlerFunc) Handle(w *Workspace, ev event.Event) error {
	return f(w, ev)
}

// Workspace is a connection to a compositor together with the
// surfaces created on it. Except for PostClose, its methods must all
// be called from the goroutine that runs the event loop.
type Workspace struct {
	cfg     config.Config
	client  *wl.Client
	reg     *surface.Registry
	router  *event.Router
	bridge  *present.Bridge
	backend present.Backend

	closes  chan surface.ID
	created bool
	err     error
}

// Connect validates cfg, applies its log level and connects to the
// compositor.
func Connect(cfg config.Config) (*Workspace, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	err = debug.SetLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	c, err := wl.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return New(c, cfg), nil
}

// New returns a Workspace that manages surfaces on c. The workspace
// takes ownership of c.
func New(c *wl.Client, cfg config.Config) *Workspace {
	reg := surface.NewRegistry(surface.ClientShell(c))
	bridge := present.NewBridge(reg, cfg.Swapchain)
	router := event.NewRouter(reg, bridge, geom.Pt(cfg.DefaultSize.Width, cfg.DefaultSize.Height))

	reg.OnClose = bridge.Release
	bridge.Resolved = router.Settle

	return &Workspace{
		cfg:     cfg,
		client:  c,
		reg:     reg,
		router:  router,
		bridge:  bridge,
		backend: shm.NewBackend(c),
		closes:  make(chan surface.ID, max(cfg.CloseQueue, 1)),
	}
}

func (w *Workspace) Client() *wl.Client {
	return w.client
}

func (w *Workspace) Bridge() *present.Bridge {
	return w.bridge
}

func (w *Workspace) Config() config.Config {
	return w.cfg
}

// Err returns the error that ended the session, if any.
func (w *Workspace) Err() error {
	return w.err
}

// SetBackend replaces the backend used by Bind. By default, surfaces
// are presented with shared memory buffers.
func (w *Workspace) SetBackend(backend present.Backend) {
	w.backend = backend
}

// CreateSurface creates a surface. Unset options are filled in from the
// workspace's configuration. The surface can't be drawn to until its
// first Configure event.
func (w *Workspace) CreateSurface(spec surface.Spec) (surface.ID, error) {
	if w.err != nil {
		return 0, w.err
	}

	if spec.AppID == "" {
		spec.AppID = w.cfg.AppID
	}
	if spec.Title == "" {
		spec.Title = spec.AppID
	}
	if spec.Decorations == 0 {
		spec.Decorations = decorationMode(w.cfg.Decorations)
	}

	id, err := w.reg.Create(spec)
	if err != nil {
		return 0, err
	}
	w.created = true
	return id, nil
}

func decorationMode(d config.Decorations) wl.DecorationMode {
	if d == config.DecorationsClient {
		return wl.DecorationClient
	}
	return wl.DecorationServer
}

// Surface returns a snapshot of a surface.
func (w *Workspace) Surface(id surface.ID) (surface.Surface, error) {
	return w.reg.Lookup(id)
}

// Surfaces returns snapshots of every surface that has not closed, in
// order of creation.
func (w *Workspace) Surfaces() []surface.Surface {
	ids := w.reg.IDs()
	surfaces := make([]surface.Surface, 0, len(ids))
	for _, id := range ids {
		s, err := w.reg.Lookup(id)
		if err == nil {
			surfaces = append(surfaces, s)
		}
	}
	return surfaces
}

func (w *Workspace) Outputs() map[surface.OutputID]surface.Output {
	return w.reg.Outputs()
}

// Bind binds a configured surface to a swapchain, or rebuilds the
// swapchain of an existing binding that is out of date.
func (w *Workspace) Bind(id surface.ID) (*present.Binding, error) {
	return w.bridge.Bind(id, w.backend)
}

func (w *Workspace) Acquire(b *present.Binding) (*present.FrameHandle, error) {
	return w.bridge.Acquire(b)
}

func (w *Workspace) Present(h *present.FrameHandle, tok *event.FrameToken) error {
	return w.bridge.Present(h, tok)
}

func (w *Workspace) Discard(h *present.FrameHandle) error {
	return w.bridge.Discard(h)
}

// RequestClose starts closing a surface.
func (w *Workspace) RequestClose(id surface.ID) error {
	return w.router.RequestClose(id)
}

// PostClose asks the event loop to close a surface. It is safe to call
// from any goroutine.
func (w *Workspace) PostClose(id surface.ID) error {
	select {
	case w.closes <- id:
		return nil
	default:
		return ErrCloseQueueFull
	}
}

func (w *Workspace) drainCloses() {
	for {
		select {
		case id := <-w.closes:
			err := w.router.RequestClose(id)
			if err != nil {
				debug.Log().Debug("posted close", "surface", id, "err", err)
			}
		default:
			return
		}
	}
}

func (w *Workspace) deliver(h Handler) error {
	for _, ev := range w.router.Drain() {
		err := h.Handle(w, ev)
		if err != nil {
			return err
		}
	}
	return nil
}

// Poll runs a single iteration of the event loop. It waits at most the
// configured dispatch timeout for the compositor. If the session ends,
// every surface is closed, the handler is given their Closed events and
// the error is returned. The same error is returned by every later
// call.
func (w *Workspace) Poll(h Handler) error {
	if w.err != nil {
		return w.err
	}

	w.drainCloses()
	err := w.deliver(h)
	if err != nil {
		return err
	}

	events, err := w.client.Dispatch(w.cfg.DispatchTimeout)
	for ev := range events {
		w.router.Route(ev)
	}
	if err != nil {
		w.err = err
		w.router.Shutdown()
		if herr := w.deliver(h); herr != nil {
			return errors.Join(err, herr)
		}
		return err
	}

	return w.deliver(h)
}

// Run polls until ctx is canceled, the session or the handler fails,
// or, if the workspace is configured to, the last surface closes.
func (w *Workspace) Run(ctx context.Context, h Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := w.Poll(h)
		if err != nil {
			return err
		}

		if w.cfg.ExitOnLastClose && w.created && w.reg.Len() == 0 {
			return nil
		}
	}
}

// Close closes every surface and the connection. Like every method
// other than PostClose, it must be called from the event loop's
// goroutine.
func (w *Workspace) Close() error {
	w.router.Shutdown()
	w.router.Drain()

	err := w.client.Close()
	if w.err == nil {
		w.err = w.client.Err()
	}
	return err
}
