package event

import (
	"slices"

	wl "deedles.dev/kyo/client"
	"deedles.dev/kyo/internal/debug"
	"deedles.dev/kyo/surface"
	"deedles.dev/ximage/geom"
)

// Presenter is the part of the presentation layer that the Router
// drives.
type Presenter interface {
	// Generation returns the current swapchain generation of a
	// surface.
	Generation(surface.ID) uint64

	// Inflight returns the number of acquired frames of a surface that
	// have not been presented or discarded yet.
	Inflight(surface.ID) int

	// Invalidate marks the surface's swapchain as out of date.
	Invalidate(surface.ID)
}

// Router normalizes raw protocol events into Events, applying the
// state changes that they imply to a surface registry. It is not safe
// for concurrent use.
type Router struct {
	reg         *surface.Registry
	presenter   Presenter
	defaultSize geom.Point[int]

	tokens  map[surface.ID]*tokenSlot
	pending []Event

	pointer   geom.Point[float64]
	modifiers Modifiers
}

// NewRouter returns a Router that updates reg. Surfaces that the
// compositor leaves the size of up to the client get defaultSize.
func NewRouter(reg *surface.Registry, presenter Presenter, defaultSize geom.Point[int]) *Router {
	return &Router{
		reg:         reg,
		presenter:   presenter,
		defaultSize: defaultSize,
		tokens:      make(map[surface.ID]*tokenSlot),
	}
}

// Pending returns the number of events waiting to be drained.
func (r *Router) Pending() int {
	return len(r.pending)
}

// Drain returns and clears the pending events.
func (r *Router) Drain() []Event {
	events := r.pending
	r.pending = nil
	return events
}

func (r *Router) emit(ev ...Event) {
	r.pending = append(r.pending, ev...)
}

func (r *Router) purge(id surface.ID) {
	r.pending = slices.DeleteFunc(r.pending, func(ev Event) bool {
		sid, ok := SurfaceOf(ev)
		return ok && sid == id
	})
}

func (r *Router) issue(id surface.ID) *FrameToken {
	if old, ok := r.tokens[id]; ok {
		old.revoke()
	}

	slot := &tokenSlot{surface: id, generation: r.presenter.Generation(id)}
	r.tokens[id] = slot
	return newFrameToken(slot)
}

func (r *Router) revoke(id surface.ID) {
	if slot, ok := r.tokens[id]; ok {
		slot.revoke()
		delete(r.tokens, id)
	}
}

// Route normalizes one raw event.
func (r *Router) Route(raw wl.RawEvent) {
	switch raw := raw.(type) {
	case wl.ConfigureSize:
		if id, ok := r.resolve(raw.Surface); ok {
			r.reg.StageSize(id, raw.Size)
		}

	case wl.ConfigureDone:
		if id, ok := r.resolve(raw.Surface); ok {
			r.reg.StageSerial(id, raw.Serial)
			r.configure(id)
		}

	case wl.DecorationConfigure:
		id, ok := r.resolve(raw.Surface)
		if !ok {
			return
		}
		changed, err := r.reg.StageDecoration(id, raw.Mode)
		if err == nil && changed {
			r.emit(DecorationChanged{Surface: id, Mode: raw.Mode})
		}

	case wl.CloseRequest:
		if id, ok := r.resolve(raw.Surface); ok {
			r.RequestClose(id)
		}

	case wl.FrameDone:
		r.frameDone(raw)

	case wl.SurfaceEnter:
		if id, ok := r.resolve(raw.Surface); ok {
			changed, err := r.reg.EnterOutput(id, surface.OutputID(raw.Output))
			if err == nil && changed {
				r.rescale(id)
			}
		}

	case wl.SurfaceLeave:
		if id, ok := r.resolve(raw.Surface); ok {
			changed, err := r.reg.LeaveOutput(id, surface.OutputID(raw.Output))
			if err == nil && changed {
				r.rescale(id)
			}
		}

	case wl.PreferredScale:
		if id, ok := r.resolve(raw.Surface); ok {
			changed, err := r.reg.SetPreferredScale(id, raw.Scale)
			if err == nil && changed {
				r.rescale(id)
			}
		}

	case wl.OutputDone:
		out, ids := r.reg.UpdateOutput(raw.Output)
		r.emit(OutputChanged{Output: out})
		for _, id := range ids {
			r.rescale(id)
		}

	case wl.OutputRemoved:
		ids := r.reg.RemoveOutput(surface.OutputID(raw.Output))
		r.emit(OutputRemoved{Output: surface.OutputID(raw.Output)})
		for _, id := range ids {
			r.rescale(id)
		}

	default:
		r.routeInput(raw)
	}
}

func (r *Router) resolve(native uint32) (surface.ID, bool) {
	id, ok := r.reg.Resolve(native)
	if !ok {
		debug.Log().Debug("event for unknown surface", "native", native)
	}
	return id, ok
}

// size picks the size of a surface from the size suggested by the
// compositor, falling back per dimension to the current size and then
// to the default size.
func (r *Router) size(s surface.Surface, staged geom.Point[int]) geom.Point[int] {
	pick := func(staged, current, def int) int {
		switch {
		case staged > 0:
			return staged
		case current > 0:
			return current
		default:
			return def
		}
	}
	return geom.Pt(
		pick(staged.X, s.Size.X, r.defaultSize.X),
		pick(staged.Y, s.Size.Y, r.defaultSize.Y),
	)
}

func (r *Router) configure(id surface.ID) {
	s, err := r.reg.Lookup(id)
	if err != nil {
		return
	}
	staged, _ := r.reg.StagedSize(id)
	scale, _ := r.reg.EffectiveScale(id)
	r.apply(id, r.size(s, staged), scale)
}

// rescale reconfigures an already configured surface after its
// effective scale changed. Pending surfaces pick up the new scale with
// their first configure.
func (r *Router) rescale(id surface.ID) {
	s, err := r.reg.Lookup(id)
	if err != nil || s.State != surface.Configured {
		return
	}
	scale, _ := r.reg.EffectiveScale(id)
	r.apply(id, s.Size, scale)
}

func (r *Router) apply(id surface.ID, size geom.Point[int], scale int) {
	ack, err := r.reg.Configure(id, size, scale)
	if err != nil {
		debug.Log().Warn("configure failed", "surface", id, "err", err)
		return
	}
	if ack.Surface.State != surface.Configured {
		return
	}

	switch {
	case ack.First():
	case ack.Resized():
		r.presenter.Invalidate(id)
	default:
		return
	}

	tok := r.issue(id)
	r.emit(
		Configure{Surface: id, Size: ack.Surface.Size, Scale: ack.Surface.Scale, First: ack.First()},
		Frame{Surface: id, Token: tok},
	)
}

func (r *Router) frameDone(raw wl.FrameDone) {
	id, ok := r.reg.Resolve(raw.Surface)
	if !ok {
		debug.Log().Warn("frame done for unknown surface", "native", raw.Surface)
		return
	}
	s, err := r.reg.Lookup(id)
	if err != nil {
		return
	}

	switch s.State {
	case surface.Configured:
		r.emit(Frame{Surface: id, Time: raw.Time, Token: r.issue(id)})
	case surface.Closing:
		r.emit(Frame{Surface: id, Time: raw.Time})
		r.settle(id)
	default:
		debug.Log().Warn("unexpected frame done", "surface", id, "state", s.State)
	}
}

// RequestClose starts closing a surface. The surface becomes Closed
// once every frame acquired for it has been presented or discarded.
func (r *Router) RequestClose(id surface.ID) error {
	already, err := r.reg.BeginClose(id)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	r.revoke(id)
	r.purge(id)
	r.emit(Closing{Surface: id})
	r.settle(id)
	return nil
}

// Settle is called when a frame of the surface is resolved. If the
// surface is closing and has no more frames in flight, it is closed.
func (r *Router) Settle(id surface.ID) {
	r.settle(id)
}

func (r *Router) settle(id surface.ID) {
	s, err := r.reg.Lookup(id)
	if err != nil || s.State != surface.Closing {
		return
	}
	if r.presenter.Inflight(id) > 0 {
		return
	}

	if err := r.reg.Close(id); err != nil {
		debug.Log().Warn("close failed", "surface", id, "err", err)
		return
	}
	r.closed(id)
}

func (r *Router) closed(id surface.ID) {
	r.revoke(id)
	r.purge(id)
	r.emit(Closed{Surface: id})
}

// Shutdown force-closes every surface, as after the connection to the
// compositor has been lost. Only the Closed events of the surfaces
// remain pending for them.
func (r *Router) Shutdown() {
	for _, id := range r.reg.CloseAll() {
		r.closed(id)
	}
}

// target resolves the surface that an input event is for. Input is
// only delivered to surfaces that are not closing.
func (r *Router) target(native uint32) (surface.ID, bool) {
	id, ok := r.reg.Resolve(native)
	if !ok {
		return 0, false
	}
	s, err := r.reg.Lookup(id)
	if err != nil {
		return 0, false
	}
	return id, s.State == surface.Pending || s.State == surface.Configured
}

func (r *Router) routeInput(raw wl.RawEvent) {
	switch raw := raw.(type) {
	case wl.PointerEnter:
		r.pointer = raw.Pos
		if id, ok := r.target(raw.Surface); ok {
			r.emit(PointerEntered{Surface: id, Pos: raw.Pos})
		}

	case wl.PointerLeave:
		if id, ok := r.target(raw.Surface); ok {
			r.emit(PointerLeft{Surface: id})
		}

	case wl.PointerMotion:
		r.pointer = raw.Pos
		if id, ok := r.target(raw.Surface); ok {
			r.emit(PointerMoved{Surface: id, Pos: raw.Pos})
		}

	case wl.PointerButton:
		id, ok := r.target(raw.Surface)
		if !ok {
			return
		}
		if raw.Pressed {
			r.emit(PointerPressed{Surface: id, Button: Button(raw.Button), Pos: r.pointer})
			return
		}
		r.emit(PointerReleased{Surface: id, Button: Button(raw.Button), Pos: r.pointer})

	case wl.PointerAxis:
		id, ok := r.target(raw.Surface)
		if !ok {
			return
		}
		var delta geom.Point[float64]
		switch raw.Axis {
		case wl.AxisHorizontal:
			delta.X = raw.Value
		default:
			delta.Y = raw.Value
		}
		r.emit(PointerScrolled{Surface: id, Delta: delta})

	case wl.KeyboardEnter:
		if id, ok := r.target(raw.Surface); ok {
			r.emit(KeyboardEntered{Surface: id})
		}

	case wl.KeyboardLeave:
		if id, ok := r.target(raw.Surface); ok {
			r.emit(KeyboardLeft{Surface: id})
		}

	case wl.Key:
		id, ok := r.target(raw.Surface)
		if !ok {
			return
		}
		if raw.Pressed {
			r.emit(KeyPressed{Surface: id, Key: raw.Key, Modifiers: r.modifiers})
			return
		}
		r.emit(KeyReleased{Surface: id, Key: raw.Key, Modifiers: r.modifiers})

	case wl.Modifiers:
		r.modifiers = ModifiersFromMask(raw.Depressed | raw.Latched | raw.Locked)
		if id, ok := r.target(raw.Surface); ok {
			r.emit(ModifiersChanged{Surface: id, Modifiers: r.modifiers})
		}

	default:
		debug.Log().Debug("unhandled event", "event", raw)
	}
}
