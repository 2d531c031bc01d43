// Package present binds the surfaces of a workspace to swapchains and
// paces the presentation of frames to them.
package present

import (
	"fmt"
	"image"
	"image/draw"

	"deedles.dev/kyo/config"
	"deedles.dev/kyo/event"
	"deedles.dev/kyo/internal/debug"
	"deedles.dev/kyo/surface"
	"deedles.dev/ximage/geom"
)

type chain struct {
	swapchain   Swapchain
	generation  uint64
	outstanding int
	retired     bool
	destroyed   bool
}

func (c *chain) destroy() {
	if !c.destroyed {
		c.destroyed = true
		c.swapchain.Destroy()
	}
}

// Binding pairs a surface with a swapchain. At most one binding exists
// per surface.
type Binding struct {
	surface surface.ID
	target  Target
	backend Backend

	extent geom.Point[int]
	config SwapchainConfig

	current  *chain
	retired  []*chain
	released bool
}

func (b *Binding) Surface() surface.ID {
	return b.surface
}

// Generation is the generation that the binding's swapchain was built
// for, or zero if it has been invalidated and not rebuilt.
func (b *Binding) Generation() uint64 {
	if b.current == nil {
		return 0
	}
	return b.current.generation
}

// Extent is the size of the swapchain's images in pixels.
func (b *Binding) Extent() geom.Point[int] {
	return b.extent
}

func (b *Binding) Format() config.Format {
	return b.config.Format
}

func (b *Binding) PresentMode() config.PresentMode {
	return b.config.PresentMode
}

func (b *Binding) inflight() (n int) {
	if b.current != nil {
		n += b.current.outstanding
	}
	for _, c := range b.retired {
		n += c.outstanding
	}
	return n
}

// FrameHandle is an acquired swapchain image. It must be either
// presented or discarded.
type FrameHandle struct {
	binding    *Binding
	chain      *chain
	index      int
	generation uint64
	damage     []image.Rectangle
	resolved   bool
}

func (h *FrameHandle) Surface() surface.ID {
	return h.binding.surface
}

func (h *FrameHandle) Generation() uint64 {
	return h.generation
}

func (h *FrameHandle) Index() int {
	return h.index
}

// Image returns the image to draw to, or nil if the backend doesn't
// expose its images for drawing.
func (h *FrameHandle) Image() draw.Image {
	return h.chain.swapchain.Image(h.index)
}

// Damage marks regions of the image as changed. Without any damage the
// whole image is presented.
func (h *FrameHandle) Damage(r ...image.Rectangle) {
	h.damage = append(h.damage, r...)
}

// Bridge owns the swapchain bindings of a workspace's surfaces. It is
// not safe for concurrent use.
type Bridge struct {
	// Resolved, if not nil, is called whenever a FrameHandle is
	// presented or discarded.
	Resolved func(surface.ID)

	reg         *surface.Registry
	cfg         config.Swapchain
	generations map[surface.ID]uint64
	bindings    map[surface.ID]*Binding
}

func NewBridge(reg *surface.Registry, cfg config.Swapchain) *Bridge {
	return &Bridge{
		reg:         reg,
		cfg:         cfg,
		generations: make(map[surface.ID]uint64),
		bindings:    make(map[surface.ID]*Binding),
	}
}

// Generation returns the current generation of the surface. It starts
// at 1 and increases every time that the surface is invalidated.
func (br *Bridge) Generation(id surface.ID) uint64 {
	if gen, ok := br.generations[id]; ok {
		return gen
	}
	return 1
}

// Inflight returns the number of frames of the surface that have been
// acquired but not yet presented or discarded.
func (br *Bridge) Inflight(id surface.ID) int {
	b, ok := br.bindings[id]
	if !ok {
		return 0
	}
	return b.inflight()
}

// Binding returns the surface's binding, if it has one.
func (br *Bridge) Binding(id surface.ID) (*Binding, bool) {
	b, ok := br.bindings[id]
	return b, ok
}

// Bind binds a configured surface to a swapchain created by backend.
// If the surface is already bound, its binding is returned, with its
// swapchain rebuilt if it is out of date. A nil backend reuses the
// backend of the existing binding.
func (br *Bridge) Bind(id surface.ID, backend Backend) (*Binding, error) {
	s, err := br.reg.Lookup(id)
	if err != nil {
		return nil, &BindError{Surface: id, Err: err}
	}
	if s.State != surface.Configured {
		return nil, &BindError{Surface: id, Err: fmt.Errorf("surface is %v", s.State)}
	}

	b, ok := br.bindings[id]
	if !ok {
		if backend == nil {
			return nil, &BindError{Surface: id, Err: errNoBackend}
		}
		b = &Binding{surface: id, target: s.Native}
		br.bindings[id] = b
	}
	if backend != nil {
		b.backend = backend
	}

	gen := br.Generation(id)
	if b.current != nil && b.current.generation == gen {
		return b, nil
	}
	br.retire(b)

	cfg := SwapchainConfig{
		Extent:      s.PixelSize(),
		Scale:       s.Scale,
		Images:      br.cfg.Images,
		Format:      br.cfg.Format,
		PresentMode: br.cfg.PresentMode,
	}
	sc, err := b.backend.CreateSwapchain(b.target, cfg)
	if err != nil {
		if !ok {
			delete(br.bindings, id)
		}
		return nil, &BindError{Surface: id, Err: err}
	}

	b.current = &chain{swapchain: sc, generation: gen}
	b.extent = cfg.Extent
	b.config = cfg

	debug.Log().Debug("swapchain bound", "surface", id, "generation", gen, "extent", cfg.Extent)
	return b, nil
}

// retire takes the current swapchain out of use. It is destroyed once
// none of its images are acquired.
func (br *Bridge) retire(b *Binding) {
	c := b.current
	if c == nil {
		return
	}
	b.current = nil

	if c.outstanding == 0 {
		c.destroy()
		return
	}
	c.retired = true
	b.retired = append(b.retired, c)
}

// Invalidate increments the surface's generation. Its binding, if any,
// must be bound again before new frames can be acquired.
func (br *Bridge) Invalidate(id surface.ID) {
	br.generations[id] = br.Generation(id) + 1
	if b, ok := br.bindings[id]; ok {
		br.retire(b)
	}
}

// Acquire acquires the next image of a binding. It returns an
// OutOfDateError if the surface has changed since the binding's
// swapchain was built.
func (br *Bridge) Acquire(b *Binding) (*FrameHandle, error) {
	if b.released {
		return nil, &surface.InvalidSurfaceError{ID: b.surface}
	}

	gen := br.Generation(b.surface)
	if b.current == nil || b.current.generation != gen {
		return nil, &OutOfDateError{Surface: b.surface, Generation: b.Generation(), Current: gen}
	}

	index, err := b.current.swapchain.Acquire()
	if err != nil {
		return nil, fmt.Errorf("acquire image of surface %v: %w", b.surface, err)
	}
	b.current.outstanding++

	return &FrameHandle{
		binding:    b,
		chain:      b.current,
		index:      index,
		generation: gen,
	}, nil
}

// Present shows a frame. It consumes both h and tok. If the token has
// been revoked or either of them belongs to an older generation of the
// surface, the frame is dropped without error. A frame from an older
// generation doesn't consume a token of the current one.
//
// Before the frame is presented, a frame callback is requested from the
// compositor so that the next token follows the compositor's pacing.
func (br *Bridge) Present(h *FrameHandle, tok *event.FrameToken) error {
	if h.resolved {
		return ErrConsumed
	}
	if tok == nil {
		br.discard(h)
		return nil
	}
	if tok.Surface() != h.binding.surface {
		return ErrWrongSurface
	}

	// A stale frame leaves a current token live for the frame that
	// replaces it.
	gen := br.Generation(h.binding.surface)
	if h.binding.released || h.generation != gen {
		debug.Log().Debug("dropped stale frame", "surface", h.binding.surface, "frame", h.generation, "current", gen)
		if tok.Generation() != gen {
			tok.Consume()
		}
		br.discard(h)
		return nil
	}

	switch tok.Consume() {
	case event.TokenConsumed:
		br.discard(h)
		return ErrConsumed
	case event.TokenRevoked:
		br.discard(h)
		return nil
	}

	if tok.Generation() != gen {
		debug.Log().Debug("dropped frame with stale token", "surface", h.binding.surface, "token", tok.Generation(), "current", gen)
		br.discard(h)
		return nil
	}

	h.binding.target.RequestFrame()
	err := h.chain.swapchain.Present(h.index, h.damage)
	br.resolve(h)
	if err != nil {
		return fmt.Errorf("present surface %v: %w", h.binding.surface, err)
	}
	return nil
}

// Discard resolves a frame without presenting it.
func (br *Bridge) Discard(h *FrameHandle) error {
	if h.resolved {
		return ErrConsumed
	}
	br.discard(h)
	return nil
}

func (br *Bridge) discard(h *FrameHandle) {
	if !h.chain.destroyed {
		h.chain.swapchain.Discard(h.index)
	}
	br.resolve(h)
}

func (br *Bridge) resolve(h *FrameHandle) {
	h.resolved = true

	c := h.chain
	c.outstanding--
	if c.retired && c.outstanding == 0 {
		c.destroy()
		b := h.binding
		for i, r := range b.retired {
			if r == c {
				b.retired = append(b.retired[:i], b.retired[i+1:]...)
				break
			}
		}
	}

	if br.Resolved != nil {
		br.Resolved(h.binding.surface)
	}
}

// Release destroys the surface's binding and every swapchain that it
// owns. It is called once the surface has closed.
func (br *Bridge) Release(id surface.ID) {
	delete(br.generations, id)

	b, ok := br.bindings[id]
	if !ok {
		return
	}
	delete(br.bindings, id)

	b.released = true
	if b.current != nil {
		b.current.destroy()
		b.current = nil
	}
	for _, c := range b.retired {
		c.destroy()
	}
	b.retired = nil
}
