// Package surface keeps track of the surfaces of a workspace: their
// lifecycle states, sizes and scales, and the outputs that they are
// shown on.
package surface

import (
	"slices"

	wl "deedles.dev/kyo/client"
	"deedles.dev/kyo/handle"
	"deedles.dev/kyo/internal/debug"
	"deedles.dev/ximage/geom"
)

// ID identifies a surface. IDs are never reused.
type ID uint64

// Spec describes a surface to create.
type Spec = wl.SurfaceOptions

// Native is the protocol-level surface that a registry entry owns.
type Native interface {
	handle.HasWindow
	handle.HasDisplay

	// ID is the object ID of the surface's wl_surface.
	ID() uint32

	AckConfigure(serial uint32)
	SetBufferScale(scale int)
	RequestFrame()
	Destroy()
}

// Shell creates native surfaces.
type Shell interface {
	CreateSurface(Spec) (Native, error)
}

type clientShell struct {
	c *wl.Client
}

// ClientShell returns a Shell that creates surfaces on c.
func ClientShell(c *wl.Client) Shell {
	return clientShell{c: c}
}

func (s clientShell) CreateSurface(spec Spec) (Native, error) {
	native, err := s.c.CreateShellSurface(spec)
	if err != nil {
		return nil, err
	}
	return native, nil
}

// Surface is a snapshot of a surface's attributes.
type Surface struct {
	ID     ID
	Native Native
	Spec   Spec
	State  State

	// Size is the logical size of the surface.
	Size geom.Point[int]

	// Scale is the number of buffer pixels per logical pixel.
	Scale int

	Decoration wl.DecorationMode

	// Output is the output that the surface was first shown on among
	// those it is still on, or zero.
	Output OutputID
}

// PixelSize is the size of the surface's buffers.
func (s Surface) PixelSize() geom.Point[int] {
	return geom.Pt(s.Size.X*s.Scale, s.Size.Y*s.Scale)
}

// ConfigureAck is the result of applying a configure sequence.
type ConfigureAck struct {
	Surface  Surface
	Previous State

	SizeChanged  bool
	ScaleChanged bool
}

// First reports whether the configure moved the surface out of the
// Pending state.
func (ack ConfigureAck) First() bool {
	return ack.Previous == Pending && ack.Surface.State == Configured
}

// Resized reports whether the buffer size of the surface changed.
func (ack ConfigureAck) Resized() bool {
	return ack.SizeChanged || ack.ScaleChanged
}

type entry struct {
	Surface

	stagedSize   geom.Point[int]
	stagedSerial uint32
	hasSerial    bool

	preferredScale int
	outputs        []OutputID
}

func (e *entry) primaryOutput() OutputID {
	if len(e.outputs) == 0 {
		return 0
	}
	return e.outputs[0]
}

// Registry owns every surface of a session. It is not safe for
// concurrent use.
type Registry struct {
	// OnClose, if not nil, is called after a surface has moved to
	// Closed and its native surface has been destroyed.
	OnClose func(ID)

	shell    Shell
	nextID   ID
	surfaces map[ID]*entry
	natives  map[uint32]ID
	outputs  map[OutputID]Output
	closed   bool
}

func NewRegistry(shell Shell) *Registry {
	return &Registry{
		shell:    shell,
		surfaces: make(map[ID]*entry),
		natives:  make(map[uint32]ID),
		outputs:  make(map[OutputID]Output),
	}
}

// Create creates a native surface from spec and registers it in the
// Pending state.
func (r *Registry) Create(spec Spec) (ID, error) {
	if r.closed {
		return 0, ErrSessionClosed
	}

	native, err := r.shell.CreateSurface(spec)
	if err != nil {
		return 0, err
	}

	r.nextID++
	id := r.nextID
	r.surfaces[id] = &entry{
		Surface: Surface{
			ID:         id,
			Native:     native,
			Spec:       spec,
			State:      Pending,
			Scale:      1,
			Decoration: wl.DecorationClient,
		},
	}
	r.natives[native.ID()] = id

	debug.Log().Debug("surface created", "id", id, "native", native.ID(), "role", spec.Role())
	return id, nil
}

func (r *Registry) live(id ID) (*entry, error) {
	e, ok := r.surfaces[id]
	if !ok {
		return nil, &InvalidSurfaceError{ID: id}
	}
	return e, nil
}

// Lookup returns a snapshot of the surface.
func (r *Registry) Lookup(id ID) (Surface, error) {
	e, err := r.live(id)
	if err != nil {
		return Surface{}, err
	}
	return e.Surface, nil
}

// Resolve finds the surface that owns the native surface with the
// given object ID.
func (r *Registry) Resolve(native uint32) (ID, bool) {
	id, ok := r.natives[native]
	return id, ok
}

// Len returns the number of surfaces that have not closed.
func (r *Registry) Len() int {
	return len(r.surfaces)
}

// IDs returns the IDs of every surface that has not closed, in order
// of creation.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.surfaces))
	for id := range r.surfaces {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// StageSize records the size suggested by the compositor for the next
// configure.
func (r *Registry) StageSize(id ID, size geom.Point[int]) error {
	e, err := r.live(id)
	if err != nil {
		return err
	}
	e.stagedSize = size
	return nil
}

// StagedSize returns the size suggested by the compositor. A zero
// dimension is left up to the client.
func (r *Registry) StagedSize(id ID) (geom.Point[int], error) {
	e, err := r.live(id)
	if err != nil {
		return geom.Point[int]{}, err
	}
	return e.stagedSize, nil
}

// StageSerial records the serial of a configure sequence so that the
// next call to Configure can acknowledge it.
func (r *Registry) StageSerial(id ID, serial uint32) error {
	e, err := r.live(id)
	if err != nil {
		return err
	}
	e.stagedSerial = serial
	e.hasSerial = true
	return nil
}

// StageDecoration sets the decoration mode chosen by the compositor. It
// reports whether the mode changed.
func (r *Registry) StageDecoration(id ID, mode wl.DecorationMode) (bool, error) {
	e, err := r.live(id)
	if err != nil {
		return false, err
	}
	if e.Decoration == mode {
		return false, nil
	}
	e.Decoration = mode
	return true, nil
}

// Configure applies a configuration to the surface. The latest call
// wins. A staged configure serial is acknowledged and the buffer scale
// is updated on the native surface if it changed.
func (r *Registry) Configure(id ID, size geom.Point[int], scale int) (ConfigureAck, error) {
	e, err := r.live(id)
	if err != nil {
		return ConfigureAck{}, err
	}

	next, err := Step(e.State, TriggerConfigure)
	if err != nil {
		return ConfigureAck{}, err
	}
	scale = max(scale, 1)

	ack := ConfigureAck{
		Previous:     e.State,
		SizeChanged:  size != e.Size,
		ScaleChanged: scale != e.Scale,
	}

	if e.hasSerial {
		e.Native.AckConfigure(e.stagedSerial)
		e.hasSerial = false
	}
	if ack.ScaleChanged {
		e.Native.SetBufferScale(scale)
	}

	e.State = next
	e.Size = size
	e.Scale = scale
	ack.Surface = e.Surface
	return ack, nil
}

// BeginClose moves the surface to Closing. It reports whether the
// surface was already closing.
func (r *Registry) BeginClose(id ID) (already bool, err error) {
	e, err := r.live(id)
	if err != nil {
		return false, err
	}

	already = e.State == Closing
	e.State, err = Step(e.State, TriggerCloseRequest)
	return already, err
}

// Close finishes closing the surface, moving it to Closed and
// destroying its native surface. Surfaces that have not begun closing
// do so first.
func (r *Registry) Close(id ID) error {
	e, err := r.live(id)
	if err != nil {
		return err
	}

	if e.State != Closing {
		e.State, err = Step(e.State, TriggerCloseRequest)
		if err != nil {
			return err
		}
	}

	e.State, err = Step(e.State, TriggerDrained)
	if err != nil {
		return err
	}
	r.remove(e)
	return nil
}

// CloseAll force-closes every surface, as after the connection to the
// compositor has been lost, and returns their IDs in order of
// creation. Afterwards, Create fails with ErrSessionClosed.
func (r *Registry) CloseAll() []ID {
	r.closed = true

	ids := r.IDs()
	for _, id := range ids {
		e := r.surfaces[id]
		e.State, _ = Step(e.State, TriggerLost)
		r.remove(e)
	}
	return ids
}

func (r *Registry) remove(e *entry) {
	delete(r.surfaces, e.ID)
	delete(r.natives, e.Native.ID())
	e.Native.Destroy()

	debug.Log().Debug("surface closed", "id", e.ID)
	if r.OnClose != nil {
		r.OnClose(e.ID)
	}
}
