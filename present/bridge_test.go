package present

import (
	"image"
	"image/draw"
	"testing"

	wl "deedles.dev/kyo/client"
	"deedles.dev/kyo/config"
	"deedles.dev/kyo/event"
	"deedles.dev/kyo/handle"
	"deedles.dev/kyo/surface"
	"deedles.dev/ximage/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNative struct {
	id     uint32
	frames int
}

func (n *fakeNative) ID() uint32          { return n.id }
func (n *fakeNative) AckConfigure(uint32) {}
func (n *fakeNative) SetBufferScale(int)  {}
func (n *fakeNative) RequestFrame()       { n.frames++ }
func (n *fakeNative) Destroy()            {}

func (n *fakeNative) WindowHandle() handle.Window {
	return handle.Window{Platform: handle.Wayland, Surface: n.id}
}

func (n *fakeNative) DisplayHandle() handle.Display {
	return handle.Display{Platform: handle.Wayland}
}

type fakeShell struct {
	next uint32
}

func (s *fakeShell) CreateSurface(surface.Spec) (surface.Native, error) {
	s.next++
	return &fakeNative{id: s.next}, nil
}

type fakeSwapchain struct {
	cfg       SwapchainConfig
	free      []bool
	presented []int
	damage    [][]image.Rectangle
	discarded []int
	destroyed bool
}

func (sc *fakeSwapchain) Acquire() (int, error) {
	for i, free := range sc.free {
		if free {
			sc.free[i] = false
			return i, nil
		}
	}
	return 0, ErrNoImage
}

func (sc *fakeSwapchain) Image(int) draw.Image { return nil }

func (sc *fakeSwapchain) Present(index int, damage []image.Rectangle) error {
	sc.presented = append(sc.presented, index)
	sc.damage = append(sc.damage, damage)
	sc.free[index] = true
	return nil
}

func (sc *fakeSwapchain) Discard(index int) {
	sc.discarded = append(sc.discarded, index)
	sc.free[index] = true
}

func (sc *fakeSwapchain) Destroy() {
	sc.destroyed = true
}

type fakeBackend struct {
	chains []*fakeSwapchain
}

func (b *fakeBackend) CreateSwapchain(target Target, cfg SwapchainConfig) (Swapchain, error) {
	sc := &fakeSwapchain{cfg: cfg, free: make([]bool, cfg.Images)}
	for i := range sc.free {
		sc.free[i] = true
	}
	b.chains = append(b.chains, sc)
	return sc, nil
}

type fixture struct {
	reg     *surface.Registry
	bridge  *Bridge
	router  *event.Router
	backend *fakeBackend
}

func newFixture() *fixture {
	reg := surface.NewRegistry(&fakeShell{})
	bridge := NewBridge(reg, config.Default().Swapchain)
	router := event.NewRouter(reg, bridge, geom.Pt(640, 480))
	reg.OnClose = bridge.Release
	bridge.Resolved = router.Settle
	return &fixture{reg: reg, bridge: bridge, router: router, backend: &fakeBackend{}}
}

// configure creates or resizes a surface and returns the token of the
// frame that the configure produced.
func (f *fixture) configure(t *testing.T, native uint32, w, h int) *event.FrameToken {
	f.router.Route(wl.ConfigureSize{Surface: native, Size: geom.Pt(w, h)})
	f.router.Route(wl.ConfigureDone{Surface: native})
	for _, ev := range f.router.Drain() {
		if frame, ok := ev.(event.Frame); ok {
			return frame.Token
		}
	}
	require.FailNow(t, "no frame event")
	return nil
}

func (f *fixture) create(t *testing.T) (surface.ID, *fakeNative) {
	id, err := f.reg.Create(surface.Spec{})
	require.NoError(t, err)
	s, err := f.reg.Lookup(id)
	require.NoError(t, err)
	return id, s.Native.(*fakeNative)
}

func TestBindRequiresConfigured(t *testing.T) {
	f := newFixture()
	id, _ := f.create(t)

	_, err := f.bridge.Bind(id, f.backend)
	assert.ErrorIs(t, err, ErrBind)
	var berr *BindError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, id, berr.Surface)

	_, err = f.bridge.Bind(99, f.backend)
	assert.ErrorIs(t, err, ErrBind)
	assert.ErrorIs(t, err, surface.ErrInvalidSurface)
	assert.Empty(t, f.backend.chains)
}

func TestBindTwice(t *testing.T) {
	f := newFixture()
	id, native := f.create(t)
	f.configure(t, native.id, 100, 100)

	a, err := f.bridge.Bind(id, f.backend)
	require.NoError(t, err)
	b, err := f.bridge.Bind(id, nil)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Len(t, f.backend.chains, 1)
	assert.Equal(t, config.FormatARGB8888, a.Format())
	assert.Equal(t, config.PresentFIFO, a.PresentMode())
}

func TestGenerationMonotonic(t *testing.T) {
	f := newFixture()
	id, native := f.create(t)
	f.configure(t, native.id, 100, 100)

	b, err := f.bridge.Bind(id, f.backend)
	require.NoError(t, err)

	last := b.Generation()
	for i := range 5 {
		f.configure(t, native.id, 200+i, 100)
		_, err = f.bridge.Acquire(b)
		assert.ErrorIs(t, err, ErrSurfaceOutOfDate)

		b, err = f.bridge.Bind(id, nil)
		require.NoError(t, err)
		assert.Greater(t, b.Generation(), last)
		last = b.Generation()
	}
	assert.Len(t, f.backend.chains, 6)
	for _, sc := range f.backend.chains[:5] {
		assert.True(t, sc.destroyed)
	}
}

func TestPresent(t *testing.T) {
	f := newFixture()
	id, native := f.create(t)
	tok := f.configure(t, native.id, 100, 100)

	b, err := f.bridge.Bind(id, f.backend)
	require.NoError(t, err)
	h, err := f.bridge.Acquire(b)
	require.NoError(t, err)
	assert.Equal(t, 1, f.bridge.Inflight(id))

	h.Damage(image.Rect(0, 0, 10, 10))
	require.NoError(t, f.bridge.Present(h, tok))
	assert.Zero(t, f.bridge.Inflight(id))
	assert.Equal(t, 1, native.frames)

	sc := f.backend.chains[0]
	assert.Equal(t, []int{h.Index()}, sc.presented)
	assert.Equal(t, [][]image.Rectangle{{image.Rect(0, 0, 10, 10)}}, sc.damage)

	assert.ErrorIs(t, f.bridge.Present(h, tok), ErrConsumed)
	assert.ErrorIs(t, f.bridge.Discard(h), ErrConsumed)

	h, err = f.bridge.Acquire(b)
	require.NoError(t, err)
	assert.ErrorIs(t, f.bridge.Present(h, tok), ErrConsumed)
	assert.Zero(t, f.bridge.Inflight(id))
	assert.Len(t, sc.presented, 1)
}

func TestNoImage(t *testing.T) {
	f := newFixture()
	id, native := f.create(t)
	f.configure(t, native.id, 100, 100)

	b, err := f.bridge.Bind(id, f.backend)
	require.NoError(t, err)
	for range config.Default().Swapchain.Images {
		_, err := f.bridge.Acquire(b)
		require.NoError(t, err)
	}
	_, err = f.bridge.Acquire(b)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestStalePresentIsNoop(t *testing.T) {
	f := newFixture()
	id, native := f.create(t)
	tok := f.configure(t, native.id, 100, 100)

	b, err := f.bridge.Bind(id, f.backend)
	require.NoError(t, err)
	h, err := f.bridge.Acquire(b)
	require.NoError(t, err)

	f.bridge.Invalidate(id)
	assert.False(t, f.backend.chains[0].destroyed)

	require.NoError(t, f.bridge.Present(h, tok))
	sc := f.backend.chains[0]
	assert.Empty(t, sc.presented)
	assert.Zero(t, native.frames)
	assert.True(t, sc.destroyed)
	assert.False(t, tok.Live())
}

func TestResizeScenario(t *testing.T) {
	f := newFixture()
	id, native := f.create(t)
	tok := f.configure(t, native.id, 800, 600)

	b, err := f.bridge.Bind(id, f.backend)
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(800, 600), b.Extent())
	h, err := f.bridge.Acquire(b)
	require.NoError(t, err)

	next := f.configure(t, native.id, 1024, 768)
	assert.Equal(t, uint64(2), next.Generation())
	assert.False(t, tok.Live())

	_, err = f.bridge.Acquire(b)
	assert.ErrorIs(t, err, ErrSurfaceOutOfDate)

	require.NoError(t, f.bridge.Present(h, tok))
	assert.Empty(t, f.backend.chains[0].presented)
	assert.True(t, f.backend.chains[0].destroyed)

	b, err = f.bridge.Bind(id, nil)
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(1024, 768), b.Extent())
	assert.Equal(t, uint64(2), b.Generation())

	h, err = f.bridge.Acquire(b)
	require.NoError(t, err)
	require.NoError(t, f.bridge.Present(h, next))
	assert.Len(t, f.backend.chains[1].presented, 1)
	assert.Equal(t, 1, native.frames)
}

func TestStaleFrameKeepsToken(t *testing.T) {
	f := newFixture()
	id, native := f.create(t)
	f.configure(t, native.id, 800, 600)

	b, err := f.bridge.Bind(id, f.backend)
	require.NoError(t, err)
	old, err := f.bridge.Acquire(b)
	require.NoError(t, err)

	next := f.configure(t, native.id, 1024, 768)
	require.NoError(t, f.bridge.Present(old, next))
	assert.Empty(t, f.backend.chains[0].presented)
	assert.Equal(t, event.TokenLive, next.State())
	assert.Zero(t, native.frames)

	b, err = f.bridge.Bind(id, nil)
	require.NoError(t, err)
	h, err := f.bridge.Acquire(b)
	require.NoError(t, err)
	require.NoError(t, f.bridge.Present(h, next))
	assert.Len(t, f.backend.chains[1].presented, 1)
	assert.Equal(t, 1, native.frames)
	assert.Equal(t, event.TokenConsumed, next.State())
}

func TestClosedAfterInflightResolves(t *testing.T) {
	f := newFixture()
	id, native := f.create(t)
	tok := f.configure(t, native.id, 100, 100)

	b, err := f.bridge.Bind(id, f.backend)
	require.NoError(t, err)
	h, err := f.bridge.Acquire(b)
	require.NoError(t, err)

	require.NoError(t, f.router.RequestClose(id))
	assert.Equal(t, []event.Event{event.Closing{Surface: id}}, f.router.Drain())
	s, err := f.reg.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, surface.Closing, s.State)

	require.NoError(t, f.bridge.Present(h, tok))
	assert.Empty(t, f.backend.chains[0].presented)
	assert.Equal(t, []event.Event{event.Closed{Surface: id}}, f.router.Drain())

	_, err = f.reg.Lookup(id)
	assert.ErrorIs(t, err, surface.ErrInvalidSurface)
	_, ok := f.bridge.Binding(id)
	assert.False(t, ok)
	assert.True(t, f.backend.chains[0].destroyed)

	_, err = f.bridge.Acquire(b)
	assert.ErrorIs(t, err, surface.ErrInvalidSurface)
}

func TestReleaseWithInflight(t *testing.T) {
	f := newFixture()
	id, native := f.create(t)
	tok := f.configure(t, native.id, 100, 100)

	b, err := f.bridge.Bind(id, f.backend)
	require.NoError(t, err)
	h, err := f.bridge.Acquire(b)
	require.NoError(t, err)

	f.router.Shutdown()
	assert.Equal(t, []event.Event{event.Closed{Surface: id}}, f.router.Drain())
	assert.True(t, f.backend.chains[0].destroyed)

	require.NoError(t, f.bridge.Present(h, tok))
	assert.Empty(t, f.backend.chains[0].presented)
	assert.Empty(t, f.backend.chains[0].discarded)
}
