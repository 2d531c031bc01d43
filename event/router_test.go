package event

import (
	"testing"

	wl "deedles.dev/kyo/client"
	"deedles.dev/kyo/handle"
	"deedles.dev/kyo/surface"
	"deedles.dev/ximage/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNative struct {
	id        uint32
	acked     []uint32
	scale     int
	destroyed bool
}

func (n *fakeNative) ID() uint32                 { return n.id }
func (n *fakeNative) AckConfigure(serial uint32) { n.acked = append(n.acked, serial) }
func (n *fakeNative) SetBufferScale(scale int)   { n.scale = scale }
func (n *fakeNative) RequestFrame()              {}
func (n *fakeNative) Destroy() { n.destroyed = true }

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
	return &fakeNative{id: s.next + 10}, nil
}

type fakePresenter struct {
	generations map[surface.ID]uint64
	inflight    map[surface.ID]int
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{
		generations: make(map[surface.ID]uint64),
		inflight:    make(map[surface.ID]int),
	}
}

func (p *fakePresenter) Generation(id surface.ID) uint64 {
	return p.generations[id] + 1
}

func (p *fakePresenter) Inflight(id surface.ID) int {
	return p.inflight[id]
}

func (p *fakePresenter) Invalidate(id surface.ID) {
	p.generations[id]++
}

type fixture struct {
	reg       *surface.Registry
	presenter *fakePresenter
	router    *Router
}

func newFixture(t *testing.T) *fixture {
	reg := surface.NewRegistry(&fakeShell{})
	presenter := newFakePresenter()
	return &fixture{
		reg:       reg,
		presenter: presenter,
		router:    NewRouter(reg, presenter, geom.Pt(640, 480)),
	}
}

func (f *fixture) create(t *testing.T) (surface.ID, uint32) {
	id, err := f.reg.Create(surface.Spec{})
	require.NoError(t, err)
	s, err := f.reg.Lookup(id)
	require.NoError(t, err)
	return id, s.Native.ID()
}

func (f *fixture) configure(native uint32, w, h int, serial uint32) []Event {
	f.router.Route(wl.ConfigureSize{Surface: native, Size: geom.Pt(w, h)})
	f.router.Route(wl.ConfigureDone{Surface: native, Serial: serial})
	return f.router.Drain()
}

func TestFirstConfigure(t *testing.T) {
	f := newFixture(t)
	id, native := f.create(t)

	events := f.configure(native, 800, 600, 3)
	require.Len(t, events, 2)

	conf, ok := events[0].(Configure)
	require.True(t, ok)
	assert.Equal(t, Configure{Surface: id, Size: geom.Pt(800, 600), Scale: 1, First: true}, conf)

	frame, ok := events[1].(Frame)
	require.True(t, ok)
	require.NotNil(t, frame.Token)
	assert.True(t, frame.Token.Live())
	assert.Equal(t, id, frame.Token.Surface())
	assert.Equal(t, uint64(1), frame.Token.Generation())

	s, _ := f.reg.Lookup(id)
	assert.Equal(t, surface.Configured, s.State)
	assert.Equal(t, []uint32{3}, s.Native.(*fakeNative).acked)
}

func TestConfigureDefaultSize(t *testing.T) {
	f := newFixture(t)
	_, native := f.create(t)

	events := f.configure(native, 0, 0, 1)
	require.NotEmpty(t, events)
	assert.Equal(t, geom.Pt(640, 480), events[0].(Configure).Size)

	events = f.configure(native, 1000, 0, 2)
	require.NotEmpty(t, events)
	assert.Equal(t, geom.Pt(1000, 480), events[0].(Configure).Size)

	events = f.configure(native, 0, 0, 3)
	assert.Empty(t, events)
}

func TestResize(t *testing.T) {
	f := newFixture(t)
	id, native := f.create(t)

	events := f.configure(native, 800, 600, 1)
	first := events[1].(Frame).Token

	events = f.configure(native, 1024, 768, 2)
	require.Len(t, events, 2)
	conf := events[0].(Configure)
	assert.False(t, conf.First)
	assert.Equal(t, geom.Pt(1024, 768), conf.PixelSize())

	tok := events[1].(Frame).Token
	assert.Equal(t, uint64(2), tok.Generation())
	assert.Equal(t, TokenRevoked, first.State())
	assert.True(t, tok.Live())
	assert.Equal(t, uint64(2), f.presenter.Generation(id))
}

func TestFrameDone(t *testing.T) {
	f := newFixture(t)
	id, native := f.create(t)

	f.router.Route(wl.FrameDone{Surface: native, Time: 5})
	assert.Empty(t, f.router.Drain())

	f.configure(native, 100, 100, 1)
	f.router.Route(wl.FrameDone{Surface: native, Time: 16})
	events := f.router.Drain()
	require.Len(t, events, 1)
	frame := events[0].(Frame)
	assert.Equal(t, id, frame.Surface)
	assert.Equal(t, uint32(16), frame.Time)
	assert.True(t, frame.Token.Live())

	f.router.Route(wl.FrameDone{Surface: 999})
	assert.Empty(t, f.router.Drain())
}

func TestRescale(t *testing.T) {
	f := newFixture(t)
	id, native := f.create(t)

	f.router.Route(wl.OutputDone{Output: wl.OutputInfo{Name: 7, Scale: 2}})
	events := f.router.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, surface.OutputID(7), events[0].(OutputChanged).Output.ID)

	// Pending surfaces pick the scale up when they are configured.
	f.router.Route(wl.SurfaceEnter{Surface: native, Output: 7})
	assert.Empty(t, f.router.Drain())

	events = f.configure(native, 100, 50, 1)
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[0].(Configure).Scale)

	f.router.Route(wl.PreferredScale{Surface: native, Scale: 3})
	events = f.router.Drain()
	require.Len(t, events, 2)
	conf := events[0].(Configure)
	assert.Equal(t, 3, conf.Scale)
	assert.Equal(t, geom.Pt(300, 150), conf.PixelSize())

	s, _ := f.reg.Lookup(id)
	assert.Equal(t, 3, s.Native.(*fakeNative).scale)

	f.router.Route(wl.PreferredScale{Surface: native, Scale: 3})
	assert.Empty(t, f.router.Drain())
}

func TestOutputRemoved(t *testing.T) {
	f := newFixture(t)
	_, native := f.create(t)

	f.router.Route(wl.OutputDone{Output: wl.OutputInfo{Name: 7, Scale: 2}})
	f.router.Route(wl.SurfaceEnter{Surface: native, Output: 7})
	f.configure(native, 100, 50, 1)
	f.router.Drain()

	f.router.Route(wl.OutputRemoved{Output: 7})
	events := f.router.Drain()
	require.Len(t, events, 3)
	assert.Equal(t, OutputRemoved{Output: 7}, events[0])
	assert.Equal(t, 1, events[1].(Configure).Scale)
}

func TestCloseWaitsForInflight(t *testing.T) {
	f := newFixture(t)
	id, native := f.create(t)

	events := f.configure(native, 800, 600, 1)
	tok := events[1].(Frame).Token
	f.presenter.inflight[id] = 1

	f.router.Route(wl.CloseRequest{Surface: native})
	events = f.router.Drain()
	assert.Equal(t, []Event{Closing{Surface: id}}, events)
	assert.Equal(t, TokenRevoked, tok.State())

	s, err := f.reg.Lookup(id)
	require.NoError(t, err)
	assert.Equal(t, surface.Closing, s.State)

	f.router.Route(wl.FrameDone{Surface: native, Time: 1})
	events = f.router.Drain()
	require.Len(t, events, 1)
	assert.Nil(t, events[0].(Frame).Token)

	assert.Empty(t, f.configure(native, 10, 10, 2))
	assert.NoError(t, f.router.RequestClose(id))
	assert.Empty(t, f.router.Drain())

	f.presenter.inflight[id] = 0
	f.router.Settle(id)
	assert.Equal(t, []Event{Closed{Surface: id}}, f.router.Drain())

	_, err = f.reg.Lookup(id)
	assert.ErrorIs(t, err, surface.ErrInvalidSurface)
	assert.True(t, s.Native.(*fakeNative).destroyed)
	assert.ErrorIs(t, f.router.RequestClose(id), surface.ErrInvalidSurface)
}

func TestClosePending(t *testing.T) {
	f := newFixture(t)
	id, _ := f.create(t)

	require.NoError(t, f.router.RequestClose(id))
	assert.Equal(t, []Event{Closed{Surface: id}}, f.router.Drain())
}

func TestClosePurgesEvents(t *testing.T) {
	f := newFixture(t)
	id, native := f.create(t)
	other, otherNative := f.create(t)

	f.router.Route(wl.ConfigureSize{Surface: native, Size: geom.Pt(10, 10)})
	f.router.Route(wl.ConfigureDone{Surface: native, Serial: 1})
	f.router.Route(wl.ConfigureSize{Surface: otherNative, Size: geom.Pt(10, 10)})
	f.router.Route(wl.ConfigureDone{Surface: otherNative, Serial: 2})
	f.router.Route(wl.CloseRequest{Surface: native})

	events := f.router.Drain()
	require.Len(t, events, 3)
	for _, ev := range events[:2] {
		sid, _ := SurfaceOf(ev)
		assert.Equal(t, other, sid)
	}
	assert.Equal(t, Closed{Surface: id}, events[2])
}

func TestShutdown(t *testing.T) {
	f := newFixture(t)
	a, native := f.create(t)
	b, _ := f.create(t)

	events := f.configure(native, 10, 10, 1)
	tok := events[1].(Frame).Token
	f.router.Route(wl.FrameDone{Surface: native})

	f.router.Shutdown()
	assert.Equal(t, []Event{Closed{Surface: a}, Closed{Surface: b}}, f.router.Drain())
	assert.Equal(t, TokenRevoked, tok.State())
	assert.Zero(t, f.reg.Len())
}

func TestInput(t *testing.T) {
	f := newFixture(t)
	id, native := f.create(t)

	f.router.Route(wl.PointerEnter{Surface: native, Pos: geom.Pt(1.5, 2.0)})
	f.router.Route(wl.PointerMotion{Surface: native, Pos: geom.Pt(3.0, 4.0)})
	f.router.Route(wl.PointerButton{Surface: native, Button: uint32(ButtonLeft), Pressed: true})
	f.router.Route(wl.PointerButton{Surface: native, Button: uint32(ButtonLeft)})
	f.router.Route(wl.PointerAxis{Surface: native, Axis: wl.AxisHorizontal, Value: -10})
	f.router.Route(wl.Modifiers{Surface: native, Depressed: modCtrl | modShift, Locked: modLock})
	f.router.Route(wl.Key{Surface: native, Key: 30, Pressed: true})
	f.router.Route(wl.PointerLeave{Surface: native})

	mods := Modifiers{Ctrl: true, Shift: true, CapsLock: true}
	assert.Equal(t, []Event{
		PointerEntered{Surface: id, Pos: geom.Pt(1.5, 2.0)},
		PointerMoved{Surface: id, Pos: geom.Pt(3.0, 4.0)},
		PointerPressed{Surface: id, Button: ButtonLeft, Pos: geom.Pt(3.0, 4.0)},
		PointerReleased{Surface: id, Button: ButtonLeft, Pos: geom.Pt(3.0, 4.0)},
		PointerScrolled{Surface: id, Delta: geom.Pt(-10.0, 0)},
		ModifiersChanged{Surface: id, Modifiers: mods},
		KeyPressed{Surface: id, Key: 30, Modifiers: mods},
		PointerLeft{Surface: id},
	}, f.router.Drain())
	assert.Equal(t, "ctrl+shift+capslock", mods.String())

	f.presenter.inflight[id] = 1
	require.NoError(t, f.router.RequestClose(id))
	f.router.Drain()
	f.router.Route(wl.Key{Surface: native, Key: 30})
	assert.Empty(t, f.router.Drain())
}

func TestDecorationChanged(t *testing.T) {
	f := newFixture(t)
	id, native := f.create(t)

	f.router.Route(wl.DecorationConfigure{Surface: native, Mode: wl.DecorationServer})
	f.router.Route(wl.DecorationConfigure{Surface: native, Mode: wl.DecorationServer})
	assert.Equal(t, []Event{DecorationChanged{Surface: id, Mode: wl.DecorationServer}}, f.router.Drain())
}
