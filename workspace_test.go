package kyo

import (
	"context"
	"errors"
	"testing"
	"time"

	wl "deedles.dev/kyo/client"
	"deedles.dev/kyo/config"
	"deedles.dev/kyo/event"
	"deedles.dev/kyo/internal/wltest"
	"deedles.dev/kyo/present"
	"deedles.dev/kyo/surface"
	"deedles.dev/ximage/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"
)

type recorder struct {
	events []event.Event
}

func (r *recorder) Handle(w *Workspace, ev event.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) take() []event.Event {
	events := r.events
	r.events = nil
	return events
}

func find[T event.Event](events []event.Event) (found []T) {
	for _, ev := range events {
		if ev, ok := ev.(T); ok {
			found = append(found, ev)
		}
	}
	return found
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DispatchTimeout = 10 * time.Millisecond
	return cfg
}

func setup(t *testing.T, cfg config.Config) (*wltest.Server, *Workspace) {
	t.Helper()

	server := wltest.New(t)
	c, err := wl.NewClient(server.ClientConn())
	require.NoError(t, err)

	w := New(c, cfg)
	t.Cleanup(func() { w.Close() })
	return server, w
}

// step waits for the compositor to handle everything sent so far and
// then polls once.
func step(t *testing.T, w *Workspace, h Handler) {
	t.Helper()

	require.NoError(t, w.Client().RoundTrip(time.Second))
	require.NoError(t, w.Poll(h))
}

func native(t *testing.T, w *Workspace, id surface.ID) uint32 {
	t.Helper()

	s, err := w.Surface(id)
	require.NoError(t, err)
	return s.Native.ID()
}

func TestCreateSurfaceDefaults(t *testing.T) {
	server, w := setup(t, testConfig())
	var rec recorder

	id, err := w.CreateSurface(surface.Spec{})
	require.NoError(t, err)
	step(t, w, &rec)

	surf, ok := server.Surface(native(t, w, id))
	require.True(t, ok)
	assert.Equal(t, "kyo", surf.Title)
	assert.Equal(t, "kyo", surf.AppID)

	modes := server.Requested("zxdg_toplevel_decoration_v1", "set_mode")
	require.Len(t, modes, 1)
	assert.Equal(t, uint32(wl.DecorationServer), modes[0].Args[0])

	require.Len(t, w.Surfaces(), 1)
	assert.Equal(t, surface.Pending, w.Surfaces()[0].State)
}

func TestResize(t *testing.T) {
	server, w := setup(t, testConfig())
	var rec recorder

	id, err := w.CreateSurface(surface.Spec{Title: "resize"})
	require.NoError(t, err)
	step(t, w, &rec)
	nid := native(t, w, id)

	_, err = server.Configure(nid, 800, 600)
	require.NoError(t, err)
	step(t, w, &rec)

	events := rec.take()
	configures := find[event.Configure](events)
	require.Len(t, configures, 1)
	assert.True(t, configures[0].First)
	assert.Equal(t, geom.Pt(800, 600), configures[0].Size)
	frames := find[event.Frame](events)
	require.Len(t, frames, 1)
	tok := frames[0].Token

	b, err := w.Bind(id)
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(800, 600), b.Extent())
	h, err := w.Acquire(b)
	require.NoError(t, err)
	h.Image().Set(0, 0, colornames.Red)
	require.NoError(t, w.Present(h, tok))
	step(t, w, &rec)

	surf, _ := server.Surface(nid)
	assert.NotZero(t, surf.Buffer)
	assert.Equal(t, 1, server.PendingFrames(nid))

	_, err = server.Configure(nid, 1024, 768)
	require.NoError(t, err)
	step(t, w, &rec)

	events = rec.take()
	configures = find[event.Configure](events)
	require.Len(t, configures, 1)
	assert.False(t, configures[0].First)
	assert.Equal(t, geom.Pt(1024, 768), configures[0].Size)
	frames = find[event.Frame](events)
	require.Len(t, frames, 1)
	assert.False(t, tok.Live())
	tok = frames[0].Token
	assert.Equal(t, uint64(2), tok.Generation())

	_, err = w.Acquire(b)
	assert.ErrorIs(t, err, present.ErrSurfaceOutOfDate)

	b, err = w.Bind(id)
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(1024, 768), b.Extent())
	h, err = w.Acquire(b)
	require.NoError(t, err)
	require.NoError(t, w.Present(h, tok))
	step(t, w, &rec)

	assert.Equal(t, 1, server.Frame(nid, 100))
	step(t, w, &rec)
	frames = find[event.Frame](rec.take())
	require.Len(t, frames, 1)
	assert.Equal(t, uint32(100), frames[0].Time)
	assert.True(t, frames[0].Token.Live())
}

func TestConnectionLost(t *testing.T) {
	server, w := setup(t, testConfig())
	var rec recorder

	a, err := w.CreateSurface(surface.Spec{})
	require.NoError(t, err)
	b, err := w.CreateSurface(surface.Spec{})
	require.NoError(t, err)
	step(t, w, &rec)
	_, err = server.Configure(native(t, w, a), 100, 100)
	require.NoError(t, err)
	step(t, w, &rec)
	rec.take()

	server.Disconnect()
	for range 100 {
		err = w.Poll(&rec)
		if err != nil {
			break
		}
	}
	require.ErrorIs(t, err, wl.ErrConnectionLost)

	assert.Equal(t, []event.Event{
		event.Closed{Surface: a},
		event.Closed{Surface: b},
	}, rec.take())
	assert.Empty(t, w.Surfaces())

	assert.Same(t, w.Err(), err)
	assert.Same(t, err, w.Poll(&rec))
	assert.Empty(t, rec.take())
	_, err = w.CreateSurface(surface.Spec{})
	assert.ErrorIs(t, err, wl.ErrConnectionLost)
}

func TestCompositorClose(t *testing.T) {
	server, w := setup(t, testConfig())
	var rec recorder

	id, err := w.CreateSurface(surface.Spec{})
	require.NoError(t, err)
	step(t, w, &rec)
	nid := native(t, w, id)
	_, err = server.Configure(nid, 100, 100)
	require.NoError(t, err)
	step(t, w, &rec)
	rec.take()

	require.NoError(t, server.Close(nid))
	step(t, w, &rec)
	assert.Equal(t, []event.Event{event.Closed{Surface: id}}, rec.take())

	step(t, w, &rec)
	_, ok := server.Surface(nid)
	assert.False(t, ok)
}

func TestCloseWaitsForFrames(t *testing.T) {
	server, w := setup(t, testConfig())
	var rec recorder

	id, err := w.CreateSurface(surface.Spec{})
	require.NoError(t, err)
	step(t, w, &rec)
	_, err = server.Configure(native(t, w, id), 100, 100)
	require.NoError(t, err)
	step(t, w, &rec)
	tok := find[event.Frame](rec.take())[0].Token

	b, err := w.Bind(id)
	require.NoError(t, err)
	h, err := w.Acquire(b)
	require.NoError(t, err)

	require.NoError(t, w.PostClose(id))
	step(t, w, &rec)
	assert.Equal(t, []event.Event{event.Closing{Surface: id}}, rec.take())

	require.NoError(t, w.Present(h, tok))
	step(t, w, &rec)
	assert.Equal(t, []event.Event{event.Closed{Surface: id}}, rec.take())
}

func TestPostCloseQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.CloseQueue = 1
	_, w := setup(t, cfg)

	require.NoError(t, w.PostClose(1))
	assert.ErrorIs(t, w.PostClose(2), ErrCloseQueueFull)

	var rec recorder
	require.NoError(t, w.Poll(&rec))
	assert.NoError(t, w.PostClose(3))
}

func TestRunExitsOnLastClose(t *testing.T) {
	server, w := setup(t, testConfig())

	id, err := w.CreateSurface(surface.Spec{})
	require.NoError(t, err)
	require.NoError(t, w.Client().RoundTrip(time.Second))
	_, err = server.Configure(native(t, w, id), 100, 100)
	require.NoError(t, err)

	var closed bool
	err = w.Run(context.Background(), HandlerFunc(func(w *Workspace, ev event.Event) error {
		switch ev := ev.(type) {
		case event.Configure:
			return w.PostClose(ev.Surface)
		case event.Frame:
			if ev.Token != nil {
				ev.Token.Revoke()
			}
		case event.Closed:
			closed = true
		}
		return nil
	}))
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestRunStops(t *testing.T) {
	_, w := setup(t, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx, HandlerFunc(func(*Workspace, event.Event) error { return nil })))

	id, err := w.CreateSurface(surface.Spec{})
	require.NoError(t, err)
	require.NoError(t, w.RequestClose(id))

	stop := errors.New("stop")
	err = w.Run(context.Background(), HandlerFunc(func(*Workspace, event.Event) error { return stop }))
	assert.ErrorIs(t, err, stop)
}
