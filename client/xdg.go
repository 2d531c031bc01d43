package wl

import (
	"deedles.dev/kyo/internal/bin"
	"deedles.dev/kyo/wire"
	"deedles.dev/ximage/geom"
)

type wmBase struct {
	object
}

func newWMBase(c *Client, version uint32) *wmBase {
	return &wmBase{object: newObject(c, "xdg_wm_base", version)}
}

func (wm *wmBase) Dispatch(msg *wire.MessageBuffer) error {
	switch wm.event(msg.Op()) {
	case "ping":
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		wm.send(wmBasePong, serial)

	default:
		return wm.unknownOp(msg)
	}
	return nil
}

func (wm *wmBase) getXDGSurface(s *surface) *xdgSurface {
	xs := xdgSurface{
		object:  newObject(wm.client, "xdg_surface", wm.version),
		surface: s.id,
	}
	wm.client.objects.Add(&xs)
	wm.send(wmBaseGetXDGSurface, &xs, s)
	return &xs
}

type xdgSurface struct {
	object
	surface uint32
}

func (xs *xdgSurface) Dispatch(msg *wire.MessageBuffer) error {
	switch xs.event(msg.Op()) {
	case "configure":
		serial := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		xs.client.emit(ConfigureDone{Surface: xs.surface, Serial: serial})

	default:
		return xs.unknownOp(msg)
	}
	return nil
}

func (xs *xdgSurface) getToplevel() *xdgToplevel {
	top := xdgToplevel{
		object:  newObject(xs.client, "xdg_toplevel", xs.version),
		surface: xs.surface,
	}
	xs.client.objects.Add(&top)
	xs.send(xdgSurfaceGetToplevel, &top)
	return &top
}

type xdgToplevel struct {
	object
	surface uint32
}

func (top *xdgToplevel) Dispatch(msg *wire.MessageBuffer) error {
	switch top.event(msg.Op()) {
	case "configure":
		w, h := msg.ReadInt(), msg.ReadInt()
		states := msg.ReadArray()
		if err := msg.Err(); err != nil {
			return err
		}

		ev := ConfigureSize{
			Surface: top.surface,
			Size:    geom.Pt(int(w), int(h)),
		}
		for _, state := range bin.Words[uint32](states) {
			ev.States = append(ev.States, ToplevelState(state))
		}
		top.client.emit(ev)

	case "close":
		top.client.emit(CloseRequest{Surface: top.surface})

	case "configure_bounds":
		msg.ReadInt()
		msg.ReadInt()
		return msg.Err()

	case "wm_capabilities":
		msg.ReadArray()
		return msg.Err()

	default:
		return top.unknownOp(msg)
	}
	return nil
}

func (top *xdgToplevel) setTitle(title string) {
	top.send(toplevelSetTitle, title)
}

func (top *xdgToplevel) setAppID(id string) {
	top.send(toplevelSetAppID, id)
}

func (top *xdgToplevel) setMinSize(size geom.Point[int]) {
	top.send(toplevelSetMinSize, int32(size.X), int32(size.Y))
}

func (top *xdgToplevel) setMaxSize(size geom.Point[int]) {
	top.send(toplevelSetMaxSize, int32(size.X), int32(size.Y))
}

type decorationManager struct {
	object
}

func newDecorationManager(c *Client, version uint32) *decorationManager {
	return &decorationManager{object: newObject(c, "zxdg_decoration_manager_v1", version)}
}

func (m *decorationManager) Dispatch(msg *wire.MessageBuffer) error {
	return m.unknownOp(msg)
}

func (m *decorationManager) getToplevelDecoration(top *xdgToplevel) *toplevelDecoration {
	deco := toplevelDecoration{
		object:  newObject(m.client, "zxdg_toplevel_decoration_v1", m.version),
		surface: top.surface,
	}
	m.client.objects.Add(&deco)
	m.send(decorationManagerGetToplevelDecoration, &deco, top)
	return &deco
}

type toplevelDecoration struct {
	object
	surface uint32
}

func (deco *toplevelDecoration) Dispatch(msg *wire.MessageBuffer) error {
	switch deco.event(msg.Op()) {
	case "configure":
		mode := DecorationMode(msg.ReadUint())
		if err := msg.Err(); err != nil {
			return err
		}
		deco.client.emit(DecorationConfigure{Surface: deco.surface, Mode: mode})

	default:
		return deco.unknownOp(msg)
	}
	return nil
}

func (deco *toplevelDecoration) setMode(mode DecorationMode) {
	deco.send(decorationSetMode, uint32(mode))
}
