package wl

import (
	"deedles.dev/kyo/wire"
	"deedles.dev/ximage/geom"
)

type layerShell struct {
	object
}

func newLayerShell(c *Client, version uint32) *layerShell {
	return &layerShell{object: newObject(c, "zwlr_layer_shell_v1", version)}
}

func (ls *layerShell) Dispatch(msg *wire.MessageBuffer) error {
	return ls.unknownOp(msg)
}

func (ls *layerShell) getLayerSurface(s *surface, out *output, layer Layer, namespace string) *layerSurface {
	lsurf := layerSurface{
		object:  newObject(ls.client, "zwlr_layer_surface_v1", ls.version),
		surface: s.id,
	}
	ls.client.objects.Add(&lsurf)

	var outArg any
	if out != nil {
		outArg = out
	}
	ls.send(layerShellGetLayerSurface, &lsurf, s, outArg, uint32(layer), namespace)
	return &lsurf
}

type layerSurface struct {
	object
	surface uint32
}

func (lsurf *layerSurface) Dispatch(msg *wire.MessageBuffer) error {
	switch lsurf.event(msg.Op()) {
	case "configure":
		serial := msg.ReadUint()
		w, h := msg.ReadUint(), msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		lsurf.client.emit(ConfigureSize{Surface: lsurf.surface, Size: geom.Pt(int(w), int(h))})
		lsurf.client.emit(ConfigureDone{Surface: lsurf.surface, Serial: serial})

	case "closed":
		lsurf.client.emit(CloseRequest{Surface: lsurf.surface})

	default:
		return lsurf.unknownOp(msg)
	}
	return nil
}

func (lsurf *layerSurface) configure(opts *LayerOptions) {
	lsurf.send(layerSurfaceSetSize, uint32(opts.Size.X), uint32(opts.Size.Y))
	lsurf.send(layerSurfaceSetAnchor, uint32(opts.Anchor))
	lsurf.send(layerSurfaceSetExclusiveZone, int32(opts.ExclusiveZone))
	m := opts.Margin
	lsurf.send(layerSurfaceSetMargin, int32(m.Top), int32(m.Right), int32(m.Bottom), int32(m.Left))
	ki := opts.KeyboardInteractivity
	if ki == KeyboardInteractivityOnDemand && lsurf.version < 4 {
		ki = KeyboardInteractivityExclusive
	}
	lsurf.send(layerSurfaceSetKeyboardInteractivity, uint32(ki))
}
