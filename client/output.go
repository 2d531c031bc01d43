package wl

import (
	"deedles.dev/kyo/wire"
	"deedles.dev/ximage/geom"
)

// OutputInfo describes an output as last reported by the compositor.
type OutputInfo struct {
	// Name is the name of the output's global.
	Name uint32

	// Bounds is the area of the compositor's global space covered by
	// the output, in pixels of the current mode.
	Bounds geom.Rect[int]

	// PhysicalSize is in millimeters.
	PhysicalSize geom.Point[int]

	Scale int

	// Refresh is the refresh rate of the current mode in mHz.
	Refresh int

	Make        string
	Model       string
	Connector   string
	Description string
}

type output struct {
	object
	name    uint32
	info    OutputInfo
	pending OutputInfo
	ready   bool
}

func newOutput(c *Client, name uint32, version uint32) *output {
	return &output{
		object:  newObject(c, "wl_output", version),
		name:    name,
		pending: OutputInfo{Name: name, Scale: 1},
	}
}

func (out *output) Dispatch(msg *wire.MessageBuffer) error {
	switch out.event(msg.Op()) {
	case "geometry":
		x, y := msg.ReadInt(), msg.ReadInt()
		pw, ph := msg.ReadInt(), msg.ReadInt()
		msg.ReadInt()
		manufacturer := msg.ReadString()
		model := msg.ReadString()
		msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}

		size := out.pending.Bounds.Size()
		out.pending.Bounds = geom.Rt(int(x), int(y), int(x)+size.X, int(y)+size.Y)
		out.pending.PhysicalSize = geom.Pt(int(pw), int(ph))
		out.pending.Make = manufacturer
		out.pending.Model = model

	case "mode":
		flags := msg.ReadUint()
		w, h := msg.ReadInt(), msg.ReadInt()
		refresh := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}

		const current = 0x1
		if flags&current == 0 {
			return nil
		}
		origin := out.pending.Bounds.Min
		out.pending.Bounds = geom.Rt(origin.X, origin.Y, origin.X+int(w), origin.Y+int(h))
		out.pending.Refresh = int(refresh)

		// Before version 2 there is no done event.
		if out.version < 2 {
			out.done()
		}

	case "scale":
		factor := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		out.pending.Scale = max(int(factor), 1)

	case "name":
		name := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		out.pending.Connector = name

	case "description":
		desc := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		out.pending.Description = desc

	case "done":
		out.done()

	default:
		return out.unknownOp(msg)
	}
	return nil
}

func (out *output) done() {
	out.info = out.pending
	out.ready = true
	out.client.emit(OutputDone{Output: out.info})
}

func (out *output) release() {
	if out.version >= 3 {
		out.destroy(outputRelease)
		return
	}
	out.client.objects.Kill(out.id)
}
