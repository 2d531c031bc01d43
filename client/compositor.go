package wl

import (
	"image"

	"deedles.dev/kyo/wire"
)

type compositor struct {
	object
}

func newCompositor(c *Client, version uint32) *compositor {
	return &compositor{object: newObject(c, "wl_compositor", version)}
}

func (comp *compositor) Dispatch(msg *wire.MessageBuffer) error {
	return comp.unknownOp(msg)
}

func (comp *compositor) createSurface() *surface {
	s := surface{
		object:  newObject(comp.client, "wl_surface", comp.version),
		outputs: make(map[uint32]struct{}),
	}
	comp.client.objects.Add(&s)
	comp.send(compositorCreateSurface, &s)
	return &s
}

// surface is a wl_surface.
type surface struct {
	object
	outputs map[uint32]struct{}
}

// attach sets buf as the pending content. A nil buf removes the
// content.
func (s *surface) attach(buf *Buffer) {
	if buf == nil {
		s.send(surfaceAttach, nil, int32(0), int32(0))
		return
	}
	s.send(surfaceAttach, buf, int32(0), int32(0))
}

// damage marks r, in buffer coordinates, as changed. Before version 4
// the region is given in surface coordinates instead.
func (s *surface) damage(r image.Rectangle) {
	op := surfaceDamageBuffer
	if s.version < 4 {
		op = surfaceDamage
	}
	s.send(op, int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()))
}

func (s *surface) frame(cb *callback) {
	s.send(surfaceFrame, cb)
}

func (s *surface) setBufferScale(scale int) {
	s.send(surfaceSetBufferScale, int32(scale))
}

func (s *surface) commit() {
	s.send(surfaceCommit)
}

func (s *surface) Dispatch(msg *wire.MessageBuffer) error {
	switch s.event(msg.Op()) {
	case "enter", "leave":
		id := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}

		out, ok := s.client.objects.Get(id).(*output)
		if !ok {
			// The output may have been removed in the meantime.
			return nil
		}
		if s.event(msg.Op()) == "enter" {
			s.outputs[out.name] = struct{}{}
			s.client.emit(SurfaceEnter{Surface: s.id, Output: out.name})
			return nil
		}
		delete(s.outputs, out.name)
		s.client.emit(SurfaceLeave{Surface: s.id, Output: out.name})

	case "preferred_buffer_scale":
		factor := msg.ReadInt()
		if err := msg.Err(); err != nil {
			return err
		}
		s.client.emit(PreferredScale{Surface: s.id, Scale: int(factor)})

	case "preferred_buffer_transform":
		msg.ReadUint()
		return msg.Err()

	default:
		return s.unknownOp(msg)
	}
	return nil
}
