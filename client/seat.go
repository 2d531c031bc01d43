package wl

import (
	"deedles.dev/kyo/internal/bin"
	"deedles.dev/kyo/wire"
	"deedles.dev/ximage/geom"
)

type seat struct {
	object
	name     string
	caps     SeatCapability
	pointer  *pointer
	keyboard *keyboard
}

func newSeat(c *Client, version uint32) *seat {
	return &seat{object: newObject(c, "wl_seat", version)}
}

func (s *seat) Dispatch(msg *wire.MessageBuffer) error {
	switch s.event(msg.Op()) {
	case "capabilities":
		caps := SeatCapability(msg.ReadUint())
		if err := msg.Err(); err != nil {
			return err
		}
		s.setCapabilities(caps)

	case "name":
		name := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		s.name = name

	default:
		return s.unknownOp(msg)
	}
	return nil
}

func (s *seat) setCapabilities(caps SeatCapability) {
	s.caps = caps

	switch {
	case caps.Has(SeatCapabilityPointer) && s.pointer == nil:
		s.pointer = &pointer{object: newObject(s.client, "wl_pointer", s.version)}
		s.client.objects.Add(s.pointer)
		s.send(seatGetPointer, s.pointer)
	case !caps.Has(SeatCapabilityPointer) && s.pointer != nil:
		s.pointer.release()
		s.pointer = nil
	}

	switch {
	case caps.Has(SeatCapabilityKeyboard) && s.keyboard == nil:
		s.keyboard = &keyboard{object: newObject(s.client, "wl_keyboard", s.version)}
		s.client.objects.Add(s.keyboard)
		s.send(seatGetKeyboard, s.keyboard)
	case !caps.Has(SeatCapabilityKeyboard) && s.keyboard != nil:
		s.keyboard.release()
		s.keyboard = nil
	}
}

func (s *seat) release() {
	if s.pointer != nil {
		s.pointer.release()
	}
	if s.keyboard != nil {
		s.keyboard.release()
	}
	if s.version >= 5 {
		s.destroy(seatRelease)
	}
}

type pointer struct {
	object
	focus uint32
}

func (p *pointer) release() {
	if p.version >= 3 {
		p.destroy(pointerRelease)
	}
}

func (p *pointer) Dispatch(msg *wire.MessageBuffer) error {
	switch p.event(msg.Op()) {
	case "enter":
		serial := msg.ReadUint()
		surface := msg.ReadObject()
		x, y := msg.ReadFixed(), msg.ReadFixed()
		if err := msg.Err(); err != nil {
			return err
		}
		p.focus = surface
		p.client.emit(PointerEnter{Surface: surface, Serial: serial, Pos: geom.Pt(x.Float(), y.Float())})

	case "leave":
		serial := msg.ReadUint()
		surface := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		p.focus = 0
		p.client.emit(PointerLeave{Surface: surface, Serial: serial})

	case "motion":
		time := msg.ReadUint()
		x, y := msg.ReadFixed(), msg.ReadFixed()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.focus != 0 {
			p.client.emit(PointerMotion{Surface: p.focus, Time: time, Pos: geom.Pt(x.Float(), y.Float())})
		}

	case "button":
		serial := msg.ReadUint()
		time := msg.ReadUint()
		button := msg.ReadUint()
		state := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.focus != 0 {
			p.client.emit(PointerButton{Surface: p.focus, Serial: serial, Time: time, Button: button, Pressed: state == 1})
		}

	case "axis":
		time := msg.ReadUint()
		axis := Axis(msg.ReadUint())
		value := msg.ReadFixed()
		if err := msg.Err(); err != nil {
			return err
		}
		if p.focus != 0 {
			p.client.emit(PointerAxis{Surface: p.focus, Time: time, Axis: axis, Value: value.Float()})
		}

	case "frame":
	case "axis_source", "axis_stop", "axis_discrete":
		// Extra axis detail is not reported.
		msg.Discard()

	default:
		return p.unknownOp(msg)
	}
	return nil
}

type keyboard struct {
	object
	focus uint32
}

func (kb *keyboard) release() {
	if kb.version >= 3 {
		kb.destroy(keyboardRelease)
	}
}

func (kb *keyboard) Dispatch(msg *wire.MessageBuffer) error {
	switch kb.event(msg.Op()) {
	case "keymap":
		msg.ReadUint()
		file := msg.ReadFile()
		msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		// Keymaps are not interpreted.
		file.Close()

	case "enter":
		serial := msg.ReadUint()
		surface := msg.ReadObject()
		keys := msg.ReadArray()
		if err := msg.Err(); err != nil {
			return err
		}
		kb.focus = surface
		kb.client.emit(KeyboardEnter{Surface: surface, Serial: serial, Keys: bin.Words[uint32](keys)})

	case "leave":
		serial := msg.ReadUint()
		surface := msg.ReadObject()
		if err := msg.Err(); err != nil {
			return err
		}
		kb.focus = 0
		kb.client.emit(KeyboardLeave{Surface: surface, Serial: serial})

	case "key":
		serial := msg.ReadUint()
		time := msg.ReadUint()
		key := msg.ReadUint()
		state := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if kb.focus != 0 {
			kb.client.emit(Key{Surface: kb.focus, Serial: serial, Time: time, Key: key, Pressed: state == 1})
		}

	case "modifiers":
		serial := msg.ReadUint()
		depressed := msg.ReadUint()
		latched := msg.ReadUint()
		locked := msg.ReadUint()
		group := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		kb.client.emit(Modifiers{
			Surface:   kb.focus,
			Serial:    serial,
			Depressed: depressed,
			Latched:   latched,
			Locked:    locked,
			Group:     group,
		})

	case "repeat_info":
		msg.ReadInt()
		msg.ReadInt()
		return msg.Err()

	default:
		return kb.unknownOp(msg)
	}
	return nil
}
