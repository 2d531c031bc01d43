package event

import "strings"

// Button indicates a mouse button.
type Button uint32

// These values were pulled from linux/input-event-codes.h.
const (
	ButtonLeft Button = 0x110 + iota
	ButtonRight
	ButtonMiddle
	ButtonSide
	ButtonExtra
	ButtonForward
	ButtonBack
	ButtonTask
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	case ButtonSide:
		return "side"
	case ButtonExtra:
		return "extra"
	case ButtonForward:
		return "forward"
	case ButtonBack:
		return "back"
	case ButtonTask:
		return "task"
	}

	return "unknown"
}

// Modifiers is the set of active keyboard modifiers.
type Modifiers struct {
	Shift    bool
	CapsLock bool
	Ctrl     bool
	Alt      bool
	NumLock  bool
	Logo     bool
}

// Modifier indices of the default xkb keymap.
const (
	modShift = 1 << 0
	modLock  = 1 << 1
	modCtrl  = 1 << 2
	modAlt   = 1 << 3
	modNum   = 1 << 4
	modLogo  = 1 << 6
)

// ModifiersFromMask decodes an xkb modifier mask, assuming the default
// modifier layout.
func ModifiersFromMask(mask uint32) Modifiers {
	return Modifiers{
		Shift:    mask&modShift != 0,
		CapsLock: mask&modLock != 0,
		Ctrl:     mask&modCtrl != 0,
		Alt:      mask&modAlt != 0,
		NumLock:  mask&modNum != 0,
		Logo:     mask&modLogo != 0,
	}
}

func (m Modifiers) String() string {
	var names []string
	add := func(v bool, name string) {
		if v {
			names = append(names, name)
		}
	}
	add(m.Ctrl, "ctrl")
	add(m.Alt, "alt")
	add(m.Shift, "shift")
	add(m.Logo, "logo")
	add(m.CapsLock, "capslock")
	add(m.NumLock, "numlock")
	return strings.Join(names, "+")
}
