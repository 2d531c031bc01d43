// Package event turns the raw events of a Wayland connection into the
// lifecycle, frame and input events of a workspace's surfaces.
package event

import (
	wl "deedles.dev/kyo/client"
	"deedles.dev/kyo/surface"
	"deedles.dev/ximage/geom"
)

// Event is an event delivered to the application.
type Event interface {
	event()
}

// Configure is delivered when a surface gets its first size and after
// every change of its size or scale. Anything bound to the surface
// before the change is out of date.
type Configure struct {
	Surface surface.ID
	Size    geom.Point[int]
	Scale   int

	// First is true if the surface just became Configured.
	First bool
}

// PixelSize is the size in pixels that the surface should be rendered
// at.
func (ev Configure) PixelSize() geom.Point[int] {
	return geom.Pt(ev.Size.X*ev.Scale, ev.Size.Y*ev.Scale)
}

// Frame is delivered when the compositor is ready for the next frame
// of a surface. Token is nil if the surface is closing and no more
// frames should be presented.
type Frame struct {
	Surface surface.ID
	Time    uint32
	Token   *FrameToken
}

// Closing is delivered when a surface has been asked to close. No more
// frames should be started for it.
type Closing struct {
	Surface surface.ID
}

// Closed is the last event delivered for a surface.
type Closed struct {
	Surface surface.ID
}

type DecorationChanged struct {
	Surface surface.ID
	Mode    wl.DecorationMode
}

// OutputChanged is delivered when an output appears or one of its
// properties changes.
type OutputChanged struct {
	Output surface.Output
}

type OutputRemoved struct {
	Output surface.OutputID
}

// PointerEntered is delivered when the pointer moves onto a surface.
// Positions are in surface-local logical coordinates.
type PointerEntered struct {
	Surface surface.ID
	Pos     geom.Point[float64]
}

type PointerLeft struct {
	Surface surface.ID
}

type PointerMoved struct {
	Surface surface.ID
	Pos     geom.Point[float64]
}

type PointerPressed struct {
	Surface surface.ID
	Button  Button
	Pos     geom.Point[float64]
}

type PointerReleased struct {
	Surface surface.ID
	Button  Button
	Pos     geom.Point[float64]
}

// PointerScrolled is delivered for scroll wheel and touchpad scrolling.
// Positive Y scrolls down.
type PointerScrolled struct {
	Surface surface.ID
	Delta   geom.Point[float64]
}

type KeyboardEntered struct {
	Surface surface.ID
}

type KeyboardLeft struct {
	Surface surface.ID
}

// KeyPressed is delivered when a key is pressed while a surface has
// keyboard focus. Key is a Linux evdev scancode.
type KeyPressed struct {
	Surface   surface.ID
	Key       uint32
	Modifiers Modifiers
}

type KeyReleased struct {
	Surface   surface.ID
	Key       uint32
	Modifiers Modifiers
}

type ModifiersChanged struct {
	Surface   surface.ID
	Modifiers Modifiers
}

func (Configure) event()         {}
func (Frame) event()             {}
func (Closing) event()           {}
func (Closed) event()            {}
func (DecorationChanged) event() {}
func (OutputChanged) event()     {}
func (OutputRemoved) event()     {}
func (PointerEntered) event()    {}
func (PointerLeft) event()       {}
func (PointerMoved) event()      {}
func (PointerPressed) event()    {}
func (PointerReleased) event()   {}
func (PointerScrolled) event()   {}
func (KeyboardEntered) event()   {}
func (KeyboardLeft) event()      {}
func (KeyPressed) event()        {}
func (KeyReleased) event()       {}
func (ModifiersChanged) event()  {}

// SurfaceOf returns the surface that ev is about. It returns false for
// events that aren't about a single surface.
func SurfaceOf(ev Event) (surface.ID, bool) {
	switch ev := ev.(type) {
	case Configure:
		return ev.Surface, true
	case Frame:
		return ev.Surface, true
	case Closing:
		return ev.Surface, true
	case Closed:
		return ev.Surface, true
	case DecorationChanged:
		return ev.Surface, true
	case PointerEntered:
		return ev.Surface, true
	case PointerLeft:
		return ev.Surface, true
	case PointerMoved:
		return ev.Surface, true
	case PointerPressed:
		return ev.Surface, true
	case PointerReleased:
		return ev.Surface, true
	case PointerScrolled:
		return ev.Surface, true
	case KeyboardEntered:
		return ev.Surface, true
	case KeyboardLeft:
		return ev.Surface, true
	case KeyPressed:
		return ev.Surface, true
	case KeyReleased:
		return ev.Surface, true
	case ModifiersChanged:
		return ev.Surface, true
	default:
		return 0, false
	}
}
