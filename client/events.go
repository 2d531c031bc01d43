package wl

import "deedles.dev/ximage/geom"

// RawEvent is an event from the compositor, reduced to what the rest
// of the module needs. Surfaces are identified by the object ID of
// their wl_surface and outputs by the name of their global.
type RawEvent interface {
	rawEvent()
}

// SurfaceEnter is sent when some part of a surface becomes visible on
// an output.
type SurfaceEnter struct {
	Surface uint32
	Output  uint32
}

type SurfaceLeave struct {
	Surface uint32
	Output  uint32
}

// PreferredScale is the buffer scale that the compositor would like a
// surface to use.
type PreferredScale struct {
	Surface uint32
	Scale   int
}

// ConfigureSize suggests a size for a surface as part of a configure
// sequence. A zero dimension leaves that dimension up to the client.
type ConfigureSize struct {
	Surface uint32
	Size    geom.Point[int]
	States  []ToplevelState
}

// ConfigureDone ends a configure sequence. Serial must be acknowledged
// before the next commit that takes the configuration into account.
type ConfigureDone struct {
	Surface uint32
	Serial  uint32
}

// CloseRequest is sent when the compositor wants a surface to go away.
type CloseRequest struct {
	Surface uint32
}

type DecorationConfigure struct {
	Surface uint32
	Mode    DecorationMode
}

// FrameDone means that it is a good time to draw the next frame of a
// surface. Time is in milliseconds with an undefined base.
type FrameDone struct {
	Surface uint32
	Time    uint32
}

// OutputDone carries the complete, current description of an output
// after any of its properties change.
type OutputDone struct {
	Output OutputInfo
}

type OutputRemoved struct {
	Output uint32
}

type PointerEnter struct {
	Surface uint32
	Serial  uint32
	Pos     geom.Point[float64]
}

type PointerLeave struct {
	Surface uint32
	Serial  uint32
}

type PointerMotion struct {
	Surface uint32
	Time    uint32
	Pos     geom.Point[float64]
}

type PointerButton struct {
	Surface uint32
	Serial  uint32
	Time    uint32
	Button  uint32
	Pressed bool
}

type PointerAxis struct {
	Surface uint32
	Time    uint32
	Axis    Axis
	Value   float64
}

type KeyboardEnter struct {
	Surface uint32
	Serial  uint32
	Keys    []uint32
}

type KeyboardLeave struct {
	Surface uint32
	Serial  uint32
}

// Key is a raw key press or release. Key is a Linux evdev scancode.
type Key struct {
	Surface uint32
	Serial  uint32
	Time    uint32
	Key     uint32
	Pressed bool
}

// Modifiers carries the xkb modifier masks of the focused keyboard.
type Modifiers struct {
	Surface   uint32
	Serial    uint32
	Depressed uint32
	Latched   uint32
	Locked    uint32
	Group     uint32
}

func (SurfaceEnter) rawEvent()        {}
func (SurfaceLeave) rawEvent()        {}
func (PreferredScale) rawEvent()      {}
func (ConfigureSize) rawEvent()       {}
func (ConfigureDone) rawEvent()       {}
func (CloseRequest) rawEvent()        {}
func (DecorationConfigure) rawEvent() {}
func (FrameDone) rawEvent()           {}
func (OutputDone) rawEvent()          {}
func (OutputRemoved) rawEvent()       {}
func (PointerEnter) rawEvent()        {}
func (PointerLeave) rawEvent()        {}
func (PointerMotion) rawEvent()       {}
func (PointerButton) rawEvent()       {}
func (PointerAxis) rawEvent()         {}
func (KeyboardEnter) rawEvent()       {}
func (KeyboardLeave) rawEvent()       {}
func (Key) rawEvent()                 {}
func (Modifiers) rawEvent()           {}
