package wl

type ShmFormat uint32

const (
	ShmFormatARGB8888 ShmFormat = 0
	ShmFormatXRGB8888 ShmFormat = 1
)

func (f ShmFormat) String() string {
	switch f {
	case ShmFormatARGB8888:
		return "argb8888"
	case ShmFormatXRGB8888:
		return "xrgb8888"
	default:
		return "unknown"
	}
}

type DecorationMode uint32

const (
	DecorationClient DecorationMode = 1
	DecorationServer DecorationMode = 2
)

func (m DecorationMode) String() string {
	switch m {
	case DecorationClient:
		return "client"
	case DecorationServer:
		return "server"
	default:
		return "unknown"
	}
}

type ToplevelState uint32

const (
	ToplevelMaximized ToplevelState = 1 + iota
	ToplevelFullscreen
	ToplevelResizing
	ToplevelActivated
	ToplevelTiledLeft
	ToplevelTiledRight
	ToplevelTiledTop
	ToplevelTiledBottom
	ToplevelSuspended
)

type Layer uint32

const (
	LayerBackground Layer = iota
	LayerBottom
	LayerTop
	LayerOverlay
)

type Anchor uint32

const (
	AnchorTop    Anchor = 1
	AnchorBottom Anchor = 2
	AnchorLeft   Anchor = 4
	AnchorRight  Anchor = 8
)

type KeyboardInteractivity uint32

const (
	KeyboardInteractivityNone KeyboardInteractivity = iota
	KeyboardInteractivityExclusive
	KeyboardInteractivityOnDemand
)

type Axis uint32

const (
	AxisVertical Axis = iota
	AxisHorizontal
)

type SeatCapability uint32

const (
	SeatCapabilityPointer  SeatCapability = 1
	SeatCapabilityKeyboard SeatCapability = 2
	SeatCapabilityTouch    SeatCapability = 4
)

func (c SeatCapability) Has(v SeatCapability) bool {
	return c&v != 0
}
