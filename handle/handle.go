// Package handle describes native window and display handles in a
// form that a rendering backend can consume without depending on the
// protocol client that created them.
package handle

// Platform identifies the windowing system that a handle belongs to.
type Platform int

const (
	Unknown Platform = iota
	Wayland
)

func (p Platform) String() string {
	switch p {
	case Wayland:
		return "wayland"
	default:
		return "unknown"
	}
}

// Window is a raw handle to a single on-screen surface. For Wayland,
// Surface is the object ID of the wl_surface on the connection named
// by the matching Display.
type Window struct {
	Platform Platform
	Surface  uint32
}

// Display is a raw handle to the connection that owns windows. For
// Wayland, Socket is the file descriptor of the connection's socket.
// It remains owned by the connection.
type Display struct {
	Platform Platform
	Socket   uintptr
}

type HasWindow interface {
	WindowHandle() Window
}

type HasDisplay interface {
	DisplayHandle() Display
}
