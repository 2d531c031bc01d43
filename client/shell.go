package wl

import (
	"fmt"
	"image"

	"deedles.dev/kyo/handle"
	"deedles.dev/ximage/geom"
)

// Role is the kind of shell surface.
type Role int

const (
	RoleWindow Role = iota
	RoleLayer
)

func (r Role) String() string {
	switch r {
	case RoleWindow:
		return "window"
	case RoleLayer:
		return "layer"
	default:
		return "unknown"
	}
}

// SurfaceOptions describe a shell surface to create. If Layer is nil
// the surface is an ordinary window.
type SurfaceOptions struct {
	Title string
	AppID string

	// MinSize and MaxSize constrain the window's size. Zero means
	// unconstrained.
	MinSize geom.Point[int]
	MaxSize geom.Point[int]

	// Decorations is the decoration mode to ask for. It is only a
	// preference and is ignored if the compositor can't negotiate.
	Decorations DecorationMode

	Layer *LayerOptions
}

// LayerOptions place a surface on one of the compositor's layers.
type LayerOptions struct {
	Layer Layer

	// Output is the global name of the output to show the surface on.
	// Zero leaves the choice to the compositor.
	Output uint32

	Namespace             string
	Anchor                Anchor
	Size                  geom.Point[int]
	ExclusiveZone         int
	Margin                Margin
	KeyboardInteractivity KeyboardInteractivity
}

type Margin struct {
	Top, Right, Bottom, Left int
}

func (opts SurfaceOptions) Role() Role {
	if opts.Layer != nil {
		return RoleLayer
	}
	return RoleWindow
}

// ShellSurface is a wl_surface together with the shell objects that
// give it a role.
type ShellSurface struct {
	client     *Client
	surface    *surface
	xdg        *xdgSurface
	toplevel   *xdgToplevel
	decoration *toplevelDecoration
	layer      *layerSurface
	frame      *callback
	destroyed  bool
}

// CreateShellSurface creates a surface and gives it a role according to
// opts. The surface is committed once without a buffer so that the
// compositor starts configuring it.
func (c *Client) CreateShellSurface(opts SurfaceOptions) (*ShellSurface, error) {
	if c.err != nil {
		return nil, c.err
	}

	switch opts.Role() {
	case RoleLayer:
		if c.layerShell == nil {
			return nil, fmt.Errorf("%w: zwlr_layer_shell_v1", ErrMissingGlobal)
		}
		var out *output
		if opts.Layer.Output != 0 {
			out = c.outputs[opts.Layer.Output]
			if out == nil {
				return nil, fmt.Errorf("no output with name %v", opts.Layer.Output)
			}
		}

		s := ShellSurface{client: c, surface: c.compositor.createSurface()}
		s.layer = c.layerShell.getLayerSurface(s.surface, out, opts.Layer.Layer, opts.Layer.Namespace)
		s.layer.configure(opts.Layer)
		return c.addSurface(&s), nil

	default:
		s := ShellSurface{client: c, surface: c.compositor.createSurface()}
		s.xdg = c.wmBase.getXDGSurface(s.surface)
		s.toplevel = s.xdg.getToplevel()
		if opts.Title != "" {
			s.toplevel.setTitle(opts.Title)
		}
		if opts.AppID != "" {
			s.toplevel.setAppID(opts.AppID)
		}
		if !opts.MinSize.IsZero() {
			s.toplevel.setMinSize(opts.MinSize)
		}
		if !opts.MaxSize.IsZero() {
			s.toplevel.setMaxSize(opts.MaxSize)
		}
		if c.decorations != nil {
			s.decoration = c.decorations.getToplevelDecoration(s.toplevel)
			if opts.Decorations != 0 {
				s.decoration.setMode(opts.Decorations)
			}
		}
		return c.addSurface(&s), nil
	}
}

func (c *Client) addSurface(s *ShellSurface) *ShellSurface {
	s.surface.commit()
	c.surfaces[s.surface.id] = s
	return s
}

// ID returns the object ID of the underlying wl_surface.
func (s *ShellSurface) ID() uint32 {
	return s.surface.id
}

func (s *ShellSurface) Role() Role {
	if s.layer != nil {
		return RoleLayer
	}
	return RoleWindow
}

// Decorated reports whether decoration negotiation is in effect for
// the surface.
func (s *ShellSurface) Decorated() bool {
	return s.decoration != nil
}

// AckConfigure acknowledges the configure sequence with the given
// serial. The acknowledgement takes effect with the next commit.
func (s *ShellSurface) AckConfigure(serial uint32) {
	if s.destroyed {
		return
	}

	switch {
	case s.xdg != nil:
		s.xdg.send(xdgSurfaceAckConfigure, serial)
	case s.layer != nil:
		s.layer.send(layerSurfaceAckConfigure, serial)
	}
}

// SetBufferScale sets the scale of buffers attached from now on.
// Compositors older than wl_surface version 3 ignore it.
func (s *ShellSurface) SetBufferScale(scale int) {
	if s.destroyed || s.surface.version < 3 {
		return
	}
	s.surface.setBufferScale(scale)
}

func (s *ShellSurface) SetTitle(title string) {
	if s.destroyed || s.toplevel == nil {
		return
	}
	s.toplevel.setTitle(title)
}

// RequestFrame asks the compositor to report when it is a good time to
// draw the next frame. The report arrives as a FrameDone event after
// the next commit. At most one request is outstanding at a time.
func (s *ShellSurface) RequestFrame() {
	if s.destroyed || s.frame != nil {
		return
	}

	s.frame = newCallback(s.client, func(time uint32) {
		s.frame = nil
		if !s.destroyed {
			s.client.emit(FrameDone{Surface: s.surface.id, Time: time})
		}
	})
	s.client.objects.Add(s.frame)
	s.surface.frame(s.frame)
}

// FramePending reports whether a frame request is outstanding.
func (s *ShellSurface) FramePending() bool {
	return s.frame != nil
}

// Attach sets buf as the surface's pending content. A nil buf removes
// the content.
func (s *ShellSurface) Attach(buf *Buffer) {
	if s.destroyed {
		return
	}
	s.surface.attach(buf)
}

// Damage marks a region of the pending buffer, in buffer coordinates,
// as changed.
func (s *ShellSurface) Damage(r image.Rectangle) {
	if s.destroyed {
		return
	}

	s.surface.damage(r)
}

func (s *ShellSurface) Commit() {
	if s.destroyed {
		return
	}
	s.surface.commit()
}

// Destroy destroys the surface and its role objects. It is safe to
// call more than once.
func (s *ShellSurface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true

	if s.decoration != nil {
		s.decoration.destroy(decorationDestroy)
	}
	if s.toplevel != nil {
		s.toplevel.destroy(toplevelDestroy)
	}
	if s.xdg != nil {
		s.xdg.destroy(xdgSurfaceDestroy)
	}
	if s.layer != nil {
		s.layer.destroy(layerSurfaceDestroy)
	}
	s.surface.destroy(surfaceDestroy)
	delete(s.client.surfaces, s.surface.id)
}

// Outputs returns the global names of the outputs that the surface is
// currently on.
func (s *ShellSurface) Outputs() []uint32 {
	outputs := make([]uint32, 0, len(s.surface.outputs))
	for name := range s.surface.outputs {
		outputs = append(outputs, name)
	}
	return outputs
}

func (s *ShellSurface) WindowHandle() handle.Window {
	return handle.Window{
		Platform: handle.Wayland,
		Surface:  s.surface.id,
	}
}

func (s *ShellSurface) DisplayHandle() handle.Display {
	return s.client.DisplayHandle()
}
