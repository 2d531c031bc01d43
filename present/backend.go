package present

import (
	"image"
	"image/draw"

	"deedles.dev/kyo/config"
	"deedles.dev/kyo/handle"
	"deedles.dev/ximage/geom"
)

// Target is a surface that can be presented to. A rendering backend
// creates its own presentation surface from the raw handles.
type Target interface {
	handle.HasWindow
	handle.HasDisplay

	// RequestFrame asks the compositor to signal when it is a good
	// time to draw the next frame.
	RequestFrame()
}

// SwapchainConfig describes a swapchain to create.
type SwapchainConfig struct {
	// Extent is the size of the swapchain's images in pixels.
	Extent geom.Point[int]
	Scale  int

	Images      int
	Format      config.Format
	PresentMode config.PresentMode
}

// Backend creates swapchains.
type Backend interface {
	CreateSwapchain(target Target, cfg SwapchainConfig) (Swapchain, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(Target, SwapchainConfig) (Swapchain, error)

func (f BackendFunc) CreateSwapchain(target Target, cfg SwapchainConfig) (Swapchain, error) {
	return f(target, cfg)
}

// Swapchain is a set of images that are rendered to and shown in turn.
type Swapchain interface {
	// Acquire returns the index of a free image. It returns ErrNoImage
	// if every image is in use.
	Acquire() (int, error)

	// Image returns the acquired image with the given index if it can
	// be drawn to directly, or nil.
	Image(index int) draw.Image

	// Present shows an acquired image. Damage lists the regions that
	// changed since the image was last presented. Empty damage means
	// the whole image.
	Present(index int, damage []image.Rectangle) error

	// Discard returns an acquired image without showing it.
	Discard(index int)

	Destroy()
}
