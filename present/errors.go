package present

import (
	"errors"
	"fmt"

	"deedles.dev/kyo/surface"
)

var (
	// ErrBind matches every BindError.
	ErrBind = errors.New("bind failed")

	// ErrSurfaceOutOfDate matches every OutOfDateError.
	ErrSurfaceOutOfDate = errors.New("surface out of date")

	// ErrNoImage is returned by a swapchain that has no free image to
	// acquire.
	ErrNoImage = errors.New("no free swapchain image")

	// ErrConsumed is returned when a frame handle or token is used a
	// second time.
	ErrConsumed = errors.New("already consumed")

	// ErrWrongSurface is returned when a frame token is presented with
	// a frame of a different surface.
	ErrWrongSurface = errors.New("frame token belongs to another surface")

	errNoBackend = errors.New("no backend")
)

// BindError is returned when a surface can't be bound to a swapchain.
type BindError struct {
	Surface surface.ID
	Err     error
}

func (err *BindError) Error() string {
	return fmt.Sprintf("bind surface %v: %v", err.Surface, err.Err)
}

func (err *BindError) Unwrap() error {
	return err.Err
}

func (err *BindError) Is(target error) bool {
	return target == ErrBind
}

// OutOfDateError is returned when a frame is acquired from a binding
// whose swapchain was built for an older configuration of its surface.
// The surface must be bound again.
type OutOfDateError struct {
	Surface    surface.ID
	Generation uint64
	Current    uint64
}

func (err *OutOfDateError) Error() string {
	return fmt.Sprintf("surface %v out of date: swapchain generation %v, current %v", err.Surface, err.Generation, err.Current)
}

func (err *OutOfDateError) Is(target error) bool {
	return target == ErrSurfaceOutOfDate
}
