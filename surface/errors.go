package surface

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSurface matches every InvalidSurfaceError.
	ErrInvalidSurface = errors.New("invalid surface")

	// ErrSessionClosed is returned by Create once every surface has
	// been force-closed because the session ended.
	ErrSessionClosed = errors.New("session closed")
)

// InvalidSurfaceError is returned for operations on surfaces that
// don't exist or have already closed.
type InvalidSurfaceError struct {
	ID ID
}

func (err *InvalidSurfaceError) Error() string {
	return fmt.Sprintf("invalid surface %v", err.ID)
}

func (err *InvalidSurfaceError) Is(target error) bool {
	return target == ErrInvalidSurface
}
