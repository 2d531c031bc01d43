package wire

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrNoDisplay is returned by Dial when neither $WAYLAND_SOCKET nor
// $WAYLAND_DISPLAY is set and no explicit display was given.
var ErrNoDisplay = errors.New("no Wayland display: WAYLAND_DISPLAY is not set")

func xdgRuntimeDir() string {
	dir, ok := os.LookupEnv("XDG_RUNTIME_DIR")
	if ok {
		return dir
	}
	return fmt.Sprintf("/run/user/%v", os.Getuid())
}

// SocketPath resolves a display name to the path of its Unix domain
// socket. Absolute names are returned as is, others are relative to
// $XDG_RUNTIME_DIR. It does not attempt to determine if the path
// corresponds to an actual socket.
func SocketPath(display string) string {
	if filepath.IsAbs(display) {
		return display
	}
	return filepath.Join(xdgRuntimeDir(), display)
}

// Conn represents a low-level Wayland connection. File descriptors
// received from the server are queued on the Conn in the order that
// they arrive and are claimed by messages as they are decoded.
type Conn struct {
	conn *net.UnixConn

	m   sync.Mutex
	fds []int
}

// NewConn creates a new Conn that wraps c. After this is called, use
// the provided Close method to close c instead of calling its own
// Close method.
func NewConn(c *net.UnixConn) *Conn {
	return &Conn{
		conn: c,
	}
}

// Close closes the underlying connection and any received file
// descriptors that were never claimed.
func (c *Conn) Close() error {
	c.m.Lock()
	fds := c.fds
	c.fds = nil
	c.m.Unlock()

	for _, fd := range fds {
		unix.Close(fd)
	}
	return c.conn.Close()
}

// Fd returns the connection's socket file descriptor. The descriptor
// remains owned by the Conn.
func (c *Conn) Fd() (fd uintptr, err error) {
	sc, err := c.conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	cerr := sc.Control(func(v uintptr) { fd = v })
	return fd, cerr
}

func (c *Conn) readFDs(data []byte) error {
	cmsgs, err := unix.ParseSocketControlMessage(data)
	if err != nil {
		return fmt.Errorf("parse socket control messages: %w", err)
	}

	c.m.Lock()
	defer c.m.Unlock()

	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			if errors.Is(err, unix.EINVAL) {
				continue
			}
			return fmt.Errorf("parse unix control message: %w", err)
		}
		c.fds = append(c.fds, fds...)
	}
	return nil
}

func (c *Conn) popFD() (int, bool) {
	c.m.Lock()
	defer c.m.Unlock()

	if len(c.fds) == 0 {
		return -1, false
	}
	fd := c.fds[0]
	c.fds = c.fds[1:]
	return fd, true
}

// Dial opens a connection to the Wayland socket. If display is empty,
// the environment is consulted following the procedure outlined at
// https://wayland-book.com/protocol-design/wire-protocol.html#transports,
// except that a missing $WAYLAND_DISPLAY is an error instead of
// falling back to wayland-0.
func Dial(display string) (*Conn, error) {
	if display == "" {
		if v, ok := os.LookupEnv("WAYLAND_SOCKET"); ok {
			return dialInherited(v)
		}

		v, ok := os.LookupEnv("WAYLAND_DISPLAY")
		if !ok || (v == "") {
			return nil, ErrNoDisplay
		}
		display = v
	}

	s, err := net.Dial("unix", SocketPath(display))
	if err != nil {
		return nil, err
	}
	return NewConn(s.(*net.UnixConn)), nil
}

func dialInherited(v string) (*Conn, error) {
	fd, err := strconv.ParseInt(v, 10, 0)
	if err != nil {
		return nil, fmt.Errorf("parse WAYLAND_SOCKET fd: %w", err)
	}
	file := os.NewFile(uintptr(fd), "WAYLAND_SOCKET")
	defer file.Close()

	// The fd must not leak into child processes.
	os.Unsetenv("WAYLAND_SOCKET")

	c, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("open WAYLAND_SOCKET connection: %w", err)
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("WAYLAND_SOCKET fd %v is not a Unix socket", fd)
	}
	return NewConn(uc), nil
}

// Pipe returns a pair of connected Conns backed by a Unix socket pair.
// It is intended for in-process peers, such as test compositors.
func Pipe() (*Conn, *Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}

	var conns [2]*Conn
	for i, fd := range fds {
		file := os.NewFile(uintptr(fd), "socketpair")
		c, err := net.FileConn(file)
		file.Close()
		if err != nil {
			if conns[0] != nil {
				conns[0].Close()
			}
			return nil, nil, fmt.Errorf("socketpair conn: %w", err)
		}
		conns[i] = NewConn(c.(*net.UnixConn))
	}
	return conns[0], conns[1], nil
}
