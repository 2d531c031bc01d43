// Package wire implements the Wayland wire protocol: framing,
// argument encoding and decoding, and file descriptor passing over a
// Unix domain socket. It is used by the protocol objects in package
// client and knows nothing about any specific interface.
package wire

import (
	"errors"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// headerSize is the size of a message header: the sender ID followed
// by the size and opcode packed into a single word.
const headerSize = 8

// maxFDs is the most file descriptors accepted alongside a single read.
const maxFDs = 28

// Sender is anything that has a Wayland object ID.
type Sender interface {
	ID() uint32
}

// Object represents a Wayland protocol object.
type Object interface {
	Sender

	// SetID is called when the object is added to an object store.
	SetID(id uint32)

	// Dispatch performs the operation requested by the message in the
	// buffer.
	Dispatch(msg *MessageBuffer) error

	// Delete is called when the object's ID is released by the server.
	Delete()

	// Interface returns the name of the object's protocol interface.
	Interface() string

	// MethodName returns the name of the event with the given opcode.
	// It is used for debugging output.
	MethodName(op uint16) string
}

// NewID is the untyped new_id argument used by wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

func padding(length uint32) uint32 {
	return (4 - (length % 4)) % 4
}

// unixTee reads from c, but also reads out-of-band data
// simultaneously, writing it into oob.
type unixTee struct {
	c   *net.UnixConn
	oob func([]byte) error
}

func (t unixTee) Read(buf []byte) (int, error) {
	oob := make([]byte, unix.CmsgSpace(maxFDs*4))
	n, oobn, _, _, err := t.c.ReadMsgUnix(buf, oob)
	if oobn > 0 {
		err = errors.Join(err, t.oob(oob[:oobn]))
	}
	if (n == 0) && (err == nil) && (len(buf) > 0) {
		// A zero-length read from a stream socket means the peer hung
		// up.
		return 0, io.EOF
	}
	return n, err
}
