package wire

import (
	"errors"
	"fmt"
)

// ErrMalformed indicates that data received from the server does not
// follow the wire format.
var ErrMalformed = errors.New("malformed message")

// UnknownOpError is returned by Object.Dispatch if it is given a
// message with an invalid opcode.
type UnknownOpError struct {
	Interface string
	Type      string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown %v opcode for %v: %v", err.Type, err.Interface, err.Op)
}

// UnknownSenderIDError is returned by an attempt to dispatch an
// incoming message that indicates a method call on an object that the
// client doesn't know about.
type UnknownSenderIDError struct {
	Sender uint32
	Op     uint16
}

func (err UnknownSenderIDError) Error() string {
	return fmt.Sprintf("unknown sender object ID: %v (opcode %v)", err.Sender, err.Op)
}
