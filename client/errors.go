package wl

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionLost is returned once the compositor has closed the
	// connection, or after the Client has been closed.
	ErrConnectionLost = errors.New("connection to compositor lost")

	// ErrMissingGlobal indicates that the compositor doesn't advertise
	// a global interface that an operation needs.
	ErrMissingGlobal = errors.New("compositor does not support interface")

	// ErrTimeout is returned by RoundTrip if the compositor doesn't
	// answer in time. It is not fatal.
	ErrTimeout = errors.New("timed out waiting for compositor")
)

// ConnectionError is returned when a connection to the compositor
// cannot be established.
type ConnectionError struct {
	Op  string
	Err error
}

func (err *ConnectionError) Error() string {
	return fmt.Sprintf("connect to compositor: %v: %v", err.Op, err.Err)
}

func (err *ConnectionError) Unwrap() error {
	return err.Err
}

// ProtocolError indicates that the conversation with the compositor
// has broken down, either because the compositor reported an error on
// one of the client's objects or because it sent something that the
// client could not understand.
type ProtocolError struct {
	// Interface and Object identify the object that the error is
	// about, if known.
	Interface string
	Object    uint32

	// Code and Message are set for errors reported by the compositor.
	Code    uint32
	Message string

	// Err is the decoding error for messages that could not be
	// understood.
	Err error
}

func (err *ProtocolError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("protocol error: %v", err.Err)
	}
	return fmt.Sprintf("protocol error on %v@%v: code %v: %v", err.Interface, err.Object, err.Code, err.Message)
}

func (err *ProtocolError) Unwrap() error {
	return err.Err
}
