package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"deedles.dev/kyo/internal/bin"
)

// MessageBuffer holds message data that has been read from the socket
// but not yet decoded.
type MessageBuffer struct {
	conn   *Conn
	sender uint32
	op     uint16
	size   uint16
	data   bytes.Reader
	err    error
	args   []any
	fds    []*os.File
}

// ReadMessage reads the next message from the socket into a buffer. A
// header that cannot describe a valid message results in an error that
// matches ErrMalformed.
func ReadMessage(c *Conn) (*MessageBuffer, error) {
	mr := MessageBuffer{conn: c}

	r := unixTee{c: c.conn, oob: c.readFDs}

	sender, err := bin.Read[uint32](r)
	if err != nil {
		return nil, fmt.Errorf("read message sender: %w", err)
	}
	mr.sender = sender

	so, err := bin.Read[uint32](r)
	if err != nil {
		return nil, fmt.Errorf("read message size and opcode: %w", err)
	}
	mr.size = uint16(so >> 16)
	mr.op = uint16(so & 0xFFFF)

	if (mr.size < headerSize) || (mr.size%4 != 0) {
		return nil, fmt.Errorf("%w: invalid size %v for message to object %v", ErrMalformed, mr.size, sender)
	}

	data := make([]byte, mr.size-headerSize)
	_, err = io.ReadFull(r, data)
	if err != nil {
		return nil, fmt.Errorf("read message body: %w", err)
	}
	mr.data.Reset(data)

	return &mr, nil
}

// Sender is the object ID of the sender of the message.
func (r *MessageBuffer) Sender() uint32 {
	return r.sender
}

// Op is the opcode of the message.
func (r *MessageBuffer) Op() uint16 {
	return r.op
}

// Size is the total size of the message, including the 8 byte header.
func (r *MessageBuffer) Size() uint16 {
	return r.size
}

// Err returns the first error encountered while decoding arguments.
// Running out of data in the middle of an argument is reported as
// ErrMalformed.
func (r *MessageBuffer) Err() error {
	if r.err == nil {
		return nil
	}
	if errors.Is(r.err, io.EOF) || errors.Is(r.err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: message to object %v, opcode %v is truncated", ErrMalformed, r.sender, r.op)
	}
	return r.err
}

// Discard closes any file descriptors that the message claimed. It is
// used when a message is dropped without being handled.
func (r *MessageBuffer) Discard() {
	for _, f := range r.fds {
		f.Close()
	}
	r.fds = nil
}

func (r *MessageBuffer) ReadInt() (v int32) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[int32](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadUint() (v uint32) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[uint32](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadObject() uint32 {
	return r.ReadUint()
}

func (r *MessageBuffer) ReadNewID() NewID {
	return NewID{
		Interface: r.ReadString(),
		Version:   r.ReadUint(),
		ID:        r.ReadUint(),
	}
}

func (r *MessageBuffer) ReadFixed() (v Fixed) {
	if r.err != nil {
		return
	}

	v, r.err = bin.Read[Fixed](&r.data)
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadString() string {
	if r.err != nil {
		return ""
	}

	length, err := bin.Read[uint32](&r.data)
	if err != nil {
		r.err = err
		return ""
	}
	if length == 0 {
		// Null string.
		r.args = append(r.args, "")
		return ""
	}

	buf := make([]byte, length+padding(length))
	_, r.err = io.ReadFull(&r.data, buf)
	if r.err != nil {
		return ""
	}
	if buf[length-1] != 0 {
		r.err = fmt.Errorf("%w: string is not null-terminated", ErrMalformed)
		return ""
	}

	v := string(buf[:length-1])
	r.args = append(r.args, v)
	return v
}

func (r *MessageBuffer) ReadArray() []byte {
	if r.err != nil {
		return nil
	}

	length, err := bin.Read[uint32](&r.data)
	if err != nil {
		r.err = err
		return nil
	}

	buf := make([]byte, length+padding(length))
	_, r.err = io.ReadFull(&r.data, buf)
	if r.err != nil {
		return nil
	}

	r.args = append(r.args, buf[:length])
	return buf[:length]
}

// ReadFile claims the next file descriptor received on the
// connection.
func (r *MessageBuffer) ReadFile() *os.File {
	if r.err != nil {
		return nil
	}

	fd, ok := r.conn.popFD()
	if !ok {
		r.err = fmt.Errorf("%w: expected a file descriptor", ErrMalformed)
		return nil
	}

	f := os.NewFile(uintptr(fd), "")
	r.fds = append(r.fds, f)
	r.args = append(r.args, f)
	return f
}

// Debug formats the decoded message as a method call on sender.
func (r *MessageBuffer) Debug(sender Object) string {
	return fmt.Sprintf("%v@%v.%v(%v)", sender.Interface(), r.sender, sender.MethodName(r.op), formatArgs(r.args))
}

func formatArgs(args []any) string {
	strs := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			strs = append(strs, strconv.Quote(arg))
		case *os.File:
			strs = append(strs, fmt.Sprintf("fd %v", arg.Fd()))
		case []byte:
			strs = append(strs, fmt.Sprintf("array[%v]", len(arg)))
		default:
			strs = append(strs, fmt.Sprint(arg))
		}
	}
	return strings.Join(strs, ", ")
}
