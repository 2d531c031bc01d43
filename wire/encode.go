package wire

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"unsafe"

	"deedles.dev/kyo/internal/bin"
	"golang.org/x/sys/unix"
)

// MessageBuilder is a message that is under construction.
type MessageBuilder struct {
	// Method is the name of the method being called. It is included
	// purely for debugging purposes.
	Method string

	// Args is the original set of arguments passed to the function from
	// which this MessageBuilder was generated. It is included purely
	// for debugging purposes.
	Args []any

	sender Sender
	op     uint16
	data   bytes.Buffer
	fds    []int
	err    error
}

// NewMessage starts a message from sender with the given opcode.
func NewMessage(sender Sender, op uint16) *MessageBuilder {
	return &MessageBuilder{
		sender: sender,
		op:     op,
	}
}

func (mb *MessageBuilder) Sender() Sender {
	return mb.sender
}

func (mb *MessageBuilder) Op() uint16 {
	return mb.op
}

func (mb *MessageBuilder) WriteInt(v int32) {
	if mb.err != nil {
		return
	}

	mb.err = bin.Write(&mb.data, v)
}

func (mb *MessageBuilder) WriteUint(v uint32) {
	if mb.err != nil {
		return
	}

	mb.err = bin.Write(&mb.data, v)
}

// WriteObject writes the ID of v, or 0 if v is nil.
func (mb *MessageBuilder) WriteObject(v Sender) {
	var id uint32
	if !isNil(v) {
		id = v.ID()
	}
	mb.WriteUint(id)
}

func (mb *MessageBuilder) WriteNewID(v NewID) {
	if mb.err != nil {
		return
	}

	mb.WriteString(v.Interface)
	mb.WriteUint(v.Version)
	mb.WriteUint(v.ID)
}

func (mb *MessageBuilder) WriteFixed(v Fixed) {
	if mb.err != nil {
		return
	}

	mb.err = bin.Write(&mb.data, v)
}

func (mb *MessageBuilder) WriteString(v string) {
	if mb.err != nil {
		return
	}

	length := uint32(len(v) + 1)
	mb.WriteUint(length)
	mb.data.WriteString(v)
	mb.data.WriteByte(0)
	mb.pad(length)
}

func (mb *MessageBuilder) WriteArray(v []byte) {
	if mb.err != nil {
		return
	}

	mb.WriteUint(uint32(len(v)))
	mb.data.Write(v)
	mb.pad(uint32(len(v)))
}

func (mb *MessageBuilder) pad(length uint32) {
	for i := uint32(0); i < padding(length); i++ {
		mb.data.WriteByte(0)
	}
}

// WriteFile duplicates the descriptor of v so that the message can be
// sent after the caller closes v.
func (mb *MessageBuilder) WriteFile(v *os.File) {
	if mb.err != nil {
		return
	}

	fd, err := unix.Dup(int(v.Fd()))
	if err != nil {
		mb.err = fmt.Errorf("dup fd: %w", err)
		return
	}

	if len(mb.fds) == 0 {
		runtime.SetFinalizer(mb, (*MessageBuilder).close)
	}

	mb.fds = append(mb.fds, fd)
}

// Build builds the message and sends it to c. The MessageBuilder
// should not be used again after this method is called.
func (mb *MessageBuilder) Build(c *Conn) error {
	defer mb.close()

	if mb.err != nil {
		return mb.err
	}

	length := headerSize + mb.data.Len()
	if length > math.MaxUint16 {
		return fmt.Errorf("message %v is too large: %v bytes", mb, length)
	}

	msg := bytes.NewBuffer(make([]byte, 0, length))
	bin.Write(msg, mb.sender.ID())
	bin.Write(msg, (uint32(length)<<16)|uint32(mb.op))
	msg.Write(mb.data.Bytes())

	var oob []byte
	if len(mb.fds) > 0 {
		oob = unix.UnixRights(mb.fds...)
	}

	_, _, err := c.conn.WriteMsgUnix(msg.Bytes(), oob, nil)
	return err
}

func (mb *MessageBuilder) close() {
	errs := make([]error, 0, len(mb.fds))
	for _, fd := range mb.fds {
		errs = append(errs, unix.Close(fd))
	}
	if mb.err == nil {
		mb.err = errors.Join(errs...)
	}
	mb.fds = nil
	runtime.SetFinalizer(mb, nil)
}

// WriteArgs writes each of args according to its type. Objects and
// typed new_id arguments are written as their IDs, and a nil argument
// is written as a null object.
func (mb *MessageBuilder) WriteArgs(args ...any) {
	for _, arg := range args {
		switch arg := arg.(type) {
		case int32:
			mb.WriteInt(arg)
		case uint32:
			mb.WriteUint(arg)
		case Fixed:
			mb.WriteFixed(arg)
		case string:
			mb.WriteString(arg)
		case []byte:
			mb.WriteArray(arg)
		case *os.File:
			mb.WriteFile(arg)
		case NewID:
			mb.WriteNewID(arg)
		case Sender:
			mb.WriteObject(arg)
		case nil:
			mb.WriteObject(nil)
		default:
			if mb.err == nil {
				mb.err = fmt.Errorf("unsupported argument type %T", arg)
			}
		}
	}
}

func (mb *MessageBuilder) String() string {
	name := "unknown"
	if obj, ok := mb.sender.(interface{ Interface() string }); ok {
		name = obj.Interface()
	}
	return fmt.Sprintf("%v@%v.%v(%v)", name, mb.sender.ID(), mb.Method, formatArgs(mb.Args))
}

func isNil(v any) bool {
	return (v == nil) || ((*[2]uintptr)(unsafe.Pointer(&v))[1] == 0)
}
