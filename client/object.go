package wl

import (
	"fmt"

	"deedles.dev/kyo/protocol"
	"deedles.dev/kyo/wire"
)

// object holds the state shared by every protocol object. Opcodes and
// method names are looked up in the embedded protocol specification of
// the object's interface.
type object struct {
	id      uint32
	version uint32
	spec    *protocol.Interface
	client  *Client
}

func newObject(c *Client, inter string, version uint32) object {
	return object{
		version: version,
		spec:    protocol.MustLookup(inter),
		client:  c,
	}
}

func (obj *object) ID() uint32 {
	return obj.id
}

func (obj *object) SetID(id uint32) {
	obj.id = id
}

func (obj *object) Delete() {}

func (obj *object) Interface() string {
	return obj.spec.Name
}

// Version is the version of the interface that the object was created
// with.
func (obj *object) Version() uint32 {
	return obj.version
}

func (obj *object) MethodName(op uint16) string {
	ev, ok := obj.spec.Event(op)
	if !ok {
		return fmt.Sprintf("unknown(%v)", op)
	}
	return ev.Name
}

// event returns the name of the event with the given opcode, or the
// empty string if there is no such event.
func (obj *object) event(op uint16) string {
	ev, _ := obj.spec.Event(op)
	return ev.Name
}

func (obj *object) unknownOp(msg *wire.MessageBuffer) error {
	return wire.UnknownOpError{
		Interface: obj.spec.Name,
		Type:      "event",
		Op:        msg.Op(),
	}
}

// send queues the request with the given opcode.
func (obj *object) send(op uint16, args ...any) {
	req, ok := obj.spec.Request(op)
	if !ok {
		panic(fmt.Errorf("%v has no request %v", obj.spec.Name, op))
	}

	msg := wire.NewMessage(obj, op)
	msg.Method = req.Name
	msg.Args = args
	msg.WriteArgs(args...)
	obj.client.Enqueue(msg)
}

// destroy sends the destructor request with the given opcode and marks
// the object as dead until the server releases its ID.
func (obj *object) destroy(op uint16) {
	if obj.id == 0 {
		return
	}
	obj.send(op)
	obj.client.objects.Kill(obj.id)
}

// bindVersion returns the version to bind a global at: the lower of
// what the server advertises and what the embedded specification
// describes.
func bindVersion(inter string, advertised uint32) uint32 {
	return min(advertised, uint32(protocol.MustLookup(inter).Version))
}
