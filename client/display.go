package wl

import "deedles.dev/kyo/wire"

type display struct {
	object
}

func newDisplay(c *Client) *display {
	return &display{object: newObject(c, "wl_display", 1)}
}

func (d *display) Dispatch(msg *wire.MessageBuffer) error {
	switch d.event(msg.Op()) {
	case "error":
		id := msg.ReadObject()
		code := msg.ReadUint()
		message := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}

		perr := ProtocolError{Object: id, Code: code, Message: message}
		if obj := d.client.objects.Get(id); obj != nil {
			perr.Interface = obj.Interface()
		}
		return &perr

	case "delete_id":
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		d.client.objects.Delete(id)

	default:
		return d.unknownOp(msg)
	}
	return nil
}

type registry struct {
	object
}

func newRegistry(c *Client) *registry {
	return &registry{object: newObject(c, "wl_registry", 1)}
}

func (r *registry) Dispatch(msg *wire.MessageBuffer) error {
	switch r.event(msg.Op()) {
	case "global":
		name := msg.ReadUint()
		inter := msg.ReadString()
		version := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		r.client.addGlobal(Global{Name: name, Interface: inter, Version: version})

	case "global_remove":
		name := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		r.client.removeGlobal(name)

	default:
		return r.unknownOp(msg)
	}
	return nil
}

// versioned is a protocol object that knows what version it should be
// bound at.
type versioned interface {
	wire.Object
	Version() uint32
}

// bind adds obj to the object store and binds the global to it.
func (r *registry) bind(g Global, obj versioned) {
	r.client.objects.Add(obj)
	r.send(registryBind, g.Name, wire.NewID{
		Interface: g.Interface,
		Version:   obj.Version(),
		ID:        obj.ID(),
	})
}

type callback struct {
	object
	done func(uint32)
}

func newCallback(c *Client, done func(uint32)) *callback {
	return &callback{
		object: newObject(c, "wl_callback", 1),
		done:   done,
	}
}

func (cb *callback) Dispatch(msg *wire.MessageBuffer) error {
	switch cb.event(msg.Op()) {
	case "done":
		data := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if cb.done != nil {
			cb.done(data)
			cb.done = nil
		}

	default:
		return cb.unknownOp(msg)
	}
	return nil
}
