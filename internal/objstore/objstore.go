// Package objstore keeps track of the live protocol objects of a
// connection, keyed by object ID.
package objstore

import (
	"deedles.dev/kyo/internal/set"
	"deedles.dev/kyo/wire"
)

// MaxClientID is the largest ID a client may allocate. IDs above it
// are reserved for objects created by the server.
const MaxClientID = 0xFEFFFFFF

type Store struct {
	objects map[uint32]wire.Object
	zombies set.Set[uint32]
	nextID  uint32
}

func New(start uint32) *Store {
	return &Store{
		objects: make(map[uint32]wire.Object),
		zombies: make(set.Set[uint32]),
		nextID:  start,
	}
}

// Add stores obj. If obj does not yet have an ID, the next free one is
// assigned to it.
func (s *Store) Add(obj wire.Object) {
	id := obj.ID()
	if id == 0 {
		id = s.nextID
		obj.SetID(id)
		s.nextID++
	}

	s.objects[id] = obj
}

// Get returns the live object with the given ID, or nil.
func (s *Store) Get(id uint32) wire.Object {
	if s.zombies.Has(id) {
		return nil
	}
	return s.objects[id]
}

// Kill marks an object as destroyed by the client. Messages from the
// server may still arrive for it until the server confirms the
// deletion, and those are silently dropped by Dispatch.
func (s *Store) Kill(id uint32) {
	if _, ok := s.objects[id]; ok {
		s.zombies.Add(id)
	}
}

// Delete removes an object entirely, notifying it.
func (s *Store) Delete(id uint32) {
	obj := s.objects[id]
	delete(s.objects, id)
	s.zombies.Delete(id)
	if obj != nil {
		obj.Delete()
	}
}

// Len returns the number of objects in the store, including zombies.
func (s *Store) Len() int {
	return len(s.objects)
}

// Dispatch hands msg to the object it was sent by. Messages for zombie
// objects are dropped and reported as not handled.
func (s *Store) Dispatch(msg *wire.MessageBuffer) (obj wire.Object, handled bool, err error) {
	obj = s.objects[msg.Sender()]
	if obj == nil {
		return nil, false, wire.UnknownSenderIDError{Sender: msg.Sender(), Op: msg.Op()}
	}
	if s.zombies.Has(msg.Sender()) {
		msg.Discard()
		return obj, false, nil
	}

	return obj, true, obj.Dispatch(msg)
}
