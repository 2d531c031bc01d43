package objstore

import (
	"testing"

	"deedles.dev/kyo/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	id         uint32
	dispatched int
	deleted    bool
}

func (obj *fakeObject) ID() uint32                         { return obj.id }
func (obj *fakeObject) SetID(id uint32)                    { obj.id = id }
func (obj *fakeObject) Dispatch(*wire.MessageBuffer) error { obj.dispatched++; return nil }
func (obj *fakeObject) Delete()                            { obj.deleted = true }
func (obj *fakeObject) Interface() string                  { return "fake" }
func (obj *fakeObject) MethodName(uint16) string           { return "event" }

func message(t *testing.T, sender uint32) *wire.MessageBuffer {
	t.Helper()

	a, b, err := wire.Pipe()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	require.NoError(t, wire.NewMessage(&fakeObject{id: sender}, 0).Build(a))
	msg, err := wire.ReadMessage(b)
	require.NoError(t, err)
	return msg
}

func TestStoreAssignsIDs(t *testing.T) {
	s := New(1)

	var a, b fakeObject
	s.Add(&a)
	s.Add(&b)
	assert.Equal(t, uint32(1), a.id)
	assert.Equal(t, uint32(2), b.id)

	c := fakeObject{id: 10}
	s.Add(&c)
	assert.Equal(t, uint32(10), c.id)
	assert.Same(t, &c, s.Get(10))
	assert.Equal(t, 3, s.Len())
}

func TestStoreZombies(t *testing.T) {
	s := New(1)

	var obj fakeObject
	s.Add(&obj)
	s.Kill(obj.id)
	assert.Nil(t, s.Get(obj.id))

	_, handled, err := s.Dispatch(message(t, obj.id))
	assert.NoError(t, err)
	assert.False(t, handled)
	assert.Zero(t, obj.dispatched)

	s.Delete(obj.id)
	assert.True(t, obj.deleted)
	assert.Zero(t, s.Len())
}

func TestStoreDispatchUnknown(t *testing.T) {
	s := New(1)

	_, _, err := s.Dispatch(message(t, 42))
	assert.ErrorAs(t, err, new(wire.UnknownSenderIDError))
}

func TestStoreDispatch(t *testing.T) {
	s := New(1)

	var obj fakeObject
	s.Add(&obj)
	got, handled, err := s.Dispatch(message(t, obj.id))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Same(t, &obj, got)
	assert.Equal(t, 1, obj.dispatched)
}
