package event

import (
	"bytes"
	"os"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"deedles.dev/kyo/internal/debug"
	"deedles.dev/kyo/surface"
	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	m   sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(data []byte) (int, error) {
	b.m.Lock()
	defer b.m.Unlock()
	return b.buf.Write(data)
}

func (b *syncBuffer) String() string {
	b.m.Lock()
	defer b.m.Unlock()
	return b.buf.String()
}

func dropToken(id surface.ID, state TokenState) {
	slot := &tokenSlot{surface: id, generation: 1}
	slot.state.Store(int32(state))
	newFrameToken(slot)
}

func TestTokenConsume(t *testing.T) {
	tok := newFrameToken(&tokenSlot{surface: 1, generation: 1})
	assert.True(t, tok.Live())
	assert.Equal(t, TokenLive, tok.Consume())
	assert.Equal(t, TokenConsumed, tok.Consume())

	tok.Revoke()
	assert.Equal(t, TokenConsumed, tok.State())

	tok = newFrameToken(&tokenSlot{surface: 1, generation: 1})
	tok.Revoke()
	assert.Equal(t, TokenRevoked, tok.Consume())
	assert.False(t, tok.Live())
}

func TestDroppedLiveTokenWarns(t *testing.T) {
	var out syncBuffer
	debug.SetOutput(&out)
	t.Cleanup(func() { debug.SetOutput(os.Stderr) })

	dropToken(90001, TokenConsumed)
	dropToken(90002, TokenRevoked)
	dropToken(90003, TokenLive)

	assert.Eventually(t, func() bool {
		runtime.GC()
		return strings.Contains(out.String(), "90003")
	}, 2*time.Second, 10*time.Millisecond)
	runtime.GC()
	runtime.GC()

	log := out.String()
	assert.Contains(t, log, "frame token dropped without being presented")
	assert.NotContains(t, log, "90001")
	assert.NotContains(t, log, "90002")
}
