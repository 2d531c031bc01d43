package event

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"deedles.dev/kyo/internal/debug"
	"deedles.dev/kyo/surface"
)

// TokenState is the state of a FrameToken.
type TokenState int32

const (
	// TokenLive tokens may be presented.
	TokenLive TokenState = iota

	// TokenConsumed tokens have already been presented.
	TokenConsumed

	// TokenRevoked tokens were superseded by a newer token for the same
	// surface or belong to a surface that is closing.
	TokenRevoked
)

func (s TokenState) String() string {
	switch s {
	case TokenLive:
		return "live"
	case TokenConsumed:
		return "consumed"
	case TokenRevoked:
		return "revoked"
	default:
		return fmt.Sprintf("TokenState(%d)", int32(s))
	}
}

type tokenSlot struct {
	surface    surface.ID
	generation uint64
	state      atomic.Int32
}

func (slot *tokenSlot) revoke() {
	slot.state.CompareAndSwap(int32(TokenLive), int32(TokenRevoked))
}

// FrameToken is permission to present one frame of a surface. It must
// be consumed exactly once. A token that is dropped while still live
// is logged as a warning when it is garbage collected.
type FrameToken struct {
	slot *tokenSlot
}

func newFrameToken(slot *tokenSlot) *FrameToken {
	tok := &FrameToken{slot: slot}
	runtime.SetFinalizer(tok, func(tok *FrameToken) {
		if tok.slot.state.Load() == int32(TokenLive) {
			debug.Log().Warn("frame token dropped without being presented", "surface", tok.slot.surface, "generation", tok.slot.generation)
		}
	})
	return tok
}

// Surface is the surface that the token belongs to.
func (tok *FrameToken) Surface() surface.ID {
	return tok.slot.surface
}

// Generation is the generation of the surface's swapchain binding at
// the time that the token was issued.
func (tok *FrameToken) Generation() uint64 {
	return tok.slot.generation
}

func (tok *FrameToken) State() TokenState {
	return TokenState(tok.slot.state.Load())
}

// Live reports whether the token can still be presented.
func (tok *FrameToken) Live() bool {
	return tok.State() == TokenLive
}

// Consume marks the token as used and returns its previous state. Only
// the call that returns TokenLive may present.
func (tok *FrameToken) Consume() TokenState {
	if tok.slot.state.CompareAndSwap(int32(TokenLive), int32(TokenConsumed)) {
		return TokenLive
	}
	return tok.State()
}

// Revoke invalidates the token without presenting it.
func (tok *FrameToken) Revoke() {
	tok.slot.revoke()
}
