package main

import (
	"strings"
	"testing"

	"deedles.dev/kyo/protocol"
	"github.com/stretchr/testify/assert"
)

func TestPrint(t *testing.T) {
	var buf strings.Builder
	printInterfaces(&buf, 0, []*protocol.Interface{protocol.MustLookup("wl_callback")})
	assert.Equal(t, "wl_callback v1\n  <-  0 done(callback_data uint) destructor\n", buf.String())
}

func TestSignature(t *testing.T) {
	inter := protocol.MustLookup("wl_surface")
	op, ok := inter.Request(1)
	assert.True(t, ok)
	assert.Equal(t, "attach(buffer ?object<wl_buffer>, x int, y int)", signature(op))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abcdef", truncate("abcdef", 0))
	assert.Equal(t, "abcdef", truncate("abcdef", 6))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
}
