package wl

import (
	"testing"

	"deedles.dev/kyo/protocol"
	"github.com/stretchr/testify/assert"
)

func TestRequestOpcodes(t *testing.T) {
	tests := []struct {
		inter string
		name  string
		op    uint16
	}{
		{"wl_display", "sync", displaySync},
		{"wl_display", "get_registry", displayGetRegistry},
		{"wl_registry", "bind", registryBind},
		{"wl_compositor", "create_surface", compositorCreateSurface},
		{"wl_surface", "destroy", surfaceDestroy},
		{"wl_surface", "attach", surfaceAttach},
		{"wl_surface", "damage", surfaceDamage},
		{"wl_surface", "frame", surfaceFrame},
		{"wl_surface", "commit", surfaceCommit},
		{"wl_surface", "set_buffer_scale", surfaceSetBufferScale},
		{"wl_surface", "damage_buffer", surfaceDamageBuffer},
		{"wl_shm", "create_pool", shmCreatePool},
		{"wl_shm_pool", "create_buffer", shmPoolCreateBuffer},
		{"wl_shm_pool", "destroy", shmPoolDestroy},
		{"wl_shm_pool", "resize", shmPoolResize},
		{"wl_buffer", "destroy", bufferDestroy},
		{"wl_seat", "get_pointer", seatGetPointer},
		{"wl_seat", "get_keyboard", seatGetKeyboard},
		{"wl_seat", "release", seatRelease},
		{"wl_pointer", "release", pointerRelease},
		{"wl_keyboard", "release", keyboardRelease},
		{"wl_output", "release", outputRelease},
		{"xdg_wm_base", "get_xdg_surface", wmBaseGetXDGSurface},
		{"xdg_wm_base", "pong", wmBasePong},
		{"xdg_surface", "destroy", xdgSurfaceDestroy},
		{"xdg_surface", "get_toplevel", xdgSurfaceGetToplevel},
		{"xdg_surface", "ack_configure", xdgSurfaceAckConfigure},
		{"xdg_toplevel", "destroy", toplevelDestroy},
		{"xdg_toplevel", "set_title", toplevelSetTitle},
		{"xdg_toplevel", "set_app_id", toplevelSetAppID},
		{"xdg_toplevel", "set_max_size", toplevelSetMaxSize},
		{"xdg_toplevel", "set_min_size", toplevelSetMinSize},
		{"zxdg_decoration_manager_v1", "get_toplevel_decoration", decorationManagerGetToplevelDecoration},
		{"zxdg_toplevel_decoration_v1", "destroy", decorationDestroy},
		{"zxdg_toplevel_decoration_v1", "set_mode", decorationSetMode},
		{"zwlr_layer_shell_v1", "get_layer_surface", layerShellGetLayerSurface},
		{"zwlr_layer_surface_v1", "set_size", layerSurfaceSetSize},
		{"zwlr_layer_surface_v1", "set_anchor", layerSurfaceSetAnchor},
		{"zwlr_layer_surface_v1", "set_exclusive_zone", layerSurfaceSetExclusiveZone},
		{"zwlr_layer_surface_v1", "set_margin", layerSurfaceSetMargin},
		{"zwlr_layer_surface_v1", "set_keyboard_interactivity", layerSurfaceSetKeyboardInteractivity},
		{"zwlr_layer_surface_v1", "ack_configure", layerSurfaceAckConfigure},
		{"zwlr_layer_surface_v1", "destroy", layerSurfaceDestroy},
	}

	for _, test := range tests {
		op, ok := protocol.MustLookup(test.inter).RequestOp(test.name)
		if assert.True(t, ok, "%v.%v", test.inter, test.name) {
			assert.Equal(t, op, test.op, "%v.%v", test.inter, test.name)
		}
	}
}
