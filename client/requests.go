package wl

// Request opcodes, numbered in the order that the requests appear in
// the protocol XML.
const (
	displaySync        uint16 = 0
	displayGetRegistry uint16 = 1

	registryBind uint16 = 0

	compositorCreateSurface uint16 = 0

	surfaceDestroy        uint16 = 0
	surfaceAttach         uint16 = 1
	surfaceDamage         uint16 = 2
	surfaceFrame          uint16 = 3
	surfaceCommit         uint16 = 6
	surfaceSetBufferScale uint16 = 8
	surfaceDamageBuffer   uint16 = 9

	shmCreatePool uint16 = 0

	shmPoolCreateBuffer uint16 = 0
	shmPoolDestroy      uint16 = 1
	shmPoolResize       uint16 = 2

	bufferDestroy uint16 = 0

	seatGetPointer  uint16 = 0
	seatGetKeyboard uint16 = 1
	seatRelease     uint16 = 3

	pointerRelease uint16 = 1

	keyboardRelease uint16 = 0

	outputRelease uint16 = 0

	wmBaseGetXDGSurface uint16 = 2
	wmBasePong          uint16 = 3

	xdgSurfaceDestroy      uint16 = 0
	xdgSurfaceGetToplevel  uint16 = 1
	xdgSurfaceAckConfigure uint16 = 4

	toplevelDestroy    uint16 = 0
	toplevelSetTitle   uint16 = 2
	toplevelSetAppID   uint16 = 3
	toplevelSetMaxSize uint16 = 7
	toplevelSetMinSize uint16 = 8

	decorationManagerGetToplevelDecoration uint16 = 1

	decorationDestroy uint16 = 0
	decorationSetMode uint16 = 1

	layerShellGetLayerSurface uint16 = 0

	layerSurfaceSetSize                  uint16 = 0
	layerSurfaceSetAnchor                uint16 = 1
	layerSurfaceSetExclusiveZone         uint16 = 2
	layerSurfaceSetMargin                uint16 = 3
	layerSurfaceSetKeyboardInteractivity uint16 = 4
	layerSurfaceAckConfigure             uint16 = 6
	layerSurfaceDestroy                  uint16 = 7
)
