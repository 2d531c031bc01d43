package wl

import (
	"os"
	"slices"

	"deedles.dev/kyo/wire"
)

// Shm is the wl_shm global, which creates pools of memory shared with
// the compositor.
type Shm struct {
	object
	formats []ShmFormat
}

func newShm(c *Client, version uint32) *Shm {
	return &Shm{object: newObject(c, "wl_shm", version)}
}

func (shm *Shm) Dispatch(msg *wire.MessageBuffer) error {
	switch shm.event(msg.Op()) {
	case "format":
		format := ShmFormat(msg.ReadUint())
		if err := msg.Err(); err != nil {
			return err
		}
		if !slices.Contains(shm.formats, format) {
			shm.formats = append(shm.formats, format)
		}

	default:
		return shm.unknownOp(msg)
	}
	return nil
}

// Formats returns the pixel formats that the compositor accepts.
func (shm *Shm) Formats() []ShmFormat {
	return slices.Clone(shm.formats)
}

// Supports reports whether the compositor accepts the format. ARGB8888
// and XRGB8888 are always supported.
func (shm *Shm) Supports(format ShmFormat) bool {
	switch format {
	case ShmFormatARGB8888, ShmFormatXRGB8888:
		return true
	}
	return slices.Contains(shm.formats, format)
}

// CreatePool shares the first size bytes of file with the compositor.
// The caller may close file once the pool has been created.
func (shm *Shm) CreatePool(file *os.File, size int) *ShmPool {
	pool := ShmPool{object: newObject(shm.client, "wl_shm_pool", shm.version)}
	shm.client.objects.Add(&pool)
	shm.send(shmCreatePool, &pool, file, int32(size))
	return &pool
}

type ShmPool struct {
	object
}

func (pool *ShmPool) Dispatch(msg *wire.MessageBuffer) error {
	return pool.unknownOp(msg)
}

// CreateBuffer creates a buffer from a region of the pool.
func (pool *ShmPool) CreateBuffer(offset, width, height, stride int, format ShmFormat) *Buffer {
	buf := Buffer{object: newObject(pool.client, "wl_buffer", 1)}
	pool.client.objects.Add(&buf)
	pool.send(shmPoolCreateBuffer, &buf, int32(offset), int32(width), int32(height), int32(stride), uint32(format))
	return &buf
}

// Resize grows the pool. Pools can not shrink.
func (pool *ShmPool) Resize(size int) {
	pool.send(shmPoolResize, int32(size))
}

// Destroy destroys the pool. Buffers created from it remain valid.
func (pool *ShmPool) Destroy() {
	pool.destroy(shmPoolDestroy)
}

// Buffer is content that can be attached to a surface.
type Buffer struct {
	object

	// Release is called when the compositor no longer reads from the
	// buffer.
	Release func()
}

func (buf *Buffer) Dispatch(msg *wire.MessageBuffer) error {
	switch buf.event(msg.Op()) {
	case "release":
		if buf.Release != nil {
			buf.Release()
		}

	default:
		return buf.unknownOp(msg)
	}
	return nil
}

func (buf *Buffer) Destroy() {
	buf.destroy(bufferDestroy)
}
