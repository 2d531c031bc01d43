package shm

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	wl "deedles.dev/kyo/client"
	"deedles.dev/kyo/config"
	"deedles.dev/kyo/internal/debug"
	"deedles.dev/kyo/present"
	"deedles.dev/ximage/format"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
	"golang.org/x/sys/unix"
)

const bytesPerPixel = 4

var errUnknownSurface = errors.New("target is not a surface of this client")

// Backend creates swapchains of wl_shm buffers. Every acquired image
// is cleared to Clear first, unless Clear is nil.
type Backend struct {
	Client *wl.Client
	Clear  color.Color
}

// NewBackend returns a Backend that creates its buffers on c and
// clears them to black.
func NewBackend(c *wl.Client) *Backend {
	return &Backend{
		Client: c,
		Clear:  colornames.Black,
	}
}

func shmFormat(f config.Format) (wl.ShmFormat, format.Format) {
	if f == config.FormatXRGB8888 {
		return wl.ShmFormatXRGB8888, format.XRGB8888
	}
	return wl.ShmFormatARGB8888, format.ARGB8888
}

// CreateSwapchain implements present.Backend. The images of the
// swapchain are carved out of a single shared memory pool.
func (b *Backend) CreateSwapchain(target present.Target, cfg present.SwapchainConfig) (sc present.Swapchain, err error) {
	surface := b.Client.Surface(target.WindowHandle().Surface)
	if surface == nil {
		return nil, errUnknownSurface
	}
	shm := b.Client.Shm()
	if shm == nil {
		return nil, fmt.Errorf("%w: wl_shm", wl.ErrMissingGlobal)
	}

	wlFormat, pixFormat := shmFormat(cfg.Format)
	if !shm.Supports(wlFormat) {
		return nil, fmt.Errorf("format %v not supported by compositor", wlFormat)
	}
	if cfg.Extent.X <= 0 || cfg.Extent.Y <= 0 {
		return nil, fmt.Errorf("invalid extent %v", cfg.Extent)
	}

	s := Swapchain{
		surface: surface,
		clear:   b.Clear,
		format:  wlFormat,
	}
	defer func() {
		if err != nil {
			s.Destroy()
		}
	}()

	stride := cfg.Extent.X * bytesPerPixel
	size := stride * cfg.Extent.Y
	images := max(cfg.Images, 1)

	s.file, err = Create("kyo-swapchain", size*images)
	if err != nil {
		return nil, fmt.Errorf("create SHM file: %w", err)
	}
	s.mmap, err = Map(s.file, size*images, unix.PROT_READ|unix.PROT_WRITE)
	if err != nil {
		return nil, fmt.Errorf("mmap SHM file: %w", err)
	}

	s.pool = shm.CreatePool(s.file, size*images)
	bounds := image.Rect(0, 0, cfg.Extent.X, cfg.Extent.Y)
	for i := range images {
		img := &frame{
			Image: &format.Image{
				Format: pixFormat,
				Rect:   bounds,
				Pix:    s.mmap[i*size : (i+1)*size],
			},
			buf: s.pool.CreateBuffer(i*size, cfg.Extent.X, cfg.Extent.Y, stride, wlFormat),
		}
		img.buf.Release = img.release
		s.images = append(s.images, img)
	}

	debug.Log().Debug("shm swapchain created", "surface", surface.ID(), "extent", cfg.Extent, "images", images, "format", wlFormat)
	return &s, nil
}

type frame struct {
	*format.Image
	buf *wl.Buffer

	// busy is true while the compositor may read from the buffer.
	busy     bool
	acquired bool

	// orphaned buffers belong to a destroyed swapchain and are
	// destroyed once released.
	orphaned bool
}

func (img *frame) release() {
	img.busy = false
	if img.orphaned {
		img.buf.Destroy()
	}
}

// Swapchain is a ring of wl_shm buffers. An image can't be acquired
// again until the compositor has released it.
type Swapchain struct {
	surface *wl.ShellSurface
	clear   color.Color
	format  wl.ShmFormat

	file   *os.File
	mmap   Mmap
	pool   *wl.ShmPool
	images []*frame
}

func (s *Swapchain) Acquire() (int, error) {
	for i, img := range s.images {
		if img.busy || img.acquired {
			continue
		}

		img.acquired = true
		if s.clear != nil {
			draw.Draw(img, img.Bounds(), image.NewUniform(s.clear), image.Point{}, draw.Src)
		}
		return i, nil
	}
	return 0, present.ErrNoImage
}

func (s *Swapchain) Image(index int) draw.Image {
	if index < 0 || index >= len(s.images) {
		return nil
	}
	return s.images[index].Image
}

// Present attaches the image to the surface, damages it and commits.
func (s *Swapchain) Present(index int, damage []image.Rectangle) error {
	if index < 0 || index >= len(s.images) || !s.images[index].acquired {
		return fmt.Errorf("image %v was not acquired", index)
	}
	img := s.images[index]

	s.surface.Attach(img.buf)
	if len(damage) == 0 {
		damage = []image.Rectangle{img.Bounds()}
	}
	for _, r := range damage {
		s.surface.Damage(r.Intersect(img.Bounds()))
	}
	s.surface.Commit()

	img.acquired = false
	img.busy = true
	return nil
}

func (s *Swapchain) Discard(index int) {
	if index >= 0 && index < len(s.images) {
		s.images[index].acquired = false
	}
}

// Busy returns the number of images that the compositor holds.
func (s *Swapchain) Busy() (n int) {
	for _, img := range s.images {
		if img.busy {
			n++
		}
	}
	return n
}

// Destroy destroys the swapchain. Buffers that the compositor still
// holds are destroyed when it releases them, so the surface keeps its
// last frame until a new one is committed.
func (s *Swapchain) Destroy() {
	for _, img := range s.images {
		if img.busy {
			img.orphaned = true
			continue
		}
		img.buf.Destroy()
	}
	s.images = nil
	if s.pool != nil {
		s.pool.Destroy()
		s.pool = nil
	}
	if s.mmap != nil {
		s.mmap.Unmap()
		s.mmap = nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
}
