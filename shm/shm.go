// Package shm implements a software presentation backend on top of
// wl_shm buffers in shared memory.
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Create creates an anonymous shared memory file of the given size.
func Create(name string, size int) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	file := os.NewFile(uintptr(fd), name)

	err = file.Truncate(int64(size))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("truncate: %w", err)
	}

	// The compositor must never see the file shrink underneath it.
	unix.FcntlInt(file.Fd(), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK)
	return file, nil
}

type Mmap []byte

// Map maps size bytes of file into memory, shared with every other
// mapping of it.
func Map(file *os.File, size int, prot int) (mmap Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		m, merr := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
		mmap, err = Mmap(m), merr
	})
	if cerr != nil {
		return nil, cerr
	}

	return mmap, err
}

func (mmap Mmap) Unmap() error {
	return unix.Munmap(mmap)
}
