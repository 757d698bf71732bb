package wayland

import (
	"errors"
	"fmt"

	"github.com/neurlang/wayland/wl"
	"golang.org/x/sys/unix"

	"github.com/tuxx/shroudlock/internal/output"
	"github.com/tuxx/shroudlock/internal/render"
)

// shmBuffer is a wl_buffer backed by a memfd mapped into our address space
type shmBuffer struct {
	pool   *wl.ShmPool
	buffer *wl.Buffer
	data   []byte
	size   output.Size
}

// mapShm creates an anonymous shared memory file of length bytes and maps it
// read-write. The caller owns the returned fd.
func mapShm(length int) (fd int, data []byte, err error) {
	if length <= 0 {
		return -1, nil, errors.New("shm buffer length must be positive")
	}

	fd, err = unix.MemfdCreate("shroudlock-buffer", unix.MFD_CLOEXEC)
	if err != nil {
		return -1, nil, fmt.Errorf("failed to create memfd: %w", err)
	}

	if err := unix.Ftruncate(fd, int64(length)); err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("failed to truncate memfd: %w", err)
	}

	data, err = unix.Mmap(fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("failed to mmap: %w", err)
	}
	return fd, data, nil
}

// newShmBuffer allocates an ARGB8888 buffer of the given size
func newShmBuffer(shm *wl.Shm, size output.Size) (*shmBuffer, error) {
	stride := size.Width * render.BytesPerPixel
	length := stride * size.Height

	fd, data, err := mapShm(length)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	pool, err := shm.CreatePool(uintptr(fd), int32(length))
	if err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	buffer, err := pool.CreateBuffer(0, int32(size.Width), int32(size.Height), int32(stride), wl.ShmFormatArgb8888)
	if err != nil {
		pool.Destroy()
		unix.Munmap(data)
		return nil, fmt.Errorf("failed to create buffer: %w", err)
	}

	return &shmBuffer{pool: pool, buffer: buffer, data: data, size: size}, nil
}

func (b *shmBuffer) Pixels() []byte { return b.data }

func (b *shmBuffer) Size() output.Size { return b.size }

// Release destroys the wl_buffer and its pool and unmaps the memory
func (b *shmBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Destroy()
		b.buffer = nil
	}
	if b.pool != nil {
		b.pool.Destroy()
		b.pool = nil
	}
	if b.data != nil {
		unix.Munmap(b.data)
		b.data = nil
	}
}
