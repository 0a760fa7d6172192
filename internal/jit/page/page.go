// Package page manages executable memory regions for JIT-compiled code:
// allocate read/write, copy machine code in, flip to read/execute, and
// release on shutdown. The allocate-write-flip-release sequence is
// grounded on the scm-jit pattern in the wider example pack, modernized
// to use golang.org/x/sys/unix instead of raw syscall numbers.
package page

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is one mmap'd, page-aligned block of executable memory.
type Region struct {
	data []byte
	size int
}

// Alloc reserves a Region at least size bytes long, rounded up to the
// system page size, and copies code into it. The region starts out
// writable and non-executable; call MakeExecutable once code is final.
func Alloc(code []byte) (*Region, error) {
	pageSize := unix.Getpagesize()
	n := (len(code) + pageSize - 1) &^ (pageSize - 1)
	if n == 0 {
		n = pageSize
	}

	data, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("page: mmap %d bytes: %w", n, err)
	}
	copy(data, code)

	return &Region{data: data, size: n}, nil
}

// MakeExecutable flips the region from read/write to read/execute. Once
// called, the region's contents must not be modified: most hosts forbid a
// mapping that is simultaneously writable and executable.
func (r *Region) MakeExecutable() error {
	if err := unix.Mprotect(r.data, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("page: mprotect rx: %w", err)
	}
	return nil
}

// Entry returns a pointer to the first byte of the region, suitable for
// casting into a callable function value at the JIT's call boundary.
func (r *Region) Entry() unsafe.Pointer {
	return unsafe.Pointer(&r.data[0])
}

// Release unmaps the region. The region must not be used afterward.
func (r *Region) Release() error {
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("page: munmap: %w", err)
	}
	return nil
}
