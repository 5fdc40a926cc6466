//go:build unix

package vmem

import (
	"math"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

func sysPageSize() (int, error) {
	return unix.Getpagesize(), nil
}

func sysMinimumAlignment() (int, error) {
	return unix.Getpagesize(), nil
}

func makeProtectionFlag(prot Protection) int {
	flag := unix.PROT_NONE
	if prot&ProtRead != 0 {
		flag |= unix.PROT_READ
	}
	if prot&ProtWrite != 0 {
		flag |= unix.PROT_WRITE
	}
	if prot&ProtExec != 0 {
		flag |= unix.PROT_EXEC
	}
	return flag
}

func errnoMapError(errno unix.Errno) *MapError {
	code := UnknownError
	switch errno {
	case 0:
		code = NoError
	case unix.EINVAL:
		code = InvalidArguments
	case unix.EAGAIN:
		code = TryAgain
	case unix.ENOMEM:
		code = NoMemory
	case unix.EOVERFLOW:
		code = LengthOverflow
	}
	return &MapError{Code: code, Errno: uint64(errno)}
}

func sysAllocate(size int, prot Protection) (unsafe.Pointer, error) {
	addr, err := unix.MmapPtr(-1, 0, nil, uintptr(size), makeProtectionFlag(prot), unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, cerrors.Wrapf(osError(err), "mmap %d bytes", size)
	}
	return addr, nil
}

// sysAllocateAligned over-allocates by the requested alignment, then unmaps
// the leading padding and, when the base was not already aligned, the
// remainder past the end of the aligned region. Exactly one mapping of
// exactly size bytes survives.
func sysAllocateAligned(alignment, size int, prot Protection) (unsafe.Pointer, error) {
	page, err := PageSize()
	if err != nil {
		return nil, err
	}
	if alignment <= page {
		// Mappings are page-aligned, which satisfies every smaller power of two.
		return sysAllocate(size, prot)
	}
	if size > math.MaxInt-alignment {
		return nil, cerrors.Wrapf(newMapError(LengthOverflow), "aligned allocate %d bytes", size)
	}

	total := size + alignment
	base, err := unix.MmapPtr(-1, 0, nil, uintptr(total), makeProtectionFlag(prot), unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, cerrors.Wrapf(osError(err), "mmap %d bytes for %d aligned to %d", total, size, alignment)
	}

	// alignment exceeds the page size here, so both paddings are multiples of
	// the page size and the partial unmaps cannot clip the aligned region.
	backPad := uintptr(base) & uintptr(alignment-1)
	frontPad := uintptr(alignment) - backPad

	if err := unix.MunmapPtr(base, frontPad); err != nil {
		_ = unix.MunmapPtr(base, uintptr(total))
		return nil, cerrors.Wrapf(osError(err), "munmap %d front padding bytes", frontPad)
	}
	start := unsafe.Add(base, frontPad)
	if backPad != 0 {
		if err := unix.MunmapPtr(unsafe.Add(start, size), backPad); err != nil {
			_ = unix.MunmapPtr(start, uintptr(size)+backPad)
			return nil, cerrors.Wrapf(osError(err), "munmap %d back padding bytes", backPad)
		}
	}
	return start, nil
}

func sysDeallocate(addr unsafe.Pointer, size int) error {
	if err := unix.MunmapPtr(addr, uintptr(size)); err != nil {
		return cerrors.Wrapf(osError(err), "munmap %d bytes at %p", size, addr)
	}
	return nil
}
