// Package vmem provides the platform virtual-memory primitives the heap sits
// on: anonymous page-granular mappings with explicit protection, aligned
// reservation for carving fixed-layout regions, and the Chunk handle that owns
// one mapping for its lifetime.
//
// Platform failures are translated into *MapError values classified by
// ErrorCode and wrapped with call-site context. Retrieve them with errors.As.
package vmem

import (
	"sync"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"

	"github.com/Krantz-XRF/memory-manager/memutils"
)

var (
	pageSizeOnce         = sync.OnceValues(sysPageSize)
	minimumAlignmentOnce = sync.OnceValues(sysMinimumAlignment)
)

// PageSize reports the platform page size in bytes. The platform is queried
// once and the value cached for the life of the process, so every call
// reports the same value.
func PageSize() (int, error) {
	return pageSizeOnce()
}

// MinimumAlignment reports the smallest alignment AllocateAligned is
// guaranteed to honor. On unix platforms this equals the page size. On
// windows it is the allocation granularity, which may be larger than a page;
// callers must not assume the two values agree, only that each is a legal
// minimum on its platform.
func MinimumAlignment() (int, error) {
	return minimumAlignmentOnce()
}

// Allocate maps size bytes of fresh, zero-initialized, anonymous memory with
// the requested protection. Every call produces an independent mapping;
// release it with Deallocate, passing the same size.
func Allocate(size int, prot Protection) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, cerrors.Wrapf(newMapError(InvalidArguments), "allocate %d bytes", size)
	}
	return sysAllocate(size, prot)
}

// AllocateAligned behaves like Allocate with the additional guarantee that
// the returned address is a multiple of alignment. The alignment must be a
// power of two and size a positive multiple of alignment; violations fail
// with InvalidArguments before the platform is asked. Alignments below
// MinimumAlignment are platform-dependent: unix mappings are page-aligned
// regardless, while windows rejects them.
func AllocateAligned(alignment, size int, prot Protection) (unsafe.Pointer, error) {
	if err := memutils.CheckPow2(alignment, "alignment"); err != nil {
		return nil, cerrors.Wrapf(newMapError(InvalidArguments), "aligned allocate: %s", err)
	}
	if size <= 0 {
		return nil, cerrors.Wrapf(newMapError(InvalidArguments), "aligned allocate %d bytes", size)
	}
	if err := memutils.CheckMultipleOf(size, alignment, "size"); err != nil {
		return nil, cerrors.Wrapf(newMapError(InvalidArguments), "aligned allocate: %s", err)
	}
	return sysAllocateAligned(alignment, size, prot)
}

// Deallocate releases a mapping returned by Allocate or AllocateAligned.
// The size must be the size the mapping was created with. Windows identifies
// mappings by address alone and ignores the size, but callers pass it
// unconditionally so call sites stay portable.
func Deallocate(addr unsafe.Pointer, size int) error {
	if addr == nil || size <= 0 {
		return cerrors.Wrapf(newMapError(InvalidArguments), "deallocate %d bytes at %p", size, addr)
	}
	return sysDeallocate(addr, size)
}
