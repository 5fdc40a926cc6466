// Package heap implements the fixed heap layout this runtime's memory is
// organized into: mega-blocks reserved from the platform, carved into
// blocks, which in turn hold objects described by two-count descriptors.
// Everything in this package is a view over memory owned by vmem chunks;
// nothing here allocates from the Go heap on the object path.
package heap

import (
	"fmt"
	"unsafe"

	"github.com/Krantz-XRF/memory-manager/memutils"
)

// Address is a location inside mapped heap memory. It is an integer rather
// than a Go pointer: the memory it names lives outside the Go heap, is never
// moved, and stays valid exactly as long as the chunk backing it. Whoever
// constructs an Address is responsible for pointing it at live mapped memory;
// validity is never checked afterward.
type Address uintptr

// AddressOf wraps a raw pointer into an Address.
func AddressOf(ptr unsafe.Pointer) Address {
	return Address(uintptr(ptr))
}

// Pointer converts the address back into a raw pointer.
func (a Address) Pointer() unsafe.Pointer {
	return unsafe.Pointer(uintptr(a))
}

// Offset returns the address moved by the given number of bytes.
func (a Address) Offset(bytes int) Address {
	return a + Address(bytes)
}

// OffsetWords returns the address moved by the given number of heap words.
func (a Address) OffsetWords(words int) Address {
	return a.Offset(words * memutils.WordSize)
}

// IsAligned returns true when the address is a multiple of alignment.
func (a Address) IsAligned(alignment int) bool {
	return a%Address(alignment) == 0
}

func (a Address) String() string {
	return fmt.Sprintf("Address(%#x)", uintptr(a))
}

func assertAligned(a Address, alignment int) {
	if !a.IsAligned(alignment) {
		panic(fmt.Sprintf("heap address %s is not aligned to %d", a, alignment))
	}
}

// PointerAt reinterprets the memory at address a as a value of type T and
// returns a pointer to it. The address must be aligned for T; misalignment
// is a programming error and panics.
func PointerAt[T any](a Address) *T {
	var zero T
	assertAligned(a, int(unsafe.Alignof(zero)))
	return (*T)(a.Pointer())
}

// SliceAt reinterprets the memory starting at a as a slice of count values
// of type T. The alignment contract is that of PointerAt.
func SliceAt[T any](a Address, count int) []T {
	var zero T
	assertAligned(a, int(unsafe.Alignof(zero)))
	return unsafe.Slice((*T)(a.Pointer()), count)
}

// consumeRef reads a typed view at the cursor and advances the cursor past it.
func consumeRef[T any](cursor *Address) *T {
	ref := PointerAt[T](*cursor)
	*cursor = cursor.Offset(int(unsafe.Sizeof(*ref)))
	return ref
}

// consumeSlice reads a view of count elements at the cursor and advances the
// cursor past them.
func consumeSlice[T any](cursor *Address, count int) []T {
	var zero T
	view := SliceAt[T](*cursor, count)
	*cursor = cursor.Offset(count * int(unsafe.Sizeof(zero)))
	return view
}
