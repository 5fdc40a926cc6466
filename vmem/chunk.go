package vmem

import (
	"fmt"
	"unsafe"
)

// Chunk owns a single mapping produced by AllocateAligned and is the only
// sanctioned way to hold one long-term. The owner must call Free exactly
// once; everything handed out by the accessors is a borrowed view that dies
// with the chunk.
type Chunk struct {
	data unsafe.Pointer
	size int
}

// AllocateChunk maps size bytes of fresh zero-initialized memory aligned to
// alignment and returns the Chunk owning the mapping. The argument contract
// is that of AllocateAligned.
func AllocateChunk(alignment, size int, prot Protection) (*Chunk, error) {
	data, err := AllocateAligned(alignment, size, prot)
	if err != nil {
		return nil, err
	}
	return &Chunk{
		data: data,
		size: size,
	}, nil
}

// Data returns the base address of the mapping.
func (c *Chunk) Data() unsafe.Pointer {
	return c.data
}

// Size returns the size of the mapping in bytes.
func (c *Chunk) Size() int {
	return c.size
}

// Bytes views the whole mapping as a byte slice.
func (c *Chunk) Bytes() []byte {
	return unsafe.Slice((*byte)(c.data), c.size)
}

// Words views the whole mapping as heap words.
func (c *Chunk) Words() []uintptr {
	return ChunkSlice[uintptr](c)
}

// Free releases the mapping. Calling Free twice is a programming error and
// panics. A release failure also panics: an allocator that cannot return
// memory it owns has no safe way to continue.
func (c *Chunk) Free() {
	if c.data == nil {
		panic("attempting to free a memory chunk that was already freed")
	}

	if err := Deallocate(c.data, c.size); err != nil {
		panic(fmt.Sprintf("failed to release a %d-byte memory chunk: %v", c.size, err))
	}

	c.data = nil
	c.size = 0
}

// ChunkSlice views the chunk's contents as a slice of T, truncated to the
// element count that fits. The base address must be aligned for T;
// misalignment is a programming error and panics.
func ChunkSlice[T any](c *Chunk) []T {
	var zero T
	align := unsafe.Alignof(zero)
	if uintptr(c.data)&(align-1) != 0 {
		panic(fmt.Sprintf("memory chunk at %p is not aligned for elements of alignment %d", c.data, align))
	}
	return unsafe.Slice((*T)(c.data), uintptr(c.size)/unsafe.Sizeof(zero))
}
