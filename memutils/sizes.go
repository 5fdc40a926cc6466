package memutils

import "unsafe"

// Byte-count units for the fixed sizes used throughout this module. The heap
// layout is specified in binary units, so these are powers of 1024.
const (
	B   = 1
	KiB = 1024 * B
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// WordSize is the size in bytes of one heap word. Object layouts are specified
// in words, and every in-heap field (descriptor pointers, unpacked fields,
// object pointers) occupies exactly one word.
const WordSize = int(unsafe.Sizeof(uintptr(0)))
