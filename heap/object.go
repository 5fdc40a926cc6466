package heap

import (
	"unsafe"

	"github.com/Krantz-XRF/memory-manager/memutils"
)

// ObjectDescriptor describes the shape shared by every object of one type:
// how many unpacked (scalar) fields it has and how many pointer fields.
// The counts are fixed for the descriptor's lifetime, and objects always lay
// their pointer fields after all unpacked fields, which is what lets two
// counts pin down the whole layout.
type ObjectDescriptor struct {
	UnpackedFieldCount int
	PointerCount       int
}

// TotalWords returns the number of heap words an object of this shape
// occupies: one word holding the descriptor's address, then one word per
// field.
func (d *ObjectDescriptor) TotalWords() int {
	return 1 + d.UnpackedFieldCount + d.PointerCount
}

// TotalBytes returns the footprint of an object of this shape in bytes.
func (d *ObjectDescriptor) TotalBytes() int {
	return d.TotalWords() * memutils.WordSize
}

// Object is a borrowed view of one object in mapped heap memory. It shares
// storage with the heap, so it stays valid only as long as the mega-block
// holding the object, and writes through the view are writes to the heap.
type Object struct {
	start          Address
	descriptorWord *uintptr
	unpacked       []uintptr
	pointers       []Address
}

// ObjectAt reconstructs the object view rooted at start. The first word at
// start must hold the address of a live descriptor. Nothing beyond alignment
// is validated, so callers must only pass addresses this layer produced.
func ObjectAt(start Address) Object {
	cursor := start
	descriptorWord := consumeRef[uintptr](&cursor)
	desc := (*ObjectDescriptor)(unsafe.Pointer(*descriptorWord))
	return Object{
		start:          start,
		descriptorWord: descriptorWord,
		unpacked:       consumeSlice[uintptr](&cursor, desc.UnpackedFieldCount),
		pointers:       consumeSlice[Address](&cursor, desc.PointerCount),
	}
}

// PlaceAt writes a fresh object of this shape at start: the descriptor word
// first, then zeroed unpacked and pointer fields. The caller guarantees
// TotalWords of writable heap words at start. The descriptor must stay
// reachable on the Go side for as long as the object exists; registering it
// in a DescriptorRegistry is the sanctioned way to arrange that.
func (d *ObjectDescriptor) PlaceAt(start Address) Object {
	cursor := start
	descriptorWord := consumeRef[uintptr](&cursor)
	*descriptorWord = uintptr(unsafe.Pointer(d))

	unpacked := consumeSlice[uintptr](&cursor, d.UnpackedFieldCount)
	clear(unpacked)
	pointers := consumeSlice[Address](&cursor, d.PointerCount)
	clear(pointers)

	return Object{
		start:          start,
		descriptorWord: descriptorWord,
		unpacked:       unpacked,
		pointers:       pointers,
	}
}

// StartAddress returns the address of the object's first word.
func (o Object) StartAddress() Address {
	return o.start
}

// EndAddress returns the address one past the object's last word, which is
// where the next object in a packed block begins.
func (o Object) EndAddress() Address {
	return o.start.OffsetWords(o.TotalWords())
}

// Descriptor returns the object's descriptor, read back from the heap word
// that stores its address.
func (o Object) Descriptor() *ObjectDescriptor {
	return (*ObjectDescriptor)(unsafe.Pointer(*o.descriptorWord))
}

// TotalWords returns the object's footprint in heap words.
func (o Object) TotalWords() int {
	return o.Descriptor().TotalWords()
}

// Unpacked returns the object's unpacked fields as one flat span of words.
func (o Object) Unpacked() []uintptr {
	return o.unpacked
}

// Pointers returns the object's pointer fields. Every element is the address
// of another object's first word, or zero.
func (o Object) Pointers() []Address {
	return o.pointers
}

// ObjectVisitor carries the callbacks Visit feeds with the parts of an
// object. Nil callbacks are skipped.
type ObjectVisitor struct {
	// Descriptor receives the object's descriptor
	Descriptor func(desc *ObjectDescriptor)
	// Unpacked receives all unpacked fields as one span
	Unpacked func(fields []uintptr)
	// Pointer receives each pointer field in layout order. The pointee may be
	// updated through the argument.
	Pointer func(ptr *Address)
}

// Visit walks the object's parts in layout order: the descriptor, then the
// unpacked fields as one span, then every pointer field individually. This is
// the traversal a tracing collector performs per object.
func (o Object) Visit(visitor ObjectVisitor) {
	if visitor.Descriptor != nil {
		visitor.Descriptor(o.Descriptor())
	}
	if visitor.Unpacked != nil {
		visitor.Unpacked(o.unpacked)
	}
	if visitor.Pointer != nil {
		for i := range o.pointers {
			visitor.Pointer(&o.pointers[i])
		}
	}
}
