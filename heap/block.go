package heap

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	"github.com/Krantz-XRF/memory-manager/memutils"
)

const (
	// BlockSize is the fixed footprint of one heap block in bytes.
	BlockSize = 4 * memutils.KiB
	// BlockWords is the number of heap words one block spans.
	BlockWords = BlockSize / memutils.WordSize
)

// BlockFullError is returned by AllocateObject when the block's unused tail
// cannot hold another object of the requested shape.
var BlockFullError error = errors.New("the block cannot hold an object of this shape")

// BlockDescriptor tracks one block of heap memory: where it starts and how
// far its objects extend. Objects pack the prefix [start, free) with no gaps
// in allocation order; the tail [free, end) is unused. The descriptor itself
// lives on the Go side, only the objects live in mapped memory.
type BlockDescriptor struct {
	start Address
	free  Address
}

// NewBlockDescriptor returns the descriptor of the empty block starting at
// start, which must be word-aligned. Blocks carved from a mega-block are
// always BlockSize-aligned on top of that.
func NewBlockDescriptor(start Address) BlockDescriptor {
	assertAligned(start, memutils.WordSize)

	block := BlockDescriptor{
		start: start,
		free:  start,
	}
	block.stampCanary()
	return block
}

// StartAddress returns the address of the block's first word.
func (b *BlockDescriptor) StartAddress() Address {
	return b.start
}

// FreeAddress returns the block's free boundary: the address where the next
// object will be placed, one past the last word in use.
func (b *BlockDescriptor) FreeAddress() Address {
	return b.free
}

// EndAddress returns the address one past the block's last word.
func (b *BlockDescriptor) EndAddress() Address {
	return b.start.Offset(BlockSize)
}

// UsedWords returns the number of words occupied by objects.
func (b *BlockDescriptor) UsedWords() int {
	return int(b.free-b.start) / memutils.WordSize
}

// FreeWords returns the number of unused words in the block's tail.
func (b *BlockDescriptor) FreeWords() int {
	return b.FreeBytes() / memutils.WordSize
}

// FreeBytes returns the size of the block's unused tail in bytes.
func (b *BlockDescriptor) FreeBytes() int {
	return int(b.EndAddress() - b.free)
}

// IsEmpty returns true while the block holds no objects.
func (b *BlockDescriptor) IsEmpty() bool {
	return b.free == b.start
}

// stampCanary rewrites the debug canary just past the free boundary when the
// unused tail can hold one. Compiles to nothing in production builds.
func (b *BlockDescriptor) stampCanary() {
	if memutils.DebugMargin > 0 && b.FreeBytes() >= memutils.DebugMargin {
		memutils.WriteMagicValue(b.free.Pointer(), 0)
	}
}

// AllocateObject places a fresh object of the given shape at the free
// boundary and advances the boundary past it. The new object's fields are
// zeroed. Objects are never freed individually, so the location is fixed
// until the backing mega-block is destroyed.
func (b *BlockDescriptor) AllocateObject(desc *ObjectDescriptor) (Object, error) {
	if desc.TotalWords() > b.FreeWords() {
		return Object{}, errors.Wrapf(BlockFullError,
			"the object needs %d words but the block at %s has %d free",
			desc.TotalWords(), b.start, b.FreeWords())
	}

	obj := desc.PlaceAt(b.free)
	b.free = obj.EndAddress()
	b.stampCanary()
	memutils.DebugValidate(b)
	return obj, nil
}

// ObjectIterator is an independent read-only cursor over one block's objects
// in address order. Create one with Objects; to restart a walk, create
// another.
type ObjectIterator struct {
	current  Address
	boundary Address
}

// Next returns the next object and true, or a zero Object and false once the
// walk is done. Every object whose start lies below the free boundary is
// yielded, the final one included.
func (it *ObjectIterator) Next() (Object, bool) {
	if it.current >= it.boundary {
		return Object{}, false
	}

	obj := ObjectAt(it.current)
	it.current = obj.EndAddress()
	return obj, true
}

// Objects returns a fresh iterator over the block's objects. The iterator
// snapshots the free boundary, so objects allocated while it is live are not
// yielded.
func (b *BlockDescriptor) Objects() ObjectIterator {
	return ObjectIterator{
		current:  b.start,
		boundary: b.free,
	}
}

// VisitObjects walks every object in the block in address order and stops at
// the first error, returning it.
func (b *BlockDescriptor) VisitObjects(visit func(obj Object) error) error {
	iter := b.Objects()
	for obj, ok := iter.Next(); ok; obj, ok = iter.Next() {
		if err := visit(obj); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the block's packing invariants: the free boundary lies
// word-aligned inside the block, the objects tile [start, free) exactly, and
// in debug builds the canary past the boundary is intact. When the block is
// consistent it returns nil.
func (b *BlockDescriptor) Validate() error {
	if b.free < b.start || b.free > b.EndAddress() {
		return errors.Errorf("the free boundary %s lies outside the block [%s, %s)",
			b.free, b.start, b.EndAddress())
	}
	if !b.free.IsAligned(memutils.WordSize) {
		return errors.Errorf("the free boundary %s is not word-aligned", b.free)
	}

	current := b.start
	for current < b.free {
		obj := ObjectAt(current)
		if obj.TotalWords() < 1 {
			return errors.Errorf("the object at %s has an impossible size of %d words",
				current, obj.TotalWords())
		}

		end := obj.EndAddress()
		if end > b.free {
			return errors.Errorf("the object at %s ends at %s, past the free boundary %s",
				current, end, b.free)
		}
		current = end
	}

	if memutils.DebugMargin > 0 && b.FreeBytes() >= memutils.DebugMargin &&
		!memutils.ValidateMagicValue(b.free.Pointer(), 0) {
		return errors.Errorf("the canary past the free boundary %s has been overwritten", b.free)
	}

	return nil
}

// AddStatistics accounts this block and its objects into stats.
func (b *BlockDescriptor) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++

	_ = b.VisitObjects(func(obj Object) error {
		stats.ObjectCount++
		stats.ObjectBytes += obj.Descriptor().TotalBytes()
		return nil
	})
}

// AddDetailedStatistics accounts this block, its objects, and its unused
// tail into stats.
func (b *BlockDescriptor) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount++

	_ = b.VisitObjects(func(obj Object) error {
		stats.AddObject(obj.Descriptor().TotalBytes())
		return nil
	})

	if free := b.FreeBytes(); free > 0 {
		stats.AddUnusedRange(free)
	}
}

// BlockJsonData populates a json object with this block's packing summary.
func (b *BlockDescriptor) BlockJsonData(json jwriter.ObjectState) {
	objectCount := 0
	_ = b.VisitObjects(func(obj Object) error {
		objectCount++
		return nil
	})

	json.Name("StartAddress").String(b.start.String())
	json.Name("TotalBytes").Int(BlockSize)
	json.Name("UnusedBytes").Int(b.FreeBytes())
	json.Name("Objects").Int(objectCount)
}
