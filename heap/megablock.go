package heap

import (
	"context"
	"log/slog"
	"strconv"

	cerrors "github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"

	"github.com/Krantz-XRF/memory-manager/memutils"
	"github.com/Krantz-XRF/memory-manager/vmem"
)

const (
	// MegaBlockSize is the fixed footprint of one mega-block reservation in bytes.
	MegaBlockSize = 4 * memutils.MiB
	// MegaBlockWords is the number of heap words one mega-block spans.
	MegaBlockWords = MegaBlockSize / memutils.WordSize
	// BlocksPerMegaBlock is the number of blocks one mega-block carves into.
	BlocksPerMegaBlock = MegaBlockSize / BlockSize
)

// MegaBlock owns one MegaBlockSize mapping, aligned to its own size, plus the
// block descriptors carved from it and the forward link to the next
// mega-block in its list. The alignment is what makes MegaBlockBase work on
// any interior address.
type MegaBlock struct {
	chunk  *vmem.Chunk
	blocks []BlockDescriptor
	next   *MegaBlock
	id     int
}

func newMegaBlock(id int) (*MegaBlock, error) {
	chunk, err := vmem.AllocateChunk(MegaBlockSize, MegaBlockSize, vmem.ProtRead|vmem.ProtWrite)
	if err != nil {
		return nil, cerrors.Wrapf(err, "failed to reserve mega-block %d", id)
	}

	base := AddressOf(chunk.Data())
	blocks := make([]BlockDescriptor, BlocksPerMegaBlock)
	for i := range blocks {
		blocks[i] = NewBlockDescriptor(base.Offset(i * BlockSize))
	}

	return &MegaBlock{
		chunk:  chunk,
		blocks: blocks,
		id:     id,
	}, nil
}

// BaseAddress returns the address of the mega-block's first word.
func (mb *MegaBlock) BaseAddress() Address {
	return AddressOf(mb.chunk.Data())
}

// EndAddress returns the address one past the mega-block's last word.
func (mb *MegaBlock) EndAddress() Address {
	return mb.BaseAddress().Offset(MegaBlockSize)
}

// ContainsAddress returns true when a lies inside this mega-block.
func (mb *MegaBlock) ContainsAddress(a Address) bool {
	return a >= mb.BaseAddress() && a < mb.EndAddress()
}

// BlockCount returns the number of blocks carved from this mega-block,
// always BlocksPerMegaBlock while the mega-block is live.
func (mb *MegaBlock) BlockCount() int {
	return len(mb.blocks)
}

// Block returns the i-th block's descriptor. The descriptor is shared, not
// copied: allocations through it are visible to every later call.
func (mb *MegaBlock) Block(i int) *BlockDescriptor {
	return &mb.blocks[i]
}

// Next returns the next mega-block in the chain, or nil at the tail.
func (mb *MegaBlock) Next() *MegaBlock {
	return mb.next
}

// AddStatistics accounts this mega-block, its blocks, and their objects into
// stats.
func (mb *MegaBlock) AddStatistics(stats *memutils.Statistics) {
	stats.MegaBlockCount++
	for i := range mb.blocks {
		mb.blocks[i].AddStatistics(stats)
	}
}

// AddDetailedStatistics accounts this mega-block, its blocks, their objects,
// and their unused tails into stats.
func (mb *MegaBlock) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.MegaBlockCount++
	for i := range mb.blocks {
		mb.blocks[i].AddDetailedStatistics(stats)
	}
}

func (mb *MegaBlock) validate() error {
	if mb.chunk == nil {
		return errors.Errorf("mega-block %d has no backing memory", mb.id)
	}
	if mb.chunk.Size() != MegaBlockSize {
		return errors.Errorf("mega-block %d spans %d bytes instead of %d",
			mb.id, mb.chunk.Size(), MegaBlockSize)
	}

	base := mb.BaseAddress()
	if !base.IsAligned(MegaBlockSize) {
		return errors.Errorf("mega-block %d base %s is not aligned to its size", mb.id, base)
	}
	if len(mb.blocks) != BlocksPerMegaBlock {
		return errors.Errorf("mega-block %d carved into %d blocks instead of %d",
			mb.id, len(mb.blocks), BlocksPerMegaBlock)
	}

	for i := range mb.blocks {
		block := &mb.blocks[i]
		if block.StartAddress() != base.Offset(i*BlockSize) {
			return errors.Errorf("block %d of mega-block %d starts at %s instead of %s",
				i, mb.id, block.StartAddress(), base.Offset(i*BlockSize))
		}
		if err := block.Validate(); err != nil {
			return cerrors.Wrapf(err, "block %d of mega-block %d is inconsistent", i, mb.id)
		}
	}

	return nil
}

func (mb *MegaBlock) destroy() {
	mb.chunk.Free()
	mb.chunk = nil
	mb.blocks = nil
	mb.next = nil
}

// MegaBlockBase masks an address inside any live mega-block back to that
// mega-block's base address.
func MegaBlockBase(a Address) Address {
	return memutils.AlignDown(a, Address(MegaBlockSize))
}

// MegaBlockList is the growable set of mega-blocks backing one heap, chained
// oldest to newest. The list only ever grows until Destroy tears the whole
// heap down; single mega-blocks are never released.
//
// When constructed with useMutex, the chain links and count are guarded
// internally. Block contents are never guarded: allocating into a block that
// another goroutine is walking is up to the caller to rule out.
type MegaBlockList struct {
	logger *slog.Logger
	mutex  optionalRWMutex

	count int
	head  *MegaBlock
	tail  *MegaBlock

	nextMegaBlockId int
}

// NewMegaBlockList returns an empty list that logs through the provided
// logger, or slog.Default when nil.
func NewMegaBlockList(logger *slog.Logger, useMutex bool) *MegaBlockList {
	if logger == nil {
		logger = slog.Default()
	}
	return &MegaBlockList{
		logger: logger,
		mutex:  optionalRWMutex{useMutex: useMutex},
	}
}

// Head returns the oldest mega-block, or nil while the list is empty. The
// rest of the chain hangs off MegaBlock.Next.
func (l *MegaBlockList) Head() *MegaBlock {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.head
}

// Len returns the number of mega-blocks in the list.
func (l *MegaBlockList) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.count
}

// IsEmpty returns true while the list holds no mega-blocks.
func (l *MegaBlockList) IsEmpty() bool {
	return l.Len() == 0
}

// Grow reserves one more mega-block and appends it to the tail of the chain.
// The fresh mega-block, all of its blocks empty, is returned.
func (l *MegaBlockList) Grow() (*MegaBlock, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	mb, err := newMegaBlock(l.nextMegaBlockId)
	if err != nil {
		return nil, err
	}
	l.nextMegaBlockId++

	if l.count == 0 {
		l.head = mb
		l.tail = mb
		l.count = 1
	} else {
		l.tail.next = mb
		l.tail = mb
		l.count++
	}

	l.logger.LogAttrs(context.Background(), slog.LevelDebug,
		"grew the mega-block list",
		slog.Int("megablock.id", mb.id),
		slog.Int("count", l.count))

	return mb, nil
}

// ForEach walks the chain oldest to newest, stopping at the first error,
// which it returns. Walking an empty list is a no-op. The list lock, when
// enabled, is held across the walk.
func (l *MegaBlockList) ForEach(visit func(mb *MegaBlock) error) error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for mb := l.head; mb != nil; mb = mb.next {
		if err := visit(mb); err != nil {
			return err
		}
	}
	return nil
}

// ForEachChunk walks the backing chunks of the chain oldest to newest,
// stopping at the first error, which it returns.
func (l *MegaBlockList) ForEachChunk(visit func(chunk *vmem.Chunk) error) error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for mb := l.head; mb != nil; mb = mb.next {
		if err := visit(mb.chunk); err != nil {
			return err
		}
	}
	return nil
}

// Validate performs consistency checks over the whole chain: the declared
// length against the walked length, the tail link, and every mega-block's
// carving and packing invariants. These checks walk every object; production
// code should reach them through DebugValidate.
func (l *MegaBlockList) Validate() error {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	declaredCount := l.count
	actualCount := 0

	for mb := l.head; mb != nil; mb = mb.next {
		if err := mb.validate(); err != nil {
			return err
		}
		actualCount++
	}

	if declaredCount != actualCount {
		return errors.Errorf("the listed number of mega-blocks (%d) does not match the actual number in the chain (%d)",
			declaredCount, actualCount)
	}
	if l.tail != nil && l.tail.next != nil {
		return errors.New("the chain continues past the declared tail")
	}
	if (l.head == nil) != (l.tail == nil) {
		return errors.New("the chain has a head without a tail or a tail without a head")
	}

	return nil
}

// AddStatistics accounts every mega-block in the list into stats.
func (l *MegaBlockList) AddStatistics(stats *memutils.Statistics) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	for mb := l.head; mb != nil; mb = mb.next {
		mb.AddStatistics(stats)
	}
}

// AddDetailedStatistics accounts every mega-block in the list into stats.
func (l *MegaBlockList) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	l.addDetailedStatistics(stats)
}

func (l *MegaBlockList) addDetailedStatistics(stats *memutils.DetailedStatistics) {
	for mb := l.head; mb != nil; mb = mb.next {
		mb.AddDetailedStatistics(stats)
	}
}

// BuildStatsString streams a summary of the whole heap into writer.
func (l *MegaBlockList) BuildStatsString(writer *jwriter.Writer) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	var stats memutils.DetailedStatistics
	stats.Clear()
	l.addDetailedStatistics(&stats)

	obj := writer.Object()
	defer obj.End()

	obj.Name("MegaBlocks").Int(stats.MegaBlockCount)
	obj.Name("Blocks").Int(stats.BlockCount)
	obj.Name("Objects").Int(stats.ObjectCount)
	obj.Name("ObjectBytes").Int(stats.ObjectBytes)
	obj.Name("UnusedRanges").Int(stats.UnusedRangeCount)

	if stats.ObjectCount > 0 {
		obj.Name("ObjectSizeMin").Int(stats.ObjectSizeMin)
		obj.Name("ObjectSizeMax").Int(stats.ObjectSizeMax)
	}
}

// PrintDetailedMap streams the full heap layout into writer: every
// mega-block keyed by id, its populated blocks, and every object with its
// offset and shape.
func (l *MegaBlockList) PrintDetailedMap(writer *jwriter.Writer) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	objState := writer.Object()
	defer objState.End()

	for mb := l.head; mb != nil; mb = mb.next {
		mbObj := objState.Name(strconv.Itoa(mb.id)).Object()
		mbObj.Name("BaseAddress").String(mb.BaseAddress().String())

		blocksArr := mbObj.Name("Blocks").Array()
		for i := 0; i < mb.BlockCount(); i++ {
			block := mb.Block(i)
			if block.IsEmpty() {
				continue
			}

			blockObj := blocksArr.Object()
			blockObj.Name("Index").Int(i)
			block.BlockJsonData(blockObj)
			printDetailedMapObjects(block, blockObj)
			blockObj.End()
		}
		blocksArr.End()

		mbObj.End()
	}
}

func printDetailedMapObjects(block *BlockDescriptor, json jwriter.ObjectState) {
	arrayState := json.Name("ObjectList").Array()
	defer arrayState.End()

	_ = block.VisitObjects(func(obj Object) error {
		o := arrayState.Object()
		defer o.End()

		o.Name("Offset").Int(int(obj.StartAddress() - block.StartAddress()))
		o.Name("TotalWords").Int(obj.TotalWords())
		o.Name("UnpackedFields").Int(obj.Descriptor().UnpackedFieldCount)
		o.Name("Pointers").Int(obj.Descriptor().PointerCount)
		return nil
	})
}

// Destroy releases every mega-block's mapping and empties the list. Blocks
// that still hold objects are reported at error level first; the memory is
// released regardless, because the heap owns every object inside it.
// Destroying an empty list is a no-op.
func (l *MegaBlockList) Destroy() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for mb := l.head; mb != nil; mb = mb.next {
		l.logUnreleasedObjects(mb)
	}

	for mb := l.head; mb != nil; {
		next := mb.next
		mb.destroy()
		mb = next
	}

	l.head = nil
	l.tail = nil
	l.count = 0
}

func (l *MegaBlockList) logUnreleasedObjects(mb *MegaBlock) {
	var stats memutils.Statistics
	mb.AddStatistics(&stats)
	if stats.ObjectCount == 0 {
		return
	}

	l.logger.LogAttrs(context.Background(), slog.LevelError,
		"[UNRELEASED MEMORY] destroying a mega-block that still holds objects",
		slog.Int("megablock.id", mb.id),
		slog.Int("objects", stats.ObjectCount),
		slog.Int("objectBytes", stats.ObjectBytes))
}
