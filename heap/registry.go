package heap

import (
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
)

// DescriptorTag identifies one registered object shape.
type DescriptorTag uint32

// DescriptorRegistry is the table of object shapes known to the heap.
// Object words store raw descriptor addresses, which the Go collector cannot
// see; the registry is what keeps registered descriptors reachable, so a
// descriptor must be registered before any object carrying its address is
// placed, and the registry must outlive those objects.
type DescriptorRegistry struct {
	mutex       optionalRWMutex
	descriptors *swiss.Map[DescriptorTag, *ObjectDescriptor]
}

// NewDescriptorRegistry returns an empty registry. When useMutex is true the
// registry synchronizes internally and may be shared between goroutines.
func NewDescriptorRegistry(useMutex bool) *DescriptorRegistry {
	return &DescriptorRegistry{
		mutex:       optionalRWMutex{useMutex: useMutex},
		descriptors: swiss.NewMap[DescriptorTag, *ObjectDescriptor](42),
	}
}

// Register adds desc under tag. Tags are permanent: registering a tag that is
// already taken is an error, and there is no way to remove one.
func (r *DescriptorRegistry) Register(tag DescriptorTag, desc *ObjectDescriptor) error {
	if desc == nil {
		return errors.New("cannot register a nil object descriptor")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.descriptors.Get(tag); exists {
		return errors.Errorf("an object descriptor is already registered for tag %d", tag)
	}

	r.descriptors.Put(tag, desc)
	return nil
}

// Lookup returns the descriptor registered under tag, if any.
func (r *DescriptorRegistry) Lookup(tag DescriptorTag) (*ObjectDescriptor, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.descriptors.Get(tag)
}

// Count returns the number of registered descriptors.
func (r *DescriptorRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.descriptors.Count()
}
