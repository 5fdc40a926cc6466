package heap_test

import (
	"sync"
	"testing"

	"github.com/Krantz-XRF/memory-manager/heap"
	"github.com/stretchr/testify/require"
)

func TestDescriptorRegistry(t *testing.T) {
	registry := heap.NewDescriptorRegistry(false)
	require.Zero(t, registry.Count())

	pair := &heap.ObjectDescriptor{PointerCount: 2}
	require.NoError(t, registry.Register(1, pair))
	require.Equal(t, 1, registry.Count())

	found, ok := registry.Lookup(1)
	require.True(t, ok)
	require.Same(t, pair, found)

	_, ok = registry.Lookup(2)
	require.False(t, ok)
}

func TestDescriptorRegistryDuplicateTag(t *testing.T) {
	registry := heap.NewDescriptorRegistry(false)
	require.NoError(t, registry.Register(7, &heap.ObjectDescriptor{}))

	err := registry.Register(7, &heap.ObjectDescriptor{PointerCount: 1})
	require.Error(t, err)
	require.Equal(t, 1, registry.Count())

	// The original registration survives the failed attempt.
	found, ok := registry.Lookup(7)
	require.True(t, ok)
	require.Zero(t, found.PointerCount)
}

func TestDescriptorRegistryNilDescriptor(t *testing.T) {
	registry := heap.NewDescriptorRegistry(false)
	require.Error(t, registry.Register(3, nil))
	require.Zero(t, registry.Count())
}

func TestDescriptorRegistryConcurrentRegister(t *testing.T) {
	registry := heap.NewDescriptorRegistry(true)

	const workers = 16
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(tag heap.DescriptorTag) {
			defer wg.Done()
			errs <- registry.Register(tag, &heap.ObjectDescriptor{UnpackedFieldCount: int(tag)})
		}(heap.DescriptorTag(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, workers, registry.Count())
	for i := 0; i < workers; i++ {
		found, ok := registry.Lookup(heap.DescriptorTag(i))
		require.True(t, ok)
		require.Equal(t, i, found.UnpackedFieldCount)
	}
}
