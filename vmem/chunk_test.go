package vmem_test

import (
	"testing"

	"github.com/Krantz-XRF/memory-manager/memutils"
	"github.com/Krantz-XRF/memory-manager/vmem"
	"github.com/stretchr/testify/require"
)

func TestChunkLifecycle(t *testing.T) {
	minAlign, err := vmem.MinimumAlignment()
	require.NoError(t, err)

	size := 2 * minAlign
	chunk, err := vmem.AllocateChunk(minAlign, size, vmem.ProtRead|vmem.ProtWrite)
	require.NoError(t, err)
	require.NotNil(t, chunk.Data())
	require.Equal(t, size, chunk.Size())
	require.Zero(t, uintptr(chunk.Data())%uintptr(minAlign))

	bytes := chunk.Bytes()
	require.Len(t, bytes, size)
	require.Zero(t, bytes[0])

	words := chunk.Words()
	require.Len(t, words, size/memutils.WordSize)
	words[0] = 0xDEAD
	require.Equal(t, uintptr(0xDEAD), words[0])

	chunk.Free()
	require.Nil(t, chunk.Data())
	require.Zero(t, chunk.Size())
}

func TestChunkDoubleFreePanics(t *testing.T) {
	minAlign, err := vmem.MinimumAlignment()
	require.NoError(t, err)

	chunk, err := vmem.AllocateChunk(minAlign, minAlign, vmem.ProtRead|vmem.ProtWrite)
	require.NoError(t, err)

	chunk.Free()
	require.Panics(t, func() {
		chunk.Free()
	})
}

func TestChunkAllocateInvalid(t *testing.T) {
	minAlign, err := vmem.MinimumAlignment()
	require.NoError(t, err)

	_, err = vmem.AllocateChunk(minAlign, minAlign-1, vmem.ProtRead)
	requireCode(t, err, vmem.InvalidArguments)
}
