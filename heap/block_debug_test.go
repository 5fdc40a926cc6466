//go:build debug_mem_utils

package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Krantz-XRF/memory-manager/heap"
	"github.com/Krantz-XRF/memory-manager/memutils"
)

func TestDebugValidateCleanBlock(t *testing.T) {
	block := testBlock(t)
	desc := &heap.ObjectDescriptor{UnpackedFieldCount: 2, PointerCount: 1}

	require.NotPanics(t, func() {
		_, err := block.AllocateObject(desc)
		require.NoError(t, err)
		memutils.DebugValidate(block)
	})
}

func TestDebugValidateCorruptedCanary(t *testing.T) {
	block := testBlock(t)
	_, err := block.AllocateObject(&heap.ObjectDescriptor{UnpackedFieldCount: 1})
	require.NoError(t, err)

	// Smash the marker stamped past the free boundary.
	canary := heap.SliceAt[byte](block.FreeAddress(), memutils.DebugMargin)
	canary[0] ^= 0xFF

	require.Panics(t, func() {
		memutils.DebugValidate(block)
	})
}
