package vmem_test

import (
	"testing"
	"unsafe"

	"github.com/Krantz-XRF/memory-manager/memutils"
	"github.com/Krantz-XRF/memory-manager/vmem"
	"github.com/stretchr/testify/require"
)

func requireCode(t *testing.T, err error, code vmem.ErrorCode) {
	t.Helper()

	var mapErr *vmem.MapError
	require.ErrorAs(t, err, &mapErr)
	require.Equal(t, code, mapErr.Code)
}

func TestPageSizeCoherent(t *testing.T) {
	first, err := vmem.PageSize()
	require.NoError(t, err)
	require.Greater(t, first, 0)
	require.True(t, memutils.IsPow2(first))

	for i := 0; i < 3; i++ {
		again, err := vmem.PageSize()
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestMinimumAlignment(t *testing.T) {
	minAlign, err := vmem.MinimumAlignment()
	require.NoError(t, err)
	require.True(t, memutils.IsPow2(minAlign))

	page, err := vmem.PageSize()
	require.NoError(t, err)
	require.GreaterOrEqual(t, minAlign, page)
	require.Zero(t, minAlign%page)
}

func TestAllocateRejectsZeroSize(t *testing.T) {
	_, err := vmem.Allocate(0, vmem.ProtRead|vmem.ProtWrite)
	requireCode(t, err, vmem.InvalidArguments)

	_, err = vmem.Allocate(-1, vmem.ProtRead|vmem.ProtWrite)
	requireCode(t, err, vmem.InvalidArguments)
}

func TestAllocateRoundTrip(t *testing.T) {
	page, err := vmem.PageSize()
	require.NoError(t, err)

	ptr, err := vmem.Allocate(page, vmem.ProtRead|vmem.ProtWrite)
	require.NoError(t, err)
	require.NotNil(t, ptr)

	buf := unsafe.Slice((*byte)(ptr), page)
	require.Zero(t, buf[0])
	require.Zero(t, buf[page-1])

	buf[0] = 0xAB
	buf[page-1] = 0xCD
	require.Equal(t, byte(0xAB), buf[0])
	require.Equal(t, byte(0xCD), buf[page-1])

	require.NoError(t, vmem.Deallocate(ptr, page))
}

func TestAllocateAlignedRejectsBadArguments(t *testing.T) {
	minAlign, err := vmem.MinimumAlignment()
	require.NoError(t, err)

	_, err = vmem.AllocateAligned(0, minAlign, vmem.ProtRead)
	requireCode(t, err, vmem.InvalidArguments)

	_, err = vmem.AllocateAligned(3, minAlign, vmem.ProtRead)
	requireCode(t, err, vmem.InvalidArguments)

	_, err = vmem.AllocateAligned(minAlign, 0, vmem.ProtRead)
	requireCode(t, err, vmem.InvalidArguments)

	_, err = vmem.AllocateAligned(minAlign, minAlign+1, vmem.ProtRead)
	requireCode(t, err, vmem.InvalidArguments)
}

func TestAllocateAligned(t *testing.T) {
	minAlign, err := vmem.MinimumAlignment()
	require.NoError(t, err)

	alignment := 2 * minAlign
	size := 3 * alignment

	ptr, err := vmem.AllocateAligned(alignment, size, vmem.ProtRead|vmem.ProtWrite)
	require.NoError(t, err)
	require.NotNil(t, ptr)
	require.Zero(t, uintptr(ptr)%uintptr(alignment))

	buf := unsafe.Slice((*byte)(ptr), size)
	require.Zero(t, buf[0])
	require.Zero(t, buf[size-1])
	buf[0] = 0x11
	buf[size-1] = 0x22
	require.Equal(t, byte(0x11), buf[0])
	require.Equal(t, byte(0x22), buf[size-1])

	require.NoError(t, vmem.Deallocate(ptr, size))
}

func TestAllocateAlignedMinimum(t *testing.T) {
	minAlign, err := vmem.MinimumAlignment()
	require.NoError(t, err)

	ptr, err := vmem.AllocateAligned(minAlign, minAlign, vmem.ProtRead|vmem.ProtWrite)
	require.NoError(t, err)
	require.Zero(t, uintptr(ptr)%uintptr(minAlign))

	require.NoError(t, vmem.Deallocate(ptr, minAlign))
}

func TestDeallocateRejectsBadArguments(t *testing.T) {
	err := vmem.Deallocate(nil, 4096)
	requireCode(t, err, vmem.InvalidArguments)
}
