//go:build windows

package vmem

import (
	"runtime"
	"sync"
	"unsafe"

	cerrors "github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

// VirtualAlloc2 and GetSystemInfo are not part of the generated syscall
// surface, so they are resolved lazily by name.
var (
	modkernel32       = windows.NewLazySystemDLL("kernel32.dll")
	modkernelbase     = windows.NewLazySystemDLL("kernelbase.dll")
	procGetSystemInfo = modkernel32.NewProc("GetSystemInfo")
	procVirtualAlloc2 = modkernelbase.NewProc("VirtualAlloc2")
)

const memExtendedParameterAddressRequirements = 1

type memAddressRequirements struct {
	LowestStartingAddress uintptr
	HighestEndingAddress  uintptr
	Alignment             uintptr
}

// memExtendedParameter mirrors MEM_EXTENDED_PARAMETER, which is a fixed 16
// bytes on every architecture: a 64-bit type bitfield followed by an 8-byte
// union. The pointer member is widened to uint64 so the 32-bit build keeps
// the native layout.
type memExtendedParameter struct {
	Type    uint64
	Pointer uint64
}

type systemInfo struct {
	ProcessorArchitecture     uint16
	Reserved                  uint16
	PageSize                  uint32
	MinimumApplicationAddress uintptr
	MaximumApplicationAddress uintptr
	ActiveProcessorMask       uintptr
	NumberOfProcessors        uint32
	ProcessorType             uint32
	AllocationGranularity     uint32
	ProcessorLevel            uint16
	ProcessorRevision         uint16
}

var querySystemInfo = sync.OnceValue(func() systemInfo {
	var info systemInfo
	procGetSystemInfo.Call(uintptr(unsafe.Pointer(&info)))
	return info
})

func sysPageSize() (int, error) {
	return int(querySystemInfo().PageSize), nil
}

func sysMinimumAlignment() (int, error) {
	return int(querySystemInfo().AllocationGranularity), nil
}

// makeProtectionFlag translates Protection into the PAGE_* constant matrix.
// Write access always includes read access, and the executable variants sit
// four bits to the left of their data-only counterparts.
func makeProtectionFlag(prot Protection) uint32 {
	flag := uint32(windows.PAGE_NOACCESS)
	if prot&ProtWrite != 0 {
		flag = windows.PAGE_READWRITE
	} else if prot&ProtRead != 0 {
		flag = windows.PAGE_READONLY
	}
	if prot&ProtExec != 0 {
		flag <<= 4
	}
	return flag
}

func errnoMapError(errno windows.Errno) *MapError {
	code := UnknownError
	switch errno {
	case windows.ERROR_SUCCESS:
		code = NoError
	case windows.ERROR_INVALID_PARAMETER:
		code = InvalidArguments
	}
	return &MapError{Code: code, Errno: uint64(errno)}
}

func sysAllocate(size int, prot Protection) (unsafe.Pointer, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, makeProtectionFlag(prot))
	if err != nil {
		return nil, cerrors.Wrapf(osError(err), "VirtualAlloc %d bytes", size)
	}
	return unsafe.Pointer(addr), nil
}

func sysAllocateAligned(alignment, size int, prot Protection) (unsafe.Pointer, error) {
	requirements := memAddressRequirements{
		Alignment: uintptr(alignment),
	}
	param := memExtendedParameter{
		Type:    memExtendedParameterAddressRequirements,
		Pointer: uint64(uintptr(unsafe.Pointer(&requirements))),
	}

	addr, _, errno := procVirtualAlloc2.Call(
		0, // current process
		0, // no base address, the system chooses
		uintptr(size),
		windows.MEM_COMMIT|windows.MEM_RESERVE,
		uintptr(makeProtectionFlag(prot)),
		uintptr(unsafe.Pointer(&param)),
		1,
	)
	runtime.KeepAlive(&requirements)
	if addr == 0 {
		return nil, cerrors.Wrapf(osError(errno), "VirtualAlloc2 %d bytes aligned to %d", size, alignment)
	}
	return unsafe.Pointer(addr), nil
}

func sysDeallocate(addr unsafe.Pointer, size int) error {
	// Mappings are identified by their base address; the size is not needed.
	if err := windows.VirtualFree(uintptr(addr), 0, windows.MEM_RELEASE); err != nil {
		return cerrors.Wrapf(osError(err), "VirtualFree at %p", addr)
	}
	return nil
}
