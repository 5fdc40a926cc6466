package vmem

import "strings"

// Protection describes the access rights requested for a mapped region.
// Flags combine with bitwise or.
type Protection uint32

const (
	// ProtRead makes the mapped region readable
	ProtRead Protection = 1 << iota
	// ProtWrite makes the mapped region writable. Windows cannot express
	// write access without read access, so ProtWrite implies ProtRead there.
	ProtWrite
	// ProtExec makes the mapped region executable
	ProtExec
)

// ProtNone requests a region that cannot be accessed at all. Useful for
// reserving address space and for guard regions.
const ProtNone Protection = 0

var protectionMapping = make(map[Protection]string)

func init() {
	protectionMapping[ProtRead] = "ProtRead"
	protectionMapping[ProtWrite] = "ProtWrite"
	protectionMapping[ProtExec] = "ProtExec"
}

func (p Protection) String() string {
	if p == ProtNone {
		return "ProtNone"
	}

	var sb strings.Builder
	for _, flag := range []Protection{ProtRead, ProtWrite, ProtExec} {
		if p&flag == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("|")
		}
		sb.WriteString(protectionMapping[flag])
	}
	return sb.String()
}
