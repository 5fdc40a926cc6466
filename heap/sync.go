package heap

import "sync"

// optionalRWMutex is a read-write lock that only engages when requested, so
// single-owner heaps pay nothing for structures that can also be shared.
type optionalRWMutex struct {
	mutex    sync.RWMutex
	useMutex bool
}

func (m *optionalRWMutex) Lock() {
	if m.useMutex {
		m.mutex.Lock()
	}
}

func (m *optionalRWMutex) Unlock() {
	if m.useMutex {
		m.mutex.Unlock()
	}
}

func (m *optionalRWMutex) RLock() {
	if m.useMutex {
		m.mutex.RLock()
	}
}

func (m *optionalRWMutex) RUnlock() {
	if m.useMutex {
		m.mutex.RUnlock()
	}
}
