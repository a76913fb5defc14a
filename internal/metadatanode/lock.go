package metadatanode

import (
	"sync"

	"github.com/claudefs/claudefs/internal/domain"
)

// LockManager tracks advisory whole-file locks keyed by inode. Byte-range
// locking is not modeled; one holder owns the whole inode at a time.
type LockManager struct {
	mu    sync.Mutex
	held  map[uint64]string // ino -> holder client id
}

// NewLockManager creates an empty lock table.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[uint64]string)}
}

// Lock acquires the lock on ino for client. Fails if another client
// already holds it.
func (m *LockManager) Lock(ino uint64, client string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if holder, ok := m.held[ino]; ok && holder != client {
		return domain.ErrLockHeld
	}
	m.held[ino] = client
	return nil
}

// Unlock releases the lock on ino held by client.
func (m *LockManager) Unlock(ino uint64, client string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	holder, ok := m.held[ino]
	if !ok {
		return domain.ErrNotLocked
	}
	if holder != client {
		return domain.ErrLockHeld
	}
	delete(m.held, ino)
	return nil
}

// IsLocked reports whether ino currently has a holder.
func (m *LockManager) IsLocked(ino uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[ino]
	return ok
}
