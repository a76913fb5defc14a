package metadatanode

import (
	"sync"
	"time"
)

// WormState is the write-once-read-many retention record for an inode.
type WormState struct {
	Ino         uint64
	RetainUntil time.Time
	LegalHold   bool
}

// IsProtected reports whether the inode is still under retention as of now.
func (w WormState) IsProtected(now time.Time) bool {
	return w.LegalHold || now.Before(w.RetainUntil)
}

// WormManager tracks retention state per inode, consulted before any
// mutating operation (setattr/unlink/rmdir/xattr) on a protected inode.
type WormManager struct {
	mu     sync.Mutex
	states map[uint64]WormState
}

// NewWormManager creates an empty retention table.
func NewWormManager() *WormManager {
	return &WormManager{states: make(map[uint64]WormState)}
}

// GetState returns the retention record for ino, if any.
func (m *WormManager) GetState(ino uint64) (WormState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[ino]
	return s, ok
}

// Protect places ino under retention until retainUntil, or indefinitely
// while legalHold is set.
func (m *WormManager) Protect(ino uint64, retainUntil time.Time, legalHold bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[ino] = WormState{Ino: ino, RetainUntil: retainUntil, LegalHold: legalHold}
}

// Release clears any retention record for ino.
func (m *WormManager) Release(ino uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, ino)
}
