package metadatanode

import (
	"sync"
	"time"
)

// LeaseManager grants per-inode read leases with a fixed TTL. A lease
// is revoked outright on any mutation touching its inode. There is no
// sweep: an expired lease stays in the table until its inode is revoked
// or re-granted, and ActiveLeaseCount skips it.
type LeaseManager struct {
	mu      sync.Mutex
	ttl     time.Duration
	leases  map[uint64]time.Time // ino -> expiry
}

// NewLeaseManager creates a manager granting leases valid for ttlSeconds.
func NewLeaseManager(ttlSeconds int) *LeaseManager {
	return &LeaseManager{
		ttl:    time.Duration(ttlSeconds) * time.Second,
		leases: make(map[uint64]time.Time),
	}
}

// Grant issues or refreshes a lease for ino.
func (m *LeaseManager) Grant(ino uint64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leases[ino] = now.Add(m.ttl)
}

// Revoke removes any outstanding lease on ino. Revoking an inode with
// no lease is not an error.
func (m *LeaseManager) Revoke(ino uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.leases, ino)
}

// ActiveLeaseCount returns the number of leases not yet expired as of now.
func (m *LeaseManager) ActiveLeaseCount(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, expiry := range m.leases {
		if now.Before(expiry) {
			n++
		}
	}
	return n
}
