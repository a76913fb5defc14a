package metadatanode

import (
	"sync"

	"github.com/claudefs/claudefs/internal/domain"
)

// QuotaLimits bounds usage for one (uid, gid) pair. A zero value in
// either field means unlimited for that dimension.
type QuotaLimits struct {
	MaxBytes  uint64
	MaxInodes uint64
}

// QuotaUsage tracks current consumption for one (uid, gid) pair.
type QuotaUsage struct {
	BytesUsed  uint64
	InodesUsed uint64
}

type quotaKey struct {
	Uid uint32
	Gid uint32
}

// QuotaManager enforces per-(uid,gid) byte and inode quotas. A
// zero-value QuotaManager has no limits configured and check_quota
// always succeeds, which is the default for nodes that don't opt in
// to quota enforcement.
type QuotaManager struct {
	mu     sync.Mutex
	limits map[quotaKey]QuotaLimits
	usage  map[quotaKey]QuotaUsage
}

// NewQuotaManager creates an empty quota table; call SetLimits to
// enforce a bound for a given (uid, gid).
func NewQuotaManager() *QuotaManager {
	return &QuotaManager{
		limits: make(map[quotaKey]QuotaLimits),
		usage:  make(map[quotaKey]QuotaUsage),
	}
}

// SetLimits configures the quota for (uid, gid).
func (m *QuotaManager) SetLimits(uid, gid uint32, limits QuotaLimits) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits[quotaKey{uid, gid}] = limits
}

// Usage returns the current usage snapshot for (uid, gid).
func (m *QuotaManager) Usage(uid, gid uint32) QuotaUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage[quotaKey{uid, gid}]
}

// CheckQuota reports whether applying bytesDelta/inodesDelta to (uid,
// gid)'s usage would exceed its configured limits. It does not mutate
// usage; call UpdateUsage after the underlying operation succeeds.
func (m *QuotaManager) CheckQuota(uid, gid uint32, bytesDelta, inodesDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := quotaKey{uid, gid}
	limits, hasLimits := m.limits[key]
	if !hasLimits {
		return nil
	}
	usage := m.usage[key]

	if limits.MaxBytes > 0 {
		if next := addClamped(usage.BytesUsed, bytesDelta); next > limits.MaxBytes {
			return domain.ErrQuotaExceeded
		}
	}
	if limits.MaxInodes > 0 {
		if next := addClamped(usage.InodesUsed, inodesDelta); next > limits.MaxInodes {
			return domain.ErrQuotaExceeded
		}
	}
	return nil
}

// UpdateUsage applies bytesDelta/inodesDelta to (uid, gid)'s usage
// after the underlying operation has already succeeded.
func (m *QuotaManager) UpdateUsage(uid, gid uint32, bytesDelta, inodesDelta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := quotaKey{uid, gid}
	usage := m.usage[key]
	usage.BytesUsed = addClamped(usage.BytesUsed, bytesDelta)
	usage.InodesUsed = addClamped(usage.InodesUsed, inodesDelta)
	m.usage[key] = usage
}

func addClamped(base uint64, delta int64) uint64 {
	if delta >= 0 {
		return base + uint64(delta)
	}
	dec := uint64(-delta)
	if dec > base {
		return 0
	}
	return base - dec
}
