// Package integrity tracks per-object verification checkpoints across
// the storage pipeline's stages, so a corruption can be traced back to
// exactly where it was introduced.
package integrity

import (
	"crypto/rand"
	"fmt"
	"hash/crc32"
	"hash/crc64"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/oklog/ulid/v2"
	"github.com/zeebo/blake3"

	"github.com/claudefs/claudefs/internal/domain"
)

// Algorithm identifies which checksum a verification point was
// computed with.
type Algorithm int

const (
	Crc32 Algorithm = iota
	Crc64
	Blake3
	Xxhash64
)

func (a Algorithm) String() string {
	switch a {
	case Crc32:
		return "crc32"
	case Crc64:
		return "crc64"
	case Blake3:
		return "blake3"
	case Xxhash64:
		return "xxhash64"
	default:
		return "unknown"
	}
}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)
var crc64ISOTable = crc64.MakeTable(crc64.ISO)

// Checksum computes the checksum of data under the given algorithm,
// formatted as a hex string (as it is stored on a VerificationPoint).
func Checksum(algo Algorithm, data []byte) (string, error) {
	switch algo {
	case Crc32:
		return fmt.Sprintf("%08x", crc32.Checksum(data, crc32cTable)), nil
	case Crc64:
		return fmt.Sprintf("%016x", crc64.Checksum(data, crc64ISOTable)), nil
	case Blake3:
		sum := blake3.Sum256(data)
		return fmt.Sprintf("%x", sum[:]), nil
	case Xxhash64:
		return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
	default:
		return "", fmt.Errorf("integrity: checksum: %w", domain.ErrUnknownAlgo)
	}
}

// Stage is a point in the storage write/read pipeline where data can
// be checksummed.
type Stage int

const (
	StageClientWrite Stage = iota
	StageDedup
	StageCompress
	StageEncrypt
	StageSegmentPack
	StageEcEncode
	StageLocalStore
	StageReplicate
	StageTierToS3
	StageReadBack
)

func (s Stage) String() string {
	switch s {
	case StageClientWrite:
		return "client_write"
	case StageDedup:
		return "dedup"
	case StageCompress:
		return "compress"
	case StageEncrypt:
		return "encrypt"
	case StageSegmentPack:
		return "segment_pack"
	case StageEcEncode:
		return "ec_encode"
	case StageLocalStore:
		return "local_store"
	case StageReplicate:
		return "replicate"
	case StageTierToS3:
		return "tier_to_s3"
	case StageReadBack:
		return "read_back"
	default:
		return "unknown"
	}
}

// Point is one recorded verification checkpoint.
type Point struct {
	Stage       Stage
	Checksum    string
	Algorithm   Algorithm
	TimestampUs int64
	DataLen     int
}

// Chain tracks the verification points recorded for a single logical
// object as it moves through the pipeline.
type Chain struct {
	ID        string
	DataID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Points    []Point
}

// VerifyResult is the outcome of checking one stage's point against
// freshly-computed data.
type VerifyResult int

const (
	Valid VerifyResult = iota
	Invalid
	MissingPoint
	ChainExpired
	ChainNotFound
)

func (r VerifyResult) String() string {
	switch r {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case MissingPoint:
		return "missing_point"
	case ChainExpired:
		return "chain_expired"
	case ChainNotFound:
		return "chain_not_found"
	default:
		return "unknown"
	}
}

// Config tunes the manager's defaults.
type Config struct {
	DefaultAlgorithm Algorithm
	ChainTTL         time.Duration
	VerifyOnRead     bool
	VerifyOnWrite    bool
	AlertOnFailure   bool
	GCInterval       time.Duration
}

// DefaultConfig returns sensible integrity chain defaults.
func DefaultConfig() Config {
	return Config{
		DefaultAlgorithm: Crc32,
		ChainTTL:         24 * time.Hour,
		VerifyOnRead:     true,
		VerifyOnWrite:    true,
		AlertOnFailure:   true,
		GCInterval:       time.Minute,
	}
}

// Stats aggregates manager activity for metrics reporting.
type Stats struct {
	ChainsCreated     uint64
	PointsAdded       uint64
	VerificationsOK   uint64
	VerificationsFail uint64
	ChainsExpiredGC   uint64
}

// Manager creates, populates, and verifies integrity chains.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	chains map[string]*Chain
	stats  Stats
}

// NewManager creates an integrity chain manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:    cfg,
		chains: make(map[string]*Chain),
	}
}

// CreateChain allocates a new chain for dataID with a random
// sortable-by-creation-time id, expiring ttl after now.
func (m *Manager) CreateChain(dataID string, ttl time.Duration, now time.Time) *Chain {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(now), rand.Reader)
	chain := &Chain{
		ID:        id.String(),
		DataID:    dataID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	m.chains[chain.ID] = chain
	m.stats.ChainsCreated++
	return chain
}

// AddPoint appends a verification point computed from data at stage,
// using algo.
func (m *Manager) AddPoint(chainID string, stage Stage, algo Algorithm, data []byte, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	chain, ok := m.chains[chainID]
	if !ok {
		return fmt.Errorf("integrity: add point to %q: %w", chainID, domain.ErrChainNotFound)
	}

	sum, err := Checksum(algo, data)
	if err != nil {
		return err
	}

	chain.Points = append(chain.Points, Point{
		Stage:       stage,
		Checksum:    sum,
		Algorithm:   algo,
		TimestampUs: now.UnixMicro(),
		DataLen:     len(data),
	})
	m.stats.PointsAdded++
	return nil
}

// VerifyPoint recomputes the checksum for stage from data and compares
// it against the recorded point.
func (m *Manager) VerifyPoint(chainID string, stage Stage, data []byte, now time.Time) (VerifyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chain, ok := m.chains[chainID]
	if !ok {
		return ChainNotFound, nil
	}
	if now.After(chain.ExpiresAt) {
		return ChainExpired, nil
	}

	var point *Point
	for i := range chain.Points {
		if chain.Points[i].Stage == stage {
			point = &chain.Points[i]
			break
		}
	}
	if point == nil {
		return MissingPoint, nil
	}

	sum, err := Checksum(point.Algorithm, data)
	if err != nil {
		return Invalid, err
	}

	if sum == point.Checksum {
		m.stats.VerificationsOK++
		return Valid, nil
	}
	m.stats.VerificationsFail++
	return Invalid, nil
}

// VerifyChain verifies every stage present in dataByStage.
func (m *Manager) VerifyChain(chainID string, dataByStage map[Stage][]byte, now time.Time) (map[Stage]VerifyResult, error) {
	out := make(map[Stage]VerifyResult, len(dataByStage))
	for stage, data := range dataByStage {
		result, err := m.VerifyPoint(chainID, stage, data, now)
		if err != nil {
			return nil, err
		}
		out[stage] = result
	}
	return out, nil
}

// GC removes chains that have expired as of now, returning how many
// were collected.
func (m *Manager) GC(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var collected int
	for id, chain := range m.chains {
		if now.After(chain.ExpiresAt) {
			delete(m.chains, id)
			collected++
		}
	}
	m.stats.ChainsExpiredGC += uint64(collected)
	return collected
}

// Stats returns a snapshot of cumulative manager counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Chain returns a copy of chainID's current state, or ErrChainNotFound.
func (m *Manager) Chain(chainID string) (Chain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chains[chainID]
	if !ok {
		return Chain{}, fmt.Errorf("integrity: chain %q: %w", chainID, domain.ErrChainNotFound)
	}
	return *c, nil
}
