// Package ec implements the rotate-XOR erasure coding scheme used to
// stripe storage blocks across k data shards and m parity shards.
package ec

import (
	"fmt"
	"hash/fnv"
	"sync/atomic"

	"github.com/claudefs/claudefs/internal/domain"
)

// Profile describes an erasure coding layout: k data shards, m parity
// shards.
type Profile struct {
	DataShards   int
	ParityShards int
}

// TotalShards returns k + m.
func (p Profile) TotalShards() int {
	return p.DataShards + p.ParityShards
}

// Validate checks the profile is usable.
func (p Profile) Validate() error {
	if p.DataShards <= 0 || p.ParityShards < 0 {
		return fmt.Errorf("ec: invalid profile %+v: %w", p, domain.ErrInvalidProfile)
	}
	return nil
}

// Shard is one data or parity shard of a stripe.
type Shard struct {
	Index    int
	Data     []byte
	Checksum uint64
	Present  bool
}

// StripeState describes whether a stripe is fully present, degraded
// (a recoverable subset missing), or unrecoverable.
type StripeState int

const (
	StateComplete StripeState = iota
	StateDegraded
	StateUnrecoverable
)

// Stripe is an encoded, striped unit of data.
type Stripe struct {
	SegmentID string
	Profile   Profile
	ShardSize int
	DataLen   int // original, unpadded data length
	Shards    []Shard
}

// simpleChecksum computes the stable, non-cryptographic FNV-1a 64-bit
// checksum used to validate shard contents.
func simpleChecksum(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// rotateRight rotates an 8-bit byte right by n bits (n taken mod 8).
func rotateRight(b byte, n int) byte {
	n = n % 8
	if n == 0 {
		return b
	}
	return (b >> uint(n)) | (b << uint(8-n))
}

// rotateLeft is the inverse of rotateRight.
func rotateLeft(b byte, n int) byte {
	n = n % 8
	if n == 0 {
		return b
	}
	return (b << uint(n)) | (b >> uint(8-n))
}

// Encode splits data into k data shards and computes m parity shards
// for segmentID under profile.
func Encode(segmentID string, profile Profile, data []byte) (*Stripe, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ec: encode %q: %w", segmentID, domain.ErrInvalidArgument)
	}

	k := profile.DataShards
	shardSize := (len(data) + k - 1) / k

	padded := make([]byte, shardSize*k)
	copy(padded, data)

	dataShards := make([][]byte, k)
	for i := 0; i < k; i++ {
		dataShards[i] = padded[i*shardSize : (i+1)*shardSize]
	}

	shards := make([]Shard, 0, profile.TotalShards())
	for i := 0; i < k; i++ {
		shards = append(shards, Shard{
			Index:    i,
			Data:     append([]byte(nil), dataShards[i]...),
			Checksum: simpleChecksum(dataShards[i]),
			Present:  true,
		})
	}

	for p := 0; p < profile.ParityShards; p++ {
		parity := make([]byte, shardSize)
		for off := 0; off < shardSize; off++ {
			var acc byte
			for d := 0; d < k; d++ {
				b := dataShards[d][off]
				if p > 0 {
					b = rotateRight(b, d)
				}
				acc ^= b
			}
			parity[off] = acc
		}
		shards = append(shards, Shard{
			Index:    k + p,
			Data:     parity,
			Checksum: simpleChecksum(parity),
			Present:  true,
		})
	}

	stats.stripesEncoded.Add(1)
	return &Stripe{
		SegmentID: segmentID,
		Profile:   profile,
		ShardSize: shardSize,
		DataLen:   len(data),
		Shards:    shards,
	}, nil
}

// State reports the stripe's recoverability given which shards are
// present.
func (s *Stripe) State() StripeState {
	missingData := 0
	for i := 0; i < s.Profile.DataShards; i++ {
		if !s.Shards[i].Present {
			missingData++
		}
	}
	if missingData == 0 {
		return StateComplete
	}
	if missingData == 1 && s.hasParityZero() {
		return StateDegraded
	}
	return StateUnrecoverable
}

func (s *Stripe) hasParityZero() bool {
	k := s.Profile.DataShards
	return k < len(s.Shards) && s.Shards[k].Present
}

// Verify checks every present shard's checksum, returning
// ErrShardChecksum on the first mismatch.
func (s *Stripe) Verify() error {
	for _, sh := range s.Shards {
		if !sh.Present {
			continue
		}
		if simpleChecksum(sh.Data) != sh.Checksum {
			stats.checksumFailures.Add(1)
			return fmt.Errorf("ec: stripe %q shard %d: %w", s.SegmentID, sh.Index, domain.ErrShardChecksum)
		}
	}
	return nil
}

// Decode reassembles the original data from the stripe. If all k data
// shards are present, they're concatenated directly. If exactly one
// data shard is missing and parity slot 0 is present, it's recovered
// by XORing parity-0 with the remaining data shards. Otherwise fails
// with ErrTooManyMissing.
func Decode(s *Stripe) ([]byte, error) {
	k := s.Profile.DataShards

	allPresent := true
	missingIdx := -1
	for i := 0; i < k; i++ {
		if !s.Shards[i].Present {
			if missingIdx != -1 {
				return nil, fmt.Errorf("ec: decode %q: %w", s.SegmentID, domain.ErrTooManyMissing)
			}
			missingIdx = i
			allPresent = false
		}
	}

	if allPresent {
		out := make([]byte, 0, s.ShardSize*k)
		for i := 0; i < k; i++ {
			out = append(out, s.Shards[i].Data...)
		}
		stats.stripesDecoded.Add(1)
		return out[:s.DataLen], nil
	}

	if !s.hasParityZero() {
		return nil, fmt.Errorf("ec: decode %q: missing data shard %d and no parity-0: %w", s.SegmentID, missingIdx, domain.ErrTooManyMissing)
	}

	recovered := make([]byte, s.ShardSize)
	copy(recovered, s.Shards[k].Data) // parity-0 is a plain XOR, no rotation
	for i := 0; i < k; i++ {
		if i == missingIdx {
			continue
		}
		for off := range recovered {
			recovered[off] ^= s.Shards[i].Data[off]
		}
	}

	out := make([]byte, 0, s.ShardSize*k)
	for i := 0; i < k; i++ {
		if i == missingIdx {
			out = append(out, recovered...)
		} else {
			out = append(out, s.Shards[i].Data...)
		}
	}
	stats.stripesDecoded.Add(1)
	return out[:s.DataLen], nil
}

// ReconstructShard rebuilds a single missing shard in place, marking it
// Present. A missing data shard is recovered from parity-0 and the
// remaining data shards (same algorithm Decode uses); a missing parity
// shard is recomputed directly from the current data shards, applying
// the same rotation rule per parity index that Encode uses.
func ReconstructShard(s *Stripe, index int) error {
	k := s.Profile.DataShards
	if index < 0 || index >= s.Profile.TotalShards() {
		return fmt.Errorf("ec: reconstruct shard %d: %w", index, domain.ErrInvalidArgument)
	}

	var recovered []byte
	if index >= k {
		recovered = reconstructParityShard(s, index-k)
	} else {
		var err error
		recovered, err = reconstructDataShard(s, index)
		if err != nil {
			return err
		}
	}

	s.Shards[index].Data = recovered
	s.Shards[index].Checksum = simpleChecksum(recovered)
	s.Shards[index].Present = true
	stats.shardsReconstructed.Add(1)
	return nil
}

func reconstructDataShard(s *Stripe, index int) ([]byte, error) {
	k := s.Profile.DataShards
	if !s.hasParityZero() {
		return nil, fmt.Errorf("ec: reconstruct shard %d: %w", index, domain.ErrTooManyMissing)
	}

	recovered := make([]byte, s.ShardSize)
	copy(recovered, s.Shards[k].Data)
	for i := 0; i < k; i++ {
		if i == index {
			continue
		}
		if !s.Shards[i].Present {
			return nil, fmt.Errorf("ec: reconstruct shard %d: %w", index, domain.ErrTooManyMissing)
		}
		for off := range recovered {
			recovered[off] ^= s.Shards[i].Data[off]
		}
	}
	return recovered, nil
}

// reconstructParityShard recomputes parity slot parityIdx from whatever
// data shards are currently present, treating an absent data shard as
// all-zero — matching Encode's rotation rule (no rotation for
// parity-0, rotate-right by shard index for later parity slots).
func reconstructParityShard(s *Stripe, parityIdx int) []byte {
	k := s.Profile.DataShards
	parity := make([]byte, s.ShardSize)
	for off := 0; off < s.ShardSize; off++ {
		var acc byte
		for d := 0; d < k; d++ {
			if !s.Shards[d].Present {
				continue
			}
			b := s.Shards[d].Data[off]
			if parityIdx > 0 {
				b = rotateRight(b, d)
			}
			acc ^= b
		}
		parity[off] = acc
	}
	return parity
}

// Stats aggregates encode/decode/verify activity for metrics reporting.
type Stats struct {
	StripesEncoded      uint64
	StripesDecoded      uint64
	ShardsReconstructed uint64
	ChecksumFailures    uint64
}

// stats accumulates package-wide encode/decode/verify/reconstruct
// counters for metrics reporting, mirroring erasure.rs's per-engine
// stats counters. Fields are atomic so concurrent callers striping
// different segments don't race on the counters.
var stats struct {
	stripesEncoded      atomic.Uint64
	stripesDecoded      atomic.Uint64
	shardsReconstructed atomic.Uint64
	checksumFailures    atomic.Uint64
}

// StatsSnapshot returns the package's accumulated counters.
func StatsSnapshot() Stats {
	return Stats{
		StripesEncoded:      stats.stripesEncoded.Load(),
		StripesDecoded:      stats.stripesDecoded.Load(),
		ShardsReconstructed: stats.shardsReconstructed.Load(),
		ChecksumFailures:    stats.checksumFailures.Load(),
	}
}
