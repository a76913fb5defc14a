package ec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/claudefs/claudefs/internal/domain"
)

func profile42() Profile {
	return Profile{DataShards: 4, ParityShards: 2}
}

func TestEncode_RejectsEmptyData(t *testing.T) {
	_, err := Encode("seg1", profile42(), nil)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("Encode() error = %v, want ErrInvalidArgument", err)
	}
}

func TestEncode_RejectsInvalidProfile(t *testing.T) {
	_, err := Encode("seg1", Profile{DataShards: 0}, []byte("x"))
	if !errors.Is(err, domain.ErrInvalidProfile) {
		t.Errorf("Encode() error = %v, want ErrInvalidProfile", err)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog, 1234567890")
	stripe, err := Encode("seg1", profile42(), data)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(stripe.Shards) != 6 {
		t.Fatalf("len(Shards) = %d, want 6", len(stripe.Shards))
	}

	got, err := Decode(stripe)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Decode() = %q, want %q", got, data)
	}
}

func TestEncode_ShardSizeIsPadded(t *testing.T) {
	data := []byte("123456789") // 9 bytes, k=4 -> shardSize = ceil(9/4) = 3
	stripe, err := Encode("seg1", profile42(), data)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if stripe.ShardSize != 3 {
		t.Errorf("ShardSize = %d, want 3", stripe.ShardSize)
	}
}

func TestDecode_RecoversSingleMissingDataShard(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGHIJ")
	stripe, err := Encode("seg1", profile42(), data)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	// Knock out data shard 2.
	stripe.Shards[2].Present = false

	got, err := Decode(stripe)
	if err != nil {
		t.Fatalf("Decode() with one missing shard error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Decode() recovered = %q, want %q", got, data)
	}
}

func TestDecode_TooManyMissingFails(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	stripe, _ := Encode("seg1", profile42(), data)

	stripe.Shards[0].Present = false
	stripe.Shards[1].Present = false

	_, err := Decode(stripe)
	if !errors.Is(err, domain.ErrTooManyMissing) {
		t.Errorf("Decode() error = %v, want ErrTooManyMissing", err)
	}
}

func TestDecode_MissingDataShardAndParityFails(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	stripe, _ := Encode("seg1", profile42(), data)

	stripe.Shards[0].Present = false // data shard
	stripe.Shards[4].Present = false // parity-0

	_, err := Decode(stripe)
	if !errors.Is(err, domain.ErrTooManyMissing) {
		t.Errorf("Decode() error = %v, want ErrTooManyMissing", err)
	}
}

func TestVerify_DetectsChecksumMismatch(t *testing.T) {
	data := []byte("abcdefghijklmnop")
	stripe, _ := Encode("seg1", profile42(), data)

	stripe.Shards[0].Data[0] ^= 0xFF // corrupt

	err := stripe.Verify()
	if !errors.Is(err, domain.ErrShardChecksum) {
		t.Errorf("Verify() error = %v, want ErrShardChecksum", err)
	}
}

func TestStripeState(t *testing.T) {
	data := []byte("abcdefghijklmnop")
	stripe, _ := Encode("seg1", profile42(), data)

	if stripe.State() != StateComplete {
		t.Errorf("State() = %v, want StateComplete", stripe.State())
	}

	stripe.Shards[1].Present = false
	if stripe.State() != StateDegraded {
		t.Errorf("State() = %v, want StateDegraded", stripe.State())
	}

	stripe.Shards[0].Present = false
	if stripe.State() != StateUnrecoverable {
		t.Errorf("State() = %v, want StateUnrecoverable", stripe.State())
	}
}

func TestReconstructShard_RebuildsInPlace(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwx")
	stripe, _ := Encode("seg1", profile42(), data)

	original := append([]byte(nil), stripe.Shards[1].Data...)
	stripe.Shards[1].Present = false
	stripe.Shards[1].Data = nil

	if err := ReconstructShard(stripe, 1); err != nil {
		t.Fatalf("ReconstructShard() error = %v", err)
	}
	if !bytes.Equal(stripe.Shards[1].Data, original) {
		t.Errorf("reconstructed shard = %v, want %v", stripe.Shards[1].Data, original)
	}
	if !stripe.Shards[1].Present {
		t.Errorf("expected reconstructed shard marked Present")
	}
}

func TestReconstructShard_RebuildsMissingParityZero(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwx")
	stripe, _ := Encode("seg1", profile42(), data)

	original := append([]byte(nil), stripe.Shards[4].Data...)
	stripe.Shards[4].Present = false
	stripe.Shards[4].Data = nil

	if err := ReconstructShard(stripe, 4); err != nil {
		t.Fatalf("ReconstructShard() error = %v", err)
	}
	if !bytes.Equal(stripe.Shards[4].Data, original) {
		t.Errorf("reconstructed parity-0 = %v, want %v", stripe.Shards[4].Data, original)
	}
	if !stripe.Shards[4].Present {
		t.Errorf("expected reconstructed shard marked Present")
	}
}

func TestReconstructShard_RebuildsMissingParityOne(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwx")
	stripe, _ := Encode("seg1", profile42(), data)

	original := append([]byte(nil), stripe.Shards[5].Data...)
	stripe.Shards[5].Present = false
	stripe.Shards[5].Data = nil

	if err := ReconstructShard(stripe, 5); err != nil {
		t.Fatalf("ReconstructShard() error = %v", err)
	}
	if !bytes.Equal(stripe.Shards[5].Data, original) {
		t.Errorf("reconstructed parity-1 = %v, want %v", stripe.Shards[5].Data, original)
	}
	if !stripe.Shards[5].Present {
		t.Errorf("expected reconstructed shard marked Present")
	}
}

func TestReconstructShard_ParityToleratesMissingDataShard(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwx")
	stripe, _ := Encode("seg1", profile42(), data)

	// A data shard is also missing; parity reconstruction should still
	// succeed by zero-filling the absent data shard, matching Encode's
	// own treatment of that shard when it was last present.
	stripe.Shards[0].Present = false
	stripe.Shards[5].Present = false
	stripe.Shards[5].Data = nil

	if err := ReconstructShard(stripe, 5); err != nil {
		t.Fatalf("ReconstructShard() error = %v", err)
	}

	want := make([]byte, stripe.ShardSize)
	for off := 0; off < stripe.ShardSize; off++ {
		var acc byte
		for d := 1; d < stripe.Profile.DataShards; d++ {
			acc ^= rotateRight(stripe.Shards[d].Data[off], d)
		}
		want[off] = acc
	}
	if !bytes.Equal(stripe.Shards[5].Data, want) {
		t.Errorf("reconstructed parity-1 = %v, want %v", stripe.Shards[5].Data, want)
	}
}

func TestReconstructShard_RejectsOutOfRangeIndex(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwx")
	stripe, _ := Encode("seg1", profile42(), data)

	if err := ReconstructShard(stripe, stripe.Profile.TotalShards()); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("ReconstructShard() error = %v, want ErrInvalidArgument", err)
	}
}

func TestStatsSnapshot_TracksActivity(t *testing.T) {
	before := StatsSnapshot()

	data := []byte("abcdefghijklmnopqrstuvwx")
	stripe, _ := Encode("seg1", profile42(), data)
	if _, err := Decode(stripe); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	stripe.Shards[0].Present = false
	stripe.Shards[0].Data = nil
	if err := ReconstructShard(stripe, 0); err != nil {
		t.Fatalf("ReconstructShard() error = %v", err)
	}

	corrupt, _ := Encode("seg2", profile42(), data)
	corrupt.Shards[0].Data[0] ^= 0xFF
	if err := corrupt.Verify(); err == nil {
		t.Fatalf("Verify() on corrupted shard: want error, got nil")
	}

	after := StatsSnapshot()
	if after.StripesEncoded < before.StripesEncoded+2 {
		t.Errorf("StripesEncoded = %d, want >= %d", after.StripesEncoded, before.StripesEncoded+2)
	}
	if after.StripesDecoded < before.StripesDecoded+1 {
		t.Errorf("StripesDecoded = %d, want >= %d", after.StripesDecoded, before.StripesDecoded+1)
	}
	if after.ShardsReconstructed < before.ShardsReconstructed+1 {
		t.Errorf("ShardsReconstructed = %d, want >= %d", after.ShardsReconstructed, before.ShardsReconstructed+1)
	}
	if after.ChecksumFailures < before.ChecksumFailures+1 {
		t.Errorf("ChecksumFailures = %d, want >= %d", after.ChecksumFailures, before.ChecksumFailures+1)
	}
}
