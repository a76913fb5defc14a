package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/claudefs/claudefs/internal/replication"
)

func opKindFromWire(b uint8) replication.OpKind {
	return replication.OpKind(b)
}

var (
	ErrCorruptedRecord  = errors.New("journal: corrupted record")
	ErrChecksumMismatch = errors.New("journal: checksum mismatch")
)

type wireRecord struct {
	Seq     uint64 `json:"seq"`
	ShardID uint32 `json:"shard_id"`
	SiteID  string `json:"site_id"`
	TsUs    int64  `json:"ts_us"`
	Inode   uint64 `json:"inode"`
	Op      uint8  `json:"op"`
	Payload []byte `json:"payload,omitempty"`
}

// encodeRecordFrame serializes a record as a length-prefixed,
// self-describing frame: [length:4][crc32:4][json payload...].
func encodeRecordFrame(r Record) ([]byte, error) {
	wire := wireRecord{
		Seq:     r.Seq,
		ShardID: r.ShardID,
		SiteID:  r.SiteID,
		TsUs:    r.TimestampUs,
		Inode:   r.Inode,
		Op:      uint8(r.Op),
		Payload: r.Payload,
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("journal: marshal record: %w", err)
	}

	crc := crc32.ChecksumIEEE(payload)
	length := uint32(4 + len(payload))
	if length < 4 {
		return nil, ErrCorruptedRecord
	}

	out := make([]byte, 0, 4+int(length))
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], length)
	out = append(out, header[:]...)

	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	out = append(out, crcBuf[:]...)
	out = append(out, payload...)
	return out, nil
}

// decodeRecordFrame parses a frame's body (everything after the
// length prefix): [crc32:4][json payload...].
func decodeRecordFrame(frame []byte) (Record, error) {
	if len(frame) < 4 {
		return Record{}, ErrCorruptedRecord
	}

	wantCRC := binary.BigEndian.Uint32(frame[:4])
	payload := frame[4:]

	gotCRC := crc32.ChecksumIEEE(payload)
	if gotCRC != wantCRC {
		return Record{}, ErrChecksumMismatch
	}

	var wire wireRecord
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Record{}, fmt.Errorf("journal: unmarshal record: %w", err)
	}

	return Record{
		Seq:         wire.Seq,
		ShardID:     wire.ShardID,
		SiteID:      wire.SiteID,
		TimestampUs: wire.TsUs,
		Inode:       wire.Inode,
		Op:          opKindFromWire(wire.Op),
		Payload:     wire.Payload,
	}, nil
}
