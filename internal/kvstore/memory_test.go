package kvstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, []byte("a"), []byte("1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, err := s.Get(ctx, []byte("a"))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(v) != "1" {
		t.Errorf("Get() = %q, want %q", v, "1")
	}

	if err := s.Delete(ctx, []byte("a")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, []byte("a")); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrKeyNotFound", err)
	}
}

func TestMemoryStore_Scan(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	s.Set(ctx, []byte("shard/01/a"), []byte("1"))
	s.Set(ctx, []byte("shard/01/b"), []byte("2"))
	s.Set(ctx, []byte("shard/02/a"), []byte("3"))

	var keys []string
	err := s.Scan(ctx, []byte("shard/01/"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Scan() found %d keys, want 2: %v", len(keys), keys)
	}
}

func TestMemoryStore_Scan_EarlyStop(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, []byte("a"), []byte("1"))
	s.Set(ctx, []byte("b"), []byte("2"))

	count := 0
	s.Scan(ctx, nil, func(key, value []byte) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("Scan() visited %d entries, want 1 (early stop)", count)
	}
}

func TestMemoryStore_SnapshotRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, []byte("a"), []byte("1"))
	s.Set(ctx, []byte("b"), []byte("2"))

	r, err := s.SaveSnapshot(ctx)
	if err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	defer r.Close()

	restored := NewMemoryStore()
	if err := restored.LoadSnapshot(ctx, r); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	v, err := restored.Get(ctx, []byte("a"))
	if err != nil || string(v) != "1" {
		t.Errorf("restored Get(a) = %q, %v", v, err)
	}
}

func TestMemoryStore_ClosedRejectsOps(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Close()

	if err := s.Set(ctx, []byte("a"), []byte("1")); !errors.Is(err, ErrClosed) {
		t.Errorf("Set() after close = %v, want ErrClosed", err)
	}
	if _, err := s.Get(ctx, []byte("a")); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after close = %v, want ErrClosed", err)
	}
}

func TestMemoryStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Set(ctx, []byte("a"), []byte("1"))

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalKeys != 1 {
		t.Errorf("TotalKeys = %d, want 1", stats.TotalKeys)
	}
}
