package metadatanode

import (
	"context"
	"fmt"
	"strings"

	"github.com/claudefs/claudefs/internal/domain"
	"github.com/claudefs/claudefs/internal/kvstore"
)

// XattrStore holds extended-attribute key/value pairs per inode,
// independent of the inode attribute record, backed by the KV store.
type XattrStore struct {
	kv kvstore.Store
}

// NewXattrStore wraps kv for extended-attribute storage.
func NewXattrStore(kv kvstore.Store) *XattrStore {
	return &XattrStore{kv: kv}
}

func xattrKey(ino uint64, name string) []byte {
	return []byte(fmt.Sprintf("xattr/%020d/%s", ino, name))
}

func xattrPrefix(ino uint64) []byte {
	return []byte(fmt.Sprintf("xattr/%020d/", ino))
}

// Get retrieves the value of one extended attribute.
func (s *XattrStore) Get(ctx context.Context, ino uint64, name string) ([]byte, error) {
	v, err := s.kv.Get(ctx, xattrKey(ino, name))
	if err == kvstore.ErrKeyNotFound {
		return nil, domain.ErrXattrNotFound
	}
	return v, err
}

// Set stores (or overwrites) one extended attribute.
func (s *XattrStore) Set(ctx context.Context, ino uint64, name string, value []byte) error {
	return s.kv.Set(ctx, xattrKey(ino, name), value)
}

// Remove deletes one extended attribute.
func (s *XattrStore) Remove(ctx context.Context, ino uint64, name string) error {
	return s.kv.Delete(ctx, xattrKey(ino, name))
}

// List returns the names of every extended attribute set on ino.
func (s *XattrStore) List(ctx context.Context, ino uint64) ([]string, error) {
	prefix := xattrPrefix(ino)
	var names []string
	err := s.kv.Scan(ctx, prefix, func(key, _ []byte) bool {
		names = append(names, strings.TrimPrefix(string(key), string(prefix)))
		return true
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// removeAll deletes every extended attribute on ino. No operation in
// this package calls it; unlink and rmdir leave an inode's xattrs in place.
func (s *XattrStore) removeAll(ctx context.Context, ino uint64) error {
	names, err := s.List(ctx, ino)
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := s.Remove(ctx, ino, n); err != nil {
			return err
		}
	}
	return nil
}
