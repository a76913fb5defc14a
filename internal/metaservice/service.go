// Package metaservice applies MetaOps to the in-memory inode/directory
// maps backed by the KV store, exposing the POSIX-shaped operations the
// MetadataNode façade delegates to.
package metaservice

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/claudefs/claudefs/internal/domain"
	"github.com/claudefs/claudefs/internal/kvstore"
)

const rootIno uint64 = 1

// Config configures a Service instance.
type Config struct {
	NodeID    string
	SiteID    string
	NumShards uint32
}

// Service owns the inode attribute table and per-directory entry maps.
// Attribute records are persisted through the KV store keyed by inode
// id; directory entry maps are held in memory only.
type Service struct {
	cfg Config
	kv  kvstore.Store

	mu      sync.RWMutex
	inodes  map[uint64]domain.InodeAttr
	dirents map[uint64]map[string]domain.DirEntry
	nextIno uint64
}

// New creates a Service. Call InitRoot once before first use.
func New(cfg Config, kv kvstore.Store) *Service {
	return &Service{
		cfg:     cfg,
		kv:      kv,
		inodes:  make(map[uint64]domain.InodeAttr),
		dirents: make(map[uint64]map[string]domain.DirEntry),
		nextIno: rootIno + 1,
	}
}

// InitRoot creates the root directory inode if it does not already
// exist. Idempotent so a node can call it on every restart.
func (s *Service) InitRoot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inodes[rootIno]; ok {
		return nil
	}
	now := time.Now()
	attr := domain.InodeAttr{
		Ino:      rootIno,
		FileType: domain.FileDir,
		Mode:     0o755,
		Nlink:    2,
		Atime:    now,
		Mtime:    now,
		Ctime:    now,
	}
	s.inodes[rootIno] = attr
	s.dirents[rootIno] = make(map[string]domain.DirEntry)
	return s.persistAttr(ctx, attr)
}

func (s *Service) allocInode() uint64 {
	ino := s.nextIno
	s.nextIno++
	return ino
}

func (s *Service) persistAttr(ctx context.Context, attr domain.InodeAttr) error {
	if s.kv == nil {
		return nil
	}
	b, err := json.Marshal(attr)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, attrKey(attr.Ino), b)
}

func (s *Service) deletePersistedAttr(ctx context.Context, ino uint64) error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Delete(ctx, attrKey(ino))
}

func attrKey(ino uint64) []byte {
	return []byte(fmt.Sprintf("ino/%020d", ino))
}

func (s *Service) requireDir(ino uint64) (domain.InodeAttr, error) {
	attr, ok := s.inodes[ino]
	if !ok {
		return domain.InodeAttr{}, domain.ErrNotFound
	}
	if attr.FileType != domain.FileDir {
		return domain.InodeAttr{}, domain.ErrNotDirectory
	}
	return attr, nil
}

func (s *Service) createChild(ctx context.Context, parent uint64, name string, ft domain.FileType, uid, gid, mode uint32) (domain.InodeAttr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireDir(parent); err != nil {
		return domain.InodeAttr{}, err
	}
	entries := s.dirents[parent]
	if _, exists := entries[name]; exists {
		return domain.InodeAttr{}, domain.ErrAlreadyExists
	}

	ino := s.allocInode()
	now := time.Now()
	attr := domain.InodeAttr{
		Ino:      ino,
		FileType: ft,
		Uid:      uid,
		Gid:      gid,
		Mode:     mode,
		Nlink:    1,
		Atime:    now,
		Mtime:    now,
		Ctime:    now,
	}
	if ft == domain.FileDir {
		attr.Nlink = 2
	}

	s.inodes[ino] = attr
	if ft == domain.FileDir {
		s.dirents[ino] = make(map[string]domain.DirEntry)
	}
	entries[name] = domain.DirEntry{Name: name, Ino: ino, FileType: ft}

	if err := s.persistAttr(ctx, attr); err != nil {
		return domain.InodeAttr{}, err
	}
	return attr, nil
}

// CreateFile allocates a new regular-file inode under parent.
func (s *Service) CreateFile(ctx context.Context, parent uint64, name string, uid, gid, mode uint32) (domain.InodeAttr, error) {
	return s.createChild(ctx, parent, name, domain.FileRegular, uid, gid, mode)
}

// Mkdir allocates a new directory inode under parent.
func (s *Service) Mkdir(ctx context.Context, parent uint64, name string, uid, gid, mode uint32) (domain.InodeAttr, error) {
	return s.createChild(ctx, parent, name, domain.FileDir, uid, gid, mode)
}

// Symlink allocates a new symlink inode under parent, pointing at target.
func (s *Service) Symlink(ctx context.Context, parent uint64, name, target string, uid, gid uint32) (domain.InodeAttr, error) {
	attr, err := s.createChild(ctx, parent, name, domain.FileSymlink, uid, gid, 0o777)
	if err != nil {
		return domain.InodeAttr{}, err
	}
	s.mu.Lock()
	attr.SymlinkTarget = target
	s.inodes[attr.Ino] = attr
	s.mu.Unlock()
	if err := s.persistAttr(ctx, attr); err != nil {
		return domain.InodeAttr{}, err
	}
	return attr, nil
}

// Lookup resolves name within parent to a DirEntry.
func (s *Service) Lookup(ctx context.Context, parent uint64, name string) (domain.DirEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.requireDir(parent); err != nil {
		return domain.DirEntry{}, err
	}
	e, ok := s.dirents[parent][name]
	if !ok {
		return domain.DirEntry{}, domain.ErrNotFound
	}
	return e, nil
}

// GetAttr returns the attribute record for ino.
func (s *Service) GetAttr(ctx context.Context, ino uint64) (domain.InodeAttr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attr, ok := s.inodes[ino]
	if !ok {
		return domain.InodeAttr{}, domain.ErrNotFound
	}
	return attr, nil
}

// SetAttr overwrites the attribute record for ino. WORM enforcement is
// the façade's responsibility, not the service's.
func (s *Service) SetAttr(ctx context.Context, ino uint64, attr domain.InodeAttr) error {
	s.mu.Lock()
	if _, ok := s.inodes[ino]; !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	attr.Ino = ino
	attr.Ctime = time.Now()
	s.inodes[ino] = attr
	s.mu.Unlock()
	return s.persistAttr(ctx, attr)
}

// Readdir lists the entries of directory dir.
func (s *Service) Readdir(ctx context.Context, dir uint64) ([]domain.DirEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.requireDir(dir); err != nil {
		return nil, err
	}
	out := make([]domain.DirEntry, 0, len(s.dirents[dir]))
	for _, e := range s.dirents[dir] {
		out = append(out, e)
	}
	return out, nil
}

func (s *Service) destroyInodeIfOrphanedLocked(ctx context.Context, ino uint64) error {
	attr, ok := s.inodes[ino]
	if !ok {
		return nil
	}
	if attr.Nlink > 0 {
		return nil
	}
	delete(s.inodes, ino)
	delete(s.dirents, ino)
	return s.deletePersistedAttr(ctx, ino)
}

// Unlink removes name from parent, decrementing the target's link count
// and destroying the inode once it reaches zero links.
func (s *Service) Unlink(ctx context.Context, parent uint64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireDir(parent); err != nil {
		return err
	}
	entry, ok := s.dirents[parent][name]
	if !ok {
		return domain.ErrNotFound
	}
	if entry.FileType == domain.FileDir {
		return domain.ErrIsDirectory
	}
	delete(s.dirents[parent], name)

	attr := s.inodes[entry.Ino]
	if attr.Nlink > 0 {
		attr.Nlink--
	}
	s.inodes[entry.Ino] = attr
	return s.destroyInodeIfOrphanedLocked(ctx, entry.Ino)
}

// Rmdir removes an empty directory entry.
func (s *Service) Rmdir(ctx context.Context, parent uint64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireDir(parent); err != nil {
		return err
	}
	entry, ok := s.dirents[parent][name]
	if !ok {
		return domain.ErrNotFound
	}
	if entry.FileType != domain.FileDir {
		return domain.ErrNotDirectory
	}
	if len(s.dirents[entry.Ino]) > 0 {
		return domain.ErrNotEmpty
	}
	delete(s.dirents[parent], name)
	delete(s.dirents, entry.Ino)
	delete(s.inodes, entry.Ino)
	return s.deletePersistedAttr(ctx, entry.Ino)
}

// Rename moves srcName from srcParent to dstName under dstParent,
// replacing an existing destination only when it is the same type and
// (for directories) empty. Applied wholly under a single lock so it is
// atomic with respect to any concurrent reader.
func (s *Service) Rename(ctx context.Context, srcParent uint64, srcName string, dstParent uint64, dstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireDir(srcParent); err != nil {
		return err
	}
	if _, err := s.requireDir(dstParent); err != nil {
		return err
	}
	srcEntry, ok := s.dirents[srcParent][srcName]
	if !ok {
		return domain.ErrNotFound
	}

	if dstEntry, exists := s.dirents[dstParent][dstName]; exists {
		if dstEntry.FileType != srcEntry.FileType {
			return domain.ErrAlreadyExists
		}
		if dstEntry.FileType == domain.FileDir && len(s.dirents[dstEntry.Ino]) > 0 {
			return domain.ErrNotEmpty
		}
		delete(s.inodes, dstEntry.Ino)
		delete(s.dirents, dstEntry.Ino)
		if err := s.deletePersistedAttr(ctx, dstEntry.Ino); err != nil {
			return err
		}
	}

	delete(s.dirents[srcParent], srcName)
	srcEntry.Name = dstName
	s.dirents[dstParent][dstName] = srcEntry
	return nil
}

// Link increments the target inode's Nlink and adds a new directory
// entry for it under parent. Directories cannot be hard-linked.
func (s *Service) Link(ctx context.Context, parent uint64, name string, targetIno uint64) (domain.InodeAttr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireDir(parent); err != nil {
		return domain.InodeAttr{}, err
	}
	if _, exists := s.dirents[parent][name]; exists {
		return domain.InodeAttr{}, domain.ErrAlreadyExists
	}
	attr, ok := s.inodes[targetIno]
	if !ok {
		return domain.InodeAttr{}, domain.ErrNotFound
	}
	if attr.FileType == domain.FileDir {
		return domain.InodeAttr{}, domain.ErrLinkIsDirectory
	}

	attr.Nlink++
	s.inodes[targetIno] = attr
	s.dirents[parent][name] = domain.DirEntry{Name: name, Ino: targetIno, FileType: attr.FileType}

	if err := s.persistAttr(ctx, attr); err != nil {
		return domain.InodeAttr{}, err
	}
	return attr, nil
}

// Readlink returns a symlink's target.
func (s *Service) Readlink(ctx context.Context, ino uint64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attr, ok := s.inodes[ino]
	if !ok {
		return "", domain.ErrNotFound
	}
	if attr.FileType != domain.FileSymlink {
		return "", domain.ErrNotSymlink
	}
	return attr.SymlinkTarget, nil
}

// InodeCount returns the number of live inodes, including the root.
func (s *Service) InodeCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.inodes))
}
